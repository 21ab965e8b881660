// Package matchmaking pairs connections first come, first served.
// The queue holds at most one waiting connection; the second arrival
// takes it.
package matchmaking

// Queue is not safe for concurrent use; the engine loop owns it.
type Queue struct {
	waiting string
	has     bool
}

// New returns an empty queue.
func New() *Queue { return &Queue{} }

// Offer enqueues conn. If another connection is already waiting it is
// popped and returned with paired=true; conn is not queued in that case.
// Offering the connection that is already waiting leaves it waiting.
func (q *Queue) Offer(conn string) (opponent string, paired bool) {
	if !q.has || q.waiting == conn {
		q.waiting, q.has = conn, true
		return "", false
	}
	opponent = q.waiting
	q.waiting, q.has = "", false
	return opponent, true
}

// Waiting returns the queued connection, if any.
func (q *Queue) Waiting() (string, bool) { return q.waiting, q.has }

// RemoveIfWaiting clears the slot when it holds conn.
func (q *Queue) RemoveIfWaiting(conn string) bool {
	if !q.has || q.waiting != conn {
		return false
	}
	q.waiting, q.has = "", false
	return true
}
