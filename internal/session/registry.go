// Package session tracks who is connected and where they are seated.
package session

import "fmt"

// Profile identifies the person behind a connection. UserID is empty for
// anonymous players.
type Profile struct {
	UserID string
	Name   string
}

// Seat locates a connection inside a room.
type Seat struct {
	RoomID string
	Player int
}

// Registry maps connection id → profile and seat. It is not safe for
// concurrent use; the engine loop owns it.
type Registry struct {
	profiles map[string]Profile
	seats    map[string]Seat
}

func New() *Registry {
	return &Registry{
		profiles: make(map[string]Profile),
		seats:    make(map[string]Seat),
	}
}

// Attach records a connection and who it belongs to.
func (r *Registry) Attach(conn string, p Profile) { r.profiles[conn] = p }

// Detach forgets a connection entirely.
func (r *Registry) Detach(conn string) {
	delete(r.profiles, conn)
	delete(r.seats, conn)
}

// Profile returns the connection's profile. Unknown connections get an
// anonymous profile.
func (r *Registry) Profile(conn string) Profile { return r.profiles[conn] }

// DisplayName is the profile name or "Player N" for seat index i.
func (r *Registry) DisplayName(conn string, i int) string {
	if n := r.profiles[conn].Name; n != "" {
		return n
	}
	return fmt.Sprintf("Player %d", i+1)
}

// Seat places conn at player index i of room.
func (r *Registry) Seat(conn, roomID string, i int) {
	r.seats[conn] = Seat{RoomID: roomID, Player: i}
}

// Lookup returns the seat held by conn.
func (r *Registry) Lookup(conn string) (Seat, bool) {
	s, ok := r.seats[conn]
	return s, ok
}

// Unseat removes conn's seat if it belongs to roomID.
func (r *Registry) Unseat(conn, roomID string) {
	if s, ok := r.seats[conn]; ok && s.RoomID == roomID {
		delete(r.seats, conn)
	}
}

// Connections returns how many connections are attached.
func (r *Registry) Connections() int { return len(r.profiles) }
