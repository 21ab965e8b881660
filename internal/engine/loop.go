package engine

import (
	"context"
	"time"
)

// Timer is a scheduled continuation that can be cancelled.
type Timer interface {
	Stop() bool
}

// Scheduler runs fn after d. Implementations must run fn on the same
// goroutine that owns the engine.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// Loop serializes every engine mutation onto a single goroutine. Transport
// goroutines and timers submit closures; Run executes them in order.
type Loop struct {
	cmds chan func()
	done chan struct{}
}

// NewLoop creates a loop with a command buffer of size buf.
func NewLoop(buf int) *Loop {
	if buf <= 0 {
		buf = 256
	}
	return &Loop{cmds: make(chan func(), buf), done: make(chan struct{})}
}

// Submit queues fn. It returns false once the loop has stopped.
func (l *Loop) Submit(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.cmds <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Run executes submitted commands until ctx is cancelled, then runs
// whatever is still queued before returning.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	for {
		select {
		case fn := <-l.cmds:
			fn()
		case <-ctx.Done():
			for {
				select {
				case fn := <-l.cmds:
					fn()
				default:
					return ctx.Err()
				}
			}
		}
	}
}

// AfterFunc schedules fn to be submitted to the loop after d.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, func() { l.Submit(fn) })
}
