package engine

import (
	"context"
	"errors"

	"github.com/robalobadob/cardduel/apps/go-server/internal/protocol"
	"github.com/robalobadob/cardduel/apps/go-server/internal/session"
)

// ErrStopped is returned when the service loop is no longer running.
var ErrStopped = errors.New("engine stopped")

// Service runs an Engine on its own Loop and is safe for concurrent use.
type Service struct {
	loop *Loop
	eng  *Engine
}

// NewService wires an engine to a fresh loop that also serves as its
// scheduler.
func NewService(cfg Config, out Sender, opts ...Option) *Service {
	loop := NewLoop(0)
	return &Service{loop: loop, eng: New(cfg, out, loop, opts...)}
}

// Run blocks until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error { return s.loop.Run(ctx) }

func (s *Service) Connect(conn string, p session.Profile) {
	s.loop.Submit(func() { s.eng.Connect(conn, p) })
}

func (s *Service) Handle(conn string, in protocol.Inbound) {
	s.loop.Submit(func() { s.eng.Handle(conn, in) })
}

func (s *Service) Disconnect(conn string) {
	s.loop.Submit(func() { s.eng.Disconnect(conn) })
}

// Stats samples engine occupancy on the loop goroutine.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	if !s.loop.Submit(func() { reply <- s.eng.Stats() }) {
		return Stats{}, ErrStopped
	}
	select {
	case st := <-reply:
		return st, nil
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}
