package store

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// ResultWriter is the persistence side of the recorder.
type ResultWriter interface {
	InsertResult(ctx context.Context, r MatchResult) error
}

// Recorder hands match results to a background writer so the engine loop
// never waits on the database. Results are dropped (with a warning) when
// the buffer is full.
type Recorder struct {
	w  ResultWriter
	ch chan MatchResult
}

// NewRecorder buffers up to size pending results.
func NewRecorder(w ResultWriter, size int) *Recorder {
	if size <= 0 {
		size = 64
	}
	return &Recorder{w: w, ch: make(chan MatchResult, size)}
}

// Record queues r without blocking.
func (r *Recorder) Record(res MatchResult) {
	select {
	case r.ch <- res:
	default:
		log.Warn().Str("room", res.RoomID).Msg("result buffer full, dropping match result")
	}
}

// Run writes queued results until ctx is cancelled, then flushes what is
// already buffered.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case res := <-r.ch:
			r.write(res)
		case <-ctx.Done():
			for {
				select {
				case res := <-r.ch:
					r.write(res)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(res MatchResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.w.InsertResult(ctx, res); err != nil {
		log.Error().Err(err).Str("room", res.RoomID).Msg("persist match result")
		return
	}
	log.Debug().Str("room", res.RoomID).Int("winner", res.Winner).Msg("match result stored")
}
