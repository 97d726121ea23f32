package game

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mohammed-shakir/geocoin-engine/internal/core/model"
)

// CoordinateSource yields position fixes. Next blocks until a fix is
// available or ctx is done, in which case it returns ctx.Err().
type CoordinateSource interface {
	Next(ctx context.Context) (model.Coordinates, error)
}

// Tracker drives a session from a coordinate source on its own
// goroutine. Stop is deterministic: once it returns, no further
// position update reaches the session.
type Tracker struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// StartTracking begins consuming fixes. A source error other than
// cancellation stops tracking and is logged; movement itself failing is
// logged and tracking continues.
func StartTracking(s *Session, src CoordinateSource, log zerolog.Logger) *Tracker {
	ctx, cancel := context.WithCancel(context.Background())
	t := &Tracker{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(t.done)
		for {
			fix, err := src.Next(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.Warn().Err(err).Msg("coordinate source stopped")
				}
				return
			}
			if ctx.Err() != nil {
				return // stop raced a fix already in flight; drop it
			}
			if _, err := s.MoveTo(ctx, fix.Lat, fix.Lng); err != nil {
				log.Error().Err(err).Msg("window recompute failed")
			}
		}
	}()
	return t
}

// Stop cancels the source and waits for the tracking goroutine to
// exit.
func (t *Tracker) Stop() {
	t.cancel()
	<-t.done
}
