// Package watcher implements the adaptive polling protocol that waits for a
// round boundary: a coarse sleep until shortly before the reported close
// time, then fine polling until the service reports a new round number. The
// close time is re-read on every poll because the service may delay it.
package watcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tournauto/tournauto/internal/api"
	"github.com/tournauto/tournauto/internal/wait"
)

// RoundSource supplies current round details. *api.Client satisfies it.
type RoundSource interface {
	CurrentRoundDetails(ctx context.Context) (api.RoundInfo, error)
}

// Watcher waits for round boundaries.
type Watcher struct {
	source       RoundSource
	clock        clockwork.Clock
	wakeup       time.Duration // start fine polling this long before close
	pollInterval time.Duration // fine poll spacing
	log          *slog.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithClock injects the clock used for waits.
func WithClock(clock clockwork.Clock) Option {
	return func(w *Watcher) { w.clock = clock }
}

// WithLogger overrides the watcher logger.
func WithLogger(log *slog.Logger) Option {
	return func(w *Watcher) { w.log = log }
}

// New creates a Watcher. wakeup is how long before the reported close time
// fine polling starts; pollInterval is the spacing of fine polls.
func New(source RoundSource, wakeup, pollInterval time.Duration, opts ...Option) *Watcher {
	w := &Watcher{
		source:       source,
		clock:        clockwork.NewRealClock(),
		wakeup:       wakeup,
		pollInterval: pollInterval,
		log:          slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WaitForNextRound blocks until the service reports a round number strictly
// greater than the current one, and returns the new round's details.
func (w *Watcher) WaitForNextRound(ctx context.Context) (api.RoundInfo, error) {
	current, err := w.source.CurrentRoundDetails(ctx)
	if err != nil {
		return api.RoundInfo{}, err
	}
	closeAt := current.CloseTime

	w.log.Info("Waiting for next round",
		slog.Int("current_round", current.Number),
		slog.Float64("hours_to_close", closeAt.Sub(w.clock.Now()).Hours()))

	for {
		remaining := closeAt.Sub(w.clock.Now())

		if remaining > w.wakeup {
			// Coarse phase: sleep until the wakeup threshold before close.
			if err := wait.Until(ctx, w.clock, closeAt.Add(-w.wakeup)); err != nil {
				return api.RoundInfo{}, err
			}
		} else {
			// Fine phase: poll at the configured interval, capped by the
			// remaining time plus a small grace so the poll right after the
			// boundary is not skipped. Floored at one second: a close time
			// stuck in the past must not turn polling into a busy loop.
			d := w.pollInterval
			if cap := remaining + 5*time.Second; cap < d {
				d = cap
			}
			if d < time.Second {
				d = time.Second
			}
			if err := wait.For(ctx, w.clock, d); err != nil {
				return api.RoundInfo{}, err
			}
		}

		info, err := w.source.CurrentRoundDetails(ctx)
		if err != nil {
			return api.RoundInfo{}, err
		}
		if info.Number > current.Number {
			w.log.Info("New round detected", slog.Int("round", info.Number))
			return info, nil
		}

		// The boundary time is not trusted to be static: if the service
		// moved the close time, recompute from the new value.
		if !info.CloseTime.Equal(closeAt) {
			w.log.Info("Round close time moved",
				slog.Time("was", closeAt), slog.Time("now", info.CloseTime))
			closeAt = info.CloseTime
		}

		w.log.Debug("Round boundary check",
			slog.Int("round", info.Number),
			slog.Float64("minutes_to_close", closeAt.Sub(w.clock.Now()).Minutes()))
	}
}
