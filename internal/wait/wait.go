// Package wait provides cancellable, clock-driven sleeps. Every blocking
// wait in the daemon goes through this package so that cancellation is
// honored promptly and tests can drive time with a fake clock.
package wait

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// For sleeps for the given duration, returning early with the context error
// if the context is canceled first.
func For(ctx context.Context, clock clockwork.Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}

// Until sleeps until the given instant, returning early with the context
// error if the context is canceled first.
func Until(ctx context.Context, clock clockwork.Clock, t time.Time) error {
	return For(ctx, clock, t.Sub(clock.Now()))
}
