// Package daemon implements the top-level round-lifecycle control loop:
// load state, catch up if behind, then alternate between waiting for the
// next round boundary and processing the round, until interrupted.
package daemon

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/tournauto/tournauto/internal/api"
	"github.com/tournauto/tournauto/internal/config"
	"github.com/tournauto/tournauto/internal/dataset"
	"github.com/tournauto/tournauto/internal/history"
	"github.com/tournauto/tournauto/internal/lifecycle"
	"github.com/tournauto/tournauto/internal/metrics"
	"github.com/tournauto/tournauto/internal/state"
	"github.com/tournauto/tournauto/internal/watcher"
)

// RoundClient is the slice of the API client the daemon needs. *api.Client
// satisfies it; tests substitute a fake.
type RoundClient interface {
	CurrentRoundDetails(ctx context.Context) (api.RoundInfo, error)
	DownloadDataset(ctx context.Context, zipPath string) error
}

// BoundaryWaiter waits for the next round boundary. *watcher.Watcher
// satisfies it.
type BoundaryWaiter interface {
	WaitForNextRound(ctx context.Context) (api.RoundInfo, error)
}

// Daemon drives the round lifecycle. It is the single writer of the
// persistent state record and of the per-round report (through handler
// dispatch); nothing it owns runs concurrently.
type Daemon struct {
	cfg     *config.Config
	client  RoundClient
	bus     *lifecycle.Bus
	store   *state.Store
	waiter  BoundaryWaiter
	clock   clockwork.Clock
	metrics metrics.Recorder
	journal *history.Store
	log     *slog.Logger
	layout  dataset.Layout

	st *state.State
	rt *lifecycle.Runtime
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithClock injects the clock used for waits.
func WithClock(clock clockwork.Clock) Option {
	return func(d *Daemon) { d.clock = clock }
}

// WithMetrics wires a metrics recorder.
func WithMetrics(rec metrics.Recorder) Option {
	return func(d *Daemon) { d.metrics = rec }
}

// WithJournal wires the round-history journal.
func WithJournal(j *history.Store) Option {
	return func(d *Daemon) { d.journal = j }
}

// WithLogger overrides the daemon logger.
func WithLogger(log *slog.Logger) Option {
	return func(d *Daemon) { d.log = log }
}

// WithBoundaryWaiter overrides the round watcher (tests).
func WithBoundaryWaiter(w BoundaryWaiter) Option {
	return func(d *Daemon) { d.waiter = w }
}

// New assembles a daemon from its collaborators.
func New(cfg *config.Config, client RoundClient, bus *lifecycle.Bus, store *state.Store, opts ...Option) *Daemon {
	d := &Daemon{
		cfg:     cfg,
		client:  client,
		bus:     bus,
		store:   store,
		clock:   clockwork.NewRealClock(),
		metrics: metrics.NoopRecorder{},
		log:     slog.Default(),
		layout:  dataset.Layout{DataDir: cfg.DataDirectory, Prefix: cfg.DatasetPrefix},
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.waiter == nil {
		d.waiter = watcher.New(client, cfg.Wakeup(), cfg.PollInterval(),
			watcher.WithClock(d.clock), watcher.WithLogger(d.log))
	}
	return d
}

// Run executes the daemon until the context is canceled or, in single-shot
// mode, until one round has been processed. Cancellation unwinds cleanly:
// handlers get their shutdown event and the state record gets a final save.
func (d *Daemon) Run(ctx context.Context, singleRun bool) error {
	st, err := d.store.Load()
	if err != nil {
		return err
	}
	d.st = st
	d.logState()

	d.rt = &lifecycle.Runtime{
		Config: d.cfg,
		Log:    d.log,
		Layout: d.layout,
	}

	if err := d.bus.Emit(ctx, lifecycle.EventStart, d.rt); err != nil {
		return err
	}

	loopErr := d.loop(ctx, singleRun)
	if errors.Is(loopErr, context.Canceled) {
		d.log.Info("Exiting daemon loop because of interrupt")
		loopErr = nil
	}

	// SHUTDOWN always runs once start fired, including on error unwinds.
	// The cancellation that stopped the loop must not also cancel the
	// shutdown notification.
	shutdownCtx := context.WithoutCancel(ctx)
	if err := d.bus.Emit(shutdownCtx, lifecycle.EventShutdown, d.rt); err != nil {
		loopErr = errors.Join(loopErr, err)
	}
	if err := d.store.Save(d.st); err != nil {
		loopErr = errors.Join(loopErr, err)
	}
	return loopErr
}

// loop runs catch-up and the WAIT/PROCESS alternation.
func (d *Daemon) loop(ctx context.Context, singleRun bool) error {
	current, err := d.client.CurrentRoundDetails(ctx)
	if err != nil {
		return err
	}

	// CATCH_UP: if the current round has not been processed (or state is
	// wholly unset), process it immediately without waiting. This handles
	// restart after downtime. Single-shot mode still continues into the
	// loop afterwards: its one-round rule applies after catching up, so a
	// scheduler-started run near a boundary processes the new round too.
	processed, processedSet := d.st.Processed()
	_, trainedSet := d.st.Trained()
	if !processedSet || !trainedSet || current.Number > processed {
		d.log.Info("Current round does not appear to be processed", slog.Int("round", current.Number))
		if err := d.processRound(ctx, current.Number); err != nil {
			return err
		}
	}

	d.log.Info("Entering daemon loop")
	for {
		current, err := d.client.CurrentRoundDetails(ctx)
		if err != nil {
			return err
		}
		round := current.Number

		if processed, ok := d.st.Processed(); ok && round == processed {
			// In single-shot mode, bail out rather than wait for a far-away
			// boundary; the task scheduler will start us again closer to it.
			if singleRun {
				if untilClose := current.CloseTime.Sub(d.clock.Now()); untilClose > d.cfg.SingleRunWaitCap() {
					d.log.Info("Single run stopping because the next round is too far in the future",
						slog.Duration("until_close", untilClose))
					return nil
				}
			}

			info, err := d.waiter.WaitForNextRound(ctx)
			if err != nil {
				return err
			}
			round = info.Number
		}

		if err := d.processRound(ctx, round); err != nil {
			return err
		}

		if singleRun {
			return nil
		}
	}
}

func (d *Daemon) logState() {
	attrs := []any{}
	if processed, ok := d.st.Processed(); ok {
		attrs = append(attrs, slog.Int("last_round_processed", processed))
	}
	if trained, ok := d.st.Trained(); ok {
		attrs = append(attrs, slog.Int("last_round_trained", trained))
	}
	d.log.Info("Loaded state", attrs...)
}
