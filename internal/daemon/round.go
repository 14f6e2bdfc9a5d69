package daemon

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tournauto/tournauto/internal/dataset"
	"github.com/tournauto/tournauto/internal/history"
	"github.com/tournauto/tournauto/internal/lifecycle"
	"github.com/tournauto/tournauto/internal/logfields"
	"github.com/tournauto/tournauto/internal/metrics"
	"github.com/tournauto/tournauto/internal/wait"
)

// processRound downloads and validates the round's dataset, drives the
// lifecycle dispatch, and persists progress.
func (d *Daemon) processRound(ctx context.Context, round int) error {
	start := d.clock.Now()
	d.metrics.SetCurrentRound(round)
	d.log.Info("Processing round", logfields.Round(round))

	// Download with validation retry: an unchanged dataset is an expected
	// steady-state condition while the service has not published new data
	// yet, so discard and re-fetch indefinitely.
	for {
		valid, err := d.downloadAndCheck(ctx, round)
		if err != nil {
			return err
		}
		if valid {
			break
		}

		d.metrics.IncInvalidDownload()
		d.log.Info("New dataset is not valid, retrying",
			logfields.Round(round), logfields.Wait(d.cfg.InvalidDataWait().String()))
		if err := d.layout.Remove(round); err != nil {
			d.log.Warn("Failed to remove invalid dataset", logfields.Error(err))
		}
		if err := wait.For(ctx, d.clock, d.cfg.InvalidDataWait()); err != nil {
			return err
		}
	}

	if err := d.runLifecycle(ctx, round); err != nil {
		d.recordRound(ctx, round, start, metrics.OutcomeFailed)
		return err
	}

	d.st.MarkProcessed(round)
	if err := d.store.Save(d.st); err != nil {
		return err
	}

	d.recordRound(ctx, round, start, metrics.OutcomeSuccess)
	return nil
}

// downloadAndCheck fetches the round's dataset and reports whether its live
// subset differs from the previous round's, i.e. whether the service has
// actually published new data.
func (d *Daemon) downloadAndCheck(ctx context.Context, round int) (bool, error) {
	d.log.Info("Downloading dataset", logfields.Round(round), logfields.Path(d.layout.Dir(round)))

	if err := d.client.DownloadDataset(ctx, d.layout.ZipPath(round)); err != nil {
		return false, err
	}
	if err := d.layout.Extract(round); err != nil {
		return false, err
	}

	changed, err := dataset.Changed(
		d.layout.TournamentPath(round-1),
		d.layout.TournamentPath(round),
		dataset.DataTypeLive,
		d.log)
	if err != nil {
		if errors.Is(err, dataset.ErrNewDataNotReadable) {
			return false, nil
		}
		return false, err
	}
	return changed, nil
}

// runLifecycle drives the per-round dispatch sequence:
// round_begin -> [new_training_data, persist] -> new_tournament_data -> cleanup.
// Once round_begin has fired, cleanup fires too, even when an intermediate
// event errors.
func (d *Daemon) runLifecycle(ctx context.Context, round int) error {
	d.rt.Round = round
	d.rt.Report = lifecycle.NewReport()
	defer func() {
		d.rt.Report = nil
		d.rt.Round = 0
	}()

	if err := d.bus.Emit(ctx, lifecycle.EventRoundBegin, d.rt); err != nil {
		return err
	}

	dispatchErr := func() error {
		newTraining, err := d.checkNewTrainingData(round)
		if err != nil {
			return err
		}
		if newTraining {
			if err := d.bus.Emit(ctx, lifecycle.EventNewTrainingData, d.rt); err != nil {
				return err
			}
			d.st.MarkTrained(round)
			// Persist immediately so a crash during tournament-data
			// processing never re-runs training after restart.
			if err := d.store.Save(d.st); err != nil {
				return err
			}
		}
		return d.bus.Emit(ctx, lifecycle.EventNewTournamentData, d.rt)
	}()

	cleanupErr := d.bus.Emit(context.WithoutCancel(ctx), lifecycle.EventCleanup, d.rt)
	return errors.Join(dispatchErr, cleanupErr)
}

// checkNewTrainingData decides whether the round's training data differs
// from the last trained round's.
func (d *Daemon) checkNewTrainingData(round int) (bool, error) {
	trained, ok := d.st.Trained()
	if !ok {
		d.log.Info("No last trained round recorded, treating training data as new")
		return true, nil
	}

	// Optional pre-check: the validation subset of the (already loaded
	// validated) tournament table is much smaller than the training table.
	// If it changed, training data is new without touching the big file.
	if d.cfg.CheckValidationData {
		changed, err := dataset.Changed(
			d.layout.TournamentPath(trained),
			d.layout.TournamentPath(round),
			dataset.DataTypeValidation,
			d.log)
		if err == nil && changed {
			d.log.Debug("Validation subset changed, training data is new")
			return true, nil
		}
		if err != nil {
			d.log.Warn("Validation pre-check failed, falling back to full comparison", logfields.Error(err))
		}
	}

	changed, err := dataset.Changed(
		d.layout.TrainingPath(trained),
		d.layout.TrainingPath(round),
		"",
		d.log)
	if err != nil {
		if errors.Is(err, dataset.ErrNewDataNotReadable) {
			d.log.Warn("Training table not readable, skipping training for this round", logfields.Error(err))
			return false, nil
		}
		return false, err
	}
	return changed, nil
}

// recordRound updates metrics and the history journal for a finished
// processing pass. Journal failures are logged, never fatal.
func (d *Daemon) recordRound(ctx context.Context, round int, start time.Time, outcome metrics.RoundOutcome) {
	elapsed := d.clock.Since(start)
	d.metrics.IncRoundsProcessed(outcome)
	d.metrics.ObserveRoundDuration(elapsed)

	if d.journal == nil {
		return
	}
	trainedThis := false
	if trained, ok := d.st.Trained(); ok && trained == round {
		trainedThis = true
	}
	rec := history.Record{
		Round:    round,
		Trained:  trainedThis,
		Outcome:  string(outcome),
		Duration: elapsed,
	}
	if err := d.journal.Append(context.WithoutCancel(ctx), rec); err != nil {
		d.log.Warn("Failed to record round history", logfields.Error(err), slog.Int("round", rec.Round))
	}
}
