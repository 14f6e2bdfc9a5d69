package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/tournauto/tournauto/internal/api"
	"github.com/tournauto/tournauto/internal/config"
	"github.com/tournauto/tournauto/internal/daemon"
	"github.com/tournauto/tournauto/internal/handlers"
	"github.com/tournauto/tournauto/internal/history"
	"github.com/tournauto/tournauto/internal/lifecycle"
	"github.com/tournauto/tournauto/internal/metrics"
	"github.com/tournauto/tournauto/internal/state"
)

// RunCmd implements the 'run' command.
type RunCmd struct{}

func (r *RunCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return RunDaemon(cfg, root.Config, false)
}

// OnceCmd implements the 'once' command: single-shot mode.
type OnceCmd struct{}

func (o *OnceCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return RunDaemon(cfg, root.Config, true)
}

// RunDaemon wires the daemon from configuration and runs it until it exits.
func RunDaemon(cfg *config.Config, configPath string, singleRun bool) error {
	slog.Info("Starting tournauto",
		slog.Int("tournament", cfg.Tournament),
		slog.Bool("single_run", singleRun),
		slog.String("data_directory", cfg.DataDirectory))

	// Cancellation token for every blocking wait in the daemon.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Metrics.Listen != "" {
		registry := prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(registry)
		go metrics.Serve(ctx, cfg.Metrics.Listen, registry)
	}

	client := api.New(cfg.API.BaseURL, cfg.Tournament,
		api.WithCredentials(cfg.API.PublicID, cfg.API.SecretKey),
		api.WithSchedule(cfg.RetrySchedule()),
		api.WithRetryObserver(recorder))

	bus := lifecycle.NewBus(slog.Default())
	if err := registerHandlers(bus, cfg, client); err != nil {
		return err
	}
	slog.Info("Handlers registered", slog.Any("order", bus.Handlers()))

	journal, err := history.Open(cfg.HistoryFile)
	if err != nil {
		return err
	}
	defer journal.Close()

	// The running config is immutable; the watcher only tells the operator
	// an on-disk change needs a restart.
	if w, err := config.NewWatcher(configPath); err != nil {
		slog.Warn("Config watcher unavailable", slog.String("error", err.Error()))
	} else {
		go w.Run(ctx)
	}

	d := daemon.New(cfg, client, bus, state.NewStore(cfg.StateFile),
		daemon.WithMetrics(recorder),
		daemon.WithJournal(journal))

	if err := d.Run(ctx, singleRun); err != nil {
		return fmt.Errorf("daemon error: %w", err)
	}
	slog.Info("Daemon stopped")
	return nil
}

// registerHandlers builds the stock handler chain in its contractual order:
// uploaders produce submissions, the event publisher mirrors progress, the
// report writer consumes everyone else's report entries at cleanup.
func registerHandlers(bus *lifecycle.Bus, cfg *config.Config, client *api.Client) error {
	for _, u := range cfg.Uploads {
		uploader, err := handlers.NewPredictionUploader(u.Name, cfg.PredictionsDirectory, u.File, client)
		if err != nil {
			return fmt.Errorf("configure uploader %q: %w", u.Name, err)
		}
		if err := bus.Add(uploader); err != nil {
			return err
		}
	}

	for _, c := range cfg.Commands {
		runner, err := handlers.NewCommandRunner(c.Name, c.OnNewTrainingData, c.OnNewTournamentData, c.OnCleanup)
		if err != nil {
			return fmt.Errorf("configure command %q: %w", c.Name, err)
		}
		if err := bus.Add(runner); err != nil {
			return err
		}
	}

	if cfg.Events.NATSURL != "" {
		publisher, err := handlers.NewEventPublisher("event-publisher", cfg.Events.NATSURL, cfg.Events.SubjectPrefix)
		if err != nil {
			return err
		}
		if err := bus.Add(publisher); err != nil {
			return err
		}
	}

	writer, err := handlers.NewReportWriter("report-writer", cfg.Reports.Directory)
	if err != nil {
		return err
	}
	return bus.Add(writer)
}
