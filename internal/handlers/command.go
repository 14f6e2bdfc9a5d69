package handlers

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"github.com/tournauto/tournauto/internal/lifecycle"
	"github.com/tournauto/tournauto/internal/logfields"
)

// CommandRunner executes configured shell commands on round-scoped
// lifecycle events. The placeholders %round% and %dataset_path% in a
// command line are substituted before execution. A failing command is
// logged and recorded in the report, never fatal: external scripts must
// not wedge the round.
type CommandRunner struct {
	lifecycle.Base
	onNewTrainingData   string
	onNewTournamentData string
	onCleanup           string
}

// NewCommandRunner creates a runner with one optional command line per
// round-scoped event. At least one must be set.
func NewCommandRunner(name, onNewTrainingData, onNewTournamentData, onCleanup string) (*CommandRunner, error) {
	base, err := lifecycle.NewBase(name)
	if err != nil {
		return nil, err
	}
	if onNewTrainingData == "" && onNewTournamentData == "" && onCleanup == "" {
		return nil, errors.New("command runner needs at least one command")
	}
	return &CommandRunner{
		Base:                base,
		onNewTrainingData:   onNewTrainingData,
		onNewTournamentData: onNewTournamentData,
		onCleanup:           onCleanup,
	}, nil
}

func (c *CommandRunner) OnNewTrainingData(ctx context.Context, rt *lifecycle.Runtime) error {
	return c.run(ctx, rt, lifecycle.EventNewTrainingData, c.onNewTrainingData)
}

func (c *CommandRunner) OnNewTournamentData(ctx context.Context, rt *lifecycle.Runtime) error {
	return c.run(ctx, rt, lifecycle.EventNewTournamentData, c.onNewTournamentData)
}

func (c *CommandRunner) OnCleanup(ctx context.Context, rt *lifecycle.Runtime) error {
	return c.run(ctx, rt, lifecycle.EventCleanup, c.onCleanup)
}

func (c *CommandRunner) run(ctx context.Context, rt *lifecycle.Runtime, event lifecycle.Event, cmdline string) error {
	if cmdline == "" {
		return nil
	}
	expanded := strings.NewReplacer(
		"%round%", strconv.Itoa(rt.Round),
		"%dataset_path%", rt.Layout.Dir(rt.Round),
	).Replace(cmdline)

	rt.Log.Info("Running command",
		logfields.Handler(c.Name()), logfields.Event(string(event)),
		slog.String("command", expanded))

	out, err := exec.CommandContext(ctx, "/bin/sh", "-c", expanded).CombinedOutput()
	if err != nil {
		rt.Log.Error("Command failed",
			logfields.Handler(c.Name()), logfields.Event(string(event)),
			logfields.Error(err), slog.String("output", strings.TrimSpace(string(out))))
		rt.Report.Set(err.Error(), "commands", c.Name(), string(event), "error")
		return nil
	}

	rt.Report.Set("ok", "commands", c.Name(), string(event), "status")
	return nil
}
