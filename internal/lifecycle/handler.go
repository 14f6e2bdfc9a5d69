// Package lifecycle defines the round-lifecycle handler contract, the
// ordered event bus that dispatches to handlers, and the shared per-round
// report structure.
package lifecycle

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tournauto/tournauto/internal/config"
	"github.com/tournauto/tournauto/internal/dataset"
)

// Runtime is the explicit context handed to every handler invocation in
// place of globals: the run configuration, a logger, the dataset layout and
// the per-round report. Report is non-nil only between round begin and
// cleanup; Round is the current round number during round-scoped events.
type Runtime struct {
	Config *config.Config
	Log    *slog.Logger
	Layout dataset.Layout
	Report *Report
	Round  int
}

// Handler receives the six lifecycle events. Implementations embed Base to
// pick up no-op defaults and only override the hooks they need. A handler
// must not assume any hook fires more than once per round; an error from a
// hook aborts the dispatch and unwinds the daemon.
type Handler interface {
	Name() string
	OnStart(ctx context.Context, rt *Runtime) error
	OnShutdown(ctx context.Context, rt *Runtime) error
	OnRoundBegin(ctx context.Context, rt *Runtime) error
	OnNewTrainingData(ctx context.Context, rt *Runtime) error
	OnNewTournamentData(ctx context.Context, rt *Runtime) error
	OnCleanup(ctx context.Context, rt *Runtime) error
}

// ErrEmptyName is returned when constructing a handler without a name.
var ErrEmptyName = errors.New("handler name can not be empty")

// Base provides a named no-op implementation of every lifecycle hook.
type Base struct {
	name string
}

// NewBase creates the embeddable handler base. The name must be non-empty;
// it identifies the handler for registration and removal.
func NewBase(name string) (Base, error) {
	if name == "" {
		return Base{}, ErrEmptyName
	}
	return Base{name: name}, nil
}

func (b Base) Name() string { return b.name }

func (Base) OnStart(context.Context, *Runtime) error             { return nil }
func (Base) OnShutdown(context.Context, *Runtime) error          { return nil }
func (Base) OnRoundBegin(context.Context, *Runtime) error        { return nil }
func (Base) OnNewTrainingData(context.Context, *Runtime) error   { return nil }
func (Base) OnNewTournamentData(context.Context, *Runtime) error { return nil }
func (Base) OnCleanup(context.Context, *Runtime) error           { return nil }
