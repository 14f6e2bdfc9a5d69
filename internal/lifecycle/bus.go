package lifecycle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tournauto/tournauto/internal/logfields"
)

// Event names the six lifecycle events.
type Event string

const (
	EventStart             Event = "start"
	EventShutdown          Event = "shutdown"
	EventRoundBegin        Event = "round_begin"
	EventNewTrainingData   Event = "new_training_data"
	EventNewTournamentData Event = "new_tournament_data"
	EventCleanup           Event = "cleanup"
)

// Bus holds the ordered collection of lifecycle handlers and dispatches
// events to them synchronously in registration order. Registration order is
// a caller-visible contract: a handler that consumes another handler's
// output must be registered after it.
type Bus struct {
	handlers []Handler
	log      *slog.Logger
}

// NewBus creates an empty bus.
func NewBus(log *slog.Logger) *Bus {
	if log == nil {
		log = slog.Default()
	}
	return &Bus{log: log}
}

// Add appends a handler. Names must be non-empty and unique.
func (b *Bus) Add(h Handler) error {
	if h.Name() == "" {
		return ErrEmptyName
	}
	for _, existing := range b.handlers {
		if existing.Name() == h.Name() {
			return fmt.Errorf("handler %q already registered", h.Name())
		}
	}
	b.handlers = append(b.handlers, h)
	return nil
}

// Remove detaches the handler with the given name, preserving the relative
// order of the others. Removing an unknown name is a no-op.
func (b *Bus) Remove(name string) {
	kept := b.handlers[:0]
	for _, h := range b.handlers {
		if h.Name() != name {
			kept = append(kept, h)
		}
	}
	b.handlers = kept
}

// Handlers returns the registered handler names in dispatch order.
func (b *Bus) Handlers() []string {
	names := make([]string, len(b.handlers))
	for i, h := range b.handlers {
		names[i] = h.Name()
	}
	return names
}

// Emit dispatches one event to every handler in registration order. The
// first handler error aborts the dispatch and is returned wrapped with the
// handler and event name.
func (b *Bus) Emit(ctx context.Context, event Event, rt *Runtime) error {
	b.log.Debug("Dispatching lifecycle event", logfields.Event(string(event)), logfields.Round(rt.Round))

	for _, h := range b.handlers {
		var err error
		switch event {
		case EventStart:
			err = h.OnStart(ctx, rt)
		case EventShutdown:
			err = h.OnShutdown(ctx, rt)
		case EventRoundBegin:
			err = h.OnRoundBegin(ctx, rt)
		case EventNewTrainingData:
			err = h.OnNewTrainingData(ctx, rt)
		case EventNewTournamentData:
			err = h.OnNewTournamentData(ctx, rt)
		case EventCleanup:
			err = h.OnCleanup(ctx, rt)
		default:
			err = fmt.Errorf("unknown lifecycle event %q", event)
		}
		if err != nil {
			return fmt.Errorf("handler %q on %s: %w", h.Name(), event, err)
		}
	}
	return nil
}
