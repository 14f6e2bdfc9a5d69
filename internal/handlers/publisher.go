package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/tournauto/tournauto/internal/lifecycle"
	"github.com/tournauto/tournauto/internal/logfields"
)

// RoundEvent is the payload published for each lifecycle event.
type RoundEvent struct {
	Event     string    `json:"event"`
	Round     int       `json:"round,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventPublisher mirrors every lifecycle event onto NATS subjects
// (<prefix>.<event>) so external systems can follow round progress.
// Publish failures are logged warnings: event delivery is best-effort and
// must never wedge the lifecycle dispatch.
type EventPublisher struct {
	lifecycle.Base
	conn   *nats.Conn
	prefix string
}

// NewEventPublisher connects to NATS. A connection failure here is an
// error; the daemon should not start half-wired.
func NewEventPublisher(name, natsURL, subjectPrefix string) (*EventPublisher, error) {
	base, err := lifecycle.NewBase(name)
	if err != nil {
		return nil, err
	}
	conn, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &EventPublisher{Base: base, conn: conn, prefix: subjectPrefix}, nil
}

func (p *EventPublisher) OnStart(ctx context.Context, rt *lifecycle.Runtime) error {
	p.publish(rt, lifecycle.EventStart)
	return nil
}

func (p *EventPublisher) OnRoundBegin(ctx context.Context, rt *lifecycle.Runtime) error {
	p.publish(rt, lifecycle.EventRoundBegin)
	return nil
}

func (p *EventPublisher) OnNewTrainingData(ctx context.Context, rt *lifecycle.Runtime) error {
	p.publish(rt, lifecycle.EventNewTrainingData)
	return nil
}

func (p *EventPublisher) OnNewTournamentData(ctx context.Context, rt *lifecycle.Runtime) error {
	p.publish(rt, lifecycle.EventNewTournamentData)
	return nil
}

func (p *EventPublisher) OnCleanup(ctx context.Context, rt *lifecycle.Runtime) error {
	p.publish(rt, lifecycle.EventCleanup)
	return nil
}

func (p *EventPublisher) OnShutdown(ctx context.Context, rt *lifecycle.Runtime) error {
	p.publish(rt, lifecycle.EventShutdown)
	// Flush before closing so the shutdown event actually leaves.
	if err := p.conn.Drain(); err != nil {
		rt.Log.Warn("NATS drain failed", logfields.Handler(p.Name()), logfields.Error(err))
	}
	return nil
}

func (p *EventPublisher) publish(rt *lifecycle.Runtime, event lifecycle.Event) {
	payload := RoundEvent{
		Event:     string(event),
		Round:     rt.Round,
		Timestamp: time.Now(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		rt.Log.Warn("Failed to encode round event", logfields.Handler(p.Name()), logfields.Error(err))
		return
	}
	subject := fmt.Sprintf("%s.%s", p.prefix, event)
	if err := p.conn.Publish(subject, data); err != nil {
		rt.Log.Warn("Failed to publish round event",
			logfields.Handler(p.Name()), logfields.Event(string(event)), logfields.Error(err))
	}
}
