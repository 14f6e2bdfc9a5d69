// Package metrics provides the daemon's observability hooks. A Recorder is
// injected where events happen; the default no-op keeps metrics optional.
package metrics

import "time"

// RoundOutcome labels the result of a round processing pass.
type RoundOutcome string

const (
	OutcomeSuccess  RoundOutcome = "success"
	OutcomeFailed   RoundOutcome = "failed"
	OutcomeCanceled RoundOutcome = "canceled"
)

// Recorder defines the observability hooks. Implementations must tolerate
// nil receivers so injection stays optional.
type Recorder interface {
	IncRoundsProcessed(outcome RoundOutcome)
	ObserveRoundDuration(d time.Duration)
	SetCurrentRound(round int)
	IncInvalidDownload()
	IncAPIRetry(operation string)
	IncAPIRetryExhausted(operation string)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) IncRoundsProcessed(RoundOutcome)    {}
func (NoopRecorder) ObserveRoundDuration(time.Duration) {}
func (NoopRecorder) SetCurrentRound(int)                {}
func (NoopRecorder) IncInvalidDownload()                {}
func (NoopRecorder) IncAPIRetry(string)                 {}
func (NoopRecorder) IncAPIRetryExhausted(string)        {}
