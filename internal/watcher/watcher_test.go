package watcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tournauto/tournauto/internal/api"
)

// scriptedSource returns a pre-programmed sequence of round details, one per
// call, repeating the last entry when the script runs out.
type scriptedSource struct {
	mu      sync.Mutex
	script  []api.RoundInfo
	call    int
	failure error
}

func (s *scriptedSource) CurrentRoundDetails(ctx context.Context) (api.RoundInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failure != nil {
		return api.RoundInfo{}, s.failure
	}
	i := s.call
	if i >= len(s.script) {
		i = len(s.script) - 1
	}
	s.call++
	return s.script[i], nil
}

func (s *scriptedSource) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.call
}

const (
	wakeup = 5 * time.Minute
	poll   = time.Minute
)

func TestWaitForNextRoundCoarseThenFine(t *testing.T) {
	clock := clockwork.NewFakeClock()
	start := clock.Now()
	closeAt := start.Add(2 * time.Hour)

	source := &scriptedSource{script: []api.RoundInfo{
		{Number: 100, CloseTime: closeAt}, // initial read
		{Number: 100, CloseTime: closeAt}, // poll after coarse sleep
		{Number: 100, CloseTime: closeAt}, // poll after first fine sleep
		{Number: 101, CloseTime: closeAt.Add(48 * time.Hour)},
	}}
	w := New(source, wakeup, poll, WithClock(clock))

	type result struct {
		info api.RoundInfo
		err  error
	}
	done := make(chan result, 1)
	go func() {
		info, err := w.WaitForNextRound(context.Background())
		done <- result{info, err}
	}()

	ctx := context.Background()

	// Coarse sleep until wakeup before close.
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(2*time.Hour - wakeup)

	// Two fine polls at the poll interval.
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(poll)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(poll)

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, 101, res.info.Number)
	assert.Equal(t, 4, source.calls())
}

func TestWaitForNextRoundAdoptsMovedCloseTime(t *testing.T) {
	clock := clockwork.NewFakeClock()
	start := clock.Now()
	closeAt := start.Add(time.Hour)
	movedTo := start.Add(3 * time.Hour)

	source := &scriptedSource{script: []api.RoundInfo{
		{Number: 100, CloseTime: closeAt},
		{Number: 100, CloseTime: movedTo}, // service delayed the round
		{Number: 101, CloseTime: movedTo.Add(48 * time.Hour)},
	}}
	w := New(source, wakeup, poll, WithClock(clock))

	done := make(chan error, 1)
	go func() {
		_, err := w.WaitForNextRound(context.Background())
		done <- err
	}()

	ctx := context.Background()

	// First coarse sleep targets the original close time.
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Hour - wakeup)

	// The poll reports a later close time, so the watcher goes coarse again
	// instead of polling every minute for two more hours.
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(2 * time.Hour)

	require.NoError(t, <-done)
	assert.True(t, clock.Now().Equal(movedTo.Add(-wakeup)),
		"watcher should have slept until the moved wakeup point, now=%v", clock.Now())
}

func TestWaitForNextRoundFinePollCappedByRemaining(t *testing.T) {
	clock := clockwork.NewFakeClock()
	closeAt := clock.Now().Add(30 * time.Second) // already inside the wakeup window

	source := &scriptedSource{script: []api.RoundInfo{
		{Number: 100, CloseTime: closeAt},
		{Number: 101, CloseTime: closeAt.Add(48 * time.Hour)},
	}}
	w := New(source, wakeup, poll, WithClock(clock))

	done := make(chan error, 1)
	go func() {
		_, err := w.WaitForNextRound(context.Background())
		done <- err
	}()

	// remaining (30s) + 5s grace is below the 1m poll interval.
	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))
	clock.Advance(35 * time.Second)

	require.NoError(t, <-done)
}

func TestWaitForNextRoundStalePastCloseTimeStillSleeps(t *testing.T) {
	// The service can report a close time in the past while still serving
	// the old round number. The fine poll must keep a floor between remote
	// calls instead of spinning.
	clock := clockwork.NewFakeClock()
	closeAt := clock.Now().Add(-10 * time.Minute)

	source := &scriptedSource{script: []api.RoundInfo{
		{Number: 100, CloseTime: closeAt},
		{Number: 100, CloseTime: closeAt},
		{Number: 101, CloseTime: clock.Now().Add(48 * time.Hour)},
	}}
	w := New(source, wakeup, poll, WithClock(clock))

	done := make(chan error, 1)
	go func() {
		_, err := w.WaitForNextRound(context.Background())
		done <- err
	}()

	// Each poll parks on a one-second timer even though the remaining time
	// is negative; two advances release the two polls.
	start := clock.Now()
	ctx := context.Background()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Second)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Second)

	require.NoError(t, <-done)
	assert.Equal(t, 2*time.Second, clock.Now().Sub(start))
	assert.Equal(t, 3, source.calls())
}

func TestWaitForNextRoundCanceled(t *testing.T) {
	clock := clockwork.NewFakeClock()
	source := &scriptedSource{script: []api.RoundInfo{
		{Number: 100, CloseTime: clock.Now().Add(24 * time.Hour)},
	}}
	w := New(source, wakeup, poll, WithClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := w.WaitForNextRound(ctx)
		done <- err
	}()

	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWaitForNextRoundSourceError(t *testing.T) {
	source := &scriptedSource{failure: errors.New("service down")}
	w := New(source, wakeup, poll, WithClock(clockwork.NewFakeClock()))

	_, err := w.WaitForNextRound(context.Background())
	assert.EqualError(t, err, "service down")
}
