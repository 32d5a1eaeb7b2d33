package refresh

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/beadboard/internal/clock"
)

type countingRefresher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *countingRefresher) Refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.err
}

func (r *countingRefresher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func newTestScheduler(t *testing.T, interval time.Duration) (*Scheduler, *countingRefresher, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(time.Date(2025, 11, 25, 12, 0, 0, 0, time.UTC))
	r := &countingRefresher{}
	s := New(r, WithClock(clk), WithInterval(interval))
	return s, r, clk
}

func TestStartFetchesImmediately(t *testing.T) {
	s, r, clk := newTestScheduler(t, time.Second)
	s.Start(context.Background())
	defer s.Stop()

	clk.Advance(0)
	assert.Equal(t, 1, r.count())
}

func TestTicksFireOncePerInterval(t *testing.T) {
	s, r, clk := newTestScheduler(t, 1000*time.Millisecond)
	s.Start(context.Background())
	defer s.Stop()
	clk.Advance(0)
	require.Equal(t, 1, r.count())

	clk.Advance(999 * time.Millisecond)
	assert.Equal(t, 1, r.count(), "no tick before the interval elapses")

	clk.Advance(time.Millisecond)
	assert.Equal(t, 2, r.count(), "first tick fetches exactly once")

	clk.Advance(1000 * time.Millisecond)
	assert.Equal(t, 3, r.count(), "second tick fetches exactly once")
	assert.Equal(t, 1, clk.Pending(), "exactly one tick is armed")
}

func TestFailedRefreshKeepsSchedule(t *testing.T) {
	s, r, clk := newTestScheduler(t, time.Second)
	r.err = errors.New("boom")
	s.Start(context.Background())
	defer s.Stop()

	clk.Advance(0)
	clk.Advance(time.Second)
	clk.Advance(time.Second)
	assert.Equal(t, 3, r.count())
}

func TestSetIntervalReschedulesWithoutDoubleFire(t *testing.T) {
	s, r, clk := newTestScheduler(t, 10*time.Second)
	s.Start(context.Background())
	defer s.Stop()
	clk.Advance(0)
	require.Equal(t, 1, r.count())

	clk.Advance(4 * time.Second)
	require.NoError(t, s.SetInterval(5*time.Second))
	assert.Equal(t, 1, clk.Pending())

	// The old 10s deadline (6s from now) must not fire.
	clk.Advance(4 * time.Second)
	assert.Equal(t, 1, r.count())

	clk.Advance(time.Second)
	assert.Equal(t, 2, r.count())

	clk.Advance(5 * time.Second)
	assert.Equal(t, 3, r.count())
	assert.Equal(t, 5*time.Second, s.Interval())
}

func TestSetIntervalRejectsNonPositive(t *testing.T) {
	s, _, _ := newTestScheduler(t, time.Second)
	assert.Error(t, s.SetInterval(0))
	assert.Equal(t, time.Second, s.Interval())
}

func TestDisableStopsTicksAndEnableFiresImmediately(t *testing.T) {
	s, r, clk := newTestScheduler(t, time.Second)
	s.Start(context.Background())
	defer s.Stop()
	clk.Advance(0)

	s.SetEnabled(false)
	assert.False(t, s.Enabled())
	clk.Advance(5 * time.Second)
	assert.Equal(t, 1, r.count())
	assert.Equal(t, 0, clk.Pending())

	s.SetEnabled(true)
	clk.Advance(0)
	assert.Equal(t, 2, r.count())
	clk.Advance(time.Second)
	assert.Equal(t, 3, r.count())
}

func TestStartDisabledDoesNotFetch(t *testing.T) {
	clk := clock.NewFake(time.Now())
	r := &countingRefresher{}
	s := New(r, WithClock(clk), WithEnabled(false))
	s.Start(context.Background())
	defer s.Stop()

	clk.Advance(time.Minute)
	assert.Equal(t, 0, r.count())
}

func TestStopCancelsPendingTick(t *testing.T) {
	s, r, clk := newTestScheduler(t, time.Second)
	s.Start(context.Background())
	clk.Advance(0)
	s.Stop()

	clk.Advance(10 * time.Second)
	assert.Equal(t, 1, r.count())
}

func TestTrigger(t *testing.T) {
	s, r, _ := newTestScheduler(t, time.Second)
	require.NoError(t, s.Trigger(context.Background()))
	assert.Equal(t, 1, r.count())
}

type blockingRefresher struct {
	calls   chan struct{}
	release chan struct{}
}

func (r *blockingRefresher) Refresh(ctx context.Context) error {
	r.calls <- struct{}{}
	<-r.release
	return nil
}

func TestOverlappingTickSkipped(t *testing.T) {
	clk := clock.NewFake(time.Now())
	r := &blockingRefresher{calls: make(chan struct{}, 10), release: make(chan struct{})}
	s := New(r, WithClock(clk), WithInterval(time.Second))
	s.Start(context.Background())
	defer s.Stop()

	go clk.Advance(0)
	<-r.calls

	// While the first refresh blocks, the next tick must be skipped.
	done := make(chan struct{})
	go func() {
		clk.Advance(time.Second)
		close(done)
	}()
	select {
	case <-done:
	case <-r.calls:
		t.Fatal("tick fired while previous refresh was still running")
	}
	close(r.release)
}

func TestRunStopsOnCancel(t *testing.T) {
	s, r, clk := newTestScheduler(t, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return clk.Pending() == 1 }, time.Second, time.Millisecond)
	clk.Advance(0)
	cancel()
	require.NoError(t, <-done)

	clk.Advance(10 * time.Second)
	assert.Equal(t, 1, r.count())
}
