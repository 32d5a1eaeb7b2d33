package undo

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/beadboard/internal/clock"
	"github.com/steveyegge/beadboard/internal/types"
)

var start = time.Date(2025, 11, 25, 12, 0, 0, 0, time.UTC)

func TestRemaining(t *testing.T) {
	tests := []struct {
		elapsed time.Duration
		want    time.Duration
	}{
		{0, 5 * time.Second},
		{4999 * time.Millisecond, time.Millisecond},
		{5 * time.Second, 0},
		{time.Minute, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Remaining(start, start.Add(tt.elapsed), 5*time.Second), "elapsed %v", tt.elapsed)
	}
}

func TestNewTickRoundsSecondsUp(t *testing.T) {
	action := &types.UndoableAction{TxID: "tx", IssueID: "7"}
	tick := NewTick(action, 4100*time.Millisecond)
	assert.Equal(t, "tx", tick.TxID)
	assert.Equal(t, "7", tick.IssueID)
	assert.Equal(t, int64(4100), tick.RemainingMS)
	assert.Equal(t, 5, tick.Seconds)

	assert.Equal(t, 0, NewTick(nil, 0).Seconds)
}

// fakeSlot is an undo slot that expires whatever is pending when asked.
type fakeSlot struct {
	clock  clock.Clock
	window time.Duration
	ch     chan *types.UndoableAction

	mu      sync.Mutex
	pending *types.UndoableAction
	expired []string
}

func newFakeSlot(clk clock.Clock) *fakeSlot {
	return &fakeSlot{clock: clk, window: 5 * time.Second, ch: make(chan *types.UndoableAction, 4)}
}

func (s *fakeSlot) SubscribeUndo(ctx context.Context) <-chan *types.UndoableAction {
	return s.ch
}

func (s *fakeSlot) ExpireUndo(tx string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil || s.pending.TxID != tx {
		return false
	}
	if Remaining(s.pending.Timestamp, s.clock.Now(), s.window) > 0 {
		return false
	}
	s.expired = append(s.expired, tx)
	s.pending = nil
	return true
}

func (s *fakeSlot) set(a *types.UndoableAction) {
	s.mu.Lock()
	s.pending = a
	s.mu.Unlock()
	s.ch <- a
}

func (s *fakeSlot) expiredTxs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.expired...)
}

func runCountdown(t *testing.T, slot Slot, clk clock.Clock) (*Countdown, <-chan Tick) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	cd := NewCountdown(slot, 5*time.Second, WithClock(clk), WithTick(time.Second))
	ticks := cd.Subscribe(ctx)
	done := make(chan error, 1)
	go func() { done <- cd.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cd, ticks
}

func drain(ch <-chan Tick) []Tick {
	var out []Tick
	for {
		select {
		case tick := <-ch:
			out = append(out, tick)
		default:
			return out
		}
	}
}

func TestCountdownExpiresAtWindow(t *testing.T) {
	clk := clock.NewFake(start)
	slot := newFakeSlot(clk)
	_, ticks := runCountdown(t, slot, clk)

	slot.set(&types.UndoableAction{TxID: "tx1", IssueID: "1", Timestamp: start})
	require.Eventually(t, func() bool { return clk.Pending() == 1 }, time.Second, time.Millisecond)
	first := <-ticks
	assert.Equal(t, 5, first.Seconds)

	clk.Advance(4 * time.Second)
	assert.Empty(t, slot.expiredTxs())
	seconds := []int{}
	for _, tick := range drain(ticks) {
		seconds = append(seconds, tick.Seconds)
	}
	assert.Equal(t, []int{4, 3, 2, 1}, seconds)

	clk.Advance(time.Second)
	assert.Equal(t, []string{"tx1"}, slot.expiredTxs())
	last := drain(ticks)
	require.NotEmpty(t, last)
	assert.Zero(t, last[len(last)-1].Remaining)
	assert.Equal(t, 0, clk.Pending())
}

func TestCountdownRestartsOnNewAction(t *testing.T) {
	clk := clock.NewFake(start)
	slot := newFakeSlot(clk)
	_, ticks := runCountdown(t, slot, clk)

	slot.set(&types.UndoableAction{TxID: "tx1", IssueID: "1", Timestamp: start})
	require.Eventually(t, func() bool { return clk.Pending() == 1 }, time.Second, time.Millisecond)
	clk.Advance(3 * time.Second)

	slot.set(&types.UndoableAction{TxID: "tx2", IssueID: "2", Timestamp: clk.Now()})
	for tick := range ticks {
		if tick.TxID == "tx2" {
			break
		}
	}
	// The replaced ticker is stopped and a fresh one armed.
	require.Eventually(t, func() bool { return clk.Pending() == 1 }, time.Second, time.Millisecond)

	clk.Advance(2 * time.Second)
	assert.Empty(t, slot.expiredTxs(), "the first window no longer drives expiry")
	clk.Advance(3 * time.Second)
	assert.Equal(t, []string{"tx2"}, slot.expiredTxs())
}

func TestCountdownStopsWhenCleared(t *testing.T) {
	clk := clock.NewFake(start)
	slot := newFakeSlot(clk)
	_, ticks := runCountdown(t, slot, clk)

	slot.set(&types.UndoableAction{TxID: "tx1", IssueID: "1", Timestamp: start})
	require.Eventually(t, func() bool { return clk.Pending() == 1 }, time.Second, time.Millisecond)

	slot.set(nil)
	require.Eventually(t, func() bool { return clk.Pending() == 0 }, time.Second, time.Millisecond)
	clk.Advance(10 * time.Second)
	assert.Empty(t, slot.expiredTxs())

	var cleared bool
	for _, tick := range drain(ticks) {
		if tick.TxID == "" {
			cleared = true
		}
	}
	assert.True(t, cleared, "clearing publishes an empty tick")
}

func TestCountdownExpiresStaleActionImmediately(t *testing.T) {
	clk := clock.NewFake(start.Add(time.Minute))
	slot := newFakeSlot(clk)
	runCountdown(t, slot, clk)

	slot.set(&types.UndoableAction{TxID: "old", IssueID: "1", Timestamp: start})
	require.Eventually(t, func() bool { return len(slot.expiredTxs()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 0, clk.Pending())
}
