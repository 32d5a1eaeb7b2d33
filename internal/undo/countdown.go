// Package undo drives the undo window: how long the pending edit stays
// undoable, and the ticking countdown that clears it when time runs out.
package undo

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/steveyegge/beadboard/internal/clock"
	"github.com/steveyegge/beadboard/internal/debug"
	"github.com/steveyegge/beadboard/internal/types"
)

// DefaultTick is the countdown granularity.
const DefaultTick = 100 * time.Millisecond

// Remaining is the time left in a window that opened at ts, never negative.
func Remaining(ts, now time.Time, window time.Duration) time.Duration {
	left := window - now.Sub(ts)
	if left < 0 {
		return 0
	}
	return left
}

// Slot is the undo buffer a Countdown follows.
type Slot interface {
	// SubscribeUndo yields the pending action each time it changes, nil when cleared.
	SubscribeUndo(ctx context.Context) <-chan *types.UndoableAction
	// ExpireUndo clears the pending action tx if its window has elapsed.
	ExpireUndo(tx string) bool
}

// Tick reports the countdown of one pending edit. Remaining is 0 once the
// edit expired or was cleared.
type Tick struct {
	TxID      string        `json:"tx_id,omitempty"`
	IssueID   string        `json:"issue_id,omitempty"`
	Remaining time.Duration `json:"-"`
	// RemainingMS and Seconds are Remaining in whole milliseconds and
	// rounded-up seconds, for display.
	RemainingMS int64 `json:"remaining_ms"`
	Seconds     int   `json:"seconds"`
}

// NewTick builds the tick for action with left time remaining.
func NewTick(action *types.UndoableAction, left time.Duration) Tick {
	t := Tick{
		Remaining:   left,
		RemainingMS: left.Milliseconds(),
		Seconds:     int((left + time.Second - 1) / time.Second),
	}
	if action != nil {
		t.TxID = action.TxID
		t.IssueID = action.IssueID
	}
	return t
}

// Countdown follows a Slot, publishing a Tick every tick interval while an
// edit is undoable and expiring the edit when its window closes.
type Countdown struct {
	slot   Slot
	clock  clock.Clock
	window time.Duration
	tick   time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	timer   clock.Timer
	gen     uint64
	subs    map[uint64]chan Tick
	nextSub uint64
}

// Option configures a Countdown.
type Option func(*Countdown)

// WithClock sets the clock driving the ticks.
func WithClock(c clock.Clock) Option {
	return func(cd *Countdown) { cd.clock = c }
}

// WithTick sets the tick interval.
func WithTick(d time.Duration) Option {
	return func(cd *Countdown) { cd.tick = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(cd *Countdown) { cd.logger = l }
}

// NewCountdown returns a countdown over slot with the given undo window.
func NewCountdown(slot Slot, window time.Duration, opts ...Option) *Countdown {
	cd := &Countdown{
		slot:   slot,
		clock:  clock.Real(),
		window: window,
		tick:   DefaultTick,
		logger: debug.Discard(),
		subs:   make(map[uint64]chan Tick),
	}
	for _, opt := range opts {
		opt(cd)
	}
	return cd
}

// Run follows the slot until ctx is done. Each new action restarts the
// ticker; a cleared or replaced action cancels the old one.
func (cd *Countdown) Run(ctx context.Context) error {
	actions := cd.slot.SubscribeUndo(ctx)
	defer cd.stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case action, ok := <-actions:
			if !ok {
				return nil
			}
			cd.follow(action)
		}
	}
}

// Subscribe returns a channel of ticks until ctx is done. Ticks are dropped
// for a subscriber that is not keeping up.
func (cd *Countdown) Subscribe(ctx context.Context) <-chan Tick {
	ch := make(chan Tick, 8)
	cd.mu.Lock()
	cd.nextSub++
	id := cd.nextSub
	cd.subs[id] = ch
	cd.mu.Unlock()

	go func() {
		<-ctx.Done()
		cd.mu.Lock()
		delete(cd.subs, id)
		close(ch)
		cd.mu.Unlock()
	}()
	return ch
}

func (cd *Countdown) publishLocked(t Tick) {
	for _, ch := range cd.subs {
		select {
		case ch <- t:
		default:
		}
	}
}

func (cd *Countdown) stop() {
	cd.mu.Lock()
	defer cd.mu.Unlock()
	cd.gen++
	if cd.timer != nil {
		cd.timer.Stop()
		cd.timer = nil
	}
}

// follow cancels any running ticker and, for a non-nil action, starts a new one.
func (cd *Countdown) follow(action *types.UndoableAction) {
	cd.mu.Lock()
	defer cd.mu.Unlock()

	cd.gen++
	if cd.timer != nil {
		cd.timer.Stop()
		cd.timer = nil
	}
	if action == nil {
		cd.publishLocked(Tick{})
		return
	}
	cd.tickLocked(cd.gen, action)
}

// tickLocked publishes the remaining time and arms the next tick, or
// expires the action when nothing is left.
func (cd *Countdown) tickLocked(gen uint64, action *types.UndoableAction) {
	left := Remaining(action.Timestamp, cd.clock.Now(), cd.window)
	cd.publishLocked(NewTick(action, left))
	if left <= 0 {
		cd.timer = nil
		// The slot must not call back into the countdown from ExpireUndo.
		if cd.slot.ExpireUndo(action.TxID) {
			cd.logger.Debug("undo window closed", "issue_id", action.IssueID, "tx", action.TxID)
		}
		return
	}

	cd.timer = cd.clock.AfterFunc(min(cd.tick, left), func() {
		cd.mu.Lock()
		defer cd.mu.Unlock()
		if cd.gen != gen {
			return
		}
		cd.tickLocked(gen, action)
	})
}
