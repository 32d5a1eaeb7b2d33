// Package refresh schedules periodic full refreshes of the board.
package refresh

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/steveyegge/beadboard/internal/clock"
	"github.com/steveyegge/beadboard/internal/debug"
)

// DefaultInterval is the polling interval used when none is configured.
const DefaultInterval = 10 * time.Second

// Refresher reloads the board from its remote.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Scheduler calls a Refresher once when started and then every interval
// while enabled. Changing the interval or toggling enabled cancels the
// pending tick and reschedules from the time of the change, so a tick is
// never fired twice. A failed refresh is logged and the schedule continues;
// a tick that arrives while the previous refresh is still running is skipped.
type Scheduler struct {
	refresher Refresher
	clock     clock.Clock
	logger    *slog.Logger

	mu       sync.Mutex
	interval time.Duration
	enabled  bool
	ctx      context.Context
	timer    clock.Timer
	seq      uint64 // invalidates stale timer fires
	inFlight bool
	wg       sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval sets the initial polling interval.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.interval = d }
}

// WithEnabled sets whether polling starts enabled.
func WithEnabled(enabled bool) Option {
	return func(s *Scheduler) { s.enabled = enabled }
}

// WithClock sets the clock used for ticks.
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// New returns a stopped scheduler for r.
func New(r Refresher, opts ...Option) *Scheduler {
	s := &Scheduler{
		refresher: r,
		clock:     clock.Real(),
		logger:    debug.Discard(),
		interval:  DefaultInterval,
		enabled:   true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start activates the schedule: if enabled, a refresh fires immediately and
// then every interval. Refreshes run with ctx; Start does not block.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx = ctx
	if s.enabled {
		s.armLocked(0)
	}
}

// Run starts the scheduler and blocks until ctx is done, then stops it and
// waits for an in-flight refresh to return.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Start(ctx)
	<-ctx.Done()
	s.Stop()
	s.wg.Wait()
	return nil
}

// Stop cancels the pending tick. It does not wait for a running refresh.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	s.ctx = nil
}

// Interval returns the polling interval.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Enabled reports whether polling is on.
func (s *Scheduler) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// SetInterval changes the polling interval. A running schedule is
// rescheduled so the next tick comes d after this call.
func (s *Scheduler) SetInterval(d time.Duration) error {
	if d <= 0 {
		return errors.New("polling interval must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if d == s.interval {
		return nil
	}
	s.interval = d
	if s.ctx != nil && s.enabled {
		s.cancelLocked()
		s.armLocked(d)
	}
	s.logger.Info("polling interval changed", "interval", d)
	return nil
}

// SetEnabled turns polling on or off. Turning it on while started fires a
// refresh immediately; turning it off cancels the pending tick.
func (s *Scheduler) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if enabled == s.enabled {
		return
	}
	s.enabled = enabled
	s.cancelLocked()
	if enabled && s.ctx != nil {
		s.armLocked(0)
	}
	s.logger.Info("polling toggled", "enabled", enabled)
}

// Trigger runs a refresh now, outside the schedule, and returns its error.
func (s *Scheduler) Trigger(ctx context.Context) error {
	return s.refresher.Refresh(ctx)
}

func (s *Scheduler) cancelLocked() {
	s.seq++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// armLocked schedules the next tick after delay.
func (s *Scheduler) armLocked(delay time.Duration) {
	s.seq++
	seq := s.seq
	s.timer = s.clock.AfterFunc(delay, func() { s.fire(seq) })
}

// fire runs one tick: it arms the following tick first, so the period is
// measured between tick starts, then refreshes without holding the lock.
func (s *Scheduler) fire(seq uint64) {
	s.mu.Lock()
	if s.seq != seq || s.ctx == nil || !s.enabled {
		s.mu.Unlock()
		return
	}
	ctx := s.ctx
	s.armLocked(s.interval)
	if s.inFlight {
		s.mu.Unlock()
		s.logger.Debug("refresh still running, tick skipped")
		return
	}
	s.inFlight = true
	s.wg.Add(1)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
		s.wg.Done()
	}()
	if err := s.refresher.Refresh(ctx); err != nil {
		s.logger.Warn("scheduled refresh failed", "error", err)
	}
}
