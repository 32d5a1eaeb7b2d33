package remote

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/steveyegge/beadboard/internal/types"
)

// Memory is the reference Remote: an in-memory issue set behind an
// artificial delay and a configurable update success rate.
type Memory struct {
	mu     sync.Mutex
	seed   []*types.Issue
	issues []*types.Issue

	latency          time.Duration
	successRate      float64
	fetchFailureRate float64

	rngMu sync.Mutex
	rng   *rand.Rand
}

// MemoryOption configures a Memory backend.
type MemoryOption func(*Memory)

// WithLatency sets the delay applied to every call.
func WithLatency(d time.Duration) MemoryOption {
	return func(m *Memory) { m.latency = d }
}

// WithSuccessRate sets the probability, in [0,1], that an update succeeds.
func WithSuccessRate(p float64) MemoryOption {
	return func(m *Memory) { m.successRate = p }
}

// WithFetchFailureRate sets the probability, in [0,1], that a fetch fails.
func WithFetchFailureRate(p float64) MemoryOption {
	return func(m *Memory) { m.fetchFailureRate = p }
}

// WithRandSource makes failure injection reproducible.
func WithRandSource(src rand.Source) MemoryOption {
	return func(m *Memory) { m.rng = rand.New(src) }
}

// NewMemory returns a backend holding a copy of seed. Defaults match the
// reference deployment: 500ms latency, 90% update success, fetches never fail.
func NewMemory(seed []*types.Issue, opts ...MemoryOption) *Memory {
	m := &Memory{
		seed:        types.CloneIssues(seed),
		latency:     500 * time.Millisecond,
		successRate: 0.9,
		rng:         rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x6265616462)),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.issues = types.CloneIssues(m.seed)
	return m
}

func (m *Memory) wait(ctx context.Context) error {
	if m.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(m.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// roll reports true with probability p.
func (m *Memory) roll(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	m.rngMu.Lock()
	defer m.rngMu.Unlock()
	return m.rng.Float64() < p
}

// FetchAll returns deep copies so callers can never alias backend state.
func (m *Memory) FetchAll(ctx context.Context) ([]*types.Issue, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if m.roll(m.fetchFailureRate) {
		return nil, ErrFetchFailed
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return types.CloneIssues(m.issues), nil
}

// Update merges patch into the stored issue when the success roll passes.
func (m *Memory) Update(ctx context.Context, id string, patch types.IssueUpdate) (types.IssueUpdate, error) {
	if err := m.wait(ctx); err != nil {
		return types.IssueUpdate{}, err
	}
	if !m.roll(m.successRate) {
		return types.IssueUpdate{}, ErrUpdateFailed
	}
	if err := patch.Validate(); err != nil {
		return types.IssueUpdate{}, fmt.Errorf("%w: %v", ErrUpdateFailed, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, issue := range m.issues {
		if issue.ID == id {
			m.issues[i] = patch.Apply(issue)
			return patch, nil
		}
	}
	return types.IssueUpdate{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Reset restores the seed, discarding every update applied since.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issues = types.CloneIssues(m.seed)
}

// Replace installs a new seed and resets to it.
func (m *Memory) Replace(seed []*types.Issue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seed = types.CloneIssues(seed)
	m.issues = types.CloneIssues(seed)
}
