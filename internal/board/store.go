// Package board owns the canonical issue collection behind the status board.
//
// A Store holds every issue the remote reported on its last refresh, kept
// in priority order, together with the derived filtered subset, the current
// filter and page, and the single undo slot. Edits are applied optimistically
// and confirmed by the remote in the caller's goroutine; a failed
// confirmation rolls the edit back. Readers never touch the collection
// directly: they take a Snapshot or Subscribe to a stream of them.
package board

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/steveyegge/beadboard/internal/auth"
	"github.com/steveyegge/beadboard/internal/clock"
	"github.com/steveyegge/beadboard/internal/debug"
	"github.com/steveyegge/beadboard/internal/query"
	"github.com/steveyegge/beadboard/internal/remote"
	"github.com/steveyegge/beadboard/internal/types"
)

const (
	// DefaultUndoWindow is how long an edit stays undoable.
	DefaultUndoWindow = 5 * time.Second
	// DefaultPageSize is the number of issues per column page.
	DefaultPageSize = 20
)

// User-visible error messages kept in the snapshot until dismissed.
const (
	msgFetchFailed  = "Failed to fetch issues"
	msgUpdateFailed = "Failed to update issue"
	msgUndoFailed   = "Failed to undo action"
)

// Snapshot is a read-only view of the store at one instant. Issues is the
// canonical collection in priority order; Filtered is the subset matching
// Filter, in the same order. Callers must not modify the issues.
type Snapshot struct {
	Version  uint64                `json:"version"`
	Issues   []*types.Issue        `json:"issues"`
	Filtered []*types.Issue        `json:"filtered"`
	Filter   types.FilterSpec      `json:"filter"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
	Loading  bool                  `json:"loading"`
	Error    string                `json:"error,omitempty"`
	LastSync time.Time             `json:"last_sync"`
	Undo     *types.UndoableAction `json:"undo,omitempty"`
}

// View paginates the filtered issues into board columns.
func (s Snapshot) View() View {
	return BuildView(s.Filtered, s.Page, s.PageSize)
}

// Store is the single owner of the canonical collection. It is safe for
// concurrent use; every state change happens under one lock, so readers
// never observe an edit applied but not yet reordered or refiltered.
type Store struct {
	remote     remote.Remote
	clock      clock.Clock
	logger     *slog.Logger
	authz      auth.Authorizer
	undoWindow time.Duration

	mu       sync.Mutex
	issues   []*types.Issue
	filtered []*types.Issue
	filter   types.FilterSpec
	page     int
	pageSize int
	fetching int
	errMsg   string
	lastSync time.Time
	undo     *types.UndoableAction
	version  uint64

	nextSub      uint64
	subs         map[uint64]chan Snapshot
	undoSubs     map[uint64]chan *types.UndoableAction
	lastUndoSent string
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for scoring, undo timestamps and sync times.
func WithClock(c clock.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithAuthorizer sets the gate consulted before every mutation.
func WithAuthorizer(a auth.Authorizer) Option {
	return func(s *Store) { s.authz = a }
}

// WithUndoWindow sets how long an edit stays undoable.
func WithUndoWindow(d time.Duration) Option {
	return func(s *Store) { s.undoWindow = d }
}

// WithPageSize sets the number of issues per column page.
func WithPageSize(n int) Option {
	return func(s *Store) { s.pageSize = n }
}

// New returns an empty store backed by r. Call Refresh to load issues.
func New(r remote.Remote, opts ...Option) *Store {
	s := &Store{
		remote:     r,
		clock:      clock.Real(),
		logger:     debug.Discard(),
		authz:      auth.AllowAll{},
		undoWindow: DefaultUndoWindow,
		page:       1,
		pageSize:   DefaultPageSize,
		subs:       make(map[uint64]chan Snapshot),
		undoSubs:   make(map[uint64]chan *types.UndoableAction),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.pageSize <= 0 {
		s.pageSize = DefaultPageSize
	}
	s.filtered = []*types.Issue{}
	s.issues = []*types.Issue{}
	return s
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	issues := types.CloneIssues(s.issues)
	byID := make(map[string]*types.Issue, len(issues))
	for _, issue := range issues {
		byID[issue.ID] = issue
	}
	filtered := make([]*types.Issue, 0, len(s.filtered))
	for _, issue := range s.filtered {
		filtered = append(filtered, byID[issue.ID])
	}

	filter := s.filter
	if filter.Severity != nil {
		sev := *filter.Severity
		filter.Severity = &sev
	}
	return Snapshot{
		Version:  s.version,
		Issues:   issues,
		Filtered: filtered,
		Filter:   filter,
		Page:     s.page,
		PageSize: s.pageSize,
		Loading:  s.fetching > 0,
		Error:    s.errMsg,
		LastSync: s.lastSync,
		Undo:     s.undo.Clone(),
	}
}

// Subscribe returns a channel that receives the current snapshot and then a
// new one after every change, until ctx is done. A slow subscriber only
// ever misses intermediate snapshots, never the latest one.
func (s *Store) Subscribe(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, 1)

	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs[id] = ch
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()
	return ch
}

// SubscribeUndo returns a channel that receives the undo slot whenever it is
// filled, replaced or cleared (nil), starting with its current value.
func (s *Store) SubscribeUndo(ctx context.Context) <-chan *types.UndoableAction {
	ch := make(chan *types.UndoableAction, 1)

	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	s.undoSubs[id] = ch
	ch <- s.undo.Clone()
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.undoSubs, id)
		close(ch)
		s.mu.Unlock()
	}()
	return ch
}

// sendLatest delivers v, replacing an undelivered older value if needed.
// Only called with s.mu held, so there is a single sender per channel.
func sendLatest[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}

// publishLocked bumps the version and notifies subscribers.
func (s *Store) publishLocked() {
	s.version++
	if len(s.subs) > 0 {
		snap := s.snapshotLocked()
		for _, ch := range s.subs {
			sendLatest(ch, snap)
		}
	}

	undoID := ""
	if s.undo != nil {
		undoID = s.undo.TxID
	}
	if undoID != s.lastUndoSent {
		s.lastUndoSent = undoID
		for _, ch := range s.undoSubs {
			sendLatest(ch, s.undo.Clone())
		}
	}
}

// recomputeLocked reorders the collection, reruns the filter pipeline and
// publishes the result. Every change to issues or filter goes through here.
func (s *Store) recomputeLocked() {
	s.issues = types.SortByPriority(s.issues, s.clock.Now())
	s.filtered = query.Apply(s.issues, s.filter)
	s.publishLocked()
}

func (s *Store) indexLocked(id string) int {
	for i, issue := range s.issues {
		if issue.ID == id {
			return i
		}
	}
	return -1
}

// replaceLocked swaps in issue for the entry with the same id. Issues are
// never modified in place, so earlier snapshots stay valid. It reports
// false when the id is no longer in the collection.
func (s *Store) replaceLocked(issue *types.Issue) bool {
	idx := s.indexLocked(issue.ID)
	if idx < 0 {
		return false
	}
	next := make([]*types.Issue, len(s.issues))
	copy(next, s.issues)
	next[idx] = issue
	s.issues = next
	return true
}

// Issue returns a copy of the issue with the given id.
func (s *Store) Issue(id string) (*types.Issue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexLocked(id); idx >= 0 {
		return s.issues[idx].Clone(), true
	}
	return nil, false
}

// Assignees lists the distinct non-empty assignees in board order.
func (s *Store) Assignees() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	out := []string{}
	for _, issue := range s.issues {
		if issue.Assignee == "" || seen[issue.Assignee] {
			continue
		}
		seen[issue.Assignee] = true
		out = append(out, issue.Assignee)
	}
	return out
}

// SetFilter merges u into the current filter, returns to the first page and
// reruns the filter pipeline.
func (s *Store) SetFilter(u types.FilterUpdate) types.FilterSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = s.filter.Merge(u)
	s.page = 1
	s.recomputeLocked()
	return s.filter
}

// ResetFilter clears every filter and returns to the first page.
func (s *Store) ResetFilter() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = types.FilterSpec{}
	s.page = 1
	s.recomputeLocked()
}

// SetPage records the board page. Values below 1 select the first page;
// pages past the end are kept and render empty columns.
func (s *Store) SetPage(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if page < 1 {
		page = 1
	}
	if page == s.page {
		return
	}
	s.page = page
	s.publishLocked()
}

// ClearError dismisses the user-visible error.
func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errMsg == "" {
		return
	}
	s.errMsg = ""
	s.publishLocked()
}
