package board

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/steveyegge/beadboard/internal/clock"
	"github.com/steveyegge/beadboard/internal/types"
)

var errRemote = errors.New("remote said no")

var testNow = time.Date(2025, 11, 25, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time {
	return testNow.Add(-time.Duration(n) * 24 * time.Hour)
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

// updateCall is one Update the fake remote has received. When the remote
// is in manual mode the caller blocks until a result is sent.
type updateCall struct {
	id     string
	patch  types.IssueUpdate
	result chan error
}

// fakeRemote scripts FetchAll and Update results.
type fakeRemote struct {
	mu        sync.Mutex
	issues    []*types.Issue
	fetchErr  error
	updateErr error
	fetches   int
	updates   []updateCall

	// manual, when set, receives every Update call; the call blocks until
	// its result channel is sent to.
	manual chan *updateCall
}

func (f *fakeRemote) FetchAll(ctx context.Context) ([]*types.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return types.CloneIssues(f.issues), nil
}

func (f *fakeRemote) Update(ctx context.Context, id string, patch types.IssueUpdate) (types.IssueUpdate, error) {
	call := &updateCall{id: id, patch: patch, result: make(chan error, 1)}
	f.mu.Lock()
	f.updates = append(f.updates, *call)
	manual := f.manual
	err := f.updateErr
	f.mu.Unlock()

	if manual != nil {
		manual <- call
		select {
		case err = <-call.result:
		case <-ctx.Done():
			return types.IssueUpdate{}, ctx.Err()
		}
	}
	if err != nil {
		return types.IssueUpdate{}, err
	}
	return patch, nil
}

func (f *fakeRemote) setIssues(issues []*types.Issue) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issues = issues
}

func (f *fakeRemote) updateCalls() []updateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]updateCall(nil), f.updates...)
}

func fixtureIssues() []*types.Issue {
	return []*types.Issue{
		{ID: "1", Title: "Login fails", Status: types.StatusBacklog, Priority: types.PriorityHigh, Severity: 3,
			CreatedAt: daysAgo(5), Assignee: "alice", Tags: []string{"auth"}, Description: strPtr("safari only")},
		{ID: "2", Title: "Dark mode", Status: types.StatusInProgress, Priority: types.PriorityLow, Severity: 1,
			CreatedAt: daysAgo(1), Assignee: "bob", Tags: []string{"ui"}},
		{ID: "3", Title: "Session timeout", Status: types.StatusBacklog, Priority: types.PriorityMedium, Severity: 2,
			CreatedAt: daysAgo(2), Assignee: "alice", Tags: []string{"auth", "backend"}, UserDefinedRank: intPtr(4)},
		{ID: "4", Title: "Export CSV", Status: types.StatusDone, Priority: types.PriorityMedium, Severity: 2,
			CreatedAt: daysAgo(10), Assignee: "carol", Tags: []string{}},
	}
}

// newLoadedStore returns a store refreshed from a fake remote holding the fixture.
func newLoadedStore(t *testing.T, opts ...Option) (*Store, *fakeRemote, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(testNow)
	r := &fakeRemote{issues: fixtureIssues()}
	s := New(r, append([]Option{WithClock(clk)}, opts...)...)
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("initial refresh: %v", err)
	}
	return s, r, clk
}

func snapshotIDs(issues []*types.Issue) []string {
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = issue.ID
	}
	return out
}
