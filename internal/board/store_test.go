package board

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/beadboard/internal/types"
)

func TestRefreshOrdersAndFilters(t *testing.T) {
	s, r, _ := newLoadedStore(t)

	snap := s.Snapshot()
	assert.Equal(t, []string{"1", "3", "4", "2"}, snapshotIDs(snap.Issues))
	assert.Equal(t, snapshotIDs(snap.Issues), snapshotIDs(snap.Filtered))
	assert.True(t, types.IsPriorityOrdered(snap.Issues, testNow))
	assert.Equal(t, testNow, snap.LastSync)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Error)
	assert.Equal(t, 1, r.fetches)
}

func TestRefreshReplacesCollection(t *testing.T) {
	s, r, _ := newLoadedStore(t)
	r.setIssues(fixtureIssues()[2:])

	require.NoError(t, s.Refresh(context.Background()))
	assert.Equal(t, []string{"3", "4"}, snapshotIDs(s.Snapshot().Issues))
	_, ok := s.Issue("1")
	assert.False(t, ok, "issues omitted by a refresh are gone")
}

func TestRefreshFailureKeepsCollection(t *testing.T) {
	s, r, clk := newLoadedStore(t)
	before := s.Snapshot()
	r.fetchErr = errRemote
	clk.Advance(time.Minute)

	err := s.Refresh(context.Background())
	require.ErrorIs(t, err, ErrFetchFailed)
	require.ErrorIs(t, err, errRemote)

	after := s.Snapshot()
	assert.Equal(t, snapshotIDs(before.Issues), snapshotIDs(after.Issues))
	assert.Equal(t, before.LastSync, after.LastSync)
	assert.Equal(t, "Failed to fetch issues", after.Error)
	assert.False(t, after.Loading)

	s.ClearError()
	assert.Empty(t, s.Snapshot().Error)

	r.fetchErr = nil
	require.NoError(t, s.Refresh(context.Background()))
	assert.Equal(t, testNow.Add(time.Minute), s.Snapshot().LastSync)
}

func TestRefreshClearsPreviousError(t *testing.T) {
	s, r, _ := newLoadedStore(t)
	r.fetchErr = errRemote
	_ = s.Refresh(context.Background())
	require.NotEmpty(t, s.Snapshot().Error)

	r.fetchErr = nil
	require.NoError(t, s.Refresh(context.Background()))
	assert.Empty(t, s.Snapshot().Error)
}

func TestSetFilterMergesAndResetsPage(t *testing.T) {
	s, _, _ := newLoadedStore(t)
	s.SetPage(3)
	require.Equal(t, 3, s.Snapshot().Page)

	alice := "alice"
	spec := s.SetFilter(types.FilterUpdate{Assignee: &alice})
	assert.Equal(t, "alice", spec.Assignee)
	snap := s.Snapshot()
	assert.Equal(t, 1, snap.Page)
	assert.Equal(t, []string{"1", "3"}, snapshotIDs(snap.Filtered))
	assert.Len(t, snap.Issues, 4, "filtering never touches the canonical collection")

	s.SetFilter(types.FilterUpdate{Severity: intPtr(3)})
	assert.Equal(t, []string{"1"}, snapshotIDs(s.Snapshot().Filtered))

	s.SetFilter(types.FilterUpdate{ClearSeverity: true})
	assert.Equal(t, []string{"1", "3"}, snapshotIDs(s.Snapshot().Filtered))

	search := "BACKEND"
	s.SetFilter(types.FilterUpdate{Search: &search})
	assert.Equal(t, []string{"3"}, snapshotIDs(s.Snapshot().Filtered))

	s.ResetFilter()
	snap = s.Snapshot()
	assert.True(t, snap.Filter.IsZero())
	assert.Equal(t, []string{"1", "3", "4", "2"}, snapshotIDs(snap.Filtered))
}

func TestSetPage(t *testing.T) {
	s, _, _ := newLoadedStore(t)
	s.SetPage(0)
	assert.Equal(t, 1, s.Snapshot().Page)
	s.SetPage(7)
	assert.Equal(t, 7, s.Snapshot().Page, "pages past the end are not clamped")
}

func TestSnapshotIsIsolated(t *testing.T) {
	s, _, _ := newLoadedStore(t)
	snap := s.Snapshot()
	snap.Issues[0].Title = "mutated"
	snap.Issues[0].Tags[0] = "mutated"

	issue, ok := s.Issue(snap.Issues[0].ID)
	require.True(t, ok)
	assert.Equal(t, "Login fails", issue.Title)
	assert.Equal(t, []string{"auth"}, issue.Tags)
}

func TestSnapshotFilteredSharesIssues(t *testing.T) {
	s, _, _ := newLoadedStore(t)
	snap := s.Snapshot()
	assert.Same(t, snap.Issues[0], snap.Filtered[0])
}

func TestAssignees(t *testing.T) {
	s, _, _ := newLoadedStore(t)
	assert.Equal(t, []string{"alice", "carol", "bob"}, s.Assignees())
}

func TestSubscribeDeliversLatest(t *testing.T) {
	s, r, _ := newLoadedStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := s.Subscribe(ctx)
	first := <-ch
	assert.Equal(t, s.Snapshot().Version, first.Version)

	r.updateErr = nil
	require.NoError(t, s.SetStatus(ctx, "1", types.StatusDone))

	deadline := time.After(time.Second)
	for {
		select {
		case snap := <-ch:
			for _, issue := range snap.Issues {
				if issue.ID == "1" && issue.Status == types.StatusDone {
					require.NotNil(t, snap.Undo)
					return
				}
			}
		case <-deadline:
			t.Fatal("subscriber never saw the edit")
		}
	}
}

func TestSubscribeClosesOnCancel(t *testing.T) {
	s, _, _ := newLoadedStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	ch := s.Subscribe(ctx)
	<-ch
	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, time.Millisecond)
}

func TestSnapshotView(t *testing.T) {
	s, _, _ := newLoadedStore(t, WithPageSize(1))
	v := s.Snapshot().View()
	require.Len(t, v.Columns, 3)
	assert.Equal(t, types.StatusBacklog, v.Columns[0].Status)
	assert.Equal(t, []string{"1"}, snapshotIDs(v.Columns[0].Items))
	assert.Equal(t, 2, v.TotalPages, "backlog holds two issues at one per page")
}
