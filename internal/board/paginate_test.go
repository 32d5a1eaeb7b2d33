package board

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/beadboard/internal/types"
)

func numberedIssues(n int, status types.Status) []*types.Issue {
	out := make([]*types.Issue, n)
	for i := range out {
		out[i] = &types.Issue{ID: fmt.Sprint(i + 1), Title: fmt.Sprintf("issue %d", i+1), Status: status}
	}
	return out
}

func TestPaginate(t *testing.T) {
	issues := numberedIssues(45, types.StatusBacklog)

	tests := []struct {
		name      string
		page      int
		wantLen   int
		wantFirst string
	}{
		{"first page", 1, 20, "1"},
		{"second page", 2, 20, "21"},
		{"last partial page", 3, 5, "41"},
		{"past the end", 4, 0, ""},
		{"page zero", 0, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Paginate(issues, tt.page, 20)
			assert.Equal(t, 45, p.Total)
			assert.Equal(t, 3, p.TotalPages)
			require.Len(t, p.Items, tt.wantLen)
			if tt.wantLen > 0 {
				assert.Equal(t, tt.wantFirst, p.Items[0].ID)
			}
		})
	}
}

func TestPaginateEmpty(t *testing.T) {
	p := Paginate(nil, 1, 20)
	assert.Equal(t, 1, p.TotalPages)
	assert.NotNil(t, p.Items)
	assert.Empty(t, p.Items)
}

func TestPaginateDefaultsPageSize(t *testing.T) {
	p := Paginate(numberedIssues(25, types.StatusDone), 1, 0)
	assert.Len(t, p.Items, DefaultPageSize)
	assert.Equal(t, 2, p.TotalPages)
}

func TestGroupByStatusKeepsOrderAndColumns(t *testing.T) {
	issues := []*types.Issue{
		{ID: "a", Status: types.StatusDone},
		{ID: "b", Status: types.StatusBacklog},
		{ID: "c", Status: types.StatusDone},
	}
	groups := GroupByStatus(issues)
	require.Len(t, groups, 3)
	assert.Equal(t, []string{"b"}, snapshotIDs(groups[types.StatusBacklog]))
	assert.Empty(t, groups[types.StatusInProgress])
	assert.Equal(t, []string{"a", "c"}, snapshotIDs(groups[types.StatusDone]))
}

func TestBuildViewUsesLargestColumn(t *testing.T) {
	issues := append(numberedIssues(45, types.StatusBacklog), &types.Issue{ID: "x", Status: types.StatusDone})
	v := BuildView(issues, 2, 20)

	require.Len(t, v.Columns, 3)
	assert.Equal(t, 3, v.TotalPages)
	assert.Equal(t, 2, v.Page)
	assert.Len(t, v.Columns[0].Items, 20)
	assert.Equal(t, 1, v.Columns[2].TotalPages)
	assert.Empty(t, v.Columns[2].Items, "done has a single page")
}
