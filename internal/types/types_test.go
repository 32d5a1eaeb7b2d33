package types

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func sampleIssue() *Issue {
	return &Issue{
		ID:              "1",
		Title:           "Login fails on Safari",
		Status:          StatusBacklog,
		Priority:        PriorityHigh,
		Severity:        3,
		CreatedAt:       time.Date(2025, 11, 20, 10, 0, 0, 0, time.UTC),
		Assignee:        "alice",
		Tags:            []string{"auth", "frontend"},
		UserDefinedRank: intPtr(5),
		Description:     strPtr("Repro on 17.1"),
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := sampleIssue()
	c := orig.Clone()
	require.Empty(t, cmp.Diff(orig, c))

	c.Tags[0] = "changed"
	*c.UserDefinedRank = 99
	*c.Description = "changed"

	assert.Equal(t, "auth", orig.Tags[0])
	assert.Equal(t, 5, *orig.UserDefinedRank)
	assert.Equal(t, "Repro on 17.1", *orig.Description)
}

func TestRankDefaultsToZero(t *testing.T) {
	issue := sampleIssue()
	issue.UserDefinedRank = nil
	assert.Equal(t, 0, issue.Rank())
}

func TestIssueUpdateApply(t *testing.T) {
	orig := sampleIssue()
	done := StatusDone
	patch := IssueUpdate{Status: &done, Tags: []string{"auth"}}

	got := patch.Apply(orig)

	assert.Equal(t, StatusDone, got.Status)
	assert.Equal(t, []string{"auth"}, got.Tags)
	assert.Equal(t, StatusBacklog, orig.Status, "input must not be modified")
	assert.Len(t, orig.Tags, 2)

	want := orig.Clone()
	want.Status = StatusDone
	want.Tags = []string{"auth"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("untouched fields changed (-want +got):\n%s", diff)
	}
}

func TestUpdateFromIssueRestoresEveryField(t *testing.T) {
	prev := sampleIssue()
	edited := IssueUpdate{
		Title:           strPtr("Other"),
		Severity:        intPtr(1),
		UserDefinedRank: intPtr(0),
	}.Apply(prev)

	restored := UpdateFromIssue(prev).Apply(edited)
	if diff := cmp.Diff(prev, restored); diff != "" {
		t.Fatalf("restore mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateFromIssueClearsUnsetFields(t *testing.T) {
	prev := sampleIssue()
	prev.Priority = ""
	prev.UserDefinedRank = nil
	prev.Description = nil

	high := PriorityHigh
	edited := IssueUpdate{
		Priority:        &high,
		UserDefinedRank: intPtr(5),
		Description:     strPtr("x"),
	}.Apply(prev)

	patch := UpdateFromIssue(prev)
	require.NoError(t, patch.Validate(), "a restore patch for an issue without priority must validate")
	assert.Nil(t, patch.Priority)
	assert.True(t, patch.ClearPriority)
	assert.True(t, patch.ClearRank)
	assert.True(t, patch.ClearDescription)

	restored := patch.Apply(edited)
	if diff := cmp.Diff(prev, restored); diff != "" {
		t.Fatalf("restore mismatch (-want +got):\n%s", diff)
	}
}

func TestIssueUpdateClearWinsOverValue(t *testing.T) {
	patch := IssueUpdate{UserDefinedRank: intPtr(7), ClearRank: true, ClearDescription: true}
	assert.False(t, patch.IsEmpty())
	assert.False(t, IssueUpdate{ClearPriority: true}.IsEmpty())

	got := patch.Apply(sampleIssue())
	assert.Nil(t, got.UserDefinedRank)
	assert.Nil(t, got.Description)
}

func TestIssueUpdateValidate(t *testing.T) {
	bad := Status("Archived")
	assert.Error(t, IssueUpdate{Status: &bad}.Validate())
	assert.Error(t, IssueUpdate{Title: strPtr("")}.Validate())
	assert.NoError(t, StatusUpdate(StatusDone).Validate())
	assert.True(t, IssueUpdate{}.IsEmpty())
	assert.False(t, StatusUpdate(StatusDone).IsEmpty())
}

func TestParseStatus(t *testing.T) {
	tests := map[string]Status{
		"Backlog":     StatusBacklog,
		"backlog":     StatusBacklog,
		"In Progress": StatusInProgress,
		"in_progress": StatusInProgress,
		"in-progress": StatusInProgress,
		"DONE":        StatusDone,
	}
	for raw, want := range tests {
		got, err := ParseStatus(raw)
		if err != nil {
			t.Fatalf("ParseStatus(%q) error: %v", raw, err)
		}
		if got != want {
			t.Errorf("ParseStatus(%q) = %q, want %q", raw, got, want)
		}
	}
	if _, err := ParseStatus("closed"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

func TestFilterSpecMerge(t *testing.T) {
	spec := FilterSpec{Search: "login", Severity: intPtr(3)}

	merged := spec.Merge(FilterUpdate{Assignee: strPtr("bob")})
	assert.Equal(t, "login", merged.Search)
	assert.Equal(t, "bob", merged.Assignee)
	require.NotNil(t, merged.Severity)
	assert.Equal(t, 3, *merged.Severity)

	cleared := merged.Merge(FilterUpdate{ClearSeverity: true})
	assert.Nil(t, cleared.Severity)
	assert.False(t, cleared.IsZero())
	assert.True(t, FilterSpec{}.IsZero())
}

func TestIssueValidate(t *testing.T) {
	issue := sampleIssue()
	require.NoError(t, issue.Validate())

	issue.Status = "Archived"
	assert.Error(t, issue.Validate())

	issue = sampleIssue()
	issue.Title = ""
	assert.Error(t, issue.Validate())
}
