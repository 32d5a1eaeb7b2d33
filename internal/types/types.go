// Package types defines core data structures for the bb issue board.
package types

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Issue represents a work item shown on the board
type Issue struct {
	ID              string    `json:"id" yaml:"id"`
	Title           string    `json:"title" yaml:"title"`
	Status          Status    `json:"status" yaml:"status"`
	Priority        Priority  `json:"priority" yaml:"priority"` // Display only, not used for ordering
	Severity        int       `json:"severity" yaml:"severity"`
	CreatedAt       time.Time `json:"created_at" yaml:"created_at"`
	Assignee        string    `json:"assignee" yaml:"assignee"`
	Tags            []string  `json:"tags" yaml:"tags"`
	UserDefinedRank *int      `json:"user_defined_rank,omitempty" yaml:"user_defined_rank,omitempty"`
	Description     *string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// Rank returns the user-defined rank, treating an unset rank as 0.
func (i *Issue) Rank() int {
	if i.UserDefinedRank == nil {
		return 0
	}
	return *i.UserDefinedRank
}

// Clone returns a deep copy of the issue. Snapshots handed to callers and
// the undo buffer are always clones so later edits never alias them.
func (i *Issue) Clone() *Issue {
	if i == nil {
		return nil
	}
	c := *i
	if i.Tags != nil {
		c.Tags = slices.Clone(i.Tags)
	}
	if i.UserDefinedRank != nil {
		rank := *i.UserDefinedRank
		c.UserDefinedRank = &rank
	}
	if i.Description != nil {
		desc := *i.Description
		c.Description = &desc
	}
	return &c
}

// Validate checks if the issue has valid field values
func (i *Issue) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("id is required")
	}
	if len(i.Title) == 0 {
		return fmt.Errorf("title is required")
	}
	if len(i.Title) > 500 {
		return fmt.Errorf("title must be 500 characters or less (got %d)", len(i.Title))
	}
	if !i.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", i.Status)
	}
	if i.Priority != "" && !i.Priority.IsValid() {
		return fmt.Errorf("invalid priority: %s", i.Priority)
	}
	return nil
}

// CloneIssues deep-copies every issue in the slice.
func CloneIssues(issues []*Issue) []*Issue {
	out := make([]*Issue, len(issues))
	for idx, issue := range issues {
		out[idx] = issue.Clone()
	}
	return out
}

// Status represents the board column an issue sits in
type Status string

// Issue status constants
const (
	StatusBacklog    Status = "Backlog"
	StatusInProgress Status = "In Progress"
	StatusDone       Status = "Done"
)

// BoardColumns lists the statuses in the order the board shows them.
var BoardColumns = []Status{StatusBacklog, StatusInProgress, StatusDone}

// IsValid checks if the status value is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusBacklog, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// ParseStatus accepts the display form ("In Progress") as well as the
// shell-friendly forms "in_progress", "in-progress" and "inprogress".
func ParseStatus(raw string) (Status, error) {
	switch normalizeToken(raw) {
	case "backlog":
		return StatusBacklog, nil
	case "inprogress":
		return StatusInProgress, nil
	case "done":
		return StatusDone, nil
	}
	return "", fmt.Errorf("invalid status %q (want Backlog, In Progress or Done)", raw)
}

// Priority is the display-only urgency label of an issue
type Priority string

// Priority constants
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// IsValid checks if the priority value is valid
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

var tokenSeparators = strings.NewReplacer(" ", "", "_", "", "-", "")

func normalizeToken(raw string) string {
	return tokenSeparators.Replace(strings.ToLower(strings.TrimSpace(raw)))
}

// FilterSpec selects a subset of the board. Zero values mean "no filter".
type FilterSpec struct {
	Search   string `json:"search"`
	Assignee string `json:"assignee"`
	Severity *int   `json:"severity"` // nil means any severity
}

// IsZero reports whether the spec keeps every issue.
func (f FilterSpec) IsZero() bool {
	return f.Search == "" && f.Assignee == "" && f.Severity == nil
}

// FilterUpdate is a partial FilterSpec. ClearSeverity resets the severity
// filter to "any"; a nil Severity leaves it unchanged.
type FilterUpdate struct {
	Search        *string `json:"search,omitempty"`
	Assignee      *string `json:"assignee,omitempty"`
	Severity      *int    `json:"severity,omitempty"`
	ClearSeverity bool    `json:"clear_severity,omitempty"`
}

// Merge returns f with the non-nil fields of u applied.
func (f FilterSpec) Merge(u FilterUpdate) FilterSpec {
	if u.Search != nil {
		f.Search = *u.Search
	}
	if u.Assignee != nil {
		f.Assignee = *u.Assignee
	}
	if u.ClearSeverity {
		f.Severity = nil
	} else if u.Severity != nil {
		sev := *u.Severity
		f.Severity = &sev
	}
	return f
}

// UndoableAction records the single most recent optimistic edit.
type UndoableAction struct {
	TxID          string    `json:"tx_id"`
	IssueID       string    `json:"issue_id"`
	PreviousState *Issue    `json:"previous_state"`
	NewState      *Issue    `json:"new_state"`
	Timestamp     time.Time `json:"timestamp"`
}

// Clone returns a deep copy of the action.
func (a *UndoableAction) Clone() *UndoableAction {
	if a == nil {
		return nil
	}
	c := *a
	c.PreviousState = a.PreviousState.Clone()
	c.NewState = a.NewState.Clone()
	return &c
}
