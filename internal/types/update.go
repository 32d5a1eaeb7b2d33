package types

import (
	"fmt"
	"slices"
)

// IssueUpdate is a partial update. Nil fields are left untouched; ID and
// CreatedAt are immutable and cannot be patched. The Clear flags reset an
// optional field to unset and win over a value for the same field.
type IssueUpdate struct {
	Title           *string   `json:"title,omitempty"`
	Status          *Status   `json:"status,omitempty"`
	Priority        *Priority `json:"priority,omitempty"`
	Severity        *int      `json:"severity,omitempty"`
	Assignee        *string   `json:"assignee,omitempty"`
	Tags            []string  `json:"tags,omitempty"`
	UserDefinedRank *int      `json:"user_defined_rank,omitempty"`
	Description     *string   `json:"description,omitempty"`

	ClearPriority    bool `json:"clear_priority,omitempty"`
	ClearRank        bool `json:"clear_rank,omitempty"`
	ClearDescription bool `json:"clear_description,omitempty"`
}

// StatusUpdate builds a patch touching only the status field.
func StatusUpdate(status Status) IssueUpdate {
	return IssueUpdate{Status: &status}
}

// UpdateFromIssue builds a patch that sets every mutable field to the
// value it has on issue, clearing the optional fields issue leaves unset.
// Used to persist a restored snapshot.
func UpdateFromIssue(issue *Issue) IssueUpdate {
	c := issue.Clone()
	u := IssueUpdate{
		Title:           &c.Title,
		Status:          &c.Status,
		Severity:        &c.Severity,
		Assignee:        &c.Assignee,
		Tags:            c.Tags,
		UserDefinedRank: c.UserDefinedRank,
		Description:     c.Description,
	}
	if c.Priority == "" {
		u.ClearPriority = true
	} else {
		u.Priority = &c.Priority
	}
	if u.Tags == nil {
		u.Tags = []string{}
	}
	u.ClearRank = c.UserDefinedRank == nil
	u.ClearDescription = c.Description == nil
	return u
}

// IsEmpty reports whether the patch changes nothing.
func (u IssueUpdate) IsEmpty() bool {
	return u.Title == nil && u.Status == nil && u.Priority == nil && u.Severity == nil &&
		u.Assignee == nil && u.Tags == nil && u.UserDefinedRank == nil && u.Description == nil &&
		!u.ClearPriority && !u.ClearRank && !u.ClearDescription
}

// Validate checks the values carried by the patch.
func (u IssueUpdate) Validate() error {
	if u.Title != nil && *u.Title == "" {
		return fmt.Errorf("title cannot be empty")
	}
	if u.Status != nil && !u.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", *u.Status)
	}
	if !u.ClearPriority && u.Priority != nil && !u.Priority.IsValid() {
		return fmt.Errorf("invalid priority: %s", *u.Priority)
	}
	return nil
}

// Apply returns a copy of issue with the patch merged in. The input is not modified.
func (u IssueUpdate) Apply(issue *Issue) *Issue {
	out := issue.Clone()
	if u.Title != nil {
		out.Title = *u.Title
	}
	if u.Status != nil {
		out.Status = *u.Status
	}
	if u.ClearPriority {
		out.Priority = ""
	} else if u.Priority != nil {
		out.Priority = *u.Priority
	}
	if u.Severity != nil {
		out.Severity = *u.Severity
	}
	if u.Assignee != nil {
		out.Assignee = *u.Assignee
	}
	if u.Tags != nil {
		out.Tags = slices.Clone(u.Tags)
	}
	if u.ClearRank {
		out.UserDefinedRank = nil
	} else if u.UserDefinedRank != nil {
		rank := *u.UserDefinedRank
		out.UserDefinedRank = &rank
	}
	if u.ClearDescription {
		out.Description = nil
	} else if u.Description != nil {
		desc := *u.Description
		out.Description = &desc
	}
	return out
}
