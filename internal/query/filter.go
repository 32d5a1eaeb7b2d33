// Package query implements the board's filter pipeline.
//
// Apply narrows the canonical, priority-ordered issue collection to the
// subset matching a FilterSpec. Parse turns a compact query string into a
// FilterSpec for command-line use:
//
//   - bare words become the search text: login safari
//   - quoted phrases are kept together: "login fails"
//   - field terms: assignee:alice severity:3 (also assignee=alice)
//   - "any" resets a field: severity:any
package query

import (
	"strings"

	"github.com/steveyegge/beadboard/internal/types"
)

// Apply returns the issues that satisfy every active filter in spec, in
// input order. Empty search and assignee, and a nil severity, match all.
// The input slice is never modified; the result is a fresh slice sharing
// the issue pointers.
func Apply(issues []*types.Issue, spec types.FilterSpec) []*types.Issue {
	search := strings.ToLower(spec.Search)
	out := make([]*types.Issue, 0, len(issues))
	for _, issue := range issues {
		if search != "" && !matchesSearch(issue, search) {
			continue
		}
		if spec.Assignee != "" && issue.Assignee != spec.Assignee {
			continue
		}
		if spec.Severity != nil && issue.Severity != *spec.Severity {
			continue
		}
		out = append(out, issue)
	}
	return out
}

// matchesSearch reports whether the lower-cased needle occurs in the title
// or in any tag.
func matchesSearch(issue *types.Issue, needle string) bool {
	if strings.Contains(strings.ToLower(issue.Title), needle) {
		return true
	}
	for _, tag := range issue.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}
