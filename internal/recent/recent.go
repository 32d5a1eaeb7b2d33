// Package recent keeps the list of recently viewed issues.
package recent

import (
	"sync"

	"github.com/steveyegge/beadboard/internal/types"
)

// DefaultLimit is how many issues the list remembers.
const DefaultLimit = 5

// List is a most-recent-first list of issues, held in memory only.
type List struct {
	mu     sync.Mutex
	limit  int
	issues []*types.Issue
}

// New returns an empty list holding at most limit issues.
func New(limit int) *List {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &List{limit: limit}
}

// Add records issue as the most recently viewed. An issue already in the
// list moves to the front instead of appearing twice.
func (l *List) Add(issue *types.Issue) {
	if issue == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*types.Issue, 0, l.limit)
	out = append(out, issue.Clone())
	for _, existing := range l.issues {
		if existing.ID == issue.ID {
			continue
		}
		if len(out) == l.limit {
			break
		}
		out = append(out, existing)
	}
	l.issues = out
}

// Items returns copies of the remembered issues, most recent first.
func (l *List) Items() []*types.Issue {
	l.mu.Lock()
	defer l.mu.Unlock()
	return types.CloneIssues(l.issues)
}

// Clear forgets every issue.
func (l *List) Clear() {
	l.mu.Lock()
	l.issues = nil
	l.mu.Unlock()
}
