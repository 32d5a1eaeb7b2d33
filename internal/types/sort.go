package types

import (
	"slices"
	"time"
)

// dayLength is the length of a calendar day for age calculations.
const dayLength = 24 * time.Hour

// DaysElapsed returns the number of whole days between createdAt and now.
// Partial days are dropped and issues dated in the future count as 0.
func DaysElapsed(createdAt, now time.Time) int {
	if !now.After(createdAt) {
		return 0
	}
	return int(now.Sub(createdAt) / dayLength)
}

// Score computes the priority score used to order the board:
//
//	severity*10 - daysElapsed(createdAt, now) + userDefinedRank
//
// The score depends on the clock and is never stored on the issue.
func Score(issue *Issue, now time.Time) int {
	return issue.Severity*10 - DaysElapsed(issue.CreatedAt, now) + issue.Rank()
}

// SortByPriority returns a new slice ordered by score (highest first), with
// equal scores broken by CreatedAt (newest first). Remaining ties keep their
// input order. The input slice is not modified.
func SortByPriority(issues []*Issue, now time.Time) []*Issue {
	out := slices.Clone(issues)
	if len(out) < 2 {
		return out
	}

	scores := make(map[*Issue]int, len(out))
	for _, issue := range out {
		scores[issue] = Score(issue, now)
	}

	slices.SortStableFunc(out, func(a, b *Issue) int {
		if sa, sb := scores[a], scores[b]; sa != sb {
			if sa > sb {
				return -1
			}
			return 1
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

// IsPriorityOrdered reports whether issues already satisfy SortByPriority's order.
func IsPriorityOrdered(issues []*Issue, now time.Time) bool {
	for i := 1; i < len(issues); i++ {
		prev, cur := issues[i-1], issues[i]
		sp, sc := Score(prev, now), Score(cur, now)
		if sp < sc || (sp == sc && prev.CreatedAt.Before(cur.CreatedAt)) {
			return false
		}
	}
	return true
}
