package board

import (
	"context"
	"fmt"

	"github.com/steveyegge/beadboard/internal/types"
)

// Refresh replaces the canonical collection with the remote's full issue
// set. On failure the collection is left as it was and the error, which
// wraps ErrFetchFailed, is also recorded for display.
//
// The server wins: an issue with an edit still awaiting confirmation is
// overwritten with whatever the remote reports for it. If that edit later
// fails, its rollback restores the pre-edit state over the fetched value.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.fetching++
	s.errMsg = ""
	s.publishLocked()
	s.mu.Unlock()

	issues, err := s.remote.FetchAll(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetching--
	if err != nil {
		s.errMsg = msgFetchFailed
		s.publishLocked()
		s.logger.Warn("refresh failed", "error", err)
		return fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	fetched := make([]*types.Issue, 0, len(issues))
	for _, issue := range issues {
		if issue != nil {
			fetched = append(fetched, issue)
		}
	}
	s.issues = fetched
	s.lastSync = s.clock.Now()
	s.recomputeLocked()
	s.logger.Debug("refreshed", "issues", len(fetched))
	return nil
}
