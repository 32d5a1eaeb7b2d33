// Package remote defines the backing store the board synchronizes with and
// provides the in-memory reference backend.
package remote

import (
	"context"
	"errors"

	"github.com/steveyegge/beadboard/internal/types"
)

var (
	// ErrUpdateFailed is the generic signal for a rejected update.
	ErrUpdateFailed = errors.New("update failed")
	// ErrFetchFailed is returned when a full fetch could not be served.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrNotFound is returned when an update names an unknown issue.
	ErrNotFound = errors.New("issue not found")
)

// Remote is the slow, fallible store of record. Calls may block for a
// variable amount of time and must honour ctx cancellation.
type Remote interface {
	// FetchAll returns the full current issue set. The caller owns the result.
	FetchAll(ctx context.Context) ([]*types.Issue, error)
	// Update persists a partial update and echoes the applied patch.
	Update(ctx context.Context, id string, patch types.IssueUpdate) (types.IssueUpdate, error)
}
