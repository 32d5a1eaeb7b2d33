package board

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/steveyegge/beadboard/internal/auth"
	"github.com/steveyegge/beadboard/internal/types"
	"github.com/steveyegge/beadboard/internal/undo"
)

var (
	// ErrNotPermitted is returned when the authorizer denies a mutation.
	// The store is left untouched.
	ErrNotPermitted = errors.New("not permitted")
	// ErrUpdateFailed wraps a remote update failure after rollback.
	ErrUpdateFailed = errors.New("update failed")
	// ErrFetchFailed wraps a remote fetch failure; the collection is unchanged.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrUndoFailed wraps a failure to persist an undone edit.
	ErrUndoFailed = errors.New("undo failed")
)

type editConfig struct {
	optimistic bool
}

// EditOption configures ApplyEdit.
type EditOption func(*editConfig)

// Pessimistic defers the local write until the remote confirms the edit.
// No undo record is created.
func Pessimistic() EditOption {
	return func(c *editConfig) { c.optimistic = false }
}

// ApplyEdit merges patch into the issue with the given id.
//
// By default the edit is applied locally first: the collection is updated,
// reordered and refiltered, and the undo slot is replaced with a record of
// this edit, all before the remote is called. ApplyEdit then blocks on the
// remote update. If it fails, the issue is restored to its pre-edit state,
// the undo slot is cleared if it still holds this edit, and the returned
// error wraps ErrUpdateFailed.
//
// An unknown id is ignored and returns nil.
func (s *Store) ApplyEdit(ctx context.Context, id string, patch types.IssueUpdate, opts ...EditOption) error {
	cfg := editConfig{optimistic: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	if !s.authz.CanPerform(auth.ActionEdit) {
		return ErrNotPermitted
	}
	if err := patch.Validate(); err != nil {
		return fmt.Errorf("invalid update for %s: %w", id, err)
	}

	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		s.logger.Debug("edit for unknown issue ignored", "issue_id", id)
		return nil
	}
	previous := s.issues[idx].Clone()
	next := patch.Apply(previous)
	tx := uuid.NewString()

	if cfg.optimistic {
		s.replaceLocked(next)
		s.undo = &types.UndoableAction{
			TxID:          tx,
			IssueID:       id,
			PreviousState: previous.Clone(),
			NewState:      next.Clone(),
			Timestamp:     s.clock.Now(),
		}
		s.recomputeLocked()
	}
	s.mu.Unlock()

	_, err := s.remote.Update(ctx, id, patch)
	if err == nil {
		if !cfg.optimistic {
			s.mu.Lock()
			if s.replaceLocked(next) {
				s.recomputeLocked()
			}
			s.mu.Unlock()
		}
		s.logger.Debug("edit confirmed", "issue_id", id, "tx", tx)
		return nil
	}

	s.mu.Lock()
	if cfg.optimistic {
		s.replaceLocked(previous)
	}
	if s.undo != nil && s.undo.TxID == tx {
		s.undo = nil
	}
	s.errMsg = msgUpdateFailed
	s.recomputeLocked()
	s.mu.Unlock()

	s.logger.Warn("edit rolled back", "issue_id", id, "tx", tx, "error", err)
	return fmt.Errorf("%w: %s: %w", ErrUpdateFailed, id, err)
}

// SetStatus moves an issue to another column.
func (s *Store) SetStatus(ctx context.Context, id string, status types.Status) error {
	return s.ApplyEdit(ctx, id, types.StatusUpdate(status))
}

// UpdateIssue applies a field edit optimistically.
func (s *Store) UpdateIssue(ctx context.Context, id string, patch types.IssueUpdate) error {
	return s.ApplyEdit(ctx, id, patch)
}

// Undo reverts the edit held in the undo slot, if it is still within the
// undo window, and then asks the remote to persist the restored state. The
// slot is cleared before the remote call; a failed persist is reported
// through the returned error and the snapshot error but cannot be retried.
// With nothing to undo it returns nil.
func (s *Store) Undo(ctx context.Context) error {
	if !s.authz.CanPerform(auth.ActionEdit) {
		return ErrNotPermitted
	}

	s.mu.Lock()
	action := s.undo
	if action == nil {
		s.mu.Unlock()
		return nil
	}
	now := s.clock.Now()
	if undo.Remaining(action.Timestamp, now, s.undoWindow) <= 0 {
		s.undo = nil
		s.publishLocked()
		s.mu.Unlock()
		s.logger.Info("undo window elapsed", "issue_id", action.IssueID, "tx", action.TxID)
		return nil
	}
	s.undo = nil
	s.replaceLocked(action.PreviousState.Clone())
	s.recomputeLocked()
	s.mu.Unlock()

	s.logger.Info("edit undone", "issue_id", action.IssueID, "tx", action.TxID)

	if _, err := s.remote.Update(ctx, action.IssueID, types.UpdateFromIssue(action.PreviousState)); err != nil {
		s.mu.Lock()
		s.errMsg = msgUndoFailed
		s.publishLocked()
		s.mu.Unlock()
		s.logger.Warn("undo not persisted", "issue_id", action.IssueID, "tx", action.TxID, "error", err)
		return fmt.Errorf("%w: %s: %w", ErrUndoFailed, action.IssueID, err)
	}
	return nil
}

// ExpireUndo clears the undo slot if it holds the edit tx (any edit when tx
// is empty) and that edit's window has elapsed. The edit itself stays
// applied. It reports whether the slot was cleared.
func (s *Store) ExpireUndo(tx string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.undo == nil || (tx != "" && s.undo.TxID != tx) {
		return false
	}
	if undo.Remaining(s.undo.Timestamp, s.clock.Now(), s.undoWindow) > 0 {
		return false
	}
	s.logger.Debug("undo expired", "issue_id", s.undo.IssueID, "tx", s.undo.TxID)
	s.undo = nil
	s.publishLocked()
	return true
}

// UndoRemaining is the time left to undo the pending edit, 0 if none.
func (s *Store) UndoRemaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.undo == nil {
		return 0
	}
	return undo.Remaining(s.undo.Timestamp, s.clock.Now(), s.undoWindow)
}

// UndoWindow is the configured undo window.
func (s *Store) UndoWindow() time.Duration {
	return s.undoWindow
}
