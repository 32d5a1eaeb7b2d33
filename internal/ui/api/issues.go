package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/steveyegge/beadboard/internal/auth"
	"github.com/steveyegge/beadboard/internal/board"
	"github.com/steveyegge/beadboard/internal/types"
)

// IssueResponse wraps a single issue.
type IssueResponse struct {
	Issue *types.Issue `json:"issue"`
}

func (h *Handlers) canView() bool {
	return h.cfg.Session == nil || h.cfg.Session.CanPerform(auth.ActionView)
}

func (h *Handlers) canEdit() bool {
	return h.cfg.Session == nil || h.cfg.Session.CanPerform(auth.ActionEdit)
}

// lookup writes a 404 and returns false when id is not on the board.
func (h *Handlers) lookup(w http.ResponseWriter, id string) (*types.Issue, bool) {
	issue, ok := h.cfg.Store.Issue(id)
	if !ok {
		WriteJSONError(w, http.StatusNotFound, "issue not found", "No issue with id "+id+" is on the board.")
		return nil, false
	}
	return issue, true
}

func (h *Handlers) getIssue(w http.ResponseWriter, r *http.Request) {
	if !h.canView() {
		WriteJSONError(w, http.StatusForbidden, "not permitted", "The current user cannot view issues.")
		return
	}
	issue, ok := h.lookup(w, r.PathValue("id"))
	if !ok {
		return
	}
	if h.cfg.Recent != nil {
		h.cfg.Recent.Add(issue)
	}
	writeJSON(w, http.StatusOK, IssueResponse{Issue: issue})
}

func (h *Handlers) patchIssue(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var patch types.IssueUpdate
	if !decodeJSON(w, r, &patch) {
		return
	}
	if patch.IsEmpty() {
		WriteJSONError(w, http.StatusBadRequest, "empty update", "At least one field must be set.")
		return
	}
	h.applyEdit(w, r, id, patch)
}

// StatusRequest moves an issue to another column.
type StatusRequest struct {
	Status string `json:"status"`
}

func (h *Handlers) setStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req StatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	status, err := types.ParseStatus(req.Status)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid status", err.Error())
		return
	}
	h.applyEdit(w, r, id, types.StatusUpdate(status))
}

// applyEdit runs the edit to completion even if the client goes away, so a
// disconnect never turns into a spurious rollback. ?confirm=true waits for
// the remote before the edit shows on the board. Permission is checked
// before the lookup so a viewer cannot probe which ids exist.
func (h *Handlers) applyEdit(w http.ResponseWriter, r *http.Request, id string, patch types.IssueUpdate) {
	if !h.canEdit() {
		WriteJSONError(w, http.StatusForbidden, "not permitted", "The current user cannot modify issues.")
		return
	}
	if _, ok := h.lookup(w, id); !ok {
		return
	}
	var opts []board.EditOption
	if raw := r.URL.Query().Get("confirm"); raw != "" {
		confirm, err := strconv.ParseBool(raw)
		if err != nil {
			WriteJSONError(w, http.StatusBadRequest, "invalid confirm flag", err.Error())
			return
		}
		if confirm {
			opts = append(opts, board.Pessimistic())
		}
	}
	if err := h.cfg.Store.ApplyEdit(context.WithoutCancel(r.Context()), id, patch, opts...); err != nil {
		writeMutationError(w, err)
		return
	}
	issue, ok := h.cfg.Store.Issue(id)
	if !ok {
		// Removed by a refresh while the edit was in flight.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, IssueResponse{Issue: issue})
}

func (h *Handlers) getUndo(w http.ResponseWriter, r *http.Request) {
	snap := h.cfg.Store.Snapshot()
	writeJSON(w, http.StatusOK, NewUndoResponse(snap.Undo, h.cfg.Store.UndoRemaining()))
}

func (h *Handlers) undo(w http.ResponseWriter, r *http.Request) {
	if err := h.cfg.Store.Undo(context.WithoutCancel(r.Context())); err != nil {
		writeMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.board())
}
