// Package api exposes the board engine over JSON and Server-Sent Events,
// and provides the HTTP client the bb CLI uses to talk to a running server.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/steveyegge/beadboard/internal/auth"
	"github.com/steveyegge/beadboard/internal/board"
	"github.com/steveyegge/beadboard/internal/debug"
	"github.com/steveyegge/beadboard/internal/query"
	"github.com/steveyegge/beadboard/internal/recent"
	"github.com/steveyegge/beadboard/internal/refresh"
	"github.com/steveyegge/beadboard/internal/types"
	"github.com/steveyegge/beadboard/internal/undo"
)

// UndoResponse describes the pending undoable edit, if any.
type UndoResponse struct {
	Pending bool `json:"pending"`
	undo.Tick
}

// NewUndoResponse builds the undo state for action with left time remaining.
func NewUndoResponse(action *types.UndoableAction, left time.Duration) UndoResponse {
	if action == nil || left <= 0 {
		return UndoResponse{}
	}
	return UndoResponse{Pending: true, Tick: undo.NewTick(action, left)}
}

// BoardResponse is the paginated board plus the sync and undo state around it.
type BoardResponse struct {
	Version    uint64           `json:"version"`
	Columns    []board.Column   `json:"columns"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
	Total      int              `json:"total"`
	Filter     types.FilterSpec `json:"filter"`
	Query      string           `json:"query"`
	Loading    bool             `json:"loading"`
	Error      string           `json:"error,omitempty"`
	LastSync   time.Time        `json:"last_sync"`
	Undo       UndoResponse     `json:"undo"`
}

// NewBoardResponse renders snap; undoLeft is the remaining undo window.
func NewBoardResponse(snap board.Snapshot, undoLeft time.Duration) BoardResponse {
	view := snap.View()
	return BoardResponse{
		Version:    snap.Version,
		Columns:    view.Columns,
		Page:       view.Page,
		PageSize:   view.PageSize,
		TotalPages: view.TotalPages,
		Total:      len(snap.Filtered),
		Filter:     snap.Filter,
		Query:      query.Format(snap.Filter),
		Loading:    snap.Loading,
		Error:      snap.Error,
		LastSync:   snap.LastSync,
		Undo:       NewUndoResponse(snap.Undo, undoLeft),
	}
}

// Config wires the engine pieces the handlers operate on. Store is
// required; a nil Scheduler, Session, Recent or Events disables the
// routes that need it.
type Config struct {
	Store     *board.Store
	Scheduler *refresh.Scheduler
	Session   *auth.Session
	Recent    *recent.List
	Events    EventSource
	Logger    *slog.Logger
	// Heartbeat is the SSE heartbeat interval; zero keeps the default.
	Heartbeat time.Duration
}

// Handlers serves the board API.
type Handlers struct {
	cfg    Config
	logger *slog.Logger
}

// NewHandlers returns the API handlers for cfg.
func NewHandlers(cfg Config) *Handlers {
	logger := cfg.Logger
	if logger == nil {
		logger = debug.Discard()
	}
	return &Handlers{cfg: cfg, logger: logger}
}

// Register mounts every route on mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/board", h.getBoard)
	mux.HandleFunc("POST /api/filters", h.setFilters)
	mux.HandleFunc("POST /api/page", h.setPage)
	mux.HandleFunc("DELETE /api/error", h.dismissError)
	mux.HandleFunc("POST /api/refresh", h.refresh)

	mux.HandleFunc("GET /api/issues/{id}", h.getIssue)
	mux.HandleFunc("PATCH /api/issues/{id}", h.patchIssue)
	mux.HandleFunc("POST /api/issues/{id}/status", h.setStatus)
	mux.HandleFunc("GET /api/undo", h.getUndo)
	mux.HandleFunc("POST /api/undo", h.undo)

	mux.HandleFunc("GET /api/settings", h.getSettings)
	mux.HandleFunc("PUT /api/settings", h.putSettings)
	mux.HandleFunc("GET /api/session", h.getSession)
	mux.HandleFunc("PUT /api/session", h.putSession)
	mux.HandleFunc("GET /api/recent", h.getRecent)
	mux.HandleFunc("DELETE /api/recent", h.clearRecent)

	opts := []EventStreamOption{WithInitialEvents(h.initialEvents)}
	if h.cfg.Heartbeat > 0 {
		opts = append(opts, WithHeartbeatInterval(h.cfg.Heartbeat))
	}
	mux.Handle("GET /api/events", NewEventStreamHandler(h.cfg.Events, opts...))
}

func (h *Handlers) board() BoardResponse {
	return NewBoardResponse(h.cfg.Store.Snapshot(), h.cfg.Store.UndoRemaining())
}

func (h *Handlers) initialEvents() []Event {
	return []Event{{Type: EventTypeBoard, Data: h.board()}}
}

func (h *Handlers) getBoard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.board())
}

// FilterRequest merges the embedded fields into the current filter. Query,
// when set, replaces the whole filter with the parsed query string; Reset
// clears it first.
type FilterRequest struct {
	types.FilterUpdate
	Query *string `json:"query,omitempty"`
	Reset bool    `json:"reset,omitempty"`
}

func (h *Handlers) setFilters(w http.ResponseWriter, r *http.Request) {
	var req FilterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	update := req.FilterUpdate
	if req.Query != nil {
		spec, err := query.Parse(*req.Query)
		if err != nil {
			WriteJSONError(w, http.StatusBadRequest, "invalid query", err.Error())
			return
		}
		update = types.FilterUpdate{
			Search:        &spec.Search,
			Assignee:      &spec.Assignee,
			Severity:      spec.Severity,
			ClearSeverity: spec.Severity == nil,
		}
	}
	if req.Reset {
		h.cfg.Store.ResetFilter()
	}
	h.cfg.Store.SetFilter(update)
	writeJSON(w, http.StatusOK, h.board())
}

// PageRequest selects a board page.
type PageRequest struct {
	Page int `json:"page"`
}

func (h *Handlers) setPage(w http.ResponseWriter, r *http.Request) {
	var req PageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.cfg.Store.SetPage(req.Page)
	writeJSON(w, http.StatusOK, h.board())
}

func (h *Handlers) dismissError(w http.ResponseWriter, r *http.Request) {
	h.cfg.Store.ClearError()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) refresh(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())
	var err error
	if h.cfg.Scheduler != nil {
		err = h.cfg.Scheduler.Trigger(ctx)
	} else {
		err = h.cfg.Store.Refresh(ctx)
	}
	if err != nil {
		h.logger.Warn("manual refresh failed", "error", err)
		writeMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.board())
}
