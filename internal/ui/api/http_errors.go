package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/steveyegge/beadboard/internal/board"
)

// maxBodyBytes bounds request bodies; every payload here is a small patch.
const maxBodyBytes = 1 << 20

// jsonErrorResponse encodes a structured error payload for clients.
type jsonErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// WriteServiceUnavailable emits a structured 503 response with a short retry window.
func WriteServiceUnavailable(w http.ResponseWriter, message, details string) {
	if w.Header().Get("Retry-After") == "" {
		w.Header().Set("Retry-After", strconv.Itoa(int((5 * time.Second).Seconds())))
	}
	WriteJSONError(w, http.StatusServiceUnavailable, message, details)
}

// WriteJSONError writes an error response encoded as JSON with the given status.
func WriteJSONError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")

	payload := jsonErrorResponse{
		Error: strings.TrimSpace(message),
	}
	if detail := strings.TrimSpace(details); detail != "" {
		payload.Details = detail
	}

	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeMutationError maps engine errors onto HTTP statuses: a denied
// mutation is 403, a remote failure (after rollback) is 502, anything else
// is a bad request.
func writeMutationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, board.ErrNotPermitted):
		WriteJSONError(w, http.StatusForbidden, "not permitted", "The current user cannot modify issues.")
	case errors.Is(err, board.ErrUpdateFailed):
		WriteJSONError(w, http.StatusBadGateway, "Failed to update issue", err.Error())
	case errors.Is(err, board.ErrUndoFailed):
		WriteJSONError(w, http.StatusBadGateway, "Failed to undo action", err.Error())
	case errors.Is(err, board.ErrFetchFailed):
		WriteJSONError(w, http.StatusBadGateway, "Failed to fetch issues", err.Error())
	default:
		WriteJSONError(w, http.StatusBadRequest, "invalid request", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// decodeJSON reads a JSON body into dst, writing a 400 and returning false
// when it cannot. An empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		WriteJSONError(w, http.StatusBadRequest, "invalid request", fmt.Sprintf("decode payload: %v", err))
		return false
	}
	return true
}
