package api

import (
	"net/http"
	"time"

	"github.com/steveyegge/beadboard/internal/auth"
	"github.com/steveyegge/beadboard/internal/config"
	"github.com/steveyegge/beadboard/internal/types"
)

// SettingsResponse is the polling configuration.
type SettingsResponse struct {
	Interval string   `json:"interval"`
	Enabled  bool     `json:"enabled"`
	Allowed  []string `json:"allowed"`
}

// SettingsRequest changes polling. Nil fields are left alone.
type SettingsRequest struct {
	Interval *string `json:"interval,omitempty"`
	Enabled  *bool   `json:"enabled,omitempty"`
}

// SessionResponse describes the current user and who else can be selected.
type SessionResponse struct {
	User         auth.User         `json:"user"`
	Users        []auth.User       `json:"users"`
	Capabilities auth.Capabilities `json:"capabilities"`
}

// SessionRequest switches user.
type SessionRequest struct {
	Name string `json:"name"`
}

// RecentResponse lists recently viewed issues, most recent first.
type RecentResponse struct {
	Issues []*types.Issue `json:"issues"`
}

func (h *Handlers) settings() SettingsResponse {
	allowed := make([]string, len(config.PollingIntervals))
	for i, d := range config.PollingIntervals {
		allowed[i] = d.String()
	}
	return SettingsResponse{
		Interval: h.cfg.Scheduler.Interval().String(),
		Enabled:  h.cfg.Scheduler.Enabled(),
		Allowed:  allowed,
	}
}

func (h *Handlers) getSettings(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Scheduler == nil {
		WriteServiceUnavailable(w, "settings unavailable", "Polling is not running on this server.")
		return
	}
	writeJSON(w, http.StatusOK, h.settings())
}

func (h *Handlers) putSettings(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Scheduler == nil {
		WriteServiceUnavailable(w, "settings unavailable", "Polling is not running on this server.")
		return
	}
	var req SettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	// Validate everything before changing anything.
	var interval time.Duration
	if req.Interval != nil {
		d, err := time.ParseDuration(*req.Interval)
		if err == nil {
			err = config.ValidatePollingInterval(d)
		}
		if err != nil {
			WriteJSONError(w, http.StatusBadRequest, "invalid polling interval", err.Error())
			return
		}
		interval = d
	}

	if interval > 0 {
		if err := h.cfg.Scheduler.SetInterval(interval); err != nil {
			WriteJSONError(w, http.StatusBadRequest, "invalid polling interval", err.Error())
			return
		}
	}
	if req.Enabled != nil {
		h.cfg.Scheduler.SetEnabled(*req.Enabled)
	}
	writeJSON(w, http.StatusOK, h.settings())
}

func (h *Handlers) session() SessionResponse {
	user := h.cfg.Session.Current()
	return SessionResponse{
		User:         user,
		Users:        h.cfg.Session.Users(),
		Capabilities: auth.CapabilitiesFor(user.Role),
	}
}

func (h *Handlers) getSession(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Session == nil {
		WriteServiceUnavailable(w, "sessions unavailable", "This server does not track users.")
		return
	}
	writeJSON(w, http.StatusOK, h.session())
}

func (h *Handlers) putSession(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Session == nil {
		WriteServiceUnavailable(w, "sessions unavailable", "This server does not track users.")
		return
	}
	var req SessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.cfg.Session.Switch(req.Name)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, "unknown user", err.Error())
		return
	}
	h.logger.Info("user switched", "user", user.Name, "role", user.Role)
	writeJSON(w, http.StatusOK, h.session())
}

func (h *Handlers) getRecent(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Recent == nil {
		writeJSON(w, http.StatusOK, RecentResponse{Issues: []*types.Issue{}})
		return
	}
	writeJSON(w, http.StatusOK, RecentResponse{Issues: h.cfg.Recent.Items()})
}

func (h *Handlers) clearRecent(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Recent != nil {
		h.cfg.Recent.Clear()
	}
	w.WriteHeader(http.StatusNoContent)
}
