package ui

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/steveyegge/beadboard/internal/debug"
)

// DetermineAccess inspects the requested listen address and returns whether
// authentication is required (i.e., binding to a non-loopback/unspecified host).
// It rejects remote bindings unless allowRemote is explicitly enabled.
func DetermineAccess(listenAddr string, allowRemote bool) (bool, error) {
	host, _, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return false, fmt.Errorf("invalid listen address %q: %w", listenAddr, err)
	}

	normalizedHost := host
	if normalizedHost == "" {
		normalizedHost = "0.0.0.0"
	}

	if isLoopbackHost(normalizedHost) {
		return false, nil
	}

	if !allowRemote {
		return false, fmt.Errorf("refusing remote bind to %q without --allow-remote", normalizedHost)
	}

	return true, nil
}

// HandlerConfig captures the inputs required to build the board HTTP handler.
type HandlerConfig struct {
	RequireAuth bool
	AuthToken   string
	Logger      *slog.Logger
	// Register mounts the API routes.
	Register func(*http.ServeMux)
}

// NewHandler constructs the HTTP handler for the board server. /healthz is
// always mounted; every route, health included, sits behind bearer auth
// when RequireAuth is set.
func NewHandler(cfg HandlerConfig) (http.Handler, error) {
	if cfg.RequireAuth && strings.TrimSpace(cfg.AuthToken) == "" {
		return nil, errors.New("auth token required when authentication is enabled")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = debug.Discard()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", healthHandler)
	if cfg.Register != nil {
		cfg.Register(mux)
	}

	var handler http.Handler = mux
	if cfg.RequireAuth {
		expectedHeader := "Bearer " + strings.TrimSpace(cfg.AuthToken)
		handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actual := strings.TrimSpace(r.Header.Get("Authorization"))
			if subtle.ConstantTimeCompare([]byte(actual), []byte(expectedHeader)) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="bb"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			mux.ServeHTTP(w, r)
		})
	}
	return logRequests(logger, handler), nil
}

func logRequests(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush keeps event streams working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	resp := map[string]string{"status": "ok"}
	enc := json.NewEncoder(w)
	enc.Encode(resp) // nolint:errchkjson
}

func isLoopbackHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}
