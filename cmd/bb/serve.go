package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/beadboard/internal/auth"
	"github.com/steveyegge/beadboard/internal/board"
	"github.com/steveyegge/beadboard/internal/config"
	"github.com/steveyegge/beadboard/internal/debug"
	"github.com/steveyegge/beadboard/internal/recent"
	"github.com/steveyegge/beadboard/internal/refresh"
	"github.com/steveyegge/beadboard/internal/remote"
	"github.com/steveyegge/beadboard/internal/telemetry"
	"github.com/steveyegge/beadboard/internal/types"
	uiserver "github.com/steveyegge/beadboard/internal/ui"
	uiapi "github.com/steveyegge/beadboard/internal/ui/api"
	"github.com/steveyegge/beadboard/internal/undo"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Run a board server",
	GroupID: "setup",
	Long: `Start the board engine and serve it over HTTP.

The server keeps the board in memory, refreshes it from the remote store on the
configured polling interval and applies edits optimistically. It binds to a
loopback address by default; binding elsewhere needs --allow-remote and then
requires a bearer token (generated when auth-token is not configured).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyServeFlags(cmd)
		settings, err := config.Load()
		if err != nil {
			return err
		}
		return runServe(cmd.Context(), settings, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	serveCmd.Flags().String("listen", "", "Address to bind the board server to (host:port)")
	serveCmd.Flags().Bool("allow-remote", false, "Permit binding to non-loopback addresses (requires auth token)")
	serveCmd.Flags().String("seed", "", "YAML file with the issues the reference remote starts with")
	serveCmd.Flags().String("user", "", "User the session starts as")
	serveCmd.Flags().Duration("interval", 0, "Polling interval (5s, 10s, 30s, 1m or 2m)")
	serveCmd.Flags().Bool("no-polling", false, "Start with polling disabled")
	serveCmd.Flags().Float64("success-rate", -1, "Probability that a remote update succeeds (0-1)")
	rootCmd.AddCommand(serveCmd)
}

// applyServeFlags copies explicitly set flags over the config values.
func applyServeFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("listen") {
		v, _ := flags.GetString("listen")
		config.Set("listen", v)
	}
	if flags.Changed("allow-remote") {
		v, _ := flags.GetBool("allow-remote")
		config.Set("allow-remote", v)
	}
	if flags.Changed("seed") {
		v, _ := flags.GetString("seed")
		config.Set("remote.seed", v)
	}
	if flags.Changed("user") {
		v, _ := flags.GetString("user")
		config.Set("user", v)
	}
	if flags.Changed("interval") {
		v, _ := flags.GetDuration("interval")
		config.Set("polling.interval", v.String())
	}
	if flags.Changed("no-polling") {
		v, _ := flags.GetBool("no-polling")
		config.Set("polling.enabled", !v)
	}
	if flags.Changed("success-rate") {
		v, _ := flags.GetFloat64("success-rate")
		config.Set("remote.success-rate", v)
	}
	if cmd.Flags().Changed("token") {
		config.Set("auth-token", authToken)
	}
}

// boardServer is the engine plus everything that runs beside it.
type boardServer struct {
	settings  config.Settings
	logger    *slog.Logger
	memory    *remote.Memory
	store     *board.Store
	session   *auth.Session
	scheduler *refresh.Scheduler
	countdown *undo.Countdown
	events    *uiapi.LocalEventDispatcher
	handler   http.Handler
	token     string
}

func newBoardServer(settings config.Settings, logger *slog.Logger) (*boardServer, error) {
	seed, err := loadSeed(settings.SeedPath)
	if err != nil {
		return nil, err
	}

	requireRemoteAuth, err := uiserver.DetermineAccess(settings.ListenAddr, settings.AllowRemote)
	if err != nil {
		return nil, err
	}
	token := strings.TrimSpace(settings.AuthToken)
	requireAuth := requireRemoteAuth || token != ""
	if requireAuth && token == "" {
		if token, err = generateAuthToken(); err != nil {
			return nil, fmt.Errorf("generate auth token: %w", err)
		}
	}

	mem := remote.NewMemory(seed,
		remote.WithLatency(settings.RemoteLatency),
		remote.WithSuccessRate(settings.SuccessRate),
		remote.WithFetchFailureRate(settings.FetchFailureRate),
	)
	session := auth.NewSession(auth.DefaultUsers, settings.User)
	store := board.New(telemetry.WrapRemote(mem),
		board.WithLogger(logger),
		board.WithAuthorizer(session),
		board.WithUndoWindow(settings.UndoWindow),
		board.WithPageSize(settings.PageSize),
	)
	scheduler := refresh.New(store,
		refresh.WithInterval(settings.PollingInterval),
		refresh.WithEnabled(settings.PollingEnabled),
		refresh.WithLogger(logger),
	)
	countdown := undo.NewCountdown(store, settings.UndoWindow,
		undo.WithTick(settings.UndoTick),
		undo.WithLogger(logger),
	)
	events := uiapi.NewLocalEventDispatcher(32)

	handlers := uiapi.NewHandlers(uiapi.Config{
		Store:     store,
		Scheduler: scheduler,
		Session:   session,
		Recent:    recent.New(recent.DefaultLimit),
		Events:    events,
		Logger:    logger,
	})
	handler, err := uiserver.NewHandler(uiserver.HandlerConfig{
		RequireAuth: requireAuth,
		AuthToken:   token,
		Logger:      logger,
		Register:    handlers.Register,
	})
	if err != nil {
		return nil, err
	}

	return &boardServer{
		settings:  settings,
		logger:    logger,
		memory:    mem,
		store:     store,
		session:   session,
		scheduler: scheduler,
		countdown: countdown,
		events:    events,
		handler:   handler,
		token:     token,
	}, nil
}

func loadSeed(path string) ([]*types.Issue, error) {
	if strings.TrimSpace(path) == "" {
		return remote.DefaultSeed()
	}
	return remote.LoadSeed(path)
}

func generateAuthToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return strings.TrimRight(base64.URLEncoding.EncodeToString(buf), "="), nil
}

// newHTTPServer derives request contexts from ctx so open event streams end
// when the server shuts down.
func newHTTPServer(ctx context.Context, handler http.Handler) *http.Server {
	// Disable WriteTimeout to avoid terminating long-lived SSE connections.
	return &http.Server{
		Handler:           handler,
		BaseContext:       func(net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		WriteTimeout:      0,
	}
}

// Run serves on ln until ctx is done. The scheduler, the undo countdown, the
// event forwarder and the optional seed watcher run alongside the HTTP
// server; the first one to fail stops the rest.
func (s *boardServer) Run(ctx context.Context, ln net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)
	server := newHTTPServer(ctx, s.handler)

	g.Go(func() error { return s.scheduler.Run(ctx) })
	g.Go(func() error { return s.countdown.Run(ctx) })
	g.Go(func() error { return uiapi.ForwardBoardEvents(ctx, s.store, s.countdown, s.events) })
	if s.settings.SeedPath != "" && s.settings.WatchSeed {
		g.Go(func() error { return remote.WatchSeed(ctx, s.memory, s.settings.SeedPath, s.logger) })
	}
	g.Go(func() error {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("shutdown board server: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func runServe(ctx context.Context, settings config.Settings, stdout, stderr io.Writer) error {
	if err := telemetry.Init(ctx, "bb", Version); err != nil {
		WarnError("telemetry disabled: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		telemetry.Shutdown(shutdownCtx)
	}()

	logger := debug.NewLogger(stderr)
	srv, err := newBoardServer(settings, logger)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", settings.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", settings.ListenAddr, err)
	}

	baseURL := "http://" + ln.Addr().String()
	logger.Info("board server listening", "url", baseURL, "user", srv.session.Current().Name,
		"polling", settings.PollingInterval, "polling_enabled", settings.PollingEnabled)
	fmt.Fprintf(stdout, "Board server listening on %s\n", baseURL)
	if srv.token != "" {
		fmt.Fprintf(stdout, "Auth token: %s\n", srv.token)
		fmt.Fprintf(stdout, "Send requests with header: Authorization: Bearer %s\n", srv.token)
	}
	if cfg := config.ConfigFileUsed(); cfg != "" {
		debug.Logf("Debug: serving with config %s\n", cfg)
	}

	err = srv.Run(ctx, ln)
	if err == nil && !debug.IsQuiet() {
		fmt.Fprintln(stderr, "Board server stopped")
	}
	return err
}
