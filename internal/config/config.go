package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/steveyegge/beadboard/internal/debug"
)

// PollingIntervals are the refresh intervals the board may be configured with.
var PollingIntervals = []time.Duration{
	5 * time.Second,
	10 * time.Second,
	30 * time.Second,
	time.Minute,
	2 * time.Minute,
}

// Defaults shared by the CLI, the server and tests.
const (
	DefaultPollingInterval = 10 * time.Second
	DefaultPageSize        = 20
	DefaultUndoWindow      = 5 * time.Second
	DefaultUndoTick        = 100 * time.Millisecond
	DefaultRemoteLatency   = 500 * time.Millisecond
	DefaultSuccessRate     = 0.9
	DefaultListenAddr      = "127.0.0.1:8080"
	DefaultServerURL       = "http://127.0.0.1:8080"
)

var v *viper.Viper

// Initialize sets up the viper configuration singleton
// Should be called once at application startup
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	// Precedence: project .beadboard/config.yaml > ~/.config/bb/config.yaml
	configFileSet := false

	// Walk up from CWD so commands work from subdirectories
	if cwd, err := os.Getwd(); err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			configPath := filepath.Join(dir, ".beadboard", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
				break
			}
		}
	}

	if !configFileSet {
		if configDir, err := os.UserConfigDir(); err == nil {
			configPath := filepath.Join(configDir, "bb", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	// E.g., BB_POLLING_INTERVAL, BB_REMOTE_SUCCESS_RATE, BB_AUTH_TOKEN
	v.SetEnvPrefix("BB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("polling.interval", DefaultPollingInterval.String())
	v.SetDefault("polling.enabled", true)
	v.SetDefault("board.page-size", DefaultPageSize)
	v.SetDefault("undo.window", DefaultUndoWindow.String())
	v.SetDefault("undo.tick", DefaultUndoTick.String())

	// Reference backend
	v.SetDefault("remote.latency", DefaultRemoteLatency.String())
	v.SetDefault("remote.success-rate", DefaultSuccessRate)
	v.SetDefault("remote.fetch-failure-rate", 0.0)
	v.SetDefault("remote.seed", "")
	v.SetDefault("remote.watch-seed", true)

	v.SetDefault("user", "Alice")
	v.SetDefault("listen", DefaultListenAddr)
	v.SetDefault("allow-remote", false)
	v.SetDefault("server", DefaultServerURL)
	v.SetDefault("auth-token", "")

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
		debug.Logf("Debug: loaded config from %s\n", v.ConfigFileUsed())
	} else {
		debug.Logf("Debug: no config.yaml found; using defaults and environment variables\n")
	}

	return nil
}

// ResetForTesting clears the config state, allowing Initialize() to be called again.
// WARNING: Not thread-safe. Only call from single-threaded test contexts.
func ResetForTesting() {
	v = nil
}

// ConfigFileUsed returns the path of the loaded config file, or "" when none was found.
func ConfigFileUsed() string {
	if v == nil {
		return ""
	}
	return v.ConfigFileUsed()
}

// GetString retrieves a string configuration value
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetBool retrieves a boolean configuration value
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// GetInt retrieves an integer configuration value
func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

// GetFloat64 retrieves a float configuration value
func GetFloat64(key string) float64 {
	if v == nil {
		return 0
	}
	return v.GetFloat64(key)
}

// GetDuration retrieves a duration configuration value
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// Set sets a configuration value (used to apply flag overrides)
func Set(key string, value interface{}) {
	if v != nil {
		v.Set(key, value)
	}
}

// ValidatePollingInterval rejects intervals outside PollingIntervals.
func ValidatePollingInterval(d time.Duration) error {
	if slices.Contains(PollingIntervals, d) {
		return nil
	}
	allowed := make([]string, len(PollingIntervals))
	for i, p := range PollingIntervals {
		allowed[i] = p.String()
	}
	return fmt.Errorf("invalid polling interval %s (allowed: %s)", d, strings.Join(allowed, ", "))
}

// Settings is the resolved configuration for a board server.
type Settings struct {
	PollingInterval  time.Duration
	PollingEnabled   bool
	PageSize         int
	UndoWindow       time.Duration
	UndoTick         time.Duration
	RemoteLatency    time.Duration
	SuccessRate      float64
	FetchFailureRate float64
	SeedPath         string
	WatchSeed        bool
	User             string
	ListenAddr       string
	AllowRemote      bool
	AuthToken        string
}

// Load resolves Settings from the initialized viper instance and validates them.
func Load() (Settings, error) {
	s := Settings{
		PollingInterval:  GetDuration("polling.interval"),
		PollingEnabled:   GetBool("polling.enabled"),
		PageSize:         GetInt("board.page-size"),
		UndoWindow:       GetDuration("undo.window"),
		UndoTick:         GetDuration("undo.tick"),
		RemoteLatency:    GetDuration("remote.latency"),
		SuccessRate:      GetFloat64("remote.success-rate"),
		FetchFailureRate: GetFloat64("remote.fetch-failure-rate"),
		SeedPath:         GetString("remote.seed"),
		WatchSeed:        GetBool("remote.watch-seed"),
		User:             GetString("user"),
		ListenAddr:       GetString("listen"),
		AllowRemote:      GetBool("allow-remote"),
		AuthToken:        GetString("auth-token"),
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks the resolved settings for values the board cannot run with.
func (s Settings) Validate() error {
	if err := ValidatePollingInterval(s.PollingInterval); err != nil {
		return err
	}
	if s.PageSize <= 0 {
		return fmt.Errorf("board.page-size must be positive (got %d)", s.PageSize)
	}
	if s.UndoWindow <= 0 {
		return fmt.Errorf("undo.window must be positive (got %s)", s.UndoWindow)
	}
	if s.UndoTick <= 0 || s.UndoTick > s.UndoWindow {
		return fmt.Errorf("undo.tick must be positive and no longer than undo.window (got %s)", s.UndoTick)
	}
	if s.RemoteLatency < 0 {
		return fmt.Errorf("remote.latency cannot be negative (got %s)", s.RemoteLatency)
	}
	if s.SuccessRate < 0 || s.SuccessRate > 1 {
		return fmt.Errorf("remote.success-rate must be between 0 and 1 (got %v)", s.SuccessRate)
	}
	if s.FetchFailureRate < 0 || s.FetchFailureRate > 1 {
		return fmt.Errorf("remote.fetch-failure-rate must be between 0 and 1 (got %v)", s.FetchFailureRate)
	}
	return nil
}
