// Package config provides configuration management for botwatch.
package config

import "time"

// Config holds all configuration options for the watch-and-restart supervisor.
type Config struct {
	// Watching
	WatchRoot string `json:"watch_root"` // defaults to the entry point's directory
	Suffix    string `json:"suffix"`     // source-file extension filter

	// Child process
	EntryPoint  string `json:"entry_point"`
	Interpreter string `json:"interpreter"` // empty = auto-detect

	// Restart policy
	RestartDelay    time.Duration `json:"restart_delay"`    // debounce quiet window
	GracefulTimeout time.Duration `json:"graceful_timeout"` // SIGTERM wait before SIGKILL

	// Observability
	MetricsAddr string `json:"metrics_addr"` // empty = disabled
	Verbose     bool   `json:"verbose"`
	LogFormat   string `json:"log_format"` // json, text

	// Dashboard
	TUIEnabled bool `json:"tui"`

	// Diagnostic modes
	PrintCmd      bool `json:"print_cmd"`
	SkipPreflight bool `json:"skip_preflight"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		// Watching
		Suffix: ".py",

		// Restart policy
		RestartDelay:    1 * time.Second,
		GracefulTimeout: 5 * time.Second,

		// Observability
		MetricsAddr: "", // disabled unless requested
		Verbose:     false,
		LogFormat:   "text",

		// Dashboard
		TUIEnabled: false,
	}
}
