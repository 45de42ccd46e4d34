// Package logging provides structured logging for botwatch.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger creates the session logger. Format is "json" or "text"; level is
// "debug", "info", "warn", or "error", with verbose forcing debug.
//
// Status lines go to stderr. The supervised child inherits the real stdout
// and stderr in console mode, so keeping the supervisor's own lines on
// stderr lets a developer pipe the bot's stdout cleanly while still seeing
// restart activity. Text is the default format: a watch session is an
// interactive terminal tool, json is for when the session itself runs under
// a log collector.
func NewLogger(format, level string, verbose bool) *slog.Logger {
	logLevel := parseLevel(level)
	if verbose {
		logLevel = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
		// Source locations are only worth the noise when debugging the
		// supervisor itself
		AddSource: logLevel == slog.LevelDebug,
	}

	return slog.New(newHandler(os.Stderr, format, opts))
}

// NewLoggerWithWriter creates a logger that writes to a custom writer.
// Useful for testing.
func NewLoggerWithWriter(w io.Writer, format, level string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}
	return slog.New(newHandler(w, format, opts))
}

// newHandler picks the slog handler for a format name. Unrecognized formats
// fall back to text rather than erroring; format validation happens in
// config, not here.
func newHandler(w io.Writer, format string, opts *slog.HandlerOptions) slog.Handler {
	if strings.ToLower(format) == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// parseLevel converts a string level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetDefault sets the default logger for the slog package.
func SetDefault(logger *slog.Logger) {
	slog.SetDefault(logger)
}
