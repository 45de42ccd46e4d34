package config

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors and inconsistencies.
// Returns nil if valid, or an error describing the problem.
func Validate(cfg *Config) error {
	var errs []error

	// Entry point is required (unless -print-cmd without one makes no sense either)
	if cfg.EntryPoint == "" {
		errs = append(errs, ValidationError{
			Field:   "entry_point",
			Message: "entry point is required",
		})
	}

	// Suffix must be a file extension
	if cfg.Suffix == "" || !strings.HasPrefix(cfg.Suffix, ".") {
		errs = append(errs, ValidationError{
			Field:   "suffix",
			Message: fmt.Sprintf("must be an extension starting with '.' (got %q)", cfg.Suffix),
		})
	}

	// Restart delay must be positive
	if cfg.RestartDelay <= 0 {
		errs = append(errs, ValidationError{
			Field:   "restart_delay",
			Message: "must be positive",
		})
	}

	// Graceful timeout must be positive
	if cfg.GracefulTimeout <= 0 {
		errs = append(errs, ValidationError{
			Field:   "graceful_timeout",
			Message: "must be positive",
		})
	}

	// Log format must be valid
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.LogFormat] {
		errs = append(errs, ValidationError{
			Field:   "log_format",
			Message: fmt.Sprintf("must be 'json' or 'text' (got %q)", cfg.LogFormat),
		})
	}

	// Return combined errors
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}
