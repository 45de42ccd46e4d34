package config

import (
	"flag"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Suffix != ".py" {
		t.Errorf("Suffix = %q, want .py", cfg.Suffix)
	}
	if cfg.RestartDelay != 1*time.Second {
		t.Errorf("RestartDelay = %v, want 1s", cfg.RestartDelay)
	}
	if cfg.GracefulTimeout != 5*time.Second {
		t.Errorf("GracefulTimeout = %v, want 5s", cfg.GracefulTimeout)
	}
	if cfg.TUIEnabled {
		t.Error("TUIEnabled should default to false")
	}
	if cfg.MetricsAddr != "" {
		t.Errorf("MetricsAddr should default to disabled, got %q", cfg.MetricsAddr)
	}
}

func TestApplyDerived_WatchRootFromEntryPoint(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EntryPoint = "/srv/bot/bot.py"

	ApplyDerived(cfg)

	if cfg.WatchRoot != "/srv/bot" {
		t.Errorf("WatchRoot = %q, want /srv/bot", cfg.WatchRoot)
	}
}

func TestApplyDerived_ExplicitWatchRootKept(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EntryPoint = "/srv/bot/bot.py"
	cfg.WatchRoot = "/srv/other"

	ApplyDerived(cfg)

	if cfg.WatchRoot != "/srv/other" {
		t.Errorf("WatchRoot = %q, want /srv/other", cfg.WatchRoot)
	}
}

func TestValidate_Valid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EntryPoint = "bot.py"
	ApplyDerived(cfg)

	if err := Validate(cfg); err != nil {
		t.Errorf("Validate returned error for valid config: %v", err)
	}
}

func TestValidate_MissingEntryPoint(t *testing.T) {
	cfg := DefaultConfig()

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for missing entry point")
	}
	if !strings.Contains(err.Error(), "entry_point") {
		t.Errorf("error should mention entry_point: %v", err)
	}
}

func TestValidate_BadSuffix(t *testing.T) {
	testCases := []struct {
		name   string
		suffix string
		valid  bool
	}{
		{"normal", ".py", true},
		{"go", ".go", true},
		{"no dot", "py", false},
		{"empty", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.EntryPoint = "bot.py"
			cfg.Suffix = tc.suffix

			err := Validate(cfg)
			if tc.valid && err != nil {
				t.Errorf("Validate(%q) = %v, want nil", tc.suffix, err)
			}
			if !tc.valid && err == nil {
				t.Errorf("Validate(%q) = nil, want error", tc.suffix)
			}
		})
	}
}

func TestValidate_NonPositiveDurations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EntryPoint = "bot.py"
	cfg.RestartDelay = 0
	cfg.GracefulTimeout = -1 * time.Second

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for non-positive durations")
	}
	if !strings.Contains(err.Error(), "restart_delay") {
		t.Errorf("error should mention restart_delay: %v", err)
	}
	if !strings.Contains(err.Error(), "graceful_timeout") {
		t.Errorf("error should mention graceful_timeout: %v", err)
	}
}

func TestValidate_LogFormat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EntryPoint = "bot.py"
	cfg.LogFormat = "yaml"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for bad log format")
	}
	if !strings.Contains(err.Error(), "log_format") {
		t.Errorf("error should mention log_format: %v", err)
	}
}

func TestFlagType(t *testing.T) {
	testCases := []struct {
		name     string
		defValue string
		expected string
	}{
		{"bool true", "true", ""},
		{"bool false", "false", ""},
		{"int", "42", "int"},
		{"string", "hello", "string"},
		{"duration seconds", "5s", "duration"},
		{"duration minutes", "5m", "duration"},
		{"duration hours", "1h", "duration"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := &flag.Flag{DefValue: tc.defValue}
			result := flagType(f)
			if result != tc.expected {
				t.Errorf("flagType(%q) = %q, want %q", tc.defValue, result, tc.expected)
			}
		})
	}
}
