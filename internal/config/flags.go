package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ParseFlags parses command-line flags and returns a Config.
// The entry point may be given either via -entry-point or as the first
// positional argument.
func ParseFlags() (*Config, error) {
	cfg := DefaultConfig()

	// Custom usage message
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `botwatch - restart a long-running process when its source files change

Usage:
  botwatch [flags] <ENTRY_POINT>

Watching Flags:
`)
		printFlagCategory([]string{"watch-root", "suffix", "restart-delay"})

		fmt.Fprintf(os.Stderr, "\nChild Process:\n")
		printFlagCategory([]string{"entry-point", "interpreter", "graceful-timeout"})

		fmt.Fprintf(os.Stderr, "\nObservability:\n")
		printFlagCategory([]string{"metrics", "v", "log-format"})

		fmt.Fprintf(os.Stderr, "\nDashboard:\n")
		printFlagCategory([]string{"tui"})

		fmt.Fprintf(os.Stderr, "\nDiagnostics:\n")
		printFlagCategory([]string{"print-cmd", "skip-preflight"})

		fmt.Fprintf(os.Stderr, `
Examples:
  # Watch a bot's directory and restart it on .py changes
  botwatch bot.py

  # Wider quiet window and Prometheus metrics
  botwatch -restart-delay 2s -metrics 127.0.0.1:17092 bot.py

  # Supervise a Go tool rebuilt by an external task
  botwatch -suffix .go -interpreter "" ./bin/mytool

`)
	}

	// Watching flags
	flag.StringVar(&cfg.WatchRoot, "watch-root", cfg.WatchRoot, "Directory to watch (default: entry point's directory)")
	flag.StringVar(&cfg.Suffix, "suffix", cfg.Suffix, "Source-file extension that triggers a restart")
	flag.DurationVar(&cfg.RestartDelay, "restart-delay", cfg.RestartDelay, "Quiet window before a scheduled restart fires")

	// Child process
	flag.StringVar(&cfg.EntryPoint, "entry-point", cfg.EntryPoint, "File to execute (also accepted as positional argument)")
	flag.StringVar(&cfg.Interpreter, "interpreter", cfg.Interpreter, "Interpreter for the entry point (default: auto-detect)")
	flag.DurationVar(&cfg.GracefulTimeout, "graceful-timeout", cfg.GracefulTimeout, "SIGTERM grace period before SIGKILL")

	// Observability
	flag.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Prometheus metrics address (empty = disabled)")
	flag.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose logging")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, `Log format: "json" or "text"`)

	// Dashboard
	flag.BoolVar(&cfg.TUIEnabled, "tui", cfg.TUIEnabled, "Enable live terminal dashboard")

	// Diagnostics
	flag.BoolVar(&cfg.PrintCmd, "print-cmd", cfg.PrintCmd, "Print the child command and exit")
	flag.BoolVar(&cfg.SkipPreflight, "skip-preflight", cfg.SkipPreflight, "Skip preflight checks")

	// Parse
	flag.Parse()

	// Positional argument: entry point
	args := flag.Args()
	if len(args) >= 1 && cfg.EntryPoint == "" {
		cfg.EntryPoint = args[0]
	}

	ApplyDerived(cfg)

	return cfg, nil
}

// ApplyDerived fills fields that default from other fields.
func ApplyDerived(cfg *Config) {
	if cfg.WatchRoot == "" && cfg.EntryPoint != "" {
		cfg.WatchRoot = filepath.Dir(cfg.EntryPoint)
	}
}

// printFlagCategory prints flags matching the given names (helper for usage).
func printFlagCategory(names []string) {
	flag.VisitAll(func(f *flag.Flag) {
		for _, name := range names {
			if f.Name == name {
				fmt.Fprintf(os.Stderr, "  -%s %s\n    \t%s", f.Name, flagType(f), f.Usage)
				if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" && f.DefValue != "0s" {
					fmt.Fprintf(os.Stderr, " (default %s)", f.DefValue)
				}
				fmt.Fprintln(os.Stderr)
				return
			}
		}
	})
}

// flagType returns a type hint for the flag value.
func flagType(f *flag.Flag) string {
	switch f.DefValue {
	case "true", "false":
		return ""
	}

	if strings.HasSuffix(f.DefValue, "s") || strings.HasSuffix(f.DefValue, "m") || strings.HasSuffix(f.DefValue, "h") {
		return "duration"
	}

	if _, err := fmt.Sscanf(f.DefValue, "%d", new(int)); err == nil {
		return "int"
	}

	return "string"
}
