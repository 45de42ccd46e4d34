// Package main provides the botwatch CLI entry point.
//
// botwatch watches a directory tree for source-file changes and restarts a
// long-running child process (typically a chat bot during development) with
// graceful-then-forceful stop semantics.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/botwatch/botwatch/internal/config"
	"github.com/botwatch/botwatch/internal/logging"
	"github.com/botwatch/botwatch/internal/orchestrator"
	"github.com/botwatch/botwatch/internal/process"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/botwatch
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// Handle version flag early (before flag parsing)
	if len(os.Args) > 1 {
		arg := os.Args[1]
		if arg == "-version" || arg == "--version" || arg == "version" {
			fmt.Printf("botwatch %s\n", version)
			return 0
		}
	}

	// Parse command-line flags
	cfg, err := config.ParseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		return 1
	}

	// Initialize logger
	// When TUI is enabled, suppress logs to avoid interfering with TUI rendering
	var logger *slog.Logger
	if cfg.TUIEnabled {
		logger = logging.NewLoggerWithWriter(io.Discard, "json", "info")
	} else {
		logger = logging.NewLogger(cfg.LogFormat, "info", cfg.Verbose)
	}
	logging.SetDefault(logger)

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	// Handle -print-cmd mode
	if cfg.PrintCmd {
		printChildCommand(cfg)
		return 0
	}

	// Log startup
	logger.Info("starting",
		"version", version,
		"entry_point", cfg.EntryPoint,
		"watch_root", cfg.WatchRoot,
		"suffix", cfg.Suffix,
		"restart_delay", cfg.RestartDelay.String(),
		"graceful_timeout", cfg.GracefulTimeout.String(),
	)

	// Print startup banner
	if !cfg.TUIEnabled {
		printBanner(cfg)
	}

	// Create and run orchestrator
	orch, err := orchestrator.New(cfg, logger, version)
	if err != nil {
		// Nothing to supervise without a watchable source tree
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if err := orch.Run(context.Background()); err != nil {
		logger.Error("orchestrator_failed", "error", err)
		return 1
	}

	return 0
}

// printBanner prints the startup banner.
func printBanner(cfg *config.Config) {
	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════════════╗")
	fmt.Println("║                            botwatch                               ║")
	fmt.Println("║        Watch source files, restart the process on change          ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Entry point:  %s\n", cfg.EntryPoint)
	fmt.Printf("  Watching:     %s (%s files)\n", cfg.WatchRoot, cfg.Suffix)
	fmt.Printf("  Quiet window: %s\n", cfg.RestartDelay)
	fmt.Printf("  Grace period: %s\n", cfg.GracefulTimeout)
	if cfg.MetricsAddr != "" {
		fmt.Printf("  Metrics:      http://%s/metrics\n", cfg.MetricsAddr)
	}
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop.")
	fmt.Println()
}

// printChildCommand prints the command that would be run for the child.
func printChildCommand(cfg *config.Config) {
	runner := process.NewScriptRunner(process.ScriptConfig{
		EntryPoint:  cfg.EntryPoint,
		Interpreter: cfg.Interpreter,
	})

	fmt.Println("# Command that would be run for the child process:")
	fmt.Println()
	fmt.Println(runner.CommandString())
}
