// Package orchestrator wires the watcher, supervisor, and observability
// components into one watch-and-restart session.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/botwatch/botwatch/internal/config"
	"github.com/botwatch/botwatch/internal/logging"
	"github.com/botwatch/botwatch/internal/metrics"
	"github.com/botwatch/botwatch/internal/preflight"
	"github.com/botwatch/botwatch/internal/process"
	"github.com/botwatch/botwatch/internal/stats"
	"github.com/botwatch/botwatch/internal/supervisor"
	"github.com/botwatch/botwatch/internal/tui"
	"github.com/botwatch/botwatch/internal/watcher"
)

// Orchestrator coordinates all components for a watch session.
type Orchestrator struct {
	config    *config.Config
	logger    *slog.Logger
	sessionID string
	version   string

	runner        *process.ScriptRunner
	sup           *supervisor.Supervisor
	watch         *watcher.Watcher
	lifecycle     *stats.Lifecycle
	metrics       *metrics.Collector
	metricsServer *metrics.Server

	// Child output capture, dashboard mode only
	stdout *logging.OutputHandler
	stderr *logging.OutputHandler

	changes   atomic.Int64
	startTime time.Time
}

// New creates a new Orchestrator with the given configuration. Returns an
// error when the watch root cannot be watched; there is nothing useful to do
// without change events.
func New(cfg *config.Config, logger *slog.Logger, version string) (*Orchestrator, error) {
	orch := &Orchestrator{
		config:    cfg,
		logger:    logger,
		sessionID: uuid.NewString(),
		version:   version,
		lifecycle: stats.NewLifecycle(),
	}

	// Create metrics if an address was configured
	if cfg.MetricsAddr != "" {
		orch.metrics = metrics.NewCollector(metrics.CollectorConfig{
			Version:    version,
			EntryPoint: cfg.EntryPoint,
			WatchRoot:  cfg.WatchRoot,
			SessionID:  orch.sessionID,
		})
		orch.metricsServer = metrics.NewServer(cfg.MetricsAddr, cfg.EntryPoint, logger)
	}

	// Create child runner
	scriptCfg := process.ScriptConfig{
		EntryPoint:  cfg.EntryPoint,
		Interpreter: cfg.Interpreter,
	}
	if cfg.TUIEnabled {
		// Capture child output for the dashboard instead of the terminal
		orch.stdout = logging.NewOutputHandler("stdout", logger, cfg.Verbose)
		orch.stderr = logging.NewOutputHandler("stderr", logger, cfg.Verbose)
		scriptCfg.Stdout = orch.stdout
		scriptCfg.Stderr = orch.stderr
	}
	orch.runner = process.NewScriptRunner(scriptCfg)

	// Create supervisor with callbacks
	orch.sup = supervisor.New(supervisor.Config{
		Runner:          orch.runner,
		Logger:          logger,
		RestartDelay:    cfg.RestartDelay,
		GracefulTimeout: cfg.GracefulTimeout,
		Callbacks: supervisor.Callbacks{
			OnStateChange: orch.onStateChange,
			OnStart:       orch.onStart,
			OnExit:        orch.onExit,
			OnRestart:     orch.onRestart,
			OnForceKill:   orch.onForceKill,
			OnLaunchError: orch.onLaunchError,
		},
	})

	// Create watcher
	filter, err := watcher.NewFilter(cfg.WatchRoot, cfg.Suffix)
	if err != nil {
		return nil, fmt.Errorf("watch filter: %w", err)
	}
	orch.watch, err = watcher.New(filter, logger, orch.onChange,
		watcher.WithEventCounters(orch.onRelevantEvent, orch.onIrrelevantEvent),
	)
	if err != nil {
		return nil, err
	}

	return orch, nil
}

// Run executes the watch session. It blocks until a signal arrives, the
// watcher fails, or the dashboard is quit.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.startTime = time.Now()

	// Run preflight checks
	if !o.config.SkipPreflight {
		result := preflight.RunAll(o.config.WatchRoot, o.config.EntryPoint, o.config.Interpreter)
		if !o.config.TUIEnabled {
			preflight.PrintResults(result)
		}
		if !result.Passed {
			return fmt.Errorf("preflight checks failed (use --skip-preflight to override)")
		}
	}

	// Start metrics server
	if o.metricsServer != nil {
		if err := o.metricsServer.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	// Setup signal handling
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	// Initial launch. A spawn failure is reported, not fatal: the session
	// keeps watching and the next change event retries.
	if err := o.sup.Start(); err != nil {
		o.logger.Warn("initial_launch_failed", "error", err)
	}

	// Start the watcher
	watchErrCh := make(chan error, 1)
	go func() {
		watchErrCh <- o.watch.Run(ctx)
	}()

	// Keep the uptime gauge fresh
	if o.metrics != nil {
		go o.uptimeLoop(ctx)
	}

	// Start the dashboard if requested
	var program *tea.Program
	tuiDone := make(chan struct{})
	if o.config.TUIEnabled {
		program = tea.NewProgram(
			tui.New(tui.Config{
				EntryPoint:  o.config.EntryPoint,
				WatchRoot:   o.config.WatchRoot,
				Suffix:      o.config.Suffix,
				MetricsAddr: o.config.MetricsAddr,
				Source:      o,
			}),
			tea.WithAltScreen(),
		)
		go func() {
			defer close(tuiDone)
			if _, err := program.Run(); err != nil {
				o.logger.Error("dashboard_failed", "error", err)
			}
		}()
	}

	// Wait for completion signal
	var runErr error
	select {
	case sig := <-sigCh:
		o.logger.Info("received_signal", "signal", sig.String())
	case err := <-watchErrCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			o.logger.Error("watcher_failed", "error", err)
			runErr = fmt.Errorf("watcher failed: %w", err)
		}
	case <-tuiDone:
		if program != nil {
			o.logger.Info("dashboard_quit")
		}
	case <-ctx.Done():
		o.logger.Info("context_cancelled")
	}

	// Stop everything
	cancel()
	if program != nil {
		program.Quit()
		<-tuiDone
	}

	o.sup.Shutdown()
	o.watch.Close()

	if o.metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := o.metricsServer.Shutdown(shutdownCtx); err != nil {
			o.logger.Warn("metrics_server_shutdown_error", "error", err)
		}
	}

	o.printExitSummary()

	return runErr
}

// uptimeLoop refreshes the child uptime gauge once per second.
func (o *Orchestrator) uptimeLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.metrics.SetUptime(o.sup.Uptime())
		}
	}
}

// Change-event path

func (o *Orchestrator) onChange(path string) {
	o.changes.Add(1)
	o.sup.ScheduleRestart()
}

func (o *Orchestrator) onRelevantEvent() {
	if o.metrics != nil {
		o.metrics.ChangeDetected()
	}
}

func (o *Orchestrator) onIrrelevantEvent() {
	if o.metrics != nil {
		o.metrics.EventFiltered()
	}
}

// Supervisor callbacks

func (o *Orchestrator) onStateChange(oldState, newState supervisor.State) {
	if o.metrics != nil {
		o.metrics.SetState(newState)
	}
}

func (o *Orchestrator) onStart(pid int) {
	if o.metrics != nil {
		o.metrics.ChildStarted(pid)
	}
}

func (o *Orchestrator) onExit(exitCode int, uptime time.Duration) {
	o.lifecycle.RecordExit(uptime)
	if o.metrics != nil {
		o.metrics.ChildExited()
	}
}

func (o *Orchestrator) onRestart(cycle time.Duration) {
	o.lifecycle.RecordRestart(cycle)
	if o.metrics != nil {
		o.metrics.RecordRestart(cycle)
	}
}

func (o *Orchestrator) onForceKill() {
	o.lifecycle.RecordForcedKill()
	if o.metrics != nil {
		o.metrics.ForcedKill()
	}
}

func (o *Orchestrator) onLaunchError(err error) {
	o.lifecycle.RecordLaunchFailure()
	if o.metrics != nil {
		o.metrics.LaunchFailed()
	}
}

// Snapshot implements tui.Source.
func (o *Orchestrator) Snapshot() tui.Snapshot {
	snap := tui.Snapshot{
		State:          o.sup.State().String(),
		Pid:            o.sup.Pid(),
		Uptime:         o.sup.Uptime(),
		Restarts:       o.sup.Restarts(),
		PendingRestart: o.sup.PendingRestart(),
		Changes:        o.changes.Load(),
		Summary:        o.lifecycle.Snapshot(),
	}
	if o.stdout != nil {
		snap.RecentOutput = append(snap.RecentOutput, o.stdout.RecentLines(20)...)
	}
	if o.stderr != nil {
		snap.RecentOutput = append(snap.RecentOutput, o.stderr.RecentLines(10)...)
	}
	return snap
}

// printExitSummary prints a summary of the watch session.
func (o *Orchestrator) printExitSummary() {
	summary := o.lifecycle.Snapshot()

	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════════════")
	fmt.Println("                        botwatch Exit Summary")
	fmt.Println("═══════════════════════════════════════════════════════════════════")
	fmt.Printf("Session Duration:       %s\n", formatDuration(time.Since(o.startTime)))
	fmt.Printf("Entry Point:            %s\n", o.config.EntryPoint)
	fmt.Printf("Changes Observed:       %d\n", o.changes.Load())
	fmt.Println()

	fmt.Println("Lifecycle:")
	fmt.Printf("  Restarts:             %d\n", summary.Restarts)
	fmt.Printf("  Launch Failures:      %d\n", summary.LaunchFails)
	fmt.Printf("  Forced Kills:         %d\n", summary.ForcedKills)
	fmt.Println()

	if summary.Exits > 0 {
		fmt.Println("Child Uptime Distribution:")
		fmt.Printf("  P50 (median):         %s\n", formatDuration(summary.UptimeP50))
		fmt.Printf("  P95:                  %s\n", formatDuration(summary.UptimeP95))
		fmt.Printf("  P99:                  %s\n", formatDuration(summary.UptimeP99))
		fmt.Println()
	}

	if summary.Restarts > 0 {
		fmt.Println("Restart Cycle Duration:")
		fmt.Printf("  P50 (median):         %s\n", summary.RestartP50.Round(time.Millisecond))
		fmt.Printf("  P95:                  %s\n", summary.RestartP95.Round(time.Millisecond))
		fmt.Println()
	}

	if o.config.MetricsAddr != "" {
		fmt.Printf("Metrics endpoint was: http://%s/metrics\n", o.config.MetricsAddr)
	}
	fmt.Println("═══════════════════════════════════════════════════════════════════")
}

// formatDuration formats a duration as HH:MM:SS.
func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// Supervisor returns the supervisor for external access.
func (o *Orchestrator) Supervisor() *supervisor.Supervisor {
	return o.sup
}

// Runner returns the child runner for external access.
func (o *Orchestrator) Runner() *process.ScriptRunner {
	return o.runner
}

// Lifecycle returns the lifecycle tracker for external access.
func (o *Orchestrator) Lifecycle() *stats.Lifecycle {
	return o.lifecycle
}
