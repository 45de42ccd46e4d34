// Package metrics provides Prometheus metrics for botwatch.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/botwatch/botwatch/internal/supervisor"
)

var (
	botwatchInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "botwatch_info",
			Help: "Information about the watch session (value always 1)",
		},
		[]string{"version", "entry_point", "watch_root", "session_id"},
	)

	botwatchChildState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "botwatch_child_state",
			Help: "Child state (0=stopped, 1=starting, 2=running, 3=stopping)",
		},
	)

	botwatchChildPid = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "botwatch_child_pid",
			Help: "PID of the running child (0 when stopped)",
		},
	)

	botwatchChildUptimeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "botwatch_child_uptime_seconds",
			Help: "Uptime of the current child process",
		},
	)

	botwatchChangesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "botwatch_changes_total",
			Help: "Relevant source-file change events observed",
		},
	)

	botwatchEventsFilteredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "botwatch_events_filtered_total",
			Help: "Filesystem events discarded by the relevance filter",
		},
	)

	botwatchRestartsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "botwatch_restarts_total",
			Help: "Completed child restarts",
		},
	)

	botwatchLaunchFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "botwatch_launch_failures_total",
			Help: "Child spawn attempts that failed",
		},
	)

	botwatchForcedKillsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "botwatch_forced_kills_total",
			Help: "Stops escalated to SIGKILL after the graceful timeout",
		},
	)

	botwatchRestartDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "botwatch_restart_duration_seconds",
			Help:    "Duration of stop+start restart cycles",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms .. ~25s
		},
	)
)

// CollectorConfig holds metadata registered on the info gauge.
type CollectorConfig struct {
	Version    string
	EntryPoint string
	WatchRoot  string
	SessionID  string
}

// Collector records supervisor and watcher activity into Prometheus metrics.
type Collector struct {
	registry prometheus.Registerer
}

// NewCollector creates a collector registered on the default registry.
func NewCollector(cfg CollectorConfig) *Collector {
	return NewCollectorWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewCollectorWithRegistry creates a collector on a custom registry.
// Used by tests for isolation.
func NewCollectorWithRegistry(cfg CollectorConfig, registry prometheus.Registerer) *Collector {
	registry.MustRegister(
		botwatchInfo,
		botwatchChildState,
		botwatchChildPid,
		botwatchChildUptimeSeconds,
		botwatchChangesTotal,
		botwatchEventsFilteredTotal,
		botwatchRestartsTotal,
		botwatchLaunchFailuresTotal,
		botwatchForcedKillsTotal,
		botwatchRestartDurationSeconds,
	)

	botwatchInfo.WithLabelValues(cfg.Version, cfg.EntryPoint, cfg.WatchRoot, cfg.SessionID).Set(1)

	return &Collector{registry: registry}
}

// ChangeDetected counts one relevant change event.
func (c *Collector) ChangeDetected() {
	botwatchChangesTotal.Inc()
}

// EventFiltered counts one discarded filesystem event.
func (c *Collector) EventFiltered() {
	botwatchEventsFilteredTotal.Inc()
}

// SetState publishes the child state.
func (c *Collector) SetState(state supervisor.State) {
	botwatchChildState.Set(float64(state))
}

// ChildStarted publishes the new child's pid.
func (c *Collector) ChildStarted(pid int) {
	botwatchChildPid.Set(float64(pid))
}

// ChildExited clears the pid and uptime gauges.
func (c *Collector) ChildExited() {
	botwatchChildPid.Set(0)
	botwatchChildUptimeSeconds.Set(0)
}

// SetUptime publishes the current child uptime.
func (c *Collector) SetUptime(uptime time.Duration) {
	botwatchChildUptimeSeconds.Set(uptime.Seconds())
}

// RecordRestart counts a completed restart and its duration.
func (c *Collector) RecordRestart(cycle time.Duration) {
	botwatchRestartsTotal.Inc()
	botwatchRestartDurationSeconds.Observe(cycle.Seconds())
}

// LaunchFailed counts one failed spawn attempt.
func (c *Collector) LaunchFailed() {
	botwatchLaunchFailuresTotal.Inc()
}

// ForcedKill counts one escalation to SIGKILL.
func (c *Collector) ForcedKill() {
	botwatchForcedKillsTotal.Inc()
}
