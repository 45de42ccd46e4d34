// Package stats tracks child lifecycle distributions for the exit summary
// and the dashboard.
package stats

import (
	"sync"
	"time"

	"github.com/influxdata/tdigest"
)

// Lifecycle aggregates per-run child uptimes and restart-cycle durations
// (stop+start) using t-digests, so percentiles stay cheap no matter how
// long a watch session runs.
type Lifecycle struct {
	mu sync.Mutex

	uptimeDigest  *tdigest.TDigest
	restartDigest *tdigest.TDigest

	exits       int64
	restarts    int64
	forcedKills int64
	launchFails int64

	lastUptime  time.Duration
	lastRestart time.Duration
}

// NewLifecycle creates an empty lifecycle tracker.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		uptimeDigest:  tdigest.NewWithCompression(100), // ~100 centroids, ~10KB
		restartDigest: tdigest.NewWithCompression(100),
	}
}

// RecordExit records one child run's uptime.
func (l *Lifecycle) RecordExit(uptime time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.exits++
	l.lastUptime = uptime
	l.uptimeDigest.Add(uptime.Seconds(), 1)
}

// RecordRestart records one completed restart cycle's duration.
func (l *Lifecycle) RecordRestart(cycle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.restarts++
	l.lastRestart = cycle
	l.restartDigest.Add(cycle.Seconds(), 1)
}

// RecordForcedKill records an escalation past the graceful timeout.
func (l *Lifecycle) RecordForcedKill() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.forcedKills++
}

// RecordLaunchFailure records a failed spawn attempt.
func (l *Lifecycle) RecordLaunchFailure() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launchFails++
}

// Summary is a point-in-time snapshot of the lifecycle distributions.
type Summary struct {
	Exits       int64
	Restarts    int64
	ForcedKills int64
	LaunchFails int64

	LastUptime  time.Duration
	LastRestart time.Duration

	UptimeP50 time.Duration
	UptimeP95 time.Duration
	UptimeP99 time.Duration

	RestartP50 time.Duration
	RestartP95 time.Duration
}

// Snapshot returns the current summary.
func (l *Lifecycle) Snapshot() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := Summary{
		Exits:       l.exits,
		Restarts:    l.restarts,
		ForcedKills: l.forcedKills,
		LaunchFails: l.launchFails,
		LastUptime:  l.lastUptime,
		LastRestart: l.lastRestart,
	}

	if l.exits > 0 {
		s.UptimeP50 = quantile(l.uptimeDigest, 0.50)
		s.UptimeP95 = quantile(l.uptimeDigest, 0.95)
		s.UptimeP99 = quantile(l.uptimeDigest, 0.99)
	}
	if l.restarts > 0 {
		s.RestartP50 = quantile(l.restartDigest, 0.50)
		s.RestartP95 = quantile(l.restartDigest, 0.95)
	}

	return s
}

// quantile converts a t-digest quantile in seconds to a duration.
func quantile(td *tdigest.TDigest, q float64) time.Duration {
	return time.Duration(td.Quantile(q) * float64(time.Second))
}
