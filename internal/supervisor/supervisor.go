package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/botwatch/botwatch/internal/process"
)

// DefaultGracefulTimeout is the SIGTERM grace period when none is configured.
const DefaultGracefulTimeout = 5 * time.Second

// DefaultRestartDelay is the debounce quiet window when none is configured.
const DefaultRestartDelay = 1 * time.Second

// LaunchError indicates the entry point could not be spawned. The supervisor
// stays stopped; the next relevant change event retries via the normal
// restart path.
type LaunchError struct {
	Name string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Name, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// Callbacks contains optional callback functions for supervisor events.
type Callbacks struct {
	// OnStateChange is called when the child state changes.
	OnStateChange func(oldState, newState State)

	// OnStart is called when a child process starts.
	OnStart func(pid int)

	// OnExit is called when a child process exit is confirmed.
	OnExit func(exitCode int, uptime time.Duration)

	// OnRestart is called after a restart completes, with the stop+start
	// duration.
	OnRestart func(cycle time.Duration)

	// OnForceKill is called when the graceful timeout elapses and the
	// child is killed forcefully.
	OnForceKill func()

	// OnLaunchError is called when a spawn attempt fails.
	OnLaunchError func(err error)
}

// Config holds configuration for creating a new Supervisor.
type Config struct {
	Runner          process.Runner
	Logger          *slog.Logger
	Callbacks       Callbacks
	RestartDelay    time.Duration
	GracefulTimeout time.Duration
}

// Supervisor manages exactly one child process: start, graceful-then-forceful
// stop, restart, and debounced restart scheduling.
//
// A single mutex serializes every mutation of the process slot and the
// pending-restart slot. The change-event path (ScheduleRestart) only does
// cancel-and-reschedule bookkeeping under the lock; the blocking stop+start
// work happens inside the timer-fired restart, which holds the lock for its
// full duration so no second restart can begin stopping a process the first
// is already stopping.
type Supervisor struct {
	runner          process.Runner
	logger          *slog.Logger
	callbacks       Callbacks
	restartDelay    time.Duration
	gracefulTimeout time.Duration

	// mu guards the process slot (cmd, done, waitErr) and the
	// pending-restart slot.
	mu      sync.Mutex
	cmd     *exec.Cmd
	done    chan struct{} // closed by the wait goroutine
	waitErr error         // written before done is closed
	pending *pendingRestart
	down    bool

	// Advisory snapshot for displays; reads must not block behind an
	// in-flight restart.
	stateMu    sync.RWMutex
	state      State
	pid        int
	startTime  time.Time
	restarts   int
	pendingSet bool
}

// pendingRestart identifies one scheduled restart so a fire that lost the
// race to a newer schedule can discard itself.
type pendingRestart struct {
	timer *time.Timer
}

// New creates a new Supervisor with the given configuration.
func New(cfg Config) *Supervisor {
	restartDelay := cfg.RestartDelay
	if restartDelay <= 0 {
		restartDelay = DefaultRestartDelay
	}
	gracefulTimeout := cfg.GracefulTimeout
	if gracefulTimeout <= 0 {
		gracefulTimeout = DefaultGracefulTimeout
	}

	return &Supervisor{
		runner:          cfg.Runner,
		logger:          cfg.Logger,
		callbacks:       cfg.Callbacks,
		restartDelay:    restartDelay,
		gracefulTimeout: gracefulTimeout,
		state:           StateStopped,
	}
}

// Start launches the child. Valid only when no child is live.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.down {
		return errors.New("supervisor is shut down")
	}
	if s.cmd != nil {
		return errors.New("child already running")
	}
	return s.startLocked()
}

// Stop terminates the child gracefully, escalating to SIGKILL after the
// graceful timeout. No-op if no child is live.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		s.stopLocked()
	}
}

// Restart stops the current child (if any) and starts a new one as one
// atomic operation with respect to other restart requests.
func (s *Supervisor) Restart() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.down {
		return errors.New("supervisor is shut down")
	}
	return s.restartLocked()
}

// Shutdown cancels any pending restart and stops the child. Idempotent;
// the second call is a no-op.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.down {
		return
	}
	s.down = true

	if s.pending != nil {
		s.pending.timer.Stop()
		s.pending = nil
		s.setPendingFlag(false)
	}
	if s.cmd != nil {
		s.stopLocked()
	}

	s.logger.Info("supervisor_shutdown")
}

// startLocked spawns the child. Caller holds mu.
func (s *Supervisor) startLocked() error {
	s.setState(StateStarting)
	s.logger.Info("starting_child", "name", s.runner.Name())

	cmd, err := s.runner.BuildCommand(context.Background())
	if err == nil {
		err = cmd.Start()
	}
	if err != nil {
		launchErr := &LaunchError{Name: s.runner.Name(), Err: err}
		s.setState(StateStopped)
		s.logger.Error("launch_failed", "name", s.runner.Name(), "error", err)
		if s.callbacks.OnLaunchError != nil {
			s.callbacks.OnLaunchError(launchErr)
		}
		return launchErr
	}

	done := make(chan struct{})
	s.cmd = cmd
	s.done = done
	s.waitErr = nil
	go func() {
		err := cmd.Wait()
		s.waitErr = err
		close(done)
	}()

	pid := cmd.Process.Pid

	s.stateMu.Lock()
	s.pid = pid
	s.startTime = time.Now()
	s.stateMu.Unlock()
	s.setState(StateRunning)

	s.logger.Info("child_started", "name", s.runner.Name(), "pid", pid)
	if s.callbacks.OnStart != nil {
		s.callbacks.OnStart(pid)
	}

	return nil
}

// stopLocked terminates the child: SIGTERM to the process group, wait up to
// the graceful timeout, then SIGKILL and wait unconditionally for exit
// confirmation. Caller holds mu and guarantees cmd != nil.
func (s *Supervisor) stopLocked() {
	cmd := s.cmd
	done := s.done
	pid := cmd.Process.Pid

	s.setState(StateStopping)
	s.logger.Info("terminating_child", "pid", pid)

	signalGroup(cmd, syscall.SIGTERM)

	select {
	case <-done:
		// Graceful exit within the timeout
	case <-time.After(s.gracefulTimeout):
		s.logger.Warn("force_killing_child",
			"pid", pid,
			"graceful_timeout", s.gracefulTimeout.String(),
		)
		if s.callbacks.OnForceKill != nil {
			s.callbacks.OnForceKill()
		}
		signalGroup(cmd, syscall.SIGKILL)
		<-done
	}

	exitCode := extractExitCode(s.waitErr)

	s.stateMu.RLock()
	uptime := time.Since(s.startTime)
	s.stateMu.RUnlock()

	s.cmd = nil
	s.done = nil
	s.stateMu.Lock()
	s.pid = 0
	s.stateMu.Unlock()
	s.setState(StateStopped)

	s.logger.Info("child_exited",
		"pid", pid,
		"exit_code", exitCode,
		"uptime", uptime.String(),
	)
	if s.callbacks.OnExit != nil {
		s.callbacks.OnExit(exitCode, uptime)
	}
}

// restartLocked performs stop-then-start. Caller holds mu.
func (s *Supervisor) restartLocked() error {
	began := time.Now()
	s.logger.Info("restarting_child", "name", s.runner.Name())

	if s.cmd != nil {
		s.stopLocked()
	}

	if err := s.startLocked(); err != nil {
		// Reported, not fatal: the next change event retries
		return err
	}

	s.stateMu.Lock()
	s.restarts++
	s.stateMu.Unlock()

	if s.callbacks.OnRestart != nil {
		s.callbacks.OnRestart(time.Since(began))
	}
	return nil
}

// signalGroup delivers a signal to the child's process group, falling back
// to the process itself if the group cannot be resolved.
func signalGroup(cmd *exec.Cmd, sig syscall.Signal) {
	if pgid, err := syscall.Getpgid(cmd.Process.Pid); err == nil {
		syscall.Kill(-pgid, sig)
	} else {
		cmd.Process.Signal(sig)
	}
}

// State returns the current state of the supervisor.
func (s *Supervisor) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// Pid returns the current child pid, or 0 if no child is live.
func (s *Supervisor) Pid() int {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.pid
}

// Restarts returns the number of completed restarts.
func (s *Supervisor) Restarts() int {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.restarts
}

// Uptime returns the current child uptime, or 0 if not running.
func (s *Supervisor) Uptime() time.Duration {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	if s.state != StateRunning {
		return 0
	}
	return time.Since(s.startTime)
}

// setPendingFlag mirrors the pending slot into the advisory snapshot.
// Caller holds mu.
func (s *Supervisor) setPendingFlag(v bool) {
	s.stateMu.Lock()
	s.pendingSet = v
	s.stateMu.Unlock()
}

// setState updates the state and calls the callback if registered.
func (s *Supervisor) setState(newState State) {
	s.stateMu.Lock()
	oldState := s.state
	s.state = newState
	s.stateMu.Unlock()

	if s.callbacks.OnStateChange != nil && oldState != newState {
		s.callbacks.OnStateChange(oldState, newState)
	}
}

// extractExitCode extracts the exit code from a Wait() error.
func extractExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if status.Signaled() {
				// Signal exit: 128 + signal number
				return 128 + int(status.Signal())
			}
			return status.ExitStatus()
		}
	}

	// Unknown error, assume exit code 1
	return 1
}
