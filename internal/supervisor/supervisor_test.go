package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/botwatch/botwatch/internal/logging"
)

// =============================================================================
// Mock Runner for testing
// =============================================================================

// mockRunner implements process.Runner for testing.
type mockRunner struct {
	name       string
	buildFn    func(ctx context.Context) (*exec.Cmd, error)
	buildError error
}

func (m *mockRunner) BuildCommand(ctx context.Context) (*exec.Cmd, error) {
	if m.buildError != nil {
		return nil, m.buildError
	}
	return m.buildFn(ctx)
}

func (m *mockRunner) Name() string {
	if m.name != "" {
		return m.name
	}
	return "mock"
}

// groupCmd builds a command in its own process group, like the real runner,
// so group signals never reach the test process.
func groupCmd(name string, args ...string) *exec.Cmd {
	cmd := exec.Command(name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	return cmd
}

// newSleepRunner creates a runner whose child sleeps until signalled.
func newSleepRunner() *mockRunner {
	return &mockRunner{
		buildFn: func(ctx context.Context) (*exec.Cmd, error) {
			return groupCmd("sleep", "60"), nil
		},
	}
}

// newStubbornRunner creates a runner whose child ignores SIGTERM. The child
// touches a sentinel file only after installing the trap; the returned wait
// function blocks until the current child has done so, so a SIGTERM can
// never land in the window before the trap is in place.
func newStubbornRunner(t *testing.T) (*mockRunner, func()) {
	t.Helper()
	ready := filepath.Join(t.TempDir(), "ready")
	runner := &mockRunner{
		buildFn: func(ctx context.Context) (*exec.Cmd, error) {
			script := fmt.Sprintf(`trap '' TERM; : > %q; while true; do sleep 0.05; done`, ready)
			return groupCmd("bash", "-c", script), nil
		},
	}
	wait := func() {
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if _, err := os.Stat(ready); err == nil {
				os.Remove(ready)
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
		t.Fatal("stubborn child never signalled readiness")
	}
	return runner, wait
}

// newMissingRunner creates a runner whose entry point does not exist.
func newMissingRunner() *mockRunner {
	return &mockRunner{
		name: "missing.py",
		buildFn: func(ctx context.Context) (*exec.Cmd, error) {
			return groupCmd("/nonexistent/interpreter", "missing.py"), nil
		},
	}
}

// newTestSupervisor creates a supervisor with short timings for tests.
func newTestSupervisor(t *testing.T, runner *mockRunner, cb Callbacks) *Supervisor {
	t.Helper()
	s := New(Config{
		Runner:          runner,
		Logger:          logging.NewLoggerWithWriter(io.Discard, "text", "error"),
		Callbacks:       cb,
		RestartDelay:    50 * time.Millisecond,
		GracefulTimeout: 300 * time.Millisecond,
	})
	t.Cleanup(s.Shutdown)
	return s
}

// stateRecorder collects state transitions under a lock.
type stateRecorder struct {
	mu     sync.Mutex
	states []State
}

func (r *stateRecorder) record(_, newState State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, newState)
}

func (r *stateRecorder) snapshot() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

// =============================================================================
// Lifecycle tests
// =============================================================================

func TestStartStop_Graceful(t *testing.T) {
	var (
		mu       sync.Mutex
		exitCode = -1
		uptime   time.Duration
		forced   bool
	)

	s := newTestSupervisor(t, newSleepRunner(), Callbacks{
		OnExit: func(code int, up time.Duration) {
			mu.Lock()
			exitCode = code
			uptime = up
			mu.Unlock()
		},
		OnForceKill: func() {
			mu.Lock()
			forced = true
			mu.Unlock()
		},
	})

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.State() != StateRunning {
		t.Errorf("state = %v, want running", s.State())
	}
	if s.Pid() == 0 {
		t.Error("Pid should be set while running")
	}

	s.Stop()

	if s.State() != StateStopped {
		t.Errorf("state after Stop = %v, want stopped", s.State())
	}
	if s.Pid() != 0 {
		t.Error("Pid should be cleared after stop")
	}

	mu.Lock()
	defer mu.Unlock()
	if forced {
		t.Error("sleep should exit on SIGTERM without a forceful kill")
	}
	// SIGTERM death reports as 128+15
	if exitCode != 143 {
		t.Errorf("exit code = %d, want 143", exitCode)
	}
	if uptime <= 0 {
		t.Errorf("uptime = %v, want > 0", uptime)
	}
}

func TestStop_ForcefulAfterTimeout(t *testing.T) {
	var (
		mu       sync.Mutex
		forced   bool
		exitCode = -1
	)

	runner, waitReady := newStubbornRunner(t)
	s := newTestSupervisor(t, runner, Callbacks{
		OnForceKill: func() {
			mu.Lock()
			forced = true
			mu.Unlock()
		},
		OnExit: func(code int, _ time.Duration) {
			mu.Lock()
			exitCode = code
			mu.Unlock()
		},
	})

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// The trap must be installed before the SIGTERM goes out, or the child
	// would exit gracefully and no escalation would happen.
	waitReady()

	began := time.Now()
	s.Stop()
	elapsed := time.Since(began)

	if elapsed < 300*time.Millisecond {
		t.Errorf("Stop returned after %v, before the graceful timeout", elapsed)
	}
	if s.State() != StateStopped {
		t.Errorf("state = %v, want stopped", s.State())
	}

	mu.Lock()
	defer mu.Unlock()
	if !forced {
		t.Error("expected forceful kill for a child ignoring SIGTERM")
	}
	// SIGKILL death reports as 128+9
	if exitCode != 137 {
		t.Errorf("exit code = %d, want 137", exitCode)
	}
}

func TestRestart_Transitions(t *testing.T) {
	rec := &stateRecorder{}
	var (
		mu   sync.Mutex
		pids []int
	)

	s := newTestSupervisor(t, newSleepRunner(), Callbacks{
		OnStateChange: rec.record,
		OnStart: func(pid int) {
			mu.Lock()
			pids = append(pids, pid)
			mu.Unlock()
		},
	})

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Restart(); err != nil {
		t.Fatalf("Restart: %v", err)
	}

	if s.State() != StateRunning {
		t.Errorf("state after Restart = %v, want running", s.State())
	}
	if s.Restarts() != 1 {
		t.Errorf("Restarts = %d, want 1", s.Restarts())
	}

	want := []State{StateStarting, StateRunning, StateStopping, StateStopped, StateStarting, StateRunning}
	got := rec.snapshot()
	if len(got) != len(want) {
		t.Fatalf("state sequence = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("state sequence = %v, want %v", got, want)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(pids) != 2 {
		t.Fatalf("expected 2 starts, got %d", len(pids))
	}
	if pids[0] == pids[1] {
		t.Error("restart should produce a new process")
	}
	// The first child must be gone: exactly one live child at a time
	if err := syscall.Kill(pids[0], 0); err == nil {
		t.Errorf("first child pid %d still alive after restart", pids[0])
	}
}

func TestStart_LaunchError(t *testing.T) {
	var launchErrs int
	var mu sync.Mutex

	s := newTestSupervisor(t, newMissingRunner(), Callbacks{
		OnLaunchError: func(err error) {
			mu.Lock()
			launchErrs++
			mu.Unlock()
		},
	})

	err := s.Start()
	if err == nil {
		t.Fatal("expected launch error")
	}

	var launchErr *LaunchError
	if !errors.As(err, &launchErr) {
		t.Errorf("error type = %T, want *LaunchError", err)
	}
	if s.State() != StateStopped {
		t.Errorf("state after launch failure = %v, want stopped", s.State())
	}

	// A later restart attempt is independent: it fails the same way
	// without crashing the supervisor.
	if err := s.Restart(); err == nil {
		t.Fatal("expected launch error on restart")
	}
	if s.State() != StateStopped {
		t.Errorf("state = %v, want stopped", s.State())
	}

	mu.Lock()
	defer mu.Unlock()
	if launchErrs != 2 {
		t.Errorf("OnLaunchError called %d times, want 2", launchErrs)
	}
}

func TestStart_WhenRunningErrors(t *testing.T) {
	s := newTestSupervisor(t, newSleepRunner(), Callbacks{})

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(); err == nil {
		t.Error("second Start should fail while a child is live")
	}
}

func TestShutdown_Idempotent(t *testing.T) {
	s := newTestSupervisor(t, newSleepRunner(), Callbacks{})

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	s.Shutdown()
	if s.State() != StateStopped {
		t.Errorf("state after Shutdown = %v, want stopped", s.State())
	}

	// Second call is a no-op and must not panic or block.
	s.Shutdown()

	if err := s.Start(); err == nil {
		t.Error("Start after Shutdown should fail")
	}
}

func TestShutdown_CancelsPending(t *testing.T) {
	var restarts int
	var mu sync.Mutex

	s := newTestSupervisor(t, newSleepRunner(), Callbacks{
		OnRestart: func(time.Duration) {
			mu.Lock()
			restarts++
			mu.Unlock()
		},
	})

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	s.ScheduleRestart()
	s.Shutdown()

	if s.PendingRestart() {
		t.Error("Shutdown should cancel the pending restart")
	}

	// Well past the quiet window: the cancelled restart must not fire.
	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if restarts != 0 {
		t.Errorf("restarts = %d, want 0 after shutdown", restarts)
	}
}

func TestExtractExitCode(t *testing.T) {
	if got := extractExitCode(nil); got != 0 {
		t.Errorf("extractExitCode(nil) = %d, want 0", got)
	}
	if got := extractExitCode(errors.New("opaque")); got != 1 {
		t.Errorf("extractExitCode(opaque) = %d, want 1", got)
	}

	// A real non-zero exit
	cmd := exec.Command("bash", "-c", "exit 3")
	err := cmd.Run()
	if got := extractExitCode(err); got != 3 {
		t.Errorf("extractExitCode(exit 3) = %d, want 3", got)
	}
}

func TestState_String(t *testing.T) {
	testCases := []struct {
		state    State
		expected string
	}{
		{StateStopped, "stopped"},
		{StateStarting, "starting"},
		{StateRunning, "running"},
		{StateStopping, "stopping"},
		{State(99), "unknown"},
	}

	for _, tc := range testCases {
		if got := tc.state.String(); got != tc.expected {
			t.Errorf("State(%d).String() = %q, want %q", tc.state, got, tc.expected)
		}
	}
}
