package process

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
)

// ScriptConfig holds configuration for building the child command.
type ScriptConfig struct {
	// EntryPoint is the file to execute.
	EntryPoint string

	// Interpreter runs the entry point. Empty means auto-detect:
	// a virtualenv next to the entry point is preferred for .py files,
	// then python3/python on PATH; an executable entry point with no
	// recognized interpreter runs directly.
	Interpreter string

	// WorkDir is the child's working directory so it can resolve its own
	// relative resources. Empty means the entry point's directory.
	WorkDir string

	// Stdout and Stderr receive the child's output. Nil means the
	// supervisor's own streams (operator visibility).
	Stdout io.Writer
	Stderr io.Writer
}

// ScriptRunner builds commands for a script or binary entry point.
type ScriptRunner struct {
	cfg ScriptConfig
}

// NewScriptRunner creates a runner for the given configuration.
func NewScriptRunner(cfg ScriptConfig) *ScriptRunner {
	if cfg.WorkDir == "" {
		cfg.WorkDir = filepath.Dir(cfg.EntryPoint)
	}
	return &ScriptRunner{cfg: cfg}
}

// Name implements Runner.
func (r *ScriptRunner) Name() string {
	return filepath.Base(r.cfg.EntryPoint)
}

// Config returns the runner configuration.
func (r *ScriptRunner) Config() ScriptConfig {
	return r.cfg
}

// BuildCommand implements Runner.
func (r *ScriptRunner) BuildCommand(ctx context.Context) (*exec.Cmd, error) {
	argv, err := r.argv()
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = r.cfg.WorkDir

	// Child output goes to the operator unless redirected (dashboard mode)
	if r.cfg.Stdout != nil {
		cmd.Stdout = r.cfg.Stdout
	} else {
		cmd.Stdout = os.Stdout
	}
	if r.cfg.Stderr != nil {
		cmd.Stderr = r.cfg.Stderr
	} else {
		cmd.Stderr = os.Stderr
	}

	// Own process group so a graceful stop reaches the whole tree
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}

	return cmd, nil
}

// CommandString returns the command line that would be run, for -print-cmd.
func (r *ScriptRunner) CommandString() string {
	argv, err := r.argv()
	if err != nil {
		return fmt.Sprintf("# %v", err)
	}
	return strings.Join(argv, " ")
}

// argv resolves the interpreter and assembles the command line.
func (r *ScriptRunner) argv() ([]string, error) {
	entry, err := filepath.Abs(r.cfg.EntryPoint)
	if err != nil {
		return nil, fmt.Errorf("resolve entry point: %w", err)
	}

	if r.cfg.Interpreter != "" {
		return []string{r.cfg.Interpreter, entry}, nil
	}

	if interp := ResolveInterpreter(entry); interp != "" {
		return []string{interp, entry}, nil
	}

	// No interpreter: the entry point must run on its own
	if info, err := os.Stat(entry); err == nil && info.Mode()&0o111 != 0 {
		return []string{entry}, nil
	}

	return nil, fmt.Errorf("no interpreter found for %s", entry)
}

// ResolveInterpreter finds the interpreter for a .py entry point: a
// virtualenv beside the entry point wins, then python3/python on PATH.
// Returns empty for non-Python entry points.
func ResolveInterpreter(entryPoint string) string {
	if filepath.Ext(entryPoint) != ".py" {
		return ""
	}

	dir := filepath.Dir(entryPoint)
	for _, venv := range []string{".venv", "venv"} {
		python := venvPython(filepath.Join(dir, venv))
		if _, err := os.Stat(python); err == nil {
			return python
		}
	}

	for _, name := range []string{"python3", "python"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	return ""
}

// venvPython returns the interpreter path inside a virtualenv directory.
func venvPython(venvDir string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(venvDir, "Scripts", "python.exe")
	}
	return filepath.Join(venvDir, "bin", "python")
}
