// Package process provides abstractions for running the supervised child.
package process

import (
	"context"
	"os/exec"
)

// Runner creates the executable command for the supervised process.
// This interface keeps the supervisor decoupled from how the entry point
// is launched (interpreter, virtualenv, direct binary).
type Runner interface {
	// BuildCommand returns a ready-to-start command.
	// The command must NOT be started yet.
	BuildCommand(ctx context.Context) (*exec.Cmd, error)

	// Name returns a human-readable name for this process type.
	Name() string
}

// Result captures the outcome of one child process run.
type Result struct {
	Pid       int
	ExitCode  int
	StartTime int64 // Unix timestamp
	EndTime   int64 // Unix timestamp
	Error     error
}
