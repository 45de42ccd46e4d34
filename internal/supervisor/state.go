// Package supervisor owns the lifecycle of the single supervised child
// process and the debounced restart scheduling that drives it.
package supervisor

// State represents the current state of the supervised child.
type State int

const (
	// StateStopped indicates no live child process.
	StateStopped State = iota

	// StateStarting indicates the child process is being spawned.
	StateStarting

	// StateRunning indicates the child process is actively running.
	StateRunning

	// StateStopping indicates termination of the child has been requested.
	StateStopping
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// IsActive returns true if a child process exists in some form
// (starting, running, or being stopped).
func (s State) IsActive() bool {
	return s == StateStarting || s == StateRunning || s == StateStopping
}
