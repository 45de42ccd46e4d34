// Package preflight provides startup validation checks.
package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/botwatch/botwatch/internal/process"
)

// Check represents the result of a single preflight check.
type Check struct {
	Name    string // Name of the check
	Passed  bool   // Whether the check passed
	Warning bool   // True if it's a warning (non-fatal)
	Message string // Additional context
}

// Result holds the results of all preflight checks.
type Result struct {
	Checks []Check
	Passed bool
}

// String returns a human-readable summary of the check.
func (c Check) String() string {
	status := "✓"
	if !c.Passed {
		status = "✗"
	} else if c.Warning {
		status = "⚠"
	}
	return fmt.Sprintf("  %s %s: %s", status, c.Name, c.Message)
}

// RunAll executes all preflight checks.
func RunAll(watchRoot, entryPoint, interpreter string) *Result {
	result := &Result{
		Checks: make([]Check, 0, 4),
		Passed: true,
	}

	for _, check := range []Check{
		checkWatchRoot(watchRoot),
		checkEntryPoint(entryPoint),
		checkInterpreter(entryPoint, interpreter),
		checkInotifyWatches(watchRoot),
	} {
		result.Checks = append(result.Checks, check)
		if !check.Passed {
			result.Passed = false
		}
	}

	return result
}

// checkWatchRoot verifies the watch root exists and is a directory.
func checkWatchRoot(root string) Check {
	info, err := os.Stat(root)
	if err != nil {
		return Check{
			Name:    "watch_root",
			Passed:  false,
			Message: fmt.Sprintf("not found: %s", root),
		}
	}
	if !info.IsDir() {
		return Check{
			Name:    "watch_root",
			Passed:  false,
			Message: fmt.Sprintf("not a directory: %s", root),
		}
	}
	return Check{
		Name:    "watch_root",
		Passed:  true,
		Message: root,
	}
}

// checkEntryPoint verifies the entry point exists and is a regular file.
func checkEntryPoint(entryPoint string) Check {
	info, err := os.Stat(entryPoint)
	if err != nil {
		return Check{
			Name:    "entry_point",
			Passed:  false,
			Message: fmt.Sprintf("not found: %s", entryPoint),
		}
	}
	if info.IsDir() {
		return Check{
			Name:    "entry_point",
			Passed:  false,
			Message: fmt.Sprintf("is a directory: %s", entryPoint),
		}
	}
	return Check{
		Name:    "entry_point",
		Passed:  true,
		Message: entryPoint,
	}
}

// checkInterpreter verifies the child can actually be spawned.
func checkInterpreter(entryPoint, interpreter string) Check {
	if interpreter != "" {
		if _, err := os.Stat(interpreter); err != nil && !filepath.IsAbs(interpreter) {
			// Relative interpreter: defer to PATH at spawn time
			return Check{
				Name:    "interpreter",
				Passed:  true,
				Warning: true,
				Message: fmt.Sprintf("%s (resolved from PATH at spawn)", interpreter),
			}
		} else if err != nil {
			return Check{
				Name:    "interpreter",
				Passed:  false,
				Message: fmt.Sprintf("not found: %s", interpreter),
			}
		}
		return Check{
			Name:    "interpreter",
			Passed:  true,
			Message: interpreter,
		}
	}

	if resolved := process.ResolveInterpreter(entryPoint); resolved != "" {
		return Check{
			Name:    "interpreter",
			Passed:  true,
			Message: resolved,
		}
	}

	// No interpreter: the entry point must run on its own
	if info, err := os.Stat(entryPoint); err == nil && info.Mode()&0o111 != 0 {
		return Check{
			Name:    "interpreter",
			Passed:  true,
			Message: "entry point is executable",
		}
	}

	return Check{
		Name:    "interpreter",
		Passed:  false,
		Message: fmt.Sprintf("no interpreter found for %s", entryPoint),
	}
}

// checkInotifyWatches compares the kernel's inotify watch budget against the
// number of directories under the watch root. Warning only; other platforms
// are assumed OK.
func checkInotifyWatches(root string) Check {
	data, err := os.ReadFile("/proc/sys/fs/inotify/max_user_watches")
	if err != nil {
		return Check{
			Name:    "inotify_watches",
			Passed:  true,
			Warning: true,
			Message: "unable to check (non-Linux?)",
		}
	}

	var limit int
	fmt.Sscanf(strings.TrimSpace(string(data)), "%d", &limit)

	dirs := 0
	filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			dirs++
		}
		return nil
	})

	return Check{
		Name:    "inotify_watches",
		Passed:  true, // Don't fail on this
		Warning: dirs*2 > limit,
		Message: fmt.Sprintf("%d directories, limit %d", dirs, limit),
	}
}

// PrintResults prints the preflight check results to stdout.
func PrintResults(result *Result) {
	fmt.Println("Preflight checks:")
	for _, check := range result.Checks {
		fmt.Println(check.String())
		if !check.Passed {
			fmt.Printf("    Fix: %s\n", suggestFix(check.Name))
		}
	}
	fmt.Println()
}

// suggestFix returns a suggestion for fixing a failed check.
func suggestFix(name string) string {
	switch name {
	case "watch_root":
		return "pass -watch-root pointing at the source tree to watch"
	case "entry_point":
		return "pass the entry point path as the first argument"
	case "interpreter":
		return "install python3 or pass -interpreter explicitly"
	default:
		return "see documentation"
	}
}
