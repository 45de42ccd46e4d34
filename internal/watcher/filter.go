package watcher

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Filter decides whether a filesystem change event is relevant: the path
// must carry the configured source suffix and live inside the watched root.
// Pure predicate, no side effects.
type Filter struct {
	root   string // absolute
	suffix string
}

// NewFilter creates a filter for the given root directory and file suffix.
// The root is resolved to absolute form so events from symlinked or
// unrelated trees outside the root never trigger restarts.
func NewFilter(root, suffix string) (*Filter, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve watch root: %w", err)
	}
	return &Filter{root: abs, suffix: suffix}, nil
}

// Root returns the absolute watch root.
func (f *Filter) Root() string {
	return f.root
}

// Relevant reports whether the event path should trigger a restart.
func (f *Filter) Relevant(path string) bool {
	if filepath.Ext(path) != f.suffix {
		return false
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	rel, err := filepath.Rel(f.root, abs)
	if err != nil {
		return false
	}

	// Inside the root iff the relative path does not escape it
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
