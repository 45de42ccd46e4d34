// Package watcher delivers relevant source-file change events from a
// directory tree to the supervisor.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// excludedDirs are directories never watched or descended into.
var excludedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
}

// ChangeFunc is invoked for each relevant change event with the event path.
// It must not block: the supervisor's schedule step is cheap bookkeeping.
type ChangeFunc func(path string)

// Watcher subscribes to recursive filesystem changes under a root directory
// and forwards relevant events. Newly created directories are added to the
// watch during the run.
type Watcher struct {
	fs       *fsnotify.Watcher
	filter   *Filter
	logger   *slog.Logger
	onChange ChangeFunc

	// Counters observable by the caller (filtered vs forwarded)
	onRelevant   func()
	onIrrelevant func()
}

// Option configures optional Watcher behavior.
type Option func(*Watcher)

// WithEventCounters registers callbacks invoked per relevant and per
// irrelevant event, for metrics.
func WithEventCounters(relevant, irrelevant func()) Option {
	return func(w *Watcher) {
		w.onRelevant = relevant
		w.onIrrelevant = irrelevant
	}
}

// New creates a watcher over the filter's root. Returns an error if the
// notification source cannot be initialized or the root cannot be walked;
// callers treat that as fatal since there is nothing to watch.
func New(filter *Filter, logger *slog.Logger, onChange ChangeFunc, opts ...Option) (*Watcher, error) {
	info, err := os.Stat(filter.Root())
	if err != nil {
		return nil, fmt.Errorf("watch root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch root %s is not a directory", filter.Root())
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		fs:       fs,
		filter:   filter,
		logger:   logger,
		onChange: onChange,
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := addDirsRecursive(fs, filter.Root()); err != nil {
		fs.Close()
		return nil, fmt.Errorf("watch tree: %w", err)
	}

	return w, nil
}

// Run processes events until the context is cancelled or the event source
// closes. Blocking; run in a goroutine.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watcher_started",
		"root", w.filter.Root(),
		"suffix", w.filter.suffix,
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch_error", "error", err)
		}
	}
}

// handleEvent filters one fsnotify event and forwards it if relevant.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Watch newly created directories too
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			base := filepath.Base(event.Name)
			if !excludedDirs[base] && !isHidden(base) {
				w.fs.Add(event.Name)
			}
			return
		}
	}

	// Only content-producing event kinds matter; chmod is noise
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	if !w.filter.Relevant(event.Name) {
		if w.onIrrelevant != nil {
			w.onIrrelevant()
		}
		return
	}

	w.logger.Info("change_detected",
		"path", event.Name,
		"op", event.Op.String(),
	)
	if w.onRelevant != nil {
		w.onRelevant()
	}
	w.onChange(event.Name)
}

// Close stops the underlying event source. Safe to call more than once.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

// addDirsRecursive adds a directory and its subdirectories to an fsnotify watcher.
func addDirsRecursive(fs *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil // Skip inaccessible subtrees
		}
		if !d.IsDir() {
			return nil
		}

		name := d.Name()
		if path != root {
			if excludedDirs[name] || isHidden(name) {
				return filepath.SkipDir
			}
		}

		return fs.Add(path)
	})
}

func isHidden(name string) bool {
	return len(name) > 0 && name[0] == '.'
}
