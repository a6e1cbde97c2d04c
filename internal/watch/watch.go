// Package watch observes the kernel's state directory with fsnotify.
// Governance state is only supposed to change through the kernel; an
// external write to a state file is exactly the situation the drift
// detector exists for, so each event batch triggers a re-check.
package watch

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDefault collapses editor save bursts into one re-check.
const debounceDefault = 500 * time.Millisecond

// Watcher triggers a handler when state files change on disk.
type Watcher struct {
	dir      string
	handler  func()
	debounce time.Duration
}

// New creates a watcher over the state directory. handler runs once
// per debounced event batch.
func New(dir string, handler func()) *Watcher {
	return &Watcher{dir: dir, handler: handler, debounce: debounceDefault}
}

// Run blocks until ctx is cancelled, invoking the handler after each
// quiet period following state-file writes.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(w.dir); err != nil {
		return err
	}

	// Single timer, reset on each relevant event. Stopped until the
	// first event arrives.
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			timer.Reset(w.debounce)

		case <-timer.C:
			w.handler()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			_ = err // transient watch errors do not stop the loop
		}
	}
}

// relevant filters events down to writes of state and log files,
// ignoring temp files from the store's atomic rename dance.
func relevant(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Base(ev.Name)
	if strings.HasSuffix(name, ".tmp") || strings.HasPrefix(name, ".") {
		return false
	}
	ext := filepath.Ext(name)
	return ext == ".json" || ext == ".jsonl" || ext == ".db"
}
