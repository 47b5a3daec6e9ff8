// Package watcher turns raw filesystem notifications into a coalesced,
// debounced stream of index/remove events.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// skipDirs are directory names never watched; they churn constantly and
// the walker excludes their contents anyway.
var skipDirs = map[string]bool{
	".git": true, ".svn": true, ".hg": true,
	"node_modules": true, "vendor": true, "__pycache__": true,
	".venv": true, "venv": true, "dist": true, "build": true,
	"target": true, ".rune_cache": true,
}

// EventKind is the coalesced outcome of one or more raw fsnotify events
// for a path within a single debounce window.
type EventKind int

const (
	// EventReindex means the path should be re-hashed, re-chunked, and
	// re-embedded: it covers fsnotify's Create and Write.
	EventReindex EventKind = iota
	// EventRemove means the path should be purged from every index.
	EventRemove
)

// Event is a single coalesced filesystem change ready for the indexing
// pipeline.
type Event struct {
	Path string
	Kind EventKind
}

// Watcher coalesces filesystem notifications under roots into a debounced
// stream of Events, processed by a bounded worker pool.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	workers  int

	mu      sync.Mutex
	pending map[string]EventKind
	timer   *time.Timer

	events chan Event
	errors chan error
	done   chan struct{}
}

// New creates a Watcher over roots with the given debounce window and
// worker pool size (defaults: 500ms, 4 workers).
func New(roots []string, debounce time.Duration, workers int) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// fsnotify watches are not recursive; register every directory under
	// each root up front, and pick up new ones from Create events.
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil || !d.IsDir() {
				return nil
			}
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return fsw.Add(path)
		})
		if err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}

	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	if workers <= 0 {
		workers = 4
	}

	return &Watcher{
		fsw:      fsw,
		debounce: debounce,
		workers:  workers,
		pending:  make(map[string]EventKind),
		events:   make(chan Event, 256),
		errors:   make(chan error, 16),
		done:     make(chan struct{}),
	}, nil
}

// Events returns the coalesced, debounced event stream.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns fsnotify errors encountered while watching.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Run consumes raw fsnotify notifications until ctx is canceled or Close
// is called. It should be run in its own goroutine.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.events)
	defer close(w.errors)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.coalesce(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

// coalesce folds a raw fsnotify event into the pending map and (re)arms
// the debounce timer. The latest event for a path wins the window.
func (w *Watcher) coalesce(ev fsnotify.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	path := filepath.Clean(ev.Name)

	switch {
	case ev.Op&fsnotify.Remove != 0, ev.Op&fsnotify.Rename != 0:
		// A rename reaches us as Rename on the old path and Create on
		// the new one, so both halves of delete-then-create are covered.
		w.pending[path] = EventRemove
	case ev.Op&fsnotify.Create != 0, ev.Op&fsnotify.Write != 0:
		if info, err := os.Lstat(path); err == nil && info.IsDir() {
			if !skipDirs[filepath.Base(path)] {
				_ = w.fsw.Add(path)
			}
			return
		}
		w.pending[path] = EventReindex
	default:
		// Chmod and other metadata-only events don't change content.
		return
	}

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

// flush drains the pending map onto the Events channel. The latest event
// per path within the window wins.
func (w *Watcher) flush() {
	w.mu.Lock()
	batch := w.pending
	w.pending = make(map[string]EventKind)
	w.mu.Unlock()

	for path, kind := range batch {
		select {
		case w.events <- Event{Path: path, Kind: kind}:
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher and releases the underlying fsnotify handle.
func (w *Watcher) Close() error {
	select {
	case <-w.done:
	default:
		close(w.done)
	}
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.fsw.Close()
}
