// Package watcher triggers reloads when configuration files change on disk.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the bursts of events editors produce on save.
const DefaultDebounce = 500 * time.Millisecond

// Operation is the net effect of a burst of events on a watched file.
type Operation int

// File operation types.
const (
	OpWrite Operation = iota
	OpRemove
)

// String returns the string representation of the operation.
func (o Operation) String() string {
	switch o {
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Event describes a settled change of a watched file.
type Event struct {
	Path      string
	Operation Operation
}

// Handler is called once per settled change.
type Handler func(ctx context.Context, event Event) error

// ReloadHandler adapts a Reload method to a Handler. Removals are ignored so
// the last good content stays loaded until the file comes back.
func ReloadHandler(reload func() error) Handler {
	return func(_ context.Context, e Event) error {
		if e.Operation == OpRemove {
			return nil
		}
		return reload()
	}
}

// Config holds watcher configuration.
type Config struct {
	Files    []string
	Debounce time.Duration
}

// Watcher watches individual files. The parent directories are watched so
// that files replaced by rename (atomic saves) keep being tracked.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	handler   Handler
	logger    *slog.Logger
	debounce  time.Duration
	files     map[string]struct{}

	mu      sync.Mutex
	pending map[string]*time.Timer
	ops     map[string]Operation
	wg      sync.WaitGroup
}

// New creates a watcher for the given files.
func New(cfg Config, handler Handler, logger *slog.Logger) (*Watcher, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	files := make(map[string]struct{}, len(cfg.Files))
	for _, f := range cfg.Files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("watch path %s: %w", f, err)
		}
		files[abs] = struct{}{}
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		handler:   handler,
		logger:    logger.With("component", "watcher"),
		debounce:  cfg.Debounce,
		files:     files,
		pending:   make(map[string]*time.Timer),
		ops:       make(map[string]Operation),
	}, nil
}

// Start begins watching. It returns once the directories are registered; events
// are processed until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	dirs := make(map[string]struct{})
	for f := range w.files {
		dirs[filepath.Dir(f)] = struct{}{}
	}
	for dir := range dirs {
		if err := w.fsWatcher.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
		w.logger.Info("watching directory", "path", dir)
	}

	go w.eventLoop(ctx)
	return nil
}

// Stop stops the watcher and waits for running handlers.
func (w *Watcher) Stop() error {
	err := w.fsWatcher.Close()

	w.mu.Lock()
	for path, t := range w.pending {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
	w.mu.Unlock()

	w.wg.Wait()
	return err
}

func (w *Watcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleFsEvent(ctx, event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleFsEvent(ctx context.Context, event fsnotify.Event) {
	path, err := filepath.Abs(event.Name)
	if err != nil {
		return
	}
	if _, ok := w.files[path]; !ok {
		return
	}

	w.logger.Debug("file event", "path", path, "op", event.Op.String())
	w.schedule(ctx, path, toOperation(event.Op))
}

// schedule (re)arms the debounce timer of path. The last operation of a
// burst wins, so remove-then-create settles as a write.
func (w *Watcher) schedule(ctx context.Context, path string, op Operation) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.ops[path] = op
	if t, ok := w.pending[path]; ok && t.Stop() {
		w.wg.Done()
	}

	w.wg.Add(1)
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()
		w.fire(ctx, path)
	})
}

func (w *Watcher) fire(ctx context.Context, path string) {
	w.mu.Lock()
	op := w.ops[path]
	delete(w.pending, path)
	delete(w.ops, path)
	w.mu.Unlock()

	if ctx.Err() != nil {
		return
	}

	w.logger.Info("file changed", "path", path, "operation", op.String())
	if err := w.handler(ctx, Event{Path: path, Operation: op}); err != nil {
		w.logger.Error("reload failed", "path", path, "operation", op.String(), "error", err)
	}
}

func toOperation(op fsnotify.Op) Operation {
	if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
		return OpRemove
	}
	return OpWrite
}
