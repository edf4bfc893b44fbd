// Package configwatch watches config files and invokes callbacks when they
// change. It watches the parent directory rather than the file itself so
// atomic-rename saves (the common editor behavior) are still observed, and
// debounces bursts of events from a single save.
package configwatch

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 250 * time.Millisecond

// Watcher dispatches change callbacks for registered files.
type Watcher struct {
	fsw      *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration

	mu      sync.Mutex
	entries map[string]*watchEntry // keyed by absolute file path
	dirs    map[string]bool
}

type watchEntry struct {
	cb    func(path string)
	timer *time.Timer
}

// New creates a Watcher.
func New(logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsw:      fsw,
		logger:   logger,
		debounce: defaultDebounce,
		entries:  make(map[string]*watchEntry),
		dirs:     make(map[string]bool),
	}, nil
}

// Watch registers a file. The callback fires after the file changes, once the
// debounce window has passed without further events.
func (w *Watcher) Watch(path string, cb func(path string)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.dirs[dir] {
		if err := w.fsw.Add(dir); err != nil {
			return err
		}
		w.dirs[dir] = true
	}
	w.entries[abs] = &watchEntry{cb: cb}
	return nil
}

// Run processes events until the context is cancelled. It blocks, so call it
// in a goroutine.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.fileChanged(ev.Name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watch error", "error", err)
		}
	}
}

func (w *Watcher) fileChanged(name string) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.entries[abs]
	if !ok {
		return
	}

	// Restart the debounce timer; only the last event in a burst fires.
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(w.debounce, func() {
		w.logger.Info("config file changed", "path", abs)
		e.cb(abs)
	})
}
