// Package watcher watches source files with fsnotify and reports debounced changes.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hyperjump/jourei/pkg/utils"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher watches a set of files and calls onChange once a burst of writes settles.
// The parent directory of each file is watched rather than the file itself, so
// editors that save by renaming a temp file over the original are still seen.
type Watcher struct {
	files    map[string]bool
	dirs     []string
	onChange func(path string)
	debounce time.Duration
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	timers   map[string]*time.Timer
	// running serializes callbacks: a change during a callback re-runs it afterwards.
	running  map[string]bool
	pending  map[string]bool
	done     chan struct{}
	started  bool
	stopOnce sync.Once
	logger   *zap.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = utils.LoggerOrNop(l) }
}

// WithDebounce sets how long a file must stay quiet before onChange fires.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher for files. Paths are made absolute.
func NewWatcher(files []string, onChange func(path string), opts ...Option) (*Watcher, error) {
	w := &Watcher{
		files:    make(map[string]bool, len(files)),
		onChange: onChange,
		debounce: defaultDebounce,
		timers:   make(map[string]*time.Timer),
		running:  make(map[string]bool),
		pending:  make(map[string]bool),
		done:     make(chan struct{}),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	seen := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", f, err)
		}
		w.files[abs] = true
		dir := filepath.Dir(abs)
		if !seen[dir] {
			seen[dir] = true
			w.dirs = append(w.dirs, dir)
		}
	}
	return w, nil
}

// Start begins watching. It runs until ctx is cancelled or Stop is called.
// The watched directories must exist.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	for _, dir := range w.dirs {
		if _, err := os.Stat(dir); err != nil {
			_ = fw.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	w.watcher = fw
	w.started = true
	w.logger.Debug("Watcher starting", zap.Strings("dirs", w.dirs), zap.Int("files", len(w.files)))
	go w.run(ctx, fw)
	return nil
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Debug("Watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if !w.files[path] {
		return
	}
	w.logger.Debug("Watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) {
		w.schedule(path)
		return
	}
	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		// Wait for the file to come back; a rename-over save shows up as Create next.
		w.cancel(path)
	}
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() { w.fire(path) })
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
		delete(w.timers, path)
	}
}

func (w *Watcher) fire(path string) {
	w.mu.Lock()
	delete(w.timers, path)
	if !w.started {
		w.mu.Unlock()
		return
	}
	if w.running[path] {
		w.pending[path] = true
		w.mu.Unlock()
		return
	}
	w.running[path] = true
	w.mu.Unlock()

	for {
		w.logger.Debug("Watcher change settled", zap.String("path", path))
		if w.onChange != nil {
			w.onChange(path)
		}
		w.mu.Lock()
		if !w.pending[path] || !w.started {
			delete(w.pending, path)
			delete(w.running, path)
			w.mu.Unlock()
			return
		}
		delete(w.pending, path)
		w.mu.Unlock()
	}
}

// Files returns the watched file paths.
func (w *Watcher) Files() []string {
	out := make([]string, 0, len(w.files))
	for f := range w.files {
		out = append(out, f)
	}
	return out
}

// Stop stops the watcher and cancels pending callbacks. A callback already
// running is allowed to finish.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
