// Package watcher keeps the index in step with a source tree using fsnotify, debouncing
// bursts of writes to the same file.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Filter decides which files and directories under root are relevant.
// *scanner.Scanner satisfies it.
type Filter interface {
	Matches(root, path string) bool
	SkipsDir(root, path string) bool
}

// Handler reacts to file changes. Changed and Removed calls are serialized;
// Flush follows each debounced batch and each Sync.
type Handler interface {
	Changed(ctx context.Context, path string) error
	Removed(ctx context.Context, path string) error
	Flush(ctx context.Context) error
}

// Watcher watches one source root and invokes the handler on file changes.
type Watcher struct {
	root     string
	filter   Filter
	handler  Handler
	debounce time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	ctx      context.Context
	pending  map[string]*time.Timer
	started  bool
	done     chan struct{}
	stopOnce sync.Once

	handleMu sync.Mutex
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for watcher events.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce sets how long a file must stay quiet before it is reindexed.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher for root. It does nothing until Start.
func New(root string, filter Filter, handler Handler, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		root:     filepath.Clean(abs),
		filter:   filter,
		handler:  handler,
		debounce: defaultDebounce,
		pending:  make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = zap.NewNop()
	}
	return w, nil
}

// Root returns the absolute watched directory.
func (w *Watcher) Root() string { return w.root }

// Start begins watching. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	info, err := os.Stat(w.root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", w.root)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsw = fsw
	w.ctx = ctx
	if err := w.addTreeLocked(w.root); err != nil {
		_ = fsw.Close()
		w.fsw = nil
		return err
	}
	w.started = true
	w.logger.Debug("watcher starting", zap.String("root", w.root), zap.Duration("debounce", w.debounce))
	go w.run(ctx, fsw)
	return nil
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if !inDir(w.root, path) {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			w.handleNewDirectory(path)
			return
		}
		if w.filter.Matches(w.root, path) {
			w.debounceChange(path)
		}
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		w.cancelPending(path)
		if w.filter.Matches(w.root, path) {
			w.dispatch(path, true)
		}
	}
}

// handleNewDirectory watches a directory that appeared under root and indexes its files.
func (w *Watcher) handleNewDirectory(dir string) {
	if w.filter.SkipsDir(w.root, dir) {
		return
	}
	w.mu.Lock()
	if w.fsw != nil {
		if err := w.addTreeLocked(dir); err != nil {
			w.logger.Debug("watcher failed to add directory", zap.String("path", dir), zap.Error(err))
		}
	}
	ctx := w.ctx
	w.mu.Unlock()
	if ctx == nil {
		return
	}
	if err := w.syncTree(ctx, dir); err != nil {
		w.logger.Warn("sync of new directory failed", zap.String("path", dir), zap.Error(err))
	}
}

func (w *Watcher) addTreeLocked(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.filter.SkipsDir(w.root, path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) debounceChange(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.dispatch(path, false)
	})
}

func (w *Watcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) dispatch(path string, removed bool) {
	w.mu.Lock()
	ctx := w.ctx
	w.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	w.handleMu.Lock()
	defer w.handleMu.Unlock()
	var err error
	if removed {
		err = w.handler.Removed(ctx, path)
	} else {
		err = w.handler.Changed(ctx, path)
	}
	if err != nil {
		w.logger.Warn("reindex failed", zap.String("path", path), zap.Bool("removed", removed), zap.Error(err))
		return
	}
	if err := w.handler.Flush(ctx); err != nil {
		w.logger.Warn("flush failed", zap.String("path", path), zap.Error(err))
	}
}

// Sync passes every matching file under root to the handler, then flushes once.
func (w *Watcher) Sync(ctx context.Context) error {
	return w.syncTree(ctx, w.root)
}

func (w *Watcher) syncTree(ctx context.Context, dir string) error {
	w.handleMu.Lock()
	defer w.handleMu.Unlock()
	n := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != w.root && w.filter.SkipsDir(w.root, path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !w.filter.Matches(w.root, path) {
			return nil
		}
		n++
		return w.handler.Changed(ctx, path)
	})
	if err != nil {
		return err
	}
	w.logger.Debug("watcher synced directory", zap.String("path", dir), zap.Int("files", n))
	return w.handler.Flush(ctx)
}

// Stop stops the watcher and drops pending changes.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	_ = w.fsw.Close()
	w.fsw = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
