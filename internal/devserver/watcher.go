package devserver

import (
	"context"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/jant/site/internal/logging"
	"github.com/jant/site/internal/pipeline"
)

const defaultDebounce = 150 * time.Millisecond

// Change maps environment names to the inputs of that environment that
// changed since the last callback.
type Change map[string][]string

func (c Change) Environments() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type ChangeHandler func(ctx context.Context, change Change)

// Watcher watches the inputs of a set of environments and reports debounced
// batches of changes.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	inputs   map[string][]string
	dirs     []string
	handler  ChangeHandler
	logger   *zap.Logger
	debounce time.Duration
	pending  Change
	lastSeen time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

func NewWatcher(envs []pipeline.Environment, handler ChangeHandler, logger *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	inputs := make(map[string][]string)
	seenDirs := make(map[string]bool)
	var dirs []string
	for _, env := range envs {
		for _, input := range env.Inputs {
			clean := filepath.Clean(input)
			inputs[clean] = append(inputs[clean], env.Name)
			dir := filepath.Dir(clean)
			if !seenDirs[dir] {
				seenDirs[dir] = true
				dirs = append(dirs, dir)
			}
		}
	}
	sort.Strings(dirs)

	return &Watcher{
		watcher:  fw,
		inputs:   inputs,
		dirs:     dirs,
		handler:  handler,
		logger:   logging.OrNop(logger).Named("watch"),
		debounce: defaultDebounce,
		pending:  make(Change),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	w.debounce = d
	w.mu.Unlock()
}

// Start adds the input directories and runs the event loop in a goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	for _, dir := range w.dirs {
		if err := w.watcher.Add(dir); err != nil {
			w.logger.Warn("cannot watch directory", zap.String("dir", dir), zap.Error(err))
			continue
		}
		w.logger.Debug("watching", zap.String("dir", dir))
	}

	go w.run(ctx)
	return nil
}

// Stop ends the event loop and waits for it to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		w.logger.Warn("failed to close watcher", zap.Error(err))
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(25 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
		return
	}

	path := filepath.Clean(event.Name)
	envs, ok := w.inputs[path]
	if !ok {
		return
	}

	w.mu.Lock()
	for _, env := range envs {
		if !slices.Contains(w.pending[env], path) {
			w.pending[env] = append(w.pending[env], path)
		}
	}
	w.lastSeen = time.Now()
	w.mu.Unlock()

	w.logger.Debug("input changed", zap.String("path", path), zap.Strings("environments", envs))
}

func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	if len(w.pending) == 0 || time.Since(w.lastSeen) < w.debounce {
		w.mu.Unlock()
		return
	}
	change := w.pending
	w.pending = make(Change)
	w.mu.Unlock()

	w.handler(ctx, change)
}
