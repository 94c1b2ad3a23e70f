// Package watch monitors a submissions directory and reports which team
// folders changed, debouncing the rapid event bursts editors produce.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long a path must stay quiet before its change
// is reported.
const DefaultDebounce = 500 * time.Millisecond

// ChangeFunc receives the team folder name whose submission changed.
type ChangeFunc func(team string)

// Watcher watches root/<team>/*.go for create, write, remove, and rename
// events. fsnotify does not recurse, so team subdirectories are added to
// the watch set individually, including ones created while running.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	root     string
	onChange ChangeFunc
	logger   *zap.Logger

	debounce map[string]time.Time
	settle   time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

// New builds a watcher over the submissions root. onChange fires once per
// settled change, on the watcher goroutine.
func New(root string, onChange ChangeFunc, logger *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		watcher:  fw,
		root:     root,
		onChange: onChange,
		logger:   logger,
		debounce: make(map[string]time.Time),
		settle:   DefaultDebounce,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// SetDebounce overrides the settle window. Call before Start.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.settle = d
}

// Start begins watching. Non-blocking; the event loop runs in a goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.root); err != nil {
		return err
	}
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(w.root, entry.Name())
		if err := w.watcher.Add(dir); err != nil {
			w.logger.Warn("watch add failed", zap.String("dir", dir), zap.Error(err))
		}
	}
	w.logger.Info("watching submissions", zap.String("root", w.root))

	go w.run(ctx)
	return nil
}

// Stop halts the event loop and closes the underlying watcher.
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
		w.logger.Error("watcher close failed", zap.Error(err))
	}
}

// Running reports whether the event loop is active.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
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
			w.logger.Error("watch error", zap.Error(err))
		case <-ticker.C:
			w.flushSettled()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	const ops = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename
	if event.Op&ops == 0 {
		return
	}

	// A new team folder appears as a Create directly under the root.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if filepath.Dir(event.Name) == w.root {
				if err := w.watcher.Add(event.Name); err != nil {
					w.logger.Warn("watch add failed", zap.String("dir", event.Name), zap.Error(err))
				}
			}
			return
		}
	}
	if !strings.HasSuffix(event.Name, ".go") {
		return
	}
	team := w.teamFor(event.Name)
	if team == "" {
		return
	}
	w.logger.Debug("submission event",
		zap.String("op", event.Op.String()),
		zap.String("file", event.Name))
	w.mu.Lock()
	w.debounce[team] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) flushSettled() {
	now := time.Now()
	var settled []string
	w.mu.Lock()
	for team, at := range w.debounce {
		if now.Sub(at) >= w.settle {
			settled = append(settled, team)
			delete(w.debounce, team)
		}
	}
	w.mu.Unlock()

	for _, team := range settled {
		w.logger.Info("submission changed", zap.String("team", team))
		if w.onChange != nil {
			w.onChange(team)
		}
	}
}

// teamFor maps an event path to the team folder directly under the root.
func (w *Watcher) teamFor(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}
	parts := strings.Split(rel, string(filepath.Separator))
	if len(parts) < 2 {
		return ""
	}
	return parts[0]
}
