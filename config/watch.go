package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a team definition from disk whenever the file changes,
// debouncing rapid writes the way an editor's save-and-autosave cycle
// produces them.
type Watcher struct {
	path string

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	closed  bool
}

// NewWatcher creates a watcher bound to path. The file isn't read until
// the caller invokes Load/LoadFromString itself or calls Watch, which
// delivers reloaded TeamConfigs on the returned channel.
func NewWatcher(path string) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return &Watcher{path: absPath}, nil
}

// Watch starts watching the config file for changes and returns a channel
// that receives a freshly loaded, validated TeamConfig each time the file
// is written. Parse errors are logged and skipped rather than sent, so a
// transient half-written save doesn't propagate a broken config.
func (w *Watcher) Watch(ctx context.Context) (<-chan *TeamConfig, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, fmt.Errorf("config: watcher is closed")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: create file watcher: %w", err)
	}
	w.watcher = fw

	dir := filepath.Dir(w.path)
	file := filepath.Base(w.path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("config: watch directory %s: %w", dir, err)
	}

	ch := make(chan *TeamConfig, 1)
	go w.loop(ctx, fw, file, ch)

	slog.Info("watching team config file", "path", w.path)
	return ch, nil
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher, file string, ch chan<- *TeamConfig) {
	defer close(ch)
	defer fw.Close()

	var debounce *time.Timer
	const delay = 150 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != file {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(delay, func() { w.reload(ch) })

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			slog.Error("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload(ch chan<- *TeamConfig) {
	cfg, err := Load(w.path)
	if err != nil {
		slog.Warn("config reload failed, keeping previous config", "path", w.path, "error", err)
		return
	}
	select {
	case ch <- cfg:
	default:
		slog.Debug("config reload channel full, dropping stale reload", "path", w.path)
	}
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	if w.watcher != nil {
		err := w.watcher.Close()
		w.watcher = nil
		return err
	}
	return nil
}
