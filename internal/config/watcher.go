package config

import (
	"context"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/turtacn/Vigil/pkg/consts"
	"github.com/turtacn/Vigil/pkg/logger"
)

// Watcher reloads the config file when it changes on disk and hands the
// fresh snapshot to every registered handler. The parent directory is
// watched so editors that replace the file are still seen.
type Watcher struct {
	path     string
	debounce time.Duration
	onError  func(error)

	mu       sync.RWMutex
	handlers []func(*Snapshot)

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets how long the file must be quiet before it is reloaded.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithErrorHandler sets a callback for reload errors. Errors are always logged.
func WithErrorHandler(h func(error)) WatcherOption {
	return func(w *Watcher) {
		w.onError = h
	}
}

func NewWatcher(path string, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		path:     filepath.Clean(path),
		debounce: consts.DefaultWatchDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// OnReload registers a handler called with each successfully loaded snapshot.
func (w *Watcher) OnReload(h func(*Snapshot)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, h)
}

// Start begins watching until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	w.watcher = fw
	w.cancel = cancel
	w.done = make(chan struct{})

	logger.Log.Info("Config watcher started", "path", w.path, "debounce", w.debounce)
	go w.watch(ctx)
	return nil
}

// Stop ends the watch loop and releases the inotify handle.
func (w *Watcher) Stop() error {
	if w.cancel == nil {
		return nil
	}
	w.cancel()
	<-w.done
	return w.watcher.Close()
}

func (w *Watcher) watch(ctx context.Context) {
	defer close(w.done)

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Log.Debug("Config watcher stopped")
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			logger.Log.Debug("Config file change detected", "op", ev.Op.String())
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			timerC = timer.C

		case <-timerC:
			timerC = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Log.Warn("Config watcher error", "err", err)
		}
	}
}

func (w *Watcher) reload() {
	_, snap, err := Load(w.path)
	if err != nil {
		logger.Log.Warn("Config reload failed, keeping previous snapshot", "path", w.path, "err", err)
		if w.onError != nil {
			w.onError(err)
		}
		return
	}

	w.mu.RLock()
	handlers := slices.Clone(w.handlers)
	w.mu.RUnlock()

	logger.Log.Info("Config file changed, snapshot reloaded", "triggers", len(snap.Triggers()))
	for _, h := range handlers {
		h(snap)
	}
}

// Personal.AI order the ending
