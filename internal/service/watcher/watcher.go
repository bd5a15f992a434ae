// Package watcher forwards filesystem changes in the image folder to the reconciler.
package watcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"

	"slideshow/internal/logger"
	"slideshow/internal/service/reconcile"
)

// EventHandler receives one filtered change at a time.
type EventHandler interface {
	HandleEvent(ctx context.Context, path string, kind reconcile.EventKind)
}

// Watcher observes a single folder at a time. Watch can be called again to move it.
type Watcher struct {
	handler EventHandler
	logger  *logger.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	folder  string
	stopped chan struct{}
}

func New(handler EventHandler, logger *logger.Logger) *Watcher {
	return &Watcher{handler: handler, logger: logger}
}

// Watch starts observing folder, replacing any previous watch.
func (w *Watcher) Watch(folder string) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(folder); err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch %s: %w", folder, err)
	}

	w.mu.Lock()
	w.stopLocked()
	w.fsw = fsw
	w.folder = folder
	w.stopped = make(chan struct{})
	stopped := w.stopped
	w.mu.Unlock()

	go w.loop(fsw, stopped)
	w.logger.Info("Watching %s for changes", folder)
	return nil
}

// Folder returns the folder currently watched, or "".
func (w *Watcher) Folder() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.folder
}

func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopLocked()
	return nil
}

func (w *Watcher) stopLocked() {
	if w.fsw == nil {
		return
	}
	w.fsw.Close()
	<-w.stopped
	w.fsw = nil
	w.folder = ""
}

func (w *Watcher) loop(fsw *fsnotify.Watcher, stopped chan struct{}) {
	defer close(stopped)
	ctx := context.Background()

	for {
		select {
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if kind, ok := kindOf(ev.Op); ok {
				w.handler.HandleEvent(ctx, ev.Name, kind)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warning("Watcher error: %v", err)
		}
	}
}

func kindOf(op fsnotify.Op) (reconcile.EventKind, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return reconcile.Created, true
	case op.Has(fsnotify.Remove):
		return reconcile.Removed, true
	case op.Has(fsnotify.Rename):
		return reconcile.Renamed, true
	}
	return "", false
}
