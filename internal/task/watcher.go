package task

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce collapses the burst of events editors produce on save.
const DefaultDebounce = 300 * time.Millisecond

// Watcher reports changes to a task file.
type Watcher struct {
	logger   *zap.Logger
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
}

// NewWatcher creates a watcher for the task file at path.
// The parent directory is watched so rename-on-save editors are seen too.
func NewWatcher(logger *zap.Logger, path string, debounce time.Duration) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{logger: logger, path: abs, debounce: debounce, watcher: w}, nil
}

// Run delivers one value on changes for every settled burst of writes to the file,
// until ctx is cancelled. The returned channel is closed when Run exits.
func (w *Watcher) Run(ctx context.Context) <-chan struct{} {
	out := make(chan struct{}, 1)

	go func() {
		defer close(out)
		defer w.watcher.Close()

		var timer *time.Timer
		var fire <-chan time.Time

		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return

			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != w.path {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				w.logger.Debug("task file event", zap.String("op", event.Op.String()))
				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(w.debounce)
				fire = timer.C

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("task file watcher error", zap.Error(err))

			case <-fire:
				fire = nil
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()

	return out
}
