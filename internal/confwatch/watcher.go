// Package confwatch reloads the configuration file when it changes on disk.
package confwatch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Debounce is how long the watcher waits after the last change before
// calling the reload callback. Editors usually write a file in several steps.
const Debounce = 200 * time.Millisecond

// ReloadFunc is called with the watched path after it settled.
type ReloadFunc func(path string) error

// Watch watches path until ctx is cancelled and calls reload after every
// burst of changes. The parent directory is watched so that editors which
// replace the file by rename keep triggering reloads. Reload errors are
// logged and the previous configuration stays in effect.
func Watch(ctx context.Context, path string, logger *slog.Logger, reload ReloadFunc) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("confwatch: resolve %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("confwatch: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("confwatch: watch %s: %w", filepath.Dir(abs), err)
	}
	logger.Info("confwatch: started", slog.String("path", abs))

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(Debounce)
			fire = timer.C
		} else {
			timer.Reset(Debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("confwatch: stopped")
			return nil

		case <-fire:
			if err := reload(abs); err != nil {
				logger.Warn("confwatch: reload failed", slog.String("path", abs), slog.String("error", err.Error()))
				continue
			}
			logger.Info("confwatch: reloaded", slog.String("path", abs))

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("confwatch: error", slog.String("error", watchErr.Error()))
		}
	}
}
