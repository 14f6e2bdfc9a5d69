package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors the configuration file for on-disk changes. The running
// configuration is immutable, so a change only produces a log notice telling
// the operator a restart is needed to apply it.
type Watcher struct {
	configPath string
	watcher    *fsnotify.Watcher
	debounce   time.Duration
}

// NewWatcher creates a watcher for the given configuration file.
func NewWatcher(configPath string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	// Watch the directory; editors commonly replace the file on save.
	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	return &Watcher{
		configPath: absPath,
		watcher:    fsw,
		debounce:   2 * time.Second,
	}, nil
}

// Run blocks until the context is canceled, logging a notice whenever the
// configuration file changes on disk.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	var lastNotice time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name != w.configPath {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if time.Since(lastNotice) < w.debounce {
				continue
			}
			lastNotice = time.Now()
			slog.Info("Configuration file changed on disk; restart to apply",
				slog.String("path", w.configPath))
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("Config watcher error", slog.String("error", err.Error()))
		}
	}
}
