package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces editor save bursts into one reload.
const DefaultDebounce = 200 * time.Millisecond

// ConfigWatcher reloads a config file when it changes on disk.
type ConfigWatcher struct {
	path     string
	debounce time.Duration
	load     func(path string) (*Config, error)
	logger   *slog.Logger
}

// NewConfigWatcher watches path. load defaults to LoadEffectiveConfig.
func NewConfigWatcher(path string, load func(string) (*Config, error)) *ConfigWatcher {
	if load == nil {
		load = LoadEffectiveConfig
	}
	return &ConfigWatcher{
		path:     filepath.Clean(path),
		debounce: DefaultDebounce,
		load:     load,
		logger:   slog.Default().With("component", "config-watch", "path", path),
	}
}

// Watch blocks until ctx is canceled, calling onChange with each config that
// loads and validates. Invalid edits are logged and the previous config stays.
func (w *ConfigWatcher) Watch(ctx context.Context, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	// editors replace files by rename, so watch the directory
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.path, err)
	}

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	reload := func() {
		cfg, err := w.load(w.path)
		if err != nil {
			w.logger.Error("config reload failed", "error", err)
			return
		}
		w.logger.Info("config reloaded", "targets", len(cfg.Targets))
		onChange(cfg)
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	w.logger.Info("watching config")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, reload)
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}
