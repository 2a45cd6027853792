package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// waitPollInterval is the fallback cadence when the parent directory cannot
// be watched (e.g. it does not exist yet).
const waitPollInterval = time.Second

// Wait blocks until the configuration document exists, then returns its
// loaded form. While the document is absent the daemon idles and performs no
// network action. The parent directory is watched when possible; a slow poll
// covers filesystems where fsnotify cannot.
func Wait(ctx context.Context, configPath string) (*Config, error) {
	if cfg, err := Load(configPath); err == nil {
		return cfg, nil
	}

	slog.Info("Configuration document not found, waiting for setup to produce it", "path", configPath)

	var watchEvents chan fsnotify.Event
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		defer watcher.Close()
		if addErr := watcher.Add(filepath.Dir(configPath)); addErr == nil {
			watchEvents = make(chan fsnotify.Event)
			go func() {
				for {
					select {
					case ev, ok := <-watcher.Events:
						if !ok {
							return
						}
						select {
						case watchEvents <- ev:
						case <-ctx.Done():
							return
						}
					case <-watcher.Errors:
					case <-ctx.Done():
						return
					}
				}
			}()
		}
	}

	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case ev := <-watchEvents:
			if filepath.Clean(ev.Name) != filepath.Clean(configPath) {
				continue
			}
		case <-ticker.C:
		}

		if _, statErr := os.Stat(configPath); statErr != nil {
			continue
		}
		cfg, loadErr := Load(configPath)
		if loadErr != nil {
			// Document appeared but is unreadable or invalid; the wizard may
			// still be writing it. Keep waiting.
			slog.Warn("Configuration document present but not loadable yet", "path", configPath, "error", loadErr)
			continue
		}
		slog.Info("Configuration document loaded", "path", configPath)
		return cfg, nil
	}
}
