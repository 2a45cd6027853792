package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/wolproxy/internal/events"
)

// ConfigWatcher monitors the configuration document and publishes a
// ConfigChanged event when it is rewritten. The daemon answers every change
// with a full teardown and rebuild, so the watcher never parses the file
// itself.
type ConfigWatcher struct {
	configPath   string
	bus          *events.Bus
	watcher      *fsnotify.Watcher
	mu           sync.Mutex
	stopChan     chan struct{}
	changeChan   chan struct{}
	debounceTime time.Duration
	started      bool
}

// NewConfigWatcher creates a watcher for the given configuration file.
func NewConfigWatcher(configPath string, bus *events.Bus) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Resolve absolute path for consistent watching
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	return &ConfigWatcher{
		configPath:   absPath,
		bus:          bus,
		watcher:      watcher,
		stopChan:     make(chan struct{}),
		changeChan:   make(chan struct{}, 1),
		debounceTime: 2 * time.Second, // Debounce rapid file changes
	}, nil
}

// Start begins monitoring the configuration file.
func (cw *ConfigWatcher) Start(ctx context.Context) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if cw.started {
		return nil
	}

	// Watch the directory containing the config file (more reliable than
	// watching the file directly, editors replace files on save)
	configDir := filepath.Dir(cw.configPath)
	if err := cw.watcher.Add(configDir); err != nil {
		return fmt.Errorf("failed to watch config directory %s: %w", configDir, err)
	}

	slog.Info("Starting configuration watcher", "config_path", cw.configPath)

	go cw.watchLoop(ctx)
	go cw.notifyLoop(ctx)
	cw.started = true

	return nil
}

// Stop stops the configuration watcher.
func (cw *ConfigWatcher) Stop() {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if !cw.started {
		return
	}
	cw.started = false

	close(cw.stopChan)
	if err := cw.watcher.Close(); err != nil {
		slog.Error("Error closing file watcher", "error", err)
	}
}

// watchLoop forwards relevant file system events into the debounce channel.
func (cw *ConfigWatcher) watchLoop(ctx context.Context) {
	configFile := filepath.Base(cw.configPath)

	for {
		select {
		case <-ctx.Done():
			return
		case <-cw.stopChan:
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != configFile {
				continue
			}

			switch {
			case event.Op.Has(fsnotify.Write):
				slog.Debug("Config file write detected", "file", event.Name)
				cw.triggerChange()
			case event.Op.Has(fsnotify.Create):
				slog.Debug("Config file create detected", "file", event.Name)
				cw.triggerChange()
			case event.Op.Has(fsnotify.Rename):
				slog.Debug("Config file rename detected", "file", event.Name)
				cw.triggerChange()
			case event.Op.Has(fsnotify.Remove):
				slog.Warn("Config file removed", "file", event.Name)
			}

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Config watcher error", "error", err)
		}
	}
}

// notifyLoop debounces bursts of file events into a single ConfigChanged.
func (cw *ConfigWatcher) notifyLoop(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-cw.stopChan:
			return
		case <-cw.changeChan:
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(cw.debounceTime)
			timerC = timer.C
		case <-timerC:
			timerC = nil
			evt := events.ConfigChanged{Path: cw.configPath, At: time.Now()}
			if err := cw.bus.Publish(ctx, evt); err != nil {
				slog.Error("Failed to publish config change", "error", err)
			}
		}
	}
}

func (cw *ConfigWatcher) triggerChange() {
	select {
	case cw.changeChan <- struct{}{}:
	default:
	}
}
