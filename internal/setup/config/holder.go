package config

import (
	"fmt"
	"sync"

	"github.com/knadh/koanf/providers/file"
	"go.uber.org/zap"
)

// Holder provides concurrent access to the live configuration. Readers take a
// snapshot with Get; Reload swaps in a freshly loaded config.
type Holder struct {
	mu       sync.RWMutex
	config   *Config
	dir      string
	paths    []string
	watchers []*file.File
	logger   *zap.Logger
}

// NewHolder wraps a loaded config. The search paths are reused on reload.
func NewHolder(config *Config, dir string, paths []string, logger *zap.Logger) *Holder {
	return &Holder{
		config: config,
		dir:    dir,
		paths:  paths,
		logger: logger.Named("config"),
	}
}

// Get returns the current config. The returned value must not be modified.
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.config
}

// Dir returns the directory the config was loaded from.
func (h *Holder) Dir() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dir
}

// Reload reads the config files again and replaces the current config.
// The current config is kept if loading fails.
func (h *Holder) Reload() error {
	config, dir, err := LoadConfigFrom(h.paths)
	if err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}

	h.mu.Lock()
	h.config = config
	h.dir = dir
	h.mu.Unlock()

	h.logger.Info("Reloaded config", zap.String("dir", dir))
	return nil
}

// Watch reloads the config whenever one of the loaded files changes.
// Each file is watched where it was resolved, which need not be Dir.
func (h *Holder) Watch() error {
	files, err := ResolveFiles(h.paths)
	if err != nil {
		return err
	}

	for _, path := range files {
		provider := file.Provider(path)

		err := provider.Watch(func(_ any, err error) {
			if err != nil {
				h.logger.Error("Config watcher failed", zap.String("path", path), zap.Error(err))
				return
			}

			if err := h.Reload(); err != nil {
				h.logger.Error("Failed to apply changed config", zap.String("path", path), zap.Error(err))
			}
		})
		if err != nil {
			h.Close()
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}

		h.mu.Lock()
		h.watchers = append(h.watchers, provider)
		h.mu.Unlock()
	}

	h.logger.Info("Watching config files", zap.Strings("files", files))
	return nil
}

// Close stops all file watchers.
func (h *Holder) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, watcher := range h.watchers {
		_ = watcher.Unwatch()
	}
	h.watchers = nil
}
