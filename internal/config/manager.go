package config

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Manager handles configuration loading and hot-reload.
// It uses atomic pointer swaps to ensure thread-safe config updates.
type Manager struct {
	config   atomic.Pointer[Config]
	path     string
	watcher  *fsnotify.Watcher
	onChange []func(*Config)
	logger   *slog.Logger
}

// NewManager creates a new configuration manager.
func NewManager(path string, logger *slog.Logger) (*Manager, error) {
	cfg, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		path:   path,
		logger: logger,
	}
	m.config.Store(cfg)

	return m, nil
}

// Get returns the current configuration.
// This is safe to call concurrently from multiple goroutines.
func (m *Manager) Get() *Config {
	return m.config.Load()
}

// OnChange registers a callback to be invoked when configuration changes.
func (m *Manager) OnChange(fn func(*Config)) {
	m.onChange = append(m.onChange, fn)
}

// Watch starts watching the configuration file for changes.
// It debounces rapid changes and reloads configuration atomically.
func (m *Manager) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	m.watcher = watcher

	if err := watcher.Add(m.path); err != nil {
		_ = watcher.Close()
		return err
	}

	go m.watchLoop(ctx)
	return nil
}

func (m *Manager) watchLoop(ctx context.Context) {
	// Debounce timer to avoid rapid reloads
	const debounceDelay = 500 * time.Millisecond
	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			_ = m.watcher.Close()
			return

		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				// Reset debounce timer
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDelay, func() {
					m.reload()
				})
			}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Error("config watcher error", "error", err)
		}
	}
}

// Reload re-reads the configuration file immediately. On error the
// current configuration is kept.
func (m *Manager) Reload() error {
	newCfg, err := LoadFromFile(m.path)
	if err != nil {
		return err
	}
	m.swap(newCfg)
	return nil
}

func (m *Manager) reload() {
	newCfg, err := LoadFromFile(m.path)
	if err != nil {
		m.logger.Error("failed to reload config, keeping current",
			"error", err,
		)
		return
	}
	m.swap(newCfg)
}

func (m *Manager) swap(newCfg *Config) {
	oldCfg := m.config.Swap(newCfg)
	m.logger.Info("configuration reloaded successfully")

	if oldCfg != nil {
		if requiresRestart(oldCfg, newCfg) {
			m.logger.Warn("server or provider settings changed; these take effect on restart")
		}
		for id, enabled := range toggledRules(oldCfg.RuleFlags(), newCfg.RuleFlags()) {
			m.logger.Info("trigger rule toggled", "rule", id, "enabled", enabled)
		}
	}

	// Notify listeners
	for _, fn := range m.onChange {
		fn(newCfg)
	}
}

// requiresRestart reports whether a reload touched settings that only the
// startup path applies. The swap still happens so hot-reloadable sections
// (rule flags in particular) go through.
func requiresRestart(oldCfg, newCfg *Config) bool {
	if oldCfg.Server != newCfg.Server {
		return true
	}
	op, np := oldCfg.Provider, newCfg.Provider
	return op.Name != np.Name || op.Type != np.Type || op.APIKey != np.APIKey ||
		op.BaseURL != np.BaseURL || op.Model != np.Model || op.Timeout != np.Timeout
}

// toggledRules returns the enabled flag for every rule whose state differs
// between two flag sets. Rules added or removed count as toggled.
func toggledRules(oldFlags, newFlags map[string]bool) map[string]bool {
	diff := make(map[string]bool)
	for id, enabled := range newFlags {
		if prev, ok := oldFlags[id]; !ok || prev != enabled {
			diff[id] = enabled
		}
	}
	for id := range oldFlags {
		if _, ok := newFlags[id]; !ok {
			diff[id] = false
		}
	}
	return diff
}

// Path returns the watched configuration file path.
func (m *Manager) Path() string {
	return m.path
}

// Close stops the configuration watcher.
func (m *Manager) Close() error {
	if m.watcher != nil {
		return m.watcher.Close()
	}
	return nil
}
