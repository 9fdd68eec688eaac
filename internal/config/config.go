// Package config provides configuration management with hot-reload support.
// It uses fsnotify to watch for file changes and atomic pointer swaps for
// zero-downtime updates.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/emberfit/coach/caches/redis"
	"github.com/emberfit/coach/internal/trigger"
)

// Config represents the complete coach service configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Provider      ProviderConfig      `yaml:"provider"`
	Session       SessionConfig       `yaml:"session"`
	Cache         CacheConfig         `yaml:"cache"`
	Orchestrator  OrchestratorConfig  `yaml:"orchestrator"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Logging       LoggingConfig       `yaml:"logging"`
	Metrics       MetricsConfig       `yaml:"metrics"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// ProviderConfig defines the completion backend.
type ProviderConfig struct {
	Name    string            `yaml:"name"`
	Type    string            `yaml:"type"`
	APIKey  string            `yaml:"api_key"`
	BaseURL string            `yaml:"base_url"`
	Model   string            `yaml:"model"`
	Timeout time.Duration     `yaml:"timeout"`
	Headers map[string]string `yaml:"headers"`
}

// SessionConfig controls the in-memory conversation store.
type SessionConfig struct {
	MaxHistory    int           `yaml:"max_history"`
	Expiry        time.Duration `yaml:"expiry"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// CacheConfig controls the response cache.
type CacheConfig struct {
	MaxEntries    int           `yaml:"max_entries"`
	TTL           time.Duration `yaml:"ttl"`
	MinConfidence float64       `yaml:"min_confidence"`

	RedisEnabled bool         `yaml:"redis_enabled"`
	Redis        redis.Config `yaml:"redis"`
}

// OrchestratorConfig controls completion retries and timeouts.
type OrchestratorConfig struct {
	MaxRetries     int           `yaml:"max_retries"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// NotificationsConfig controls the trigger evaluator.
type NotificationsConfig struct {
	DailyCap int              `yaml:"daily_cap"`
	DND      []trigger.Window `yaml:"dnd"`
	Rules    []trigger.Rule   `yaml:"rules"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Session: SessionConfig{
			MaxHistory:    50,
			Expiry:        30 * time.Minute,
			SweepInterval: 5 * time.Minute,
		},
		Cache: CacheConfig{
			MaxEntries:    500,
			TTL:           time.Hour,
			MinConfidence: 0.7,
			Redis:         redis.DefaultConfig(),
		},
		Orchestrator: OrchestratorConfig{
			MaxRetries:     3,
			RequestTimeout: 30 * time.Second,
		},
		Notifications: NotificationsConfig{
			DailyCap: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// LoadFromFile reads and parses a YAML configuration file.
// Environment variables in the format ${VAR_NAME} are expanded.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Provider.Name == "" {
		return fmt.Errorf("provider: name is required")
	}
	if c.Provider.Type == "" {
		return fmt.Errorf("provider %q: type is required", c.Provider.Name)
	}
	if c.Provider.APIKey == "" {
		return fmt.Errorf("provider %q: api_key is required", c.Provider.Name)
	}
	if c.Provider.Timeout < 0 {
		return fmt.Errorf("provider %q: timeout cannot be negative", c.Provider.Name)
	}

	if c.Session.MaxHistory <= 0 {
		return fmt.Errorf("session.max_history must be positive")
	}
	if c.Session.Expiry <= 0 {
		return fmt.Errorf("session.expiry must be positive")
	}

	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be positive")
	}
	if c.Cache.MinConfidence < 0 || c.Cache.MinConfidence > 1 {
		return fmt.Errorf("cache.min_confidence must be in [0, 1]")
	}

	if c.Orchestrator.MaxRetries < 0 {
		return fmt.Errorf("orchestrator.max_retries cannot be negative")
	}

	if c.Notifications.DailyCap < 0 {
		return fmt.Errorf("notifications.daily_cap cannot be negative")
	}
	for i := range c.Notifications.Rules {
		rule := &c.Notifications.Rules[i]
		if rule.ID == "" {
			return fmt.Errorf("notifications.rules[%d]: id is required", i)
		}
		if err := rule.Condition.Validate(); err != nil {
			return fmt.Errorf("notifications.rules[%d] %q: %w", i, rule.ID, err)
		}
	}

	return nil
}

// RuleFlags returns the enabled flag per rule id, for pushing a reloaded
// configuration into a running trigger evaluator.
func (c *Config) RuleFlags() map[string]bool {
	flags := make(map[string]bool, len(c.Notifications.Rules))
	for _, rule := range c.Notifications.Rules {
		flags[rule.ID] = rule.Enabled
	}
	return flags
}
