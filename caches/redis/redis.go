// Package redis provides a Redis-backed second-tier store for the
// response cache. Useful when several coach processes should share warm
// responses; the in-memory tier remains authoritative for LRU and
// confidence decisions.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Config holds configuration for the Redis store.
type Config struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	Namespace    string        `yaml:"namespace"`
	DefaultTTL   time.Duration `yaml:"default_ttl"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PoolSize     int           `yaml:"pool_size"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Namespace:    "coach",
		DefaultTTL:   time.Hour,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	}
}

// Store implements the cache.Store interface over Redis.
type Store struct {
	client     *goredis.Client
	namespace  string
	defaultTTL time.Duration
}

// New creates a Redis store and verifies connectivity.
func New(cfg Config) (*Store, error) {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = time.Hour
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Store{
		client:     client,
		namespace:  cfg.Namespace,
		defaultTTL: cfg.DefaultTTL,
	}, nil
}

// Get retrieves a value. Returns nil, nil when the key is absent.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.namespaced(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

// Set stores a value with the given TTL.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	if err := s.client.Set(ctx, s.namespaced(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes a key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.namespaced(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close releases the client connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) namespaced(key string) string {
	if s.namespace == "" {
		return key
	}
	return s.namespace + ":" + key
}
