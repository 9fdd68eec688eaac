package cache

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/emberfit/coach/pkg/types"
)

const (
	// DefaultMaxEntries bounds the in-memory tier.
	DefaultMaxEntries = 500
	// DefaultTTL applies when Set is called without an explicit TTL.
	DefaultTTL = time.Hour
	// DefaultMinConfidence is the write gate: responses below it are
	// never cached.
	DefaultMinConfidence = 0.7
	// DefaultStreamConfidence is assigned to responses assembled from
	// completed stream buffers.
	DefaultStreamConfidence = 0.8
)

// Config holds configuration for the ResponseCache.
type Config struct {
	MaxEntries       int
	DefaultTTL       time.Duration
	MinConfidence    float64 // <= 0 means DefaultMinConfidence
	StreamConfidence float64
	CleanupInterval  time.Duration
	Store            Store // optional second tier, may be nil
	Logger           *slog.Logger
}

// ResponseCache is a thread-safe in-memory response cache with TTL plus
// LRU eviction and confidence-gated writes.
type ResponseCache struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	streams map[string]*streamBuffer

	maxEntries       int
	defaultTTL       time.Duration
	minConfidence    float64
	streamConfidence float64
	store            Store
	logger           *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64

	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	closeOnce     sync.Once

	// now is swappable for tests.
	now func() time.Time
}

// New creates a response cache and starts the background expiry cleanup.
func New(cfg Config) *ResponseCache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultTTL
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = DefaultMinConfidence
	}
	if cfg.StreamConfidence <= 0 {
		cfg.StreamConfidence = DefaultStreamConfidence
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	c := &ResponseCache{
		entries:          make(map[string]*Entry),
		streams:          make(map[string]*streamBuffer),
		maxEntries:       cfg.MaxEntries,
		defaultTTL:       cfg.DefaultTTL,
		minConfidence:    cfg.MinConfidence,
		streamConfidence: cfg.StreamConfidence,
		store:            cfg.Store,
		logger:           cfg.Logger,
		cleanupTicker:    time.NewTicker(cfg.CleanupInterval),
		stopCleanup:      make(chan struct{}),
		now:              time.Now,
	}

	go c.cleanupLoop()

	return c
}

// Get retrieves a cached response. Absent covers both missing and expired
// entries. A hit increments the access counter and refreshes the
// last-accessed time.
func (c *ResponseCache) Get(ctx context.Context, key string) (*types.Response, bool) {
	now := c.now()

	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && now.After(entry.ExpiresAt) {
		delete(c.entries, key)
		ok = false
	}
	if ok {
		entry.AccessCount++
		entry.LastAccess = now
	}
	var resp *types.Response
	if ok {
		resp = copyResponse(entry.Response)
		resp.Cached = true
	}
	c.mu.Unlock()

	if ok {
		c.hits.Add(1)
		return resp, true
	}

	// Second tier lookup.
	if c.store != nil {
		if resp := c.getFromStore(ctx, key, now); resp != nil {
			c.hits.Add(1)
			return resp, true
		}
	}

	c.misses.Add(1)
	return nil, false
}

func (c *ResponseCache) getFromStore(ctx context.Context, key string, now time.Time) *types.Response {
	data, err := c.store.Get(ctx, key)
	if err != nil || data == nil {
		return nil
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Debug("second-tier entry unreadable", "key", key, "error", err)
		return nil
	}
	if now.After(entry.ExpiresAt) || entry.Response == nil {
		return nil
	}

	entry.AccessCount++
	entry.LastAccess = now

	c.mu.Lock()
	c.entries[key] = &entry
	c.evictIfNeeded()
	c.mu.Unlock()

	resp := copyResponse(entry.Response)
	resp.Cached = true
	return resp
}

// Set stores a response. It is a no-op when the response confidence is
// below the configured floor. Inserting past capacity evicts the single
// least-recently-accessed entry.
func (c *ResponseCache) Set(ctx context.Context, key string, resp *types.Response, ttl time.Duration) {
	if resp == nil {
		return
	}
	if resp.Confidence < c.minConfidence {
		c.logger.Debug("response below cache confidence floor",
			"confidence", resp.Confidence, "floor", c.minConfidence)
		return
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	now := c.now()
	entry := &Entry{
		Key:        key,
		Response:   copyResponse(resp),
		InsertedAt: now,
		ExpiresAt:  now.Add(ttl),
		LastAccess: now,
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.evictIfNeeded()
	c.mu.Unlock()

	if c.store != nil {
		if data, err := json.Marshal(entry); err == nil {
			if err := c.store.Set(ctx, key, data, ttl); err != nil {
				c.logger.Debug("second-tier write failed", "error", err)
			}
		}
	}
}

// Delete removes an entry from both tiers.
func (c *ResponseCache) Delete(ctx context.Context, key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	if c.store != nil {
		_ = c.store.Delete(ctx, key)
	}
}

// Cleanup purges expired entries immediately, independent of the lazy
// expiry checks on Get. Returns the number of entries removed.
func (c *ResponseCache) Cleanup() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Stats returns cache statistics.
func (c *ResponseCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Stats{
		EntryCount:    len(c.entries),
		ActiveStreams: len(c.streams),
	}

	var confidenceSum float64
	for _, entry := range c.entries {
		confidenceSum += entry.Response.Confidence
		s.TotalTokensCached += entry.Response.TokensUsed
		s.ApproximateSizeBytes += approximateSize(entry)
	}
	if len(c.entries) > 0 {
		s.AverageConfidence = confidenceSum / float64(len(c.entries))
	}

	hits := c.hits.Load()
	misses := c.misses.Load()
	if total := hits + misses; total > 0 {
		s.HitRate = float64(hits) / float64(total)
	}

	return s
}

// Len returns the number of in-memory entries.
func (c *ResponseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the cleanup goroutine and closes the second tier.
func (c *ResponseCache) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cleanupTicker.Stop()
		close(c.stopCleanup)
		if c.store != nil {
			err = c.store.Close()
		}
	})
	return err
}

func (c *ResponseCache) cleanupLoop() {
	for {
		select {
		case <-c.cleanupTicker.C:
			c.Cleanup()
		case <-c.stopCleanup:
			return
		}
	}
}

// evictIfNeeded removes least-recently-accessed entries while over
// capacity. Must be called with the lock held.
func (c *ResponseCache) evictIfNeeded() {
	for len(c.entries) > c.maxEntries {
		var lruKey string
		var lruTime time.Time
		for key, entry := range c.entries {
			if lruKey == "" || entry.LastAccess.Before(lruTime) {
				lruKey = key
				lruTime = entry.LastAccess
			}
		}
		delete(c.entries, lruKey)
	}
}

func approximateSize(entry *Entry) int64 {
	size := int64(len(entry.Key) + len(entry.Response.Content))
	for _, s := range entry.Response.Suggestions {
		size += int64(len(s))
	}
	return size + 64 // struct overhead estimate
}

func copyResponse(src *types.Response) *types.Response {
	dst := *src
	if src.Suggestions != nil {
		dst.Suggestions = make([]string, len(src.Suggestions))
		copy(dst.Suggestions, src.Suggestions)
	}
	return &dst
}
