// Package cache provides a content-addressed cache of coaching responses,
// keyed by a deterministic hash of the resolved prompt. It supports
// confidence-gated writes, TTL plus LRU eviction, in-progress streaming
// buffers, and an optional byte-level second-tier store.
package cache

import (
	"context"
	"time"

	"github.com/emberfit/coach/pkg/types"
)

// Entry is a stored, reusable coaching response.
type Entry struct {
	Key      string          `json:"key"`
	Response *types.Response `json:"response"`

	InsertedAt time.Time `json:"inserted_at"`
	ExpiresAt  time.Time `json:"expires_at"`

	// Access bookkeeping, used for LRU eviction and statistics. Updated
	// on every Get; this is an observable side effect of reads.
	LastAccess  time.Time `json:"last_access"`
	AccessCount int64     `json:"access_count"`
}

// Stats holds cache statistics for monitoring.
type Stats struct {
	EntryCount           int     `json:"entry_count"`
	AverageConfidence    float64 `json:"average_confidence"`
	TotalTokensCached    int     `json:"total_tokens_cached"`
	ActiveStreams        int     `json:"active_streams"`
	HitRate              float64 `json:"hit_rate"`
	ApproximateSizeBytes int64   `json:"approximate_size_bytes"`
}

// Store is an optional byte-level second-tier backend (e.g. Redis). The
// in-memory tier consults it on miss and writes through on Set.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get retrieves a value. Returns nil, nil when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the store.
	Close() error
}
