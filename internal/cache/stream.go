package cache

import (
	"context"
	"strings"
	"time"

	"github.com/emberfit/coach/pkg/types"
)

// streamBuffer accumulates content chunks for one in-flight response.
type streamBuffer struct {
	id        string
	key       string
	category  types.Category
	chunks    []string
	createdAt time.Time
	complete  bool
}

// StreamState is a read-only snapshot of an in-flight stream buffer.
// Confidence is zero until the stream completes.
type StreamState struct {
	ID         string         `json:"id"`
	Key        string         `json:"key"`
	Category   types.Category `json:"category"`
	Content    string         `json:"content"`
	Chunks     int            `json:"chunks"`
	Complete   bool           `json:"complete"`
	Confidence float64        `json:"confidence,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (b *streamBuffer) snapshot() *StreamState {
	return &StreamState{
		ID:        b.id,
		Key:       b.key,
		Category:  b.category,
		Content:   strings.Join(b.chunks, ""),
		Chunks:    len(b.chunks),
		Complete:  b.complete,
		CreatedAt: b.createdAt,
	}
}

// StartStream opens a buffer for an in-flight response. key is the cache
// key the assembled response will be stored under on completion.
func (c *ResponseCache) StartStream(id, key string, category types.Category) *StreamState {
	buf := &streamBuffer{
		id:        id,
		key:       key,
		category:  category,
		createdAt: c.now(),
	}

	c.mu.Lock()
	c.streams[id] = buf
	c.mu.Unlock()

	return buf.snapshot()
}

// AppendChunk appends content to an open stream buffer. Returns nil for an
// unknown or completed stream id rather than an error.
func (c *ResponseCache) AppendChunk(id, text string) *StreamState {
	c.mu.Lock()
	defer c.mu.Unlock()

	buf, ok := c.streams[id]
	if !ok || buf.complete {
		return nil
	}
	buf.chunks = append(buf.chunks, text)
	return buf.snapshot()
}

// CompleteStream marks the buffer complete, converts it into a cache entry
// at the default stream confidence (subject to the usual confidence gate),
// and discards the buffer. Returns nil for an unknown stream id.
func (c *ResponseCache) CompleteStream(ctx context.Context, id string) *StreamState {
	c.mu.Lock()
	buf, ok := c.streams[id]
	if ok {
		buf.complete = true
		delete(c.streams, id)
	}
	c.mu.Unlock()

	if !ok {
		return nil
	}

	state := buf.snapshot()
	state.Confidence = c.streamConfidence
	resp := &types.Response{
		ID:         id,
		Content:    state.Content,
		Category:   buf.category,
		Confidence: state.Confidence,
		CreatedAt:  c.now(),
	}
	c.Set(ctx, buf.key, resp, 0)

	return state
}

// CancelStream discards an in-flight buffer without caching anything.
func (c *ResponseCache) CancelStream(id string) {
	c.mu.Lock()
	delete(c.streams, id)
	c.mu.Unlock()
}
