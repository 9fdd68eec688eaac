package coach

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/emberfit/coach/internal/cache"
	"github.com/emberfit/coach/internal/httputil"
	"github.com/emberfit/coach/internal/metrics"
	"github.com/emberfit/coach/internal/prompt"
	"github.com/emberfit/coach/pkg/errors"
	"github.com/emberfit/coach/pkg/types"
)

// ChatStream processes one user message and streams the coaching response
// incrementally. The full completed response is buffered, recorded in the
// session history, and cached when the stream finishes cleanly.
//
// Example:
//
//	stream, err := client.ChatStream(ctx, req)
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//
//	for {
//	    chunk, err := stream.Recv()
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Print(chunk.Choices[0].Delta.Content)
//	}
func (c *Client) ChatStream(ctx context.Context, req *ChatRequest) (*StreamReader, error) {
	if err := validateChatRequest(req); err != nil {
		return nil, err
	}

	if _, err := c.sessions.GetOrCreate(req.UserID, req.SessionID); err != nil {
		return nil, err
	}

	sessCtx, err := c.sessions.AppendMessage(req.SessionID, types.Turn{
		Sender:  types.RoleUser,
		Content: req.Message,
	})
	if err != nil {
		return nil, err
	}

	category := prompt.Classify(req.Message, sessCtx.Topic)

	if n := len(sessCtx.History); n > 0 {
		sessCtx.History = sessCtx.History[:n-1]
	}

	snapshot := c.currentMetrics(ctx, req.UserID)
	messages := prompt.Assemble(category, sessCtx, snapshot, req.Message)
	key := cache.KeyFor(messages, req.UserID, sessCtx.FactorTypes())

	completionReq := &types.CompletionRequest{
		Messages:    messages,
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
		User:        req.UserID,
		Stream:      true,
	}

	httpReq, err := c.provider.BuildRequest(ctx, completionReq)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.NewServiceUnavailableError(c.provider.Name(), err.Error())
	}

	if resp.StatusCode >= 400 {
		body, _ := httputil.ReadLimitedBody(resp.Body, httputil.DefaultMaxResponseBodyBytes)
		resp.Body.Close()
		return nil, c.provider.MapError(resp.StatusCode, body)
	}

	streamID := uuid.NewString()
	c.cache.StartStream(streamID, key, category)

	return newStreamReader(resp.Body, c, streamID, category, req.SessionID), nil
}

// StreamReader provides an iterator interface for streaming responses.
// It handles SSE parsing and provides a simple Recv() method for consuming
// chunks.
type StreamReader struct {
	body     io.ReadCloser
	scanner  *bufio.Scanner
	client   *Client
	streamID string
	category types.Category
	session  string

	closed     bool
	firstChunk bool
	startTime  time.Time
	ttft       time.Duration // Time To First Token

	mu sync.Mutex
}

func newStreamReader(body io.ReadCloser, client *Client, streamID string, category types.Category, sessionID string) *StreamReader {
	scanner := bufio.NewScanner(body)
	// Increase buffer size for large chunks
	scanner.Buffer(make([]byte, 4096), 4096*4)

	return &StreamReader{
		body:       body,
		scanner:    scanner,
		client:     client,
		streamID:   streamID,
		category:   category,
		session:    sessionID,
		firstChunk: true,
		startTime:  time.Now(),
	}
}

// Recv returns the next chunk from the stream.
// Returns io.EOF when the stream is complete.
func (s *StreamReader) Recv() (*types.StreamChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, io.EOF
	}

	for s.scanner.Scan() {
		line := s.scanner.Bytes()

		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			continue
		}

		if bytes.Equal(trimmed, []byte("data: [DONE]")) ||
			bytes.Equal(trimmed, []byte("[DONE]")) {
			s.finish()
			return nil, io.EOF
		}

		chunk, err := s.client.provider.ParseStreamChunk(trimmed)
		if err != nil {
			// Skip unparseable chunks (could be comments or keep-alive)
			continue
		}
		if chunk == nil {
			continue
		}

		if s.firstChunk {
			s.ttft = time.Since(s.startTime)
			s.firstChunk = false
		}

		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				s.client.cache.AppendChunk(s.streamID, choice.Delta.Content)
			}
		}

		return chunk, nil
	}

	if err := s.scanner.Err(); err != nil {
		s.client.cache.CancelStream(s.streamID)
		s.close()
		return nil, err
	}

	// Stream ended without an explicit done marker.
	s.finish()
	return nil, io.EOF
}

// Close releases resources associated with the stream. An unfinished
// stream is discarded without caching or recording anything.
// It's safe to call Close multiple times.
func (s *StreamReader) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.client.cache.CancelStream(s.streamID)
	}
	return s.close()
}

// TTFT returns the Time To First Token duration.
// Returns 0 if no chunks have been received yet.
func (s *StreamReader) TTFT() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ttft
}

// close releases resources (must be called with lock held).
func (s *StreamReader) close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}

// finish completes the stream buffer: the assembled response is cached and
// appended to the session history.
func (s *StreamReader) finish() {
	if s.closed {
		return
	}

	state := s.client.cache.CompleteStream(context.Background(), s.streamID)
	if state != nil && state.Content != "" {
		resp := &types.Response{
			ID:         state.ID,
			Content:    state.Content,
			Category:   state.Category,
			Confidence: state.Confidence,
			CreatedAt:  state.CreatedAt,
		}
		s.client.recordAssistantTurn(s.session, resp)
		metrics.ChatRequests.WithLabelValues(string(s.category), "completed").Inc()
		metrics.ChatLatency.WithLabelValues(string(s.category)).Observe(time.Since(s.startTime).Seconds())
	}

	s.close()
}
