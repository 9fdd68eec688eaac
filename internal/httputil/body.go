// Package httputil provides helpers for reading HTTP payloads safely.
package httputil

import (
	"errors"
	"io"
)

// DefaultMaxResponseBodyBytes caps completion response bodies to 4MB.
// Coaching replies are short; anything near this limit is a misbehaving
// upstream.
const DefaultMaxResponseBodyBytes int64 = 4 * 1024 * 1024

var ErrResponseBodyTooLarge = errors.New("response body too large")

// ReadLimitedBody reads at most maxBytes from reader. The truncated body
// is returned alongside ErrResponseBodyTooLarge when the limit is hit, so
// callers can still surface a partial error payload. A non-positive limit
// reads everything.
func ReadLimitedBody(reader io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		return io.ReadAll(reader)
	}

	body, err := io.ReadAll(io.LimitReader(reader, maxBytes+1))
	if err != nil {
		return body, err
	}
	if int64(len(body)) > maxBytes {
		return body[:maxBytes], ErrResponseBodyTooLarge
	}
	return body, nil
}
