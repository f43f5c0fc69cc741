// Package testutil provides shared test helpers: SSE stream builders, a
// chunk-boundary-controlling reader, and an in-process persona API mock.
package testutil

import (
	"encoding/json"
	"io"
	"strings"
	"testing"
)

// Frame encodes v as one SSE data frame: `data: <json>` plus newline.
func Frame(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal SSE frame: %v", err)
	}
	return "data: " + string(data) + "\n"
}

// RawFrame wraps an already-encoded payload in SSE framing. Useful for
// injecting deliberately malformed JSON.
func RawFrame(payload string) string {
	return "data: " + payload + "\n"
}

// Stream concatenates frames into one SSE stream body.
func Stream(frames ...string) string {
	return strings.Join(frames, "")
}

// ChunkedReader replays a byte stream in caller-chosen chunks, one chunk per
// Read call, so tests control exactly where network chunk boundaries fall.
type ChunkedReader struct {
	chunks []string
	pos    int
}

// NewChunkedReader creates a reader over the given chunks.
func NewChunkedReader(chunks ...string) *ChunkedReader {
	return &ChunkedReader{chunks: chunks}
}

// Read copies the next chunk. Chunks larger than p are split across calls.
func (r *ChunkedReader) Read(p []byte) (int, error) {
	for r.pos < len(r.chunks) && r.chunks[r.pos] == "" {
		r.pos++
	}
	if r.pos >= len(r.chunks) {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[r.pos])
	r.chunks[r.pos] = r.chunks[r.pos][n:]
	if r.chunks[r.pos] == "" {
		r.pos++
	}
	return n, nil
}

// SplitEveryN cuts s into chunks of at most n bytes, a convenient way to
// sweep chunk boundaries across a whole stream.
func SplitEveryN(s string, n int) []string {
	if n <= 0 {
		return []string{s}
	}
	var chunks []string
	for len(s) > n {
		chunks = append(chunks, s[:n])
		s = s[n:]
	}
	if s != "" {
		chunks = append(chunks, s)
	}
	return chunks
}
