package sse

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibecheck-ai/vibecheck/internal/log"
	"github.com/vibecheck-ai/vibecheck/internal/testutil"
)

// collect drains a decoder into a slice, failing the test on transport
// errors.
func collect(t *testing.T, d *Decoder) []Event {
	t.Helper()
	var events []Event
	for ev, err := range d.Events() {
		require.NoError(t, err)
		events = append(events, ev)
	}
	return events
}

func sampleStream(t *testing.T) string {
	t.Helper()
	return testutil.Stream(
		testutil.Frame(t, map[string]any{"type": "chunk", "content": "Gen Z "}),
		testutil.Frame(t, map[string]any{"type": "chunk", "content": "shoppers"}),
		testutil.Frame(t, map[string]any{"type": "thinking", "content": "segmenting"}),
		testutil.Frame(t, map[string]any{
			"type":         "done",
			"session_id":   "s1",
			"mode":         "generated_persona",
			"chat_message": `{"id":"m1","answer":"Gen Z shoppers"}`,
		}),
	)
}

func TestDecoderWholeStream(t *testing.T) {
	d := NewDecoder(strings.NewReader(sampleStream(t)), log.NewNop())
	events := collect(t, d)

	require.Len(t, events, 4)
	assert.Equal(t, EventChunk, events[0].Type)
	assert.Equal(t, "Gen Z ", events[0].Content)
	assert.Equal(t, EventThinking, events[2].Type)
	assert.Equal(t, EventDone, events[3].Type)
	assert.Equal(t, "s1", events[3].SessionID)
}

// Chunk boundaries must be invisible: any chunking of the byte stream,
// including mid-line and mid-rune splits, yields the same event sequence as
// decoding the whole body at once.
func TestDecoderChunkBoundaryIndependence(t *testing.T) {
	body := sampleStream(t)
	want := collect(t, NewDecoder(strings.NewReader(body), log.NewNop()))

	for n := 1; n <= len(body); n++ {
		r := testutil.NewChunkedReader(testutil.SplitEveryN(body, n)...)
		got := collect(t, NewDecoder(r, log.NewNop()))
		require.Equalf(t, want, got, "chunk size %d produced a different event sequence", n)
	}
}

func TestDecoderFrameSpanningChunks(t *testing.T) {
	frame := testutil.Frame(t, map[string]any{"type": "chunk", "content": "split across reads"})
	r := testutil.NewChunkedReader(frame[:4], frame[4:11], frame[11:])

	events := collect(t, NewDecoder(r, log.NewNop()))
	require.Len(t, events, 1)
	assert.Equal(t, "split across reads", events[0].Content)
}

func TestDecoderMalformedFrameIsDropped(t *testing.T) {
	var logBuf bytes.Buffer
	logger := log.NewWithWriter(&logBuf, log.Config{})

	body := testutil.Stream(
		testutil.Frame(t, map[string]any{"type": "chunk", "content": "before"}),
		testutil.RawFrame(`{"type":"chunk","content": garbled`),
		testutil.Frame(t, map[string]any{"type": "chunk", "content": "after"}),
	)

	events := collect(t, NewDecoder(strings.NewReader(body), logger))
	require.Len(t, events, 2, "the garbled frame must not abort the stream")
	assert.Equal(t, "before", events[0].Content)
	assert.Equal(t, "after", events[1].Content)
	assert.Contains(t, logBuf.String(), "malformed", "dropped frames are logged")
}

func TestDecoderSkipsCommentsAndBlankLines(t *testing.T) {
	body := ": keepalive\n\n" +
		testutil.Frame(t, map[string]any{"type": "chunk", "content": "x"}) +
		"\r\n"

	events := collect(t, NewDecoder(strings.NewReader(body), log.NewNop()))
	require.Len(t, events, 1)
	assert.Equal(t, "x", events[0].Content)
}

func TestDecoderCRLFLines(t *testing.T) {
	body := "data: {\"type\":\"chunk\",\"content\":\"crlf\"}\r\n"
	events := collect(t, NewDecoder(strings.NewReader(body), log.NewNop()))
	require.Len(t, events, 1)
	assert.Equal(t, "crlf", events[0].Content)
}

func TestDecoderStopsAfterDone(t *testing.T) {
	body := testutil.Stream(
		testutil.Frame(t, map[string]any{"type": "done", "session_id": "s1", "chat_message": `{"id":"m1"}`}),
		testutil.Frame(t, map[string]any{"type": "chunk", "content": "never delivered"}),
	)

	d := NewDecoder(strings.NewReader(body), log.NewNop())

	ev, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, EventDone, ev.Type)

	_, err = d.Next()
	assert.Equal(t, io.EOF, err, "done is an early-exit signal")

	// The guarantee must hold however the bytes arrive: a done and the
	// frames behind it landing in one read is the hard case.
	for n := 1; n <= len(body); n++ {
		r := testutil.NewChunkedReader(testutil.SplitEveryN(body, n)...)
		events := collect(t, NewDecoder(r, log.NewNop()))
		require.Lenf(t, events, 1, "chunk size %d delivered frames past done", n)
		assert.Equal(t, EventDone, events[0].Type)
	}
}

func TestDecoderDropsIncompleteTrailingFrame(t *testing.T) {
	body := testutil.Frame(t, map[string]any{"type": "chunk", "content": "ok"}) +
		`data: {"type":"chunk","content":"cut of` // no newline: incomplete

	events := collect(t, NewDecoder(strings.NewReader(body), log.NewNop()))
	require.Len(t, events, 1)
	assert.Equal(t, "ok", events[0].Content)
}

// failingReader yields some data, then a transport error.
type failingReader struct {
	data string
	err  error
	read bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.read {
		r.read = true
		return copy(p, r.data), nil
	}
	return 0, r.err
}

func TestDecoderPropagatesTransportError(t *testing.T) {
	transportErr := errors.New("connection reset")
	r := &failingReader{
		data: testutil.Frame(t, map[string]any{"type": "chunk", "content": "partial"}),
		err:  transportErr,
	}

	d := NewDecoder(r, log.NewNop())

	ev, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, "partial", ev.Content)

	_, err = d.Next()
	assert.ErrorIs(t, err, transportErr)
}
