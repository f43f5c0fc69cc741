package sse

import (
	"bytes"
	"encoding/json"
	"io"
	"iter"

	"github.com/vibecheck-ai/vibecheck/internal/log"
)

// dataPrefix frames every payload-carrying SSE line.
const dataPrefix = "data: "

// readChunkSize is the network read granularity. Frames routinely span
// chunk boundaries; the carry buffer below makes the split point invisible
// to callers.
const readChunkSize = 4096

// Decoder turns a byte stream of `data: <json>` lines into Events.
//
// It maintains a carry buffer across reads: each chunk is appended, complete
// lines are processed, and the trailing partial line is retained for the
// next read. Decoding the stream one byte at a time therefore yields exactly
// the same event sequence as decoding it in one piece.
//
// A line that fails JSON decode is logged and dropped — one garbled frame
// must not kill a multi-second generation. A done event is terminal: no
// further frames are read after it.
type Decoder struct {
	r      io.Reader
	logger log.Logger

	scratch []byte
	carry   []byte
	queue   []Event

	closed  bool // done event observed or reader exhausted
	readErr error
}

// NewDecoder creates a Decoder over r. A nil logger falls back to Nop.
func NewDecoder(r io.Reader, logger log.Logger) *Decoder {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Decoder{
		r:       r,
		logger:  logger,
		scratch: make([]byte, readChunkSize),
	}
}

// Next returns the next event in arrival order. It returns io.EOF when the
// stream is exhausted, and the transport error verbatim when the read loop
// fails (context.Canceled surfaces unchanged so callers can distinguish
// deliberate cancellation from genuine failure).
func (d *Decoder) Next() (Event, error) {
	for {
		if len(d.queue) > 0 {
			ev := d.queue[0]
			d.queue = d.queue[1:]
			if ev.Type == EventDone {
				// No useful frames follow done; stop reading early and
				// drop anything already queued behind it.
				d.closed = true
				d.queue = nil
			}
			return ev, nil
		}

		if d.closed {
			if d.readErr != nil {
				return Event{}, d.readErr
			}
			return Event{}, io.EOF
		}

		d.fill()
	}
}

// fill performs one read and converts every complete line into queued
// events, retaining the trailing partial line.
func (d *Decoder) fill() {
	n, err := d.r.Read(d.scratch)
	if n > 0 {
		d.carry = append(d.carry, d.scratch[:n]...)
		d.drainLines()
	}
	if err != nil {
		d.closed = true
		if err != io.EOF {
			d.readErr = err
		}
		// A trailing partial line at stream end is an incomplete frame;
		// per protocol it carries nothing decodable and is discarded.
		if len(d.carry) > 0 {
			d.logger.Debug("discarding incomplete trailing frame", "bytes", len(d.carry))
			d.carry = nil
		}
	}
}

// drainLines splits the carry buffer on newline and decodes each complete
// data line.
func (d *Decoder) drainLines() {
	for {
		idx := bytes.IndexByte(d.carry, '\n')
		if idx < 0 {
			return
		}
		line := d.carry[:idx]
		d.carry = d.carry[idx+1:]
		d.decodeLine(bytes.TrimSuffix(line, []byte("\r")))
	}
}

// decodeLine parses a single complete line. Non-data lines (blank
// separators, ":" comments) are skipped silently; malformed JSON is logged
// and dropped.
func (d *Decoder) decodeLine(line []byte) {
	if !bytes.HasPrefix(line, []byte(dataPrefix)) {
		return
	}
	payload := line[len(dataPrefix):]

	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		d.logger.Warn("dropping malformed stream frame", "error", err, "frame", string(payload))
		return
	}
	d.queue = append(d.queue, ev)
}

// Events returns the remaining events as a push iterator, the same
// streaming shape the rest of the codebase consumes. Iteration stops at
// stream end; a transport failure is yielded as the final (Event{}, err)
// pair.
func (d *Decoder) Events() iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for {
			ev, err := d.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(Event{}, err)
				return
			}
			if !yield(ev, nil) {
				return
			}
		}
	}
}
