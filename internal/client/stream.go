package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"sync"

	"github.com/vibecheck-ai/vibecheck/internal/session"
	"github.com/vibecheck-ai/vibecheck/internal/sse"
)

// TurnRequest is the body of one streaming chat turn.
type TurnRequest struct {
	SessionID string              `json:"session_id"`
	Message   string              `json:"message"`
	Mode      session.RequestMode `json:"mode"`
}

// TurnStream is one open streaming turn. Close releases the underlying
// network reader; it is idempotent and must be called on every path,
// normal completion, error, and cancellation alike.
type TurnStream struct {
	decoder   *sse.Decoder
	body      interface{ Close() error }
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// StreamTurn opens one streaming chat turn. The stream carries no retry and
// no client-side timeout of its own; callers bound it with their context
// (cmd wires the configured stream_timeout there). The returned stream's
// errors keep context.Canceled intact so deliberate aborts are
// distinguishable from transport failures.
func (c *Client) StreamTurn(ctx context.Context, turn TurnRequest) (*TurnStream, error) {
	if turn.SessionID == "" {
		return nil, errors.New("client: session id is required")
	}
	switch turn.Mode {
	case session.RequestInitialPrompt, session.RequestQuestionAnswered, session.RequestGeneration:
	default:
		return nil, fmt.Errorf("client: invalid request mode %q", turn.Mode)
	}

	payload, err := json.Marshal(turn)
	if err != nil {
		return nil, fmt.Errorf("marshal turn request: %w", err)
	}

	// Per-request abort signal, fired by Close regardless of how the turn
	// ends.
	ctx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpointChatStream, bytes.NewReader(payload))
	if err != nil {
		cancel()
		return nil, err
	}
	c.setHeaders(req, true)

	resp, err := c.streamClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open stream: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := newAPIError(resp)
		_ = resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("open stream: %w", apiErr)
	}

	c.logger.Debug("stream opened", "session_id", turn.SessionID, "mode", turn.Mode)

	return &TurnStream{
		decoder: sse.NewDecoder(resp.Body, c.logger),
		body:    resp.Body,
		cancel:  cancel,
	}, nil
}

// Next returns the next decoded event. io.EOF signals stream end.
func (ts *TurnStream) Next() (sse.Event, error) {
	return ts.decoder.Next()
}

// Events iterates the remaining events, yielding a final (Event{}, err)
// pair on transport failure.
func (ts *TurnStream) Events() iter.Seq2[sse.Event, error] {
	return ts.decoder.Events()
}

// Close aborts the request and releases the network reader exactly once.
func (ts *TurnStream) Close() error {
	var err error
	ts.closeOnce.Do(func() {
		ts.cancel()
		err = ts.body.Close()
	})
	return err
}
