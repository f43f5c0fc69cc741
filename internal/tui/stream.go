package tui

import (
	"context"
	"errors"
	"fmt"
	"io"

	tea "charm.land/bubbletea/v2"

	"github.com/vibecheck-ai/vibecheck/internal/client"
	"github.com/vibecheck-ai/vibecheck/internal/session"
	"github.com/vibecheck-ai/vibecheck/internal/sse"
)

// streamBufferSize is sized for ~1.5s burst at 60 FPS refresh rate.
// This prevents backpressure during UI render delays while keeping
// memory bounded.
const streamBufferSize = 100

// streamEvent is a discriminated union for all stream events.
// Using a single channel with union type simplifies select logic
// and eliminates complex multi-channel closure handling.
type streamEvent struct {
	// Exactly one of these fields is set per event
	chunk    string                 // Incremental answer text (when non-empty)
	thinking string                 // Intermediate exposition (when non-empty)
	ack      *sse.ChatMessageUpdate // thinking.chat acknowledgment
	done     *sse.ChatMessageUpdate // Terminal successful event
	fail     *streamFailure         // Terminal failure (when non-nil)
}

// streamFailure carries every way a turn can end without a done event.
type streamFailure struct {
	err       error  // Transport/decode failure (when non-nil)
	serverMsg string // Server-reported error event text
	refusal   bool   // Content-policy refusal, distinct from errors
}

// Stream message types for Bubble Tea
type streamStartedMsg struct {
	eventCh <-chan streamEvent
	cancel  context.CancelFunc
}

type streamChunkMsg struct {
	text string
}

type streamThinkingMsg struct {
	text string
}

type streamAckMsg struct {
	update sse.ChatMessageUpdate
}

type streamDoneMsg struct {
	update sse.ChatMessageUpdate
}

type streamFailedMsg struct {
	failure streamFailure
}

// seedPromptMsg triggers the auto-submitted opening turn of a new session.
type seedPromptMsg struct{}

// answerResultMsg carries the outcome of one interview answer submission.
type answerResultMsg struct {
	updated *session.ChatSession
	err     error
}

// sessionRefreshMsg carries a refetched session. Generated questions travel
// in the session document, not in stream events, so a turn that ends in
// question_generated is followed by a refetch.
type sessionRefreshMsg struct {
	updated *session.ChatSession
	err     error
}

// startStream creates a command that initiates a streaming turn.
//
// Goroutine lifecycle: The spawned goroutine exits when:
//  1. Stream completes normally (done event)
//  2. Context is canceled (cancel() called)
//  3. Error occurs
//
// Channel closure signals completion - no WaitGroup needed. The goroutine
// only decodes and ferries events; conversation state is mutated in Update,
// on the event loop.
func (m *Model) startStream(text string, mode session.RequestMode) tea.Cmd {
	api := m.api
	logger := m.logger
	sessionID := m.conv.Session().ID

	return func() tea.Msg {
		eventCh := make(chan streamEvent, streamBufferSize)

		// Create context with timeout to prevent indefinite hangs
		ctx, cancel := context.WithTimeout(m.ctx, m.streamTimeout)

		go func() {
			// Ensure timer resources are released on all exit paths
			defer cancel()
			// Channel closure signals goroutine completion
			defer close(eventCh)

			// Panic recovery to prevent TUI lockup
			defer func() {
				if r := recover(); r != nil {
					logger.Error("stream panic recovered", "panic", r)
					select {
					case eventCh <- streamEvent{fail: &streamFailure{err: fmt.Errorf("stream panic: %v", r)}}:
					default:
					}
				}
			}()

			stream, err := api.StreamTurn(ctx, client.TurnRequest{
				SessionID: sessionID,
				Message:   text,
				Mode:      mode,
			})
			if err != nil {
				select {
				case eventCh <- streamEvent{fail: &streamFailure{err: err}}:
				case <-ctx.Done():
				}
				return
			}
			defer func() { _ = stream.Close() }()

			terminal := false
			send := func(ev streamEvent) bool {
				select {
				case eventCh <- ev:
					return true
				case <-ctx.Done():
					return false
				}
			}
			handlers := sse.Handlers{
				OnChunk:    func(text string) { send(streamEvent{chunk: text}) },
				OnThinking: func(text string) { send(streamEvent{thinking: text}) },
				OnThinkingChat: func(u sse.ChatMessageUpdate) {
					send(streamEvent{ack: &u})
				},
				OnDone: func(u sse.ChatMessageUpdate) {
					terminal = true
					send(streamEvent{done: &u})
				},
				OnError: func(msg string) {
					terminal = true
					send(streamEvent{fail: &streamFailure{serverMsg: msg}})
				},
				OnRefusal: func(content string) {
					terminal = true
					send(streamEvent{fail: &streamFailure{serverMsg: content, refusal: true}})
				},
			}

			var chunkCount int
			for ev, err := range stream.Events() {
				if err != nil {
					if errors.Is(err, io.EOF) {
						break
					}
					select {
					case eventCh <- streamEvent{fail: &streamFailure{err: fmt.Errorf("chunk %d: %w", chunkCount, err)}}:
					case <-ctx.Done():
					}
					return
				}
				chunkCount++
				if err := sse.Dispatch(ev, handlers); err != nil {
					// Unknown or malformed event fails the turn rather than
					// leaving it half-applied.
					select {
					case eventCh <- streamEvent{fail: &streamFailure{err: err}}:
					case <-ctx.Done():
					}
					return
				}
				if terminal {
					return
				}
			}

			// Guarantee a terminal signal if the stream ends without one.
			// This happens when: context canceled, zero events, or the
			// server closed the connection early.
			err = ctx.Err()
			if err == nil {
				err = errors.New("stream ended without completion signal")
				logger.Warn("stream closed without terminal event", "session_id", sessionID)
			}
			select {
			case eventCh <- streamEvent{fail: &streamFailure{err: err}}:
			default:
			}
		}()

		return streamStartedMsg{
			eventCh: eventCh,
			cancel:  cancel,
		}
	}
}

// listenForStream creates a command to wait for next stream event.
// Uses single union channel - no complex multi-channel select needed.
// Empty events (all fields zero) are skipped via loop instead of recursion
// to prevent stack overflow under pathological conditions.
func listenForStream(eventCh <-chan streamEvent) tea.Cmd {
	return func() tea.Msg {
		if eventCh == nil {
			return nil
		}

		for {
			event, ok := <-eventCh
			if !ok {
				// Channel closed - stream ended
				return streamFailedMsg{failure: streamFailure{
					err: errors.New("stream ended without completion signal"),
				}}
			}

			// Discriminated union dispatch
			switch {
			case event.fail != nil:
				return streamFailedMsg{failure: *event.fail}
			case event.done != nil:
				return streamDoneMsg{update: *event.done}
			case event.ack != nil:
				return streamAckMsg{update: *event.ack}
			case event.thinking != "":
				return streamThinkingMsg{text: event.thinking}
			case event.chunk != "":
				return streamChunkMsg{text: event.chunk}
			default:
				// Empty event - loop instead of recursing
				continue
			}
		}
	}
}

// refreshSession refetches the session document.
func (m *Model) refreshSession() tea.Cmd {
	api := m.api
	ctx := m.ctx
	sessionID := m.conv.Session().ID

	return func() tea.Msg {
		updated, err := api.GetSession(ctx, sessionID)
		return sessionRefreshMsg{updated: updated, err: err}
	}
}

// submitAnswer posts one interview answer. The target question and composed
// answer are captured on the event loop before the command runs.
func (m *Model) submitAnswer(question, answer string) tea.Cmd {
	api := m.api
	ctx := m.ctx
	sessionID := m.conv.Session().ID

	return func() tea.Msg {
		updated, err := api.AnswerQuestion(ctx, sessionID, question, answer)
		return answerResultMsg{updated: updated, err: err}
	}
}
