// Package sse decodes the persona API's Server-Sent-Event stream into
// discrete typed events and dispatches them to callbacks in arrival order.
//
// Wire shape: each frame is one line `data: <json>`; the JSON object carries
// a "type" discriminant. The done and thinking.chat frames are
// double-encoded: their chat_message field (and each personas element on
// done) is a JSON *string* that itself parses into an object. The inner
// parse is deliberate protocol design and handled by the Decode helpers
// here, never by a second pass at the call site.
package sse

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vibecheck-ai/vibecheck/internal/session"
)

// EventType is the discriminant tag of a stream event.
type EventType string

// Stream event types emitted by the streaming turn endpoint.
const (
	EventChunk        EventType = "chunk"
	EventThinking     EventType = "thinking"
	EventThinkingChat EventType = "thinking.chat"
	EventDone         EventType = "done"
	EventError        EventType = "error"
	EventRefusal      EventType = "refusal"
)

// ErrUnknownEvent indicates an event type outside the closed set.
var ErrUnknownEvent = errors.New("unknown stream event type")

// Event is the tagged union decoded from one SSE frame. Only the fields
// relevant to Type are populated; Events are ephemeral and never persisted.
type Event struct {
	Type EventType `json:"type"`

	// Content carries the text fragment for chunk, the optional exposition
	// for thinking, and the refusal content for refusal.
	Content string `json:"content,omitempty"`

	// Message carries the error text for error events and doubles as a
	// fallback text field for thinking events.
	Message string `json:"message,omitempty"`

	// SessionID and Mode echo session identity on thinking.chat and done.
	SessionID string       `json:"session_id,omitempty"`
	Mode      session.Mode `json:"mode,omitempty"`

	// ChatMessage is the inner JSON string of a message object
	// (thinking.chat and done only).
	ChatMessage string `json:"chat_message,omitempty"`

	// Personas holds JSON-string-encoded persona objects (done only).
	Personas []string `json:"personas,omitempty"`
}

// Terminal reports whether the event ends the streaming turn.
func (e Event) Terminal() bool {
	switch e.Type {
	case EventDone, EventError, EventRefusal:
		return true
	}
	return false
}

// Text returns the thinking exposition, preferring content over message.
func (e Event) Text() string {
	if e.Content != "" {
		return e.Content
	}
	return e.Message
}

// DecodeChatMessage parses the nested chat_message payload. The inner
// object's id may be spelled "id" or "_id"; session.ChatMessage normalizes
// that during unmarshal.
func (e Event) DecodeChatMessage() (session.ChatMessage, error) {
	var msg session.ChatMessage
	if e.ChatMessage == "" {
		return msg, fmt.Errorf("%s event has no chat_message payload", e.Type)
	}
	if err := json.Unmarshal([]byte(e.ChatMessage), &msg); err != nil {
		return msg, fmt.Errorf("decode inner chat_message: %w", err)
	}
	return msg, nil
}

// DecodePersonas parses each persona string of a done event. A done event
// without personas yields a nil slice, not an error.
func (e Event) DecodePersonas() ([]session.Persona, error) {
	if len(e.Personas) == 0 {
		return nil, nil
	}
	personas := make([]session.Persona, 0, len(e.Personas))
	for i, raw := range e.Personas {
		var p session.Persona
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("decode persona %d: %w", i, err)
		}
		personas = append(personas, p)
	}
	return personas, nil
}
