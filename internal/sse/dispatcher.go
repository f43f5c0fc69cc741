package sse

import (
	"fmt"

	"github.com/vibecheck-ai/vibecheck/internal/session"
)

// ChatMessageUpdate is the fully-decoded payload of a thinking.chat or done
// event: the inner message object plus, on done, any generated personas.
type ChatMessageUpdate struct {
	SessionID string
	Mode      session.Mode
	Message   session.ChatMessage
	Personas  []session.Persona
}

// Handlers maps each event type to one callback. Nil callbacks are skipped;
// the event is still consumed so ordering stays intact.
type Handlers struct {
	// OnChunk receives an incremental answer fragment.
	OnChunk func(text string)

	// OnThinking receives intermediate exposition text, not shown in the
	// final rendering.
	OnThinking func(text string)

	// OnThinkingChat receives the first server acknowledgment of a turn:
	// the message now has a durable id but generation may be incomplete.
	OnThinkingChat func(update ChatMessageUpdate)

	// OnDone receives the terminal successful event.
	OnDone func(update ChatMessageUpdate)

	// OnError receives a server-reported technical failure.
	OnError func(message string)

	// OnRefusal receives a content-policy refusal, distinct from OnError.
	OnRefusal func(content string)
}

// Dispatch routes one decoded event to exactly one callback, synchronously.
// Events must be dispatched in arrival order; Dispatch never reorders or
// batches. The nested chat_message/personas payloads are decoded here so no
// callback needs to know about the double encoding.
func Dispatch(ev Event, h Handlers) error {
	switch ev.Type {
	case EventChunk:
		if h.OnChunk != nil {
			h.OnChunk(ev.Content)
		}

	case EventThinking:
		if h.OnThinking != nil {
			h.OnThinking(ev.Text())
		}

	case EventThinkingChat:
		msg, err := ev.DecodeChatMessage()
		if err != nil {
			return fmt.Errorf("thinking.chat: %w", err)
		}
		if h.OnThinkingChat != nil {
			h.OnThinkingChat(ChatMessageUpdate{
				SessionID: ev.SessionID,
				Mode:      ev.Mode,
				Message:   msg,
			})
		}

	case EventDone:
		msg, err := ev.DecodeChatMessage()
		if err != nil {
			return fmt.Errorf("done: %w", err)
		}
		personas, err := ev.DecodePersonas()
		if err != nil {
			return fmt.Errorf("done: %w", err)
		}
		if h.OnDone != nil {
			h.OnDone(ChatMessageUpdate{
				SessionID: ev.SessionID,
				Mode:      ev.Mode,
				Message:   msg,
				Personas:  personas,
			})
		}

	case EventError:
		if h.OnError != nil {
			h.OnError(ev.Message)
		}

	case EventRefusal:
		if h.OnRefusal != nil {
			h.OnRefusal(ev.Content)
		}

	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
	}

	return nil
}
