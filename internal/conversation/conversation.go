// Package conversation keeps the client-side view of a chat session
// consistent with exactly-once turn semantics: optimistic inserts, identity
// migration when the server confirms a turn, merge on completion, and
// rollback on failure.
//
// Thread safety: not thread-safe. The UI event loop is the single writer;
// stream events are marshalled onto it as Bubble Tea messages before any
// method here is called.
package conversation

import (
	"strings"

	"github.com/google/uuid"

	"github.com/vibecheck-ai/vibecheck/internal/log"
	"github.com/vibecheck-ai/vibecheck/internal/session"
	"github.com/vibecheck-ai/vibecheck/internal/sse"
)

// Conversation owns the authoritative local message list for one session.
//
// Invariant: at most one message is an in-flight placeholder at any time;
// all earlier messages are complete and are never mutated again.
type Conversation struct {
	sess   *session.ChatSession
	logger log.Logger

	// pendingID tracks the in-flight turn's message id. It starts as the
	// temp- id assigned at submit and migrates to the server id when a
	// thinking.chat event arrives. Empty when no turn is in flight.
	pendingID string

	// Transient display buffers for the in-flight turn. Never part of the
	// persisted message list; cleared when durable content supersedes them.
	answerBuf   strings.Builder
	thinkingBuf strings.Builder
}

// New wraps a session. The session pointer is retained and mutated in place.
func New(sess *session.ChatSession, logger log.Logger) *Conversation {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Conversation{sess: sess, logger: logger}
}

// Session returns the underlying session.
func (c *Conversation) Session() *session.ChatSession { return c.sess }

// Pending reports whether a turn is currently awaiting its terminal event.
func (c *Conversation) Pending() bool { return c.pendingID != "" }

// BeginTurn appends an optimistic placeholder for an outgoing message and
// returns it. It must be called before the network request starts so the
// user's turn is visible immediately. Fails with ErrTurnInFlight while a
// previous turn is unresolved.
func (c *Conversation) BeginTurn(text string) (session.ChatMessage, error) {
	if c.pendingID != "" {
		return session.ChatMessage{}, ErrTurnInFlight
	}

	msg := session.ChatMessage{
		ID:             session.TempIDPrefix + uuid.NewString(),
		MessageContent: text,
	}
	c.sess.Messages = append(c.sess.Messages, msg)
	c.pendingID = msg.ID
	c.answerBuf.Reset()
	c.thinkingBuf.Reset()

	c.logger.Debug("optimistic turn inserted", "temp_id", msg.ID)
	return msg, nil
}

// AppendChunk accumulates streamed answer text for the in-flight turn.
func (c *Conversation) AppendChunk(text string) {
	c.answerBuf.WriteString(text)
}

// AppendThinking accumulates intermediate exposition for the in-flight turn.
func (c *Conversation) AppendThinking(text string) {
	c.thinkingBuf.WriteString(text)
}

// StreamingAnswer returns the transient accumulated answer text.
func (c *Conversation) StreamingAnswer() string { return c.answerBuf.String() }

// ThinkingText returns the transient accumulated thinking text.
func (c *Conversation) ThinkingText() string { return c.thinkingBuf.String() }

// ApplyThinkingChat handles the server's first acknowledgment of the
// in-flight turn: the placeholder is replaced in place with the confirmed
// message, its identity migrating from the temp id to the server id.
func (c *Conversation) ApplyThinkingChat(u sse.ChatMessageUpdate) error {
	idx := c.pendingIndex()
	if idx < 0 {
		return ErrNoPendingTurn
	}

	confirmed := u.Message
	if confirmed.ID == "" {
		// Keep the temp id rather than losing track of the turn.
		confirmed.ID = c.pendingID
	}
	if confirmed.MessageContent == "" {
		confirmed.MessageContent = c.sess.Messages[idx].MessageContent
	}
	c.sess.Messages[idx] = confirmed
	c.pendingID = confirmed.ID
	c.mirrorMode(u.Mode)

	// Durable content supersedes the transient buffers.
	c.answerBuf.Reset()
	c.thinkingBuf.Reset()

	c.logger.Debug("turn acknowledged", "message_id", confirmed.ID)
	return nil
}

// ApplyDone merges the terminal event into the tracked message — found by
// whichever id is current (temp if no thinking.chat preceded, server id
// otherwise) — and closes the turn. Exactly one message is updated; a
// second message is never inserted for the same turn.
func (c *Conversation) ApplyDone(u sse.ChatMessageUpdate) error {
	idx := c.pendingIndex()
	if idx < 0 {
		return ErrNoPendingTurn
	}

	msg := &c.sess.Messages[idx]
	if u.Message.ID != "" {
		msg.ID = u.Message.ID
	}
	if u.Message.MessageContent != "" {
		msg.MessageContent = u.Message.MessageContent
	}
	msg.Answer = u.Message.Answer
	msg.ThinkingText = u.Message.ThinkingText
	if len(u.Personas) > 0 {
		msg.GeneratedPersonas = u.Personas
	} else if len(u.Message.GeneratedPersonas) > 0 {
		msg.GeneratedPersonas = u.Message.GeneratedPersonas
	}
	c.mirrorMode(u.Mode)

	c.pendingID = ""
	c.answerBuf.Reset()
	c.thinkingBuf.Reset()

	c.logger.Debug("turn completed", "message_id", msg.ID, "personas", len(msg.GeneratedPersonas))
	return nil
}

// Rollback removes the in-flight placeholder entirely: the turn produced
// nothing durable. Reports whether a message was removed.
func (c *Conversation) Rollback() bool {
	idx := c.pendingIndex()
	c.pendingID = ""
	c.answerBuf.Reset()
	c.thinkingBuf.Reset()
	if idx < 0 {
		return false
	}
	c.sess.Messages = append(c.sess.Messages[:idx], c.sess.Messages[idx+1:]...)
	c.logger.Debug("turn rolled back")
	return true
}

// MergeQuestions adopts the server's question list after an interview
// submission.
func (c *Conversation) MergeQuestions(questions []session.Question) {
	if questions != nil {
		c.sess.GeneratedQuestions = questions
	}
}

// pendingIndex locates the message tracked by pendingID, or -1.
func (c *Conversation) pendingIndex() int {
	if c.pendingID == "" {
		return -1
	}
	for i := range c.sess.Messages {
		if c.sess.Messages[i].ID == c.pendingID {
			return i
		}
	}
	return -1
}

// mirrorMode adopts the server-echoed mode. Transitions are server-driven;
// this is the only place the client writes the session mode after events.
func (c *Conversation) mirrorMode(mode session.Mode) {
	if mode != "" {
		c.sess.Mode = mode
	}
}
