// Package session defines the domain model for persona chat sessions.
//
// Sessions are server-owned aggregates; this package holds the client-side
// mirror of their state. Types here are plain data with no locking —
// the conversation layer is the single writer and the UI event loop
// serializes access (callers that share instances must synchronize).
package session

import (
	"encoding/json"
	"strings"
	"time"
)

// Mode is the server-tracked conversational phase of a chat session.
// Transitions only move forward and are driven by the server; the client
// mirrors the value echoed in thinking.chat/done events and never advances
// it speculatively.
type Mode string

// Session modes in lifecycle order.
const (
	ModeInitialPrompt     Mode = "initial_prompt"
	ModeQuestionGenerated Mode = "question_generated"
	ModeGeneratedPersona  Mode = "generated_persona"
	ModeSummaryGenerated  Mode = "summary_generated"
)

// RequestMode selects how a streaming turn is interpreted by the server.
// Distinct from Mode: it describes the outgoing request, not session state.
type RequestMode string

// Request modes accepted by the streaming endpoint.
const (
	// RequestInitialPrompt carries the seeded first message of a fresh
	// session; used exactly once, for the auto-triggered opening turn.
	RequestInitialPrompt RequestMode = "initial_prompt"

	// RequestQuestionAnswered resumes generation after every interview
	// question has been answered. Sent with empty message content.
	RequestQuestionAnswered RequestMode = "question_answered"

	// RequestGeneration is a fresh user-authored message.
	RequestGeneration RequestMode = "generation"
)

// TempIDPrefix marks a client-generated provisional message id. The prefix
// makes optimistic messages recognizable until the server assigns a durable
// id via a thinking.chat or done event.
const TempIDPrefix = "temp-"

// ChatSession is the client-side mirror of a server-held session.
type ChatSession struct {
	ID                 string        `json:"_id"`
	Name               string        `json:"name,omitempty"`
	Mode               Mode          `json:"mode"`
	Messages           []ChatMessage `json:"messages"`
	GeneratedQuestions []Question    `json:"generated_questions,omitempty"`
	PersonaSummary     string        `json:"persona_summary,omitempty"`
	CreatedAt          time.Time     `json:"created_at,omitempty"`
	UpdatedAt          time.Time     `json:"updated_at,omitempty"`
}

// Summary is one row of the paginated session history listing.
type Summary struct {
	ID             string    `json:"_id"`
	Name           string    `json:"name"`
	Mode           Mode      `json:"mode"`
	PersonaSummary string    `json:"persona_summary,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// HistoryPage is one page of session summaries.
type HistoryPage struct {
	Sessions []Summary `json:"sessions"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
	Total    int       `json:"total"`
}

// ChatMessage is one conversational turn. Its ID may be a temp- prefixed
// provisional id until the server confirms the turn.
type ChatMessage struct {
	ID                string    `json:"_id"`
	MessageContent    string    `json:"message_content,omitempty"`
	Answer            string    `json:"answer,omitempty"`
	ThinkingText      string    `json:"thinking_text,omitempty"`
	GeneratedPersonas []Persona `json:"generated_personas,omitempty"`
}

// IsProvisional reports whether the message still carries a client-generated
// temporary id.
func (m ChatMessage) IsProvisional() bool {
	return strings.HasPrefix(m.ID, TempIDPrefix)
}

// UnmarshalJSON accepts both "_id" and "id" as the identity field. Some
// backend code paths serialize the Mongo-style "_id", others the plain "id";
// "_id" wins when both are present.
func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	type alias ChatMessage
	aux := struct {
		*alias
		LegacyID string `json:"id"`
	}{alias: (*alias)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = aux.LegacyID
	}
	return nil
}

// Persona is a generated synthetic-customer profile. The client treats it as
// pass-through data: parsed for display, never mutated.
type Persona struct {
	Name       string   `json:"name"`
	Archetype  string   `json:"archetype,omitempty"`
	Age        int      `json:"age,omitempty"`
	Occupation string   `json:"occupation,omitempty"`
	Traits     []string `json:"traits,omitempty"`
	Summary    string   `json:"summary,omitempty"`
}
