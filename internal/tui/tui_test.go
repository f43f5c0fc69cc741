package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/viewport"
	"go.uber.org/goleak"

	"github.com/vibecheck-ai/vibecheck/internal/client"
	"github.com/vibecheck-ai/vibecheck/internal/conversation"
	"github.com/vibecheck-ai/vibecheck/internal/log"
	"github.com/vibecheck-ai/vibecheck/internal/session"
	"github.com/vibecheck-ai/vibecheck/internal/sse"
)

// goleakOptions returns standard goleak options for all TUI tests.
func goleakOptions() []goleak.Option {
	return []goleak.Option{
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("net/http.(*http2clientConnReadLoop).run"),
	}
}

// newTestModel creates a Model with initialized components for testing,
// without going through New (no network dependencies needed).
func newTestModel() *Model {
	ta := textarea.New()
	ta.SetHeight(1)
	ta.ShowLineNumbers = false

	sess := &session.ChatSession{ID: "sess-1", Mode: session.ModeInitialPrompt}
	conv := conversation.New(sess, log.NewNop())

	m := &Model{
		state:         StateInput,
		input:         ta,
		conv:          conv,
		history:       make([]string, 0),
		quizSelected:  make(map[int]bool),
		spinner:       spinner.New(),
		viewport:      viewport.New(viewport.WithWidth(80), viewport.WithHeight(20)),
		help:          help.New(),
		keys:          newKeyMap(),
		styles:        DefaultStyles(),
		markdown:      newAnswerRenderer(80),
		logger:        log.NewNop(),
		streamTimeout: time.Minute,
		ctx:           context.Background(),
		width:         80,
	}
	m.interview = conversation.NewInterview(func() { m.resumeAfter = true })
	return m
}

func newTestClient(t *testing.T) *client.Client {
	t.Helper()
	c, err := client.New(client.Config{
		BaseURL:        "http://localhost:9",
		RequestTimeout: time.Second,
		Logger:         log.NewNop(),
	})
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}
	return c
}

func TestNew_ErrorOnNilClient(t *testing.T) {
	sess := &session.ChatSession{ID: "sess-1"}
	conv := conversation.New(sess, log.NewNop())
	_, err := New(context.Background(), nil, conv, Options{})
	if err == nil {
		t.Error("Expected error for nil client")
	}
}

func TestNew_ErrorOnNilConversation(t *testing.T) {
	_, err := New(context.Background(), newTestClient(t), nil, Options{})
	if err == nil {
		t.Error("Expected error for nil conversation")
	}
}

func TestNew_ErrorOnEmptySessionID(t *testing.T) {
	conv := conversation.New(&session.ChatSession{}, log.NewNop())
	_, err := New(context.Background(), newTestClient(t), conv, Options{})
	if err == nil {
		t.Error("Expected error for empty session ID")
	}
}

func TestNew_ErrorOnNilContext(t *testing.T) {
	conv := conversation.New(&session.ChatSession{ID: "sess-1"}, log.NewNop())
	//lint:ignore SA1012 intentionally testing nil context handling
	_, err := New(nil, newTestClient(t), conv, Options{}) //nolint:staticcheck
	if err == nil {
		t.Error("Expected error for nil context")
	}
}

func TestNew_ResumedSessionMidInterview(t *testing.T) {
	conv := conversation.New(&session.ChatSession{
		ID:   "sess-1",
		Mode: session.ModeQuestionGenerated,
		GeneratedQuestions: []session.Question{
			{QuestionText: "Q1"},
		},
	}, log.NewNop())

	m, err := New(context.Background(), newTestClient(t), conv, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if m.state != StateInterview {
		t.Errorf("state = %d, want StateInterview", m.state)
	}
}

func TestModel_Init(t *testing.T) {
	defer goleak.VerifyNone(t, goleakOptions()...)

	m := newTestModel()
	if cmd := m.Init(); cmd == nil {
		t.Error("Init should return a command (blink + spinner tick)")
	}
}

func TestHandleSlashCommands(t *testing.T) {
	defer goleak.VerifyNone(t, goleakOptions()...)

	tests := []struct {
		name        string
		cmd         string
		wantExit    bool
		wantNotices int // notices added beyond the pre-seeded one
	}{
		{"help", "/help", false, 1},
		{"clear", "/clear", false, 0}, // clears notices
		{"personas", "/personas", false, 1},
		{"thinking", "/thinking", false, 1},
		{"exit", "/exit", true, 0},
		{"quit", "/quit", true, 0},
		{"unknown", "/unknown", false, 1}, // error notice
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel()
			m.notices = []notice{{Role: roleSystem, Text: "seed"}}

			model, cmd := m.handleSlashCommand(tt.cmd)
			result := model.(*Model)

			if tt.wantExit {
				if cmd == nil {
					t.Error("Expected quit command for exit")
				}
				return
			}
			if tt.cmd == "/clear" {
				if len(result.notices) != 0 {
					t.Error("/clear should clear notices")
				}
				return
			}
			if len(result.notices) != 1+tt.wantNotices {
				t.Errorf("Expected %d notices, got %d", 1+tt.wantNotices, len(result.notices))
			}
		})
	}
}

func TestThinkingToggle(t *testing.T) {
	m := newTestModel()
	if m.showThinking {
		t.Fatal("thinking should start hidden")
	}
	m.handleSlashCommand(cmdThinking)
	if !m.showThinking {
		t.Error("first /thinking should show")
	}
	m.handleSlashCommand(cmdThinking)
	if m.showThinking {
		t.Error("second /thinking should hide")
	}
}

func TestExportWithoutExporter(t *testing.T) {
	m := newTestModel()
	m.handleSlashCommand(cmdExport)
	if len(m.notices) != 1 || m.notices[0].Role != roleError {
		t.Errorf("expected one error notice, got %+v", m.notices)
	}
}

type fakeExporter struct {
	path string
	err  error
}

func (f *fakeExporter) Session(*session.ChatSession) (string, error) {
	return f.path, f.err
}

func TestExportWithExporter(t *testing.T) {
	m := newTestModel()
	m.exporter = &fakeExporter{path: "vibecheck-sess-1.json"}
	m.handleSlashCommand(cmdExport)
	if len(m.notices) != 1 || m.notices[0].Role != roleSystem {
		t.Fatalf("expected one system notice, got %+v", m.notices)
	}
}

func TestStartTurn_RequestModeByOrigin(t *testing.T) {
	// A typed first message on a fresh session is an ordinary generation
	// turn; only the auto-triggered seed prompt opens with initial_prompt.
	m := newTestModel()
	m.startTurn("gen z sneaker shoppers", false)
	if got := m.turns.RequestMode(); got != session.RequestGeneration {
		t.Errorf("typed first message mode = %q, want %q", got, session.RequestGeneration)
	}

	m = newTestModel()
	m.seedPrompt = "gen z sneaker shoppers"
	m.Update(seedPromptMsg{})
	if got := m.turns.RequestMode(); got != session.RequestInitialPrompt {
		t.Errorf("seeded turn mode = %q, want %q", got, session.RequestInitialPrompt)
	}
}

func TestStartTurn_LatchRejectsSecondSubmit(t *testing.T) {
	m := newTestModel()

	_, cmd := m.startTurn("first", false)
	if cmd == nil {
		t.Fatal("first turn should start a stream command")
	}
	if m.state != StateThinking {
		t.Errorf("state = %d, want StateThinking", m.state)
	}

	_, cmd = m.startTurn("second", false)
	if cmd != nil {
		t.Error("second turn should not start while the first is in flight")
	}
	if got := len(m.conv.Session().Messages); got != 1 {
		t.Errorf("messages = %d, want 1 (second submit must not insert)", got)
	}
	if len(m.notices) == 0 {
		t.Error("latch rejection should surface a notice")
	}
}

func TestStreamLifecycle_DoneMergesTurn(t *testing.T) {
	m := newTestModel()

	m.startTurn("find me some personas", false)

	m.Update(streamStartedMsg{eventCh: make(chan streamEvent), cancel: func() {}})
	if m.state != StateStreaming {
		t.Fatalf("state = %d, want StateStreaming", m.state)
	}

	m.Update(streamChunkMsg{text: "Working on it"})
	if m.conv.StreamingAnswer() != "Working on it" {
		t.Errorf("streaming answer = %q", m.conv.StreamingAnswer())
	}

	m.Update(streamAckMsg{update: sse.ChatMessageUpdate{
		Message: session.ChatMessage{ID: "srv-1", MessageContent: "find me some personas"},
	}})

	m.Update(streamDoneMsg{update: sse.ChatMessageUpdate{
		Mode: session.ModeGeneratedPersona,
		Message: session.ChatMessage{
			ID:     "srv-1",
			Answer: "Here you go.",
		},
		Personas: []session.Persona{{Name: "Mia"}},
	}})

	if m.state != StateInput {
		t.Errorf("state = %d, want StateInput", m.state)
	}
	if m.turns.InFlight() {
		t.Error("latch should be released after done")
	}

	msgs := m.conv.Session().Messages
	if len(msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(msgs))
	}
	if msgs[0].ID != "srv-1" || msgs[0].Answer != "Here you go." {
		t.Errorf("merged message = %+v", msgs[0])
	}
	if len(msgs[0].GeneratedPersonas) != 1 {
		t.Errorf("personas = %d, want 1", len(msgs[0].GeneratedPersonas))
	}
}

func TestStreamFailure_RollsBackTurn(t *testing.T) {
	m := newTestModel()

	m.startTurn("doomed", false)
	m.Update(streamStartedMsg{eventCh: make(chan streamEvent), cancel: func() {}})
	m.Update(streamFailedMsg{failure: streamFailure{err: errors.New("connection reset")}})

	if m.state != StateInput {
		t.Errorf("state = %d, want StateInput", m.state)
	}
	if m.turns.InFlight() {
		t.Error("latch should be released after failure")
	}
	if got := len(m.conv.Session().Messages); got != 0 {
		t.Errorf("messages = %d, want 0 after rollback", got)
	}
	if len(m.notices) == 0 {
		t.Error("failure should surface a notice")
	}
}

func TestStreamRefusal_DistinctNotice(t *testing.T) {
	m := newTestModel()

	m.startTurn("bad request", false)
	m.Update(streamStartedMsg{eventCh: make(chan streamEvent), cancel: func() {}})
	m.Update(streamFailedMsg{failure: streamFailure{serverMsg: "I can't help with that.", refusal: true}})

	if got := len(m.conv.Session().Messages); got != 0 {
		t.Errorf("messages = %d, want 0 after refusal rollback", got)
	}
	if len(m.notices) != 1 || m.notices[0].Role != roleSystem {
		t.Fatalf("refusal should be a system notice, got %+v", m.notices)
	}
}

func TestDoneEntersInterviewWhenQuestionsPresent(t *testing.T) {
	m := newTestModel()
	m.conv.Session().GeneratedQuestions = []session.Question{
		{QuestionText: "Q1", AnswerOption: []string{"A", "B"}},
	}

	m.startTurn("hello", false)
	m.Update(streamStartedMsg{eventCh: make(chan streamEvent), cancel: func() {}})
	m.Update(streamDoneMsg{update: sse.ChatMessageUpdate{
		Mode:    session.ModeQuestionGenerated,
		Message: session.ChatMessage{ID: "srv-1", Answer: "A few questions first."},
	}})

	if m.state != StateInterview {
		t.Errorf("state = %d, want StateInterview", m.state)
	}
}

func TestAnswerResult_NextQuestionResetsSelection(t *testing.T) {
	m := newTestModel()
	m.state = StateInterview
	m.submitting = true
	m.quizCursor = 2
	m.quizSelected[1] = true
	m.conv.Session().Mode = session.ModeQuestionGenerated
	m.conv.Session().GeneratedQuestions = []session.Question{
		{QuestionText: "Q1"},
		{QuestionText: "Q2"},
	}

	m.Update(answerResultMsg{updated: &session.ChatSession{
		Mode: session.ModeQuestionGenerated,
		GeneratedQuestions: []session.Question{
			{QuestionText: "Q1", HasAnswered: true, Answer: "a"},
			{QuestionText: "Q2"},
		},
	}})

	if m.state != StateInterview {
		t.Errorf("state = %d, want StateInterview", m.state)
	}
	if m.submitting {
		t.Error("submitting flag should clear")
	}
	if m.quizCursor != 0 || len(m.quizSelected) != 0 {
		t.Error("selection should reset for the next question")
	}
}

func TestAnswerResult_CompletionResumesGeneration(t *testing.T) {
	m := newTestModel()
	m.state = StateInterview
	m.submitting = true
	m.conv.Session().Mode = session.ModeQuestionGenerated
	m.conv.Session().GeneratedQuestions = []session.Question{{QuestionText: "Q1"}}

	_, cmd := m.Update(answerResultMsg{updated: &session.ChatSession{
		Mode: session.ModeQuestionGenerated,
		GeneratedQuestions: []session.Question{
			{QuestionText: "Q1", HasAnswered: true, Answer: "a"},
		},
	}})

	if cmd == nil {
		t.Fatal("completion should start the resume turn")
	}
	if !m.turns.InFlight() {
		t.Error("resume turn should hold the latch")
	}
	if got := m.turns.RequestMode(); got != session.RequestQuestionAnswered {
		t.Errorf("request mode = %q, want question_answered", got)
	}
}

func TestAnswerResult_ErrorKeepsQuestionOpen(t *testing.T) {
	m := newTestModel()
	m.state = StateInterview
	m.submitting = true
	m.conv.Session().Mode = session.ModeQuestionGenerated
	m.conv.Session().GeneratedQuestions = []session.Question{{QuestionText: "Q1"}}

	m.Update(answerResultMsg{err: errors.New("network down")})

	if m.state != StateInterview {
		t.Errorf("state = %d, want StateInterview (retry possible)", m.state)
	}
	if m.conv.Session().GeneratedQuestions[0].HasAnswered {
		t.Error("question must stay unanswered after a failed submit")
	}
	if len(m.notices) == 0 {
		t.Error("failure should surface a notice")
	}
}

func TestSessionRefresh_EntersInterview(t *testing.T) {
	m := newTestModel()
	m.state = StateThinking
	m.conv.Session().Mode = session.ModeQuestionGenerated

	m.Update(sessionRefreshMsg{updated: &session.ChatSession{
		Mode: session.ModeQuestionGenerated,
		GeneratedQuestions: []session.Question{
			{QuestionText: "Q1", AnswerOption: []string{"A"}},
		},
	}})

	if m.state != StateInterview {
		t.Errorf("state = %d, want StateInterview", m.state)
	}
	if len(m.conv.Session().GeneratedQuestions) != 1 {
		t.Error("questions should merge from the refreshed session")
	}
}

func TestNavigateHistory(t *testing.T) {
	m := newTestModel()
	m.history = []string{"first", "second"}
	m.historyIdx = 2

	m.navigateHistory(-1)
	if got := m.input.Value(); got != "second" {
		t.Errorf("input = %q, want %q", got, "second")
	}

	m.navigateHistory(-1)
	if got := m.input.Value(); got != "first" {
		t.Errorf("input = %q, want %q", got, "first")
	}

	m.navigateHistory(1)
	m.navigateHistory(1)
	if got := m.input.Value(); got != "" {
		t.Errorf("input = %q, want empty past newest entry", got)
	}
}

func TestRenderPersonaSummary_Empty(t *testing.T) {
	m := newTestModel()
	if got := m.renderPersonaSummary(); got != "No personas generated yet." {
		t.Errorf("summary = %q", got)
	}
}

func TestAnswerRendererResize(t *testing.T) {
	r := newAnswerRenderer(80)
	if r.Resize(80) {
		t.Error("Resize to the same width should be a no-op")
	}
	if r.Resize(0) {
		t.Error("Resize to a non-positive width should be a no-op")
	}
	if !r.Resize(100) {
		t.Error("Resize to a new width should rebuild the renderer")
	}
}

func TestAnswerRendererDegradesToPlainText(t *testing.T) {
	var r *answerRenderer
	if got := r.Answer("**raw**"); got != "**raw**" {
		t.Errorf("nil renderer Answer = %q, want passthrough", got)
	}
	empty := &answerRenderer{}
	if got := empty.PersonaSummary("- trait"); got != "- trait" {
		t.Errorf("uninitialized renderer PersonaSummary = %q, want passthrough", got)
	}
}

func TestViewRendersWithoutPanic(t *testing.T) {
	m := newTestModel()
	m.conv.Session().Messages = []session.ChatMessage{
		{ID: "srv-1", MessageContent: "hello", Answer: "**hi**", GeneratedPersonas: []session.Persona{
			{Name: "Mia", Archetype: "Trendsetter", Age: 22, Occupation: "Student", Traits: []string{"curious"}},
		}},
	}
	m.rebuildViewportContent()
	_ = m.View()
	if m.viewBuf.Len() == 0 {
		t.Error("View should render content")
	}
}
