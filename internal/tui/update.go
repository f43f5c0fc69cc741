package tui

import (
	"context"
	"errors"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"

	"github.com/vibecheck-ai/vibecheck/internal/conversation"
	"github.com/vibecheck-ai/vibecheck/internal/session"
)

// Update implements tea.Model.
//
//nolint:gocognit,gocyclo // Bubble Tea Update requires type switch on all message types
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		// Calculate viewport height: total - input - separators - help
		inputHeight := m.input.Height() + promptLines
		fixedHeight := separatorLines + inputHeight + helpLines
		vpHeight := max(msg.Height-fixedHeight, minViewport)

		m.viewport.SetWidth(msg.Width)
		m.viewport.SetHeight(vpHeight)
		m.input.SetWidth(msg.Width - 4) // Room for "> " prompt
		m.help.SetWidth(msg.Width)
		m.markdown.Resize(msg.Width)

		// Rebuild viewport content with new dimensions
		m.rebuildViewportContent()
		return m, nil

	case tea.MouseWheelMsg:
		// Forward mouse wheel to viewport for scrolling
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		// Rebuild viewport to update spinner animation
		if m.state == StateThinking || m.submitting {
			m.rebuildViewportContent()
		}
		return m, cmd

	case seedPromptMsg:
		return m.startTurn(m.seedPrompt, true)

	case streamStartedMsg:
		m.streamCancel = msg.cancel
		m.streamEventCh = msg.eventCh
		m.state = StateStreaming
		m.rebuildViewportContent()
		m.viewport.GotoBottom()
		return m, listenForStream(msg.eventCh)

	case streamChunkMsg:
		m.conv.AppendChunk(msg.text)
		m.rebuildViewportContent()
		m.viewport.GotoBottom()
		return m, listenForStream(m.streamEventCh)

	case streamThinkingMsg:
		m.conv.AppendThinking(msg.text)
		if m.showThinking {
			m.rebuildViewportContent()
			m.viewport.GotoBottom()
		}
		return m, listenForStream(m.streamEventCh)

	case streamAckMsg:
		if err := m.conv.ApplyThinkingChat(msg.update); err != nil {
			m.logger.Warn("dropping stream acknowledgment", "error", err)
		}
		m.rebuildViewportContent()
		m.viewport.GotoBottom()
		return m, listenForStream(m.streamEventCh)

	case streamDoneMsg:
		return m.finishTurn(msg)

	case streamFailedMsg:
		return m.failTurn(msg.failure)

	case answerResultMsg:
		return m.applyAnswerResult(msg)

	case sessionRefreshMsg:
		return m.applySessionRefresh(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// startTurn submits one outgoing message: latch, optimistic insert, then
// the stream command. The latch is taken before any network I/O so a rapid
// second submit is rejected here, not on the wire. seeded marks the
// auto-triggered startup prompt, the only turn sent as initial_prompt.
func (m *Model) startTurn(text string, seeded bool) (tea.Model, tea.Cmd) {
	mode := conversation.NextRequestMode(m.conv.Session(), seeded, m.resumeAfter)
	if err := m.turns.Begin(mode); err != nil {
		m.addNotice(notice{Role: roleSystem, Text: "A response is already streaming. Press Esc to cancel it first."})
		m.rebuildViewportContent()
		return m, nil
	}
	m.resumeAfter = false

	if _, err := m.conv.BeginTurn(text); err != nil {
		m.turns.Finish()
		m.addNotice(notice{Role: roleError, Text: err.Error()})
		m.rebuildViewportContent()
		return m, nil
	}

	m.state = StateThinking
	m.rebuildViewportContent()
	m.viewport.GotoBottom()

	return m, tea.Batch(
		m.spinner.Tick,
		m.startStream(text, mode),
	)
}

// finishTurn merges the terminal done event and decides the next state:
// back to input, or into the interview when new questions await.
func (m *Model) finishTurn(msg streamDoneMsg) (tea.Model, tea.Cmd) {
	m.releaseStream()
	m.turns.Finish()

	if err := m.conv.ApplyDone(msg.update); err != nil {
		m.logger.Warn("dropping terminal stream event", "error", err)
	}
	if m.cache != nil {
		m.cache.Put(m.conv.Session())
	}

	s := m.conv.Session()
	switch {
	case s.AwaitingInterview():
		m.enterInterview()
	case s.Mode == session.ModeQuestionGenerated:
		// The turn generated questions but they travel in the session
		// document, not the stream. Fetch them before interviewing.
		m.state = StateThinking
		m.rebuildViewportContent()
		m.viewport.GotoBottom()
		return m, tea.Batch(m.spinner.Tick, m.refreshSession())
	default:
		m.state = StateInput
	}
	m.rebuildViewportContent()
	m.viewport.GotoBottom()
	// Re-focus textarea after stream completes
	return m, m.input.Focus()
}

// applySessionRefresh folds a refetched session in and enters the interview
// when open questions arrived.
func (m *Model) applySessionRefresh(msg sessionRefreshMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.state = StateInput
		m.addNotice(notice{Role: roleError, Text: "Could not load questions: " + msg.err.Error()})
		m.rebuildViewportContent()
		return m, m.input.Focus()
	}

	s := m.conv.Session()
	m.conv.MergeQuestions(msg.updated.GeneratedQuestions)
	if msg.updated.Mode != "" {
		s.Mode = msg.updated.Mode
	}
	if msg.updated.Name != "" {
		s.Name = msg.updated.Name
	}
	if msg.updated.PersonaSummary != "" {
		s.PersonaSummary = msg.updated.PersonaSummary
	}
	if m.cache != nil {
		m.cache.Put(s)
	}

	if s.AwaitingInterview() {
		m.enterInterview()
	} else {
		m.state = StateInput
	}
	m.rebuildViewportContent()
	m.viewport.GotoBottom()
	return m, m.input.Focus()
}

// failTurn rolls the optimistic turn back on every terminal failure path:
// transport errors, timeouts, cancellation, server errors, and refusals.
func (m *Model) failTurn(f streamFailure) (tea.Model, tea.Cmd) {
	m.releaseStream()
	m.turns.Finish()
	m.conv.Rollback()
	m.state = StateInput

	// The server may have recorded part of the turn; drop the cached copy
	// so the next resume refetches.
	if m.cache != nil {
		m.cache.Invalidate(m.conv.Session().ID)
	}

	switch {
	case f.refusal:
		text := f.serverMsg
		if text == "" {
			text = "The request was declined. Try rephrasing your prompt."
		}
		m.addNotice(notice{Role: roleSystem, Text: text})
	case f.serverMsg != "":
		m.addNotice(notice{Role: roleError, Text: f.serverMsg})
	case errors.Is(f.err, context.Canceled):
		m.addNotice(notice{Role: roleSystem, Text: "(Canceled)"})
	case errors.Is(f.err, context.DeadlineExceeded):
		m.addNotice(notice{Role: roleError, Text: "Stream timed out. Try a shorter prompt or check the server."})
	case f.err != nil:
		m.addNotice(notice{Role: roleError, Text: f.err.Error()})
	}

	m.rebuildViewportContent()
	m.viewport.GotoBottom()
	// Re-focus textarea after error
	return m, m.input.Focus()
}

// releaseStream cancels the stream context and clears channel state.
func (m *Model) releaseStream() {
	if m.streamCancel != nil {
		m.streamCancel()
		m.streamCancel = nil
	}
	m.streamEventCh = nil
}

// enterInterview switches to the question-answering state with a clean
// selection.
func (m *Model) enterInterview() {
	m.state = StateInterview
	m.quizCursor = 0
	m.quizSelected = make(map[int]bool)
	m.submitting = false
	m.input.Reset()
	m.input.Placeholder = "Add detail (optional), Enter to answer..."
}

// leaveInterview restores the normal input prompt.
func (m *Model) leaveInterview() {
	m.state = StateInput
	m.submitting = false
	m.input.Reset()
	m.input.Placeholder = "Describe the audience you want personas for..."
}

// applyAnswerResult folds one answered question back in. When the last
// question is answered the generation turn resumes automatically with an
// empty message.
func (m *Model) applyAnswerResult(msg answerResultMsg) (tea.Model, tea.Cmd) {
	m.submitting = false

	if msg.err != nil {
		m.addNotice(notice{Role: roleError, Text: msg.err.Error()})
		m.rebuildViewportContent()
		return m, nil
	}

	done := m.interview.Merge(m.conv, msg.updated)
	if m.cache != nil {
		m.cache.Put(m.conv.Session())
	}
	if done {
		m.leaveInterview()
		m.rebuildViewportContent()
		m.viewport.GotoBottom()
		return m.startTurn("", false)
	}

	// Next question: fresh selection, keep interview state.
	m.quizCursor = 0
	m.quizSelected = make(map[int]bool)
	m.input.Reset()
	m.rebuildViewportContent()
	m.viewport.GotoBottom()
	return m, nil
}
