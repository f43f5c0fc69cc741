package tui

import (
	"strconv"
	"strings"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"

	"github.com/vibecheck-ai/vibecheck/internal/session"
)

// View implements tea.Model.
// Uses AltScreen with viewport for scrollable message history.
func (m *Model) View() tea.View {
	m.viewBuf.Reset()

	// Viewport (scrollable message area)
	_, _ = m.viewBuf.WriteString(m.viewport.View())
	_, _ = m.viewBuf.WriteString("\n")

	// Separator line above input
	_, _ = m.viewBuf.WriteString(m.renderSeparator())
	_, _ = m.viewBuf.WriteString("\n")

	// Input prompt - always show and always accept input
	// Users can type while the response is streaming
	_, _ = m.viewBuf.WriteString(m.styles.Prompt.Render("> "))
	_, _ = m.viewBuf.WriteString(m.input.View())
	_, _ = m.viewBuf.WriteString("\n")

	// Separator line below input
	_, _ = m.viewBuf.WriteString(m.renderSeparator())
	_, _ = m.viewBuf.WriteString("\n")

	// Help bar (keyboard shortcuts)
	_, _ = m.viewBuf.WriteString(m.renderStatusBar())

	v := tea.NewView(m.viewBuf.String())
	v.AltScreen = true
	return v
}

// rebuildViewportContent reconstructs the viewport content from the session
// transcript and current state. The transcript is always derived from the
// conversation, so optimistic inserts, identity migration, and rollback all
// show up without separate display bookkeeping.
func (m *Model) rebuildViewportContent() {
	var b strings.Builder

	// Banner (ASCII art) and tips
	_, _ = b.WriteString(m.styles.RenderBanner())
	_, _ = b.WriteString("\n")
	_, _ = b.WriteString(m.styles.RenderWelcomeTips())
	_, _ = b.WriteString("\n")

	for _, msg := range m.conv.Session().Messages {
		m.renderTranscriptMessage(&b, msg)
	}

	// Current streaming output (transient, replaced by the done merge)
	if m.state == StateStreaming {
		if m.showThinking && m.conv.ThinkingText() != "" {
			_, _ = b.WriteString(m.styles.Thinking.Render(m.conv.ThinkingText()))
			_, _ = b.WriteString("\n\n")
		}
		if m.conv.StreamingAnswer() != "" {
			_, _ = b.WriteString(m.styles.Assistant.Render("VibeCheck> "))
			_, _ = b.WriteString(m.conv.StreamingAnswer())
			_, _ = b.WriteString("\n\n")
		}
	}

	// Thinking indicator
	if m.state == StateThinking {
		_, _ = b.WriteString(m.spinner.View())
		_, _ = b.WriteString(" Thinking...\n\n")
	}

	// Interview panel
	if m.state == StateInterview {
		m.renderInterview(&b)
	}

	// Notices (system and error lines)
	for _, n := range m.notices {
		switch n.Role {
		case roleError:
			_, _ = b.WriteString(m.styles.Error.Render("Error: " + n.Text))
		default:
			_, _ = b.WriteString(m.styles.System.Render(n.Text))
		}
		_, _ = b.WriteString("\n\n")
	}

	m.viewport.SetContent(b.String())
}

// renderTranscriptMessage writes one conversational turn. Resume turns have
// no user text, so the user line is skipped for them.
func (m *Model) renderTranscriptMessage(b *strings.Builder, msg session.ChatMessage) {
	if msg.MessageContent != "" {
		_, _ = b.WriteString(m.styles.User.Render("You> "))
		_, _ = b.WriteString(msg.MessageContent)
		_, _ = b.WriteString("\n\n")
	}
	if m.showThinking && msg.ThinkingText != "" {
		_, _ = b.WriteString(m.styles.Thinking.Render(msg.ThinkingText))
		_, _ = b.WriteString("\n\n")
	}
	if msg.Answer != "" {
		_, _ = b.WriteString(m.styles.Assistant.Render("VibeCheck> "))
		_, _ = b.WriteString(m.markdown.Answer(msg.Answer))
		_, _ = b.WriteString("\n\n")
	}
	for _, p := range msg.GeneratedPersonas {
		_, _ = b.WriteString(m.renderPersona(p))
		_, _ = b.WriteString("\n")
	}
	if len(msg.GeneratedPersonas) > 0 {
		_, _ = b.WriteString("\n")
	}
}

// renderPersona formats one generated persona as a compact card.
func (m *Model) renderPersona(p session.Persona) string {
	var b strings.Builder
	header := p.Name
	if p.Archetype != "" {
		header += " · " + p.Archetype
	}
	_, _ = b.WriteString(m.styles.Persona.Render("◆ " + header))
	_, _ = b.WriteString("\n")

	var facts []string
	if p.Age > 0 {
		facts = append(facts, strconv.Itoa(p.Age)+" years old")
	}
	if p.Occupation != "" {
		facts = append(facts, p.Occupation)
	}
	if len(facts) > 0 {
		_, _ = b.WriteString("  " + strings.Join(facts, ", ") + "\n")
	}
	if len(p.Traits) > 0 {
		_, _ = b.WriteString("  " + m.styles.System.Render(strings.Join(p.Traits, " · ")) + "\n")
	}
	if p.Summary != "" {
		_, _ = b.WriteString("  " + p.Summary + "\n")
	}
	return b.String()
}

// renderInterview writes the current question with its options, progress,
// and the selection cursor.
func (m *Model) renderInterview(b *strings.Builder) {
	s := m.conv.Session()
	idx := session.CurrentQuestion(s.GeneratedQuestions)
	if idx < 0 {
		return
	}
	q := s.GeneratedQuestions[idx]
	answered := len(s.GeneratedQuestions) - session.UnansweredCount(s.GeneratedQuestions)

	_, _ = b.WriteString(m.styles.Header.Render(
		"Question " + strconv.Itoa(answered+1) + " of " + strconv.Itoa(len(s.GeneratedQuestions))))
	_, _ = b.WriteString("\n")
	_, _ = b.WriteString(q.QuestionText)
	_, _ = b.WriteString("\n\n")

	for i, opt := range q.AnswerOption {
		cursor := "  "
		if i == m.quizCursor {
			cursor = m.styles.Prompt.Render("> ")
		}
		box := "[ ] "
		if m.quizSelected[i] {
			box = "[x] "
		}
		line := box + opt
		if i == m.quizCursor {
			line = m.styles.User.Render(line)
		}
		_, _ = b.WriteString(cursor)
		_, _ = b.WriteString(line)
		_, _ = b.WriteString("\n")
	}

	_, _ = b.WriteString("\n")
	if m.submitting {
		_, _ = b.WriteString(m.spinner.View())
		_, _ = b.WriteString(" Submitting answer...\n")
	} else {
		_, _ = b.WriteString(m.styles.System.Render(
			"Tab toggles an option, type for free text, Enter answers, Ctrl+K skips."))
		_, _ = b.WriteString("\n")
	}
}

// renderPersonaSummary builds the /personas listing from every generated
// persona in the session, newest last.
func (m *Model) renderPersonaSummary() string {
	s := m.conv.Session()
	var b strings.Builder
	count := 0
	for _, msg := range s.Messages {
		for _, p := range msg.GeneratedPersonas {
			count++
			_, _ = b.WriteString(m.renderPersona(p))
		}
	}
	if count == 0 {
		return "No personas generated yet."
	}
	if s.PersonaSummary != "" {
		_, _ = b.WriteString("\n")
		_, _ = b.WriteString(m.markdown.PersonaSummary(s.PersonaSummary))
	}
	return strings.TrimRight(b.String(), "\n")
}

// currentOptions returns the options of the question being answered, or nil.
func (m *Model) currentOptions() []string {
	s := m.conv.Session()
	idx := session.CurrentQuestion(s.GeneratedQuestions)
	if idx < 0 {
		return nil
	}
	return s.GeneratedQuestions[idx].AnswerOption
}

// renderSeparator returns a horizontal line separator.
func (m *Model) renderSeparator() string {
	width := m.width
	if width <= 0 {
		width = 80 // Default width
	}
	return m.styles.Separator.Render(strings.Repeat("─", width))
}

// renderStatusBar returns state-appropriate keyboard shortcut help.
func (m *Model) renderStatusBar() string {
	var bindings []key.Binding
	switch m.state {
	case StateInput:
		bindings = []key.Binding{
			m.keys.Submit, m.keys.NewLine, m.keys.History,
			m.keys.Cancel, m.keys.Quit, m.keys.ScrollUp,
		}
	case StateThinking, StateStreaming:
		bindings = []key.Binding{
			m.keys.EscCancel, m.keys.Cancel,
			m.keys.ScrollUp, m.keys.ScrollDown,
		}
	case StateInterview:
		bindings = []key.Binding{
			m.keys.Move, m.keys.Toggle, m.keys.Answer,
			m.keys.Skip, m.keys.Quit,
		}
	}
	return m.help.ShortHelpView(bindings)
}
