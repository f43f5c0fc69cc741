package tui

import (
	"strings"
	"time"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
)

// Slash command constants.
const (
	cmdHelp     = "/help"
	cmdClear    = "/clear"
	cmdExit     = "/exit"
	cmdQuit     = "/quit"
	cmdExport   = "/export"
	cmdPersonas = "/personas"
	cmdThinking = "/thinking"
)

// keyMap holds key bindings for help bar display.
type keyMap struct {
	Submit     key.Binding
	NewLine    key.Binding
	History    key.Binding
	Cancel     key.Binding
	Quit       key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	EscCancel  key.Binding
	Toggle     key.Binding
	Move       key.Binding
	Skip       key.Binding
	Answer     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Submit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		NewLine:    key.NewBinding(key.WithKeys("shift+enter"), key.WithHelp("s+enter", "newline")),
		History:    key.NewBinding(key.WithKeys("up", "down"), key.WithHelp("↑/↓", "history")),
		Cancel:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "cancel")),
		Quit:       key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "exit")),
		ScrollUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
		ScrollDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll down")),
		EscCancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Toggle:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "toggle option")),
		Move:       key.NewBinding(key.WithKeys("up", "down"), key.WithHelp("↑/↓", "move")),
		Skip:       key.NewBinding(key.WithKeys("ctrl+k"), key.WithHelp("ctrl+k", "skip question")),
		Answer:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "answer")),
	}
}

//nolint:gocyclo // Keyboard handler requires branching for all key combinations
func (m *Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	k := msg.Key()

	// Check for Ctrl modifier
	if k.Mod&tea.ModCtrl != 0 {
		switch k.Code {
		case 'c':
			return m.handleCtrlC()
		case 'd':
			cmd := m.cleanup()
			return m, cmd
		case 'k':
			if m.state == StateInterview && !m.submitting {
				return m.handleSkip()
			}
		}
	}

	// Interview-specific keys before the generic handling.
	if m.state == StateInterview {
		if handled, model, cmd := m.handleInterviewKey(k); handled {
			return model, cmd
		}
	}

	// Check special keys
	switch k.Code {
	case tea.KeyEnter:
		if m.state == StateInput {
			// Enter without Shift = submit
			// Shift+Enter = newline (pass through to textarea)
			if k.Mod&tea.ModShift == 0 {
				return m.handleSubmit()
			}
		}

	case tea.KeyUp:
		// Up at first line navigates history, otherwise pass to textarea
		if m.state == StateInput && m.input.Line() == 0 {
			return m.navigateHistory(-1)
		}

	case tea.KeyDown:
		// Down at last line navigates history, otherwise pass to textarea
		if m.state == StateInput && m.input.Line() == m.input.LineCount()-1 {
			return m.navigateHistory(1)
		}

	case tea.KeyEscape:
		if m.state == StateStreaming || m.state == StateThinking {
			m.cancelStream()
			m.turns.Finish()
			m.conv.Rollback()
			m.state = StateInput
			m.addNotice(notice{Role: roleSystem, Text: "(Canceled)"})
			m.rebuildViewportContent()
			return m, nil
		}

	case tea.KeyPgUp:
		m.viewport.PageUp()
		return m, nil

	case tea.KeyPgDown:
		m.viewport.PageDown()
		return m, nil
	}

	// Pass keys to textarea for typing - ALWAYS allow typing even during streaming
	// Better UX: users can prepare next message while the stream runs
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleInterviewKey routes keys while answering generated questions.
// Up/Down move over options, Tab toggles the highlighted option, Enter
// submits selected options plus any free text in the textarea.
func (m *Model) handleInterviewKey(k tea.Key) (bool, tea.Model, tea.Cmd) {
	if m.submitting {
		// Answer on the wire: swallow everything but scrolling.
		switch k.Code {
		case tea.KeyPgUp:
			m.viewport.PageUp()
		case tea.KeyPgDown:
			m.viewport.PageDown()
		}
		return true, m, nil
	}

	options := m.currentOptions()

	switch k.Code {
	case tea.KeyUp:
		if m.quizCursor > 0 {
			m.quizCursor--
			m.rebuildViewportContent()
		}
		return true, m, nil

	case tea.KeyDown:
		if m.quizCursor < len(options)-1 {
			m.quizCursor++
			m.rebuildViewportContent()
		}
		return true, m, nil

	case tea.KeyTab:
		if len(options) > 0 {
			m.quizSelected[m.quizCursor] = !m.quizSelected[m.quizCursor]
			m.rebuildViewportContent()
		}
		return true, m, nil

	case tea.KeyEnter:
		if k.Mod&tea.ModShift != 0 {
			return false, m, nil // Shift+Enter still adds a newline
		}
		model, cmd := m.submitInterviewAnswer()
		return true, model, cmd
	}

	return false, m, nil
}

// submitInterviewAnswer composes and submits the current answer.
func (m *Model) submitInterviewAnswer() (tea.Model, tea.Cmd) {
	options := m.currentOptions()
	var selected []string
	for i, opt := range options {
		if m.quizSelected[i] {
			selected = append(selected, opt)
		}
	}

	question, answer, err := m.interview.Compose(m.conv.Session(), selected, m.input.Value())
	if err != nil {
		m.addNotice(notice{Role: roleSystem, Text: "Pick at least one option or type an answer. Ctrl+K skips."})
		m.rebuildViewportContent()
		return m, nil
	}

	m.submitting = true
	m.input.Reset()
	m.rebuildViewportContent()
	return m, tea.Batch(m.spinner.Tick, m.submitAnswer(question, answer))
}

// handleSkip answers the current question with the skip marker.
func (m *Model) handleSkip() (tea.Model, tea.Cmd) {
	question, answer, err := m.interview.Skip(m.conv.Session())
	if err != nil {
		m.leaveInterview()
		m.rebuildViewportContent()
		return m, nil
	}

	m.submitting = true
	m.input.Reset()
	m.rebuildViewportContent()
	return m, tea.Batch(m.spinner.Tick, m.submitAnswer(question, answer))
}

func (m *Model) handleCtrlC() (tea.Model, tea.Cmd) {
	now := time.Now()

	// Double Ctrl+C within 1 second = quit
	if now.Sub(m.lastCtrlC) < time.Second {
		cmd := m.cleanup()
		return m, cmd
	}
	m.lastCtrlC = now

	switch m.state {
	case StateInput, StateInterview:
		m.input.Reset()
		return m, nil

	case StateThinking, StateStreaming:
		m.cancelStream()
		m.turns.Finish()
		m.conv.Rollback()
		m.state = StateInput
		m.addNotice(notice{Role: roleSystem, Text: "(Canceled)"})
		m.rebuildViewportContent()
		return m, nil
	}

	return m, nil
}

func (m *Model) handleSubmit() (tea.Model, tea.Cmd) {
	query := strings.TrimSpace(m.input.Value())
	if query == "" {
		return m, nil
	}

	// Handle slash commands
	if strings.HasPrefix(query, "/") {
		return m.handleSlashCommand(query)
	}

	// Add to history (enforce maxHistory cap)
	m.history = append(m.history, query)
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
	m.historyIdx = len(m.history)

	// Clear input
	m.input.Reset()

	return m.startTurn(query, false)
}

func (m *Model) handleSlashCommand(cmd string) (tea.Model, tea.Cmd) {
	switch cmd {
	case cmdHelp:
		m.addNotice(notice{
			Role: roleSystem,
			Text: "Commands: " + cmdHelp + ", " + cmdClear + ", " + cmdExport + ", " + cmdPersonas + ", " + cmdThinking + ", " + cmdExit +
				"\nShortcuts:\n  Enter: send message\n  Shift+Enter: new line\n  Ctrl+C: cancel/clear\n  Ctrl+D: exit\n  Up/Down: history\n  PgUp/PgDn: scroll",
		})
	case cmdClear:
		m.notices = nil
	case cmdExport:
		path, err := m.exportTranscript()
		if err != nil {
			m.addNotice(notice{Role: roleError, Text: "Export failed: " + err.Error()})
		} else {
			m.addNotice(notice{Role: roleSystem, Text: "Transcript written to " + path})
		}
	case cmdPersonas:
		m.addNotice(notice{Role: roleSystem, Text: m.renderPersonaSummary()})
	case cmdThinking:
		m.showThinking = !m.showThinking
		if m.showThinking {
			m.addNotice(notice{Role: roleSystem, Text: "Thinking text shown."})
		} else {
			m.addNotice(notice{Role: roleSystem, Text: "Thinking text hidden."})
		}
	case cmdExit, cmdQuit:
		cleanupCmd := m.cleanup()
		return m, cleanupCmd
	default:
		m.addNotice(notice{
			Role: roleError,
			Text: "Unknown command: " + cmd,
		})
	}
	m.input.Reset()
	m.rebuildViewportContent()
	return m, nil
}

func (m *Model) navigateHistory(delta int) (tea.Model, tea.Cmd) {
	if len(m.history) == 0 {
		return m, nil
	}

	m.historyIdx += delta

	if m.historyIdx < 0 {
		m.historyIdx = 0
	}
	if m.historyIdx > len(m.history) {
		m.historyIdx = len(m.history)
	}

	if m.historyIdx == len(m.history) {
		m.input.SetValue("")
	} else {
		m.input.SetValue(m.history[m.historyIdx])
		// Move cursor to end of text
		m.input.CursorEnd()
	}

	return m, nil
}

func (m *Model) cancelStream() {
	if m.streamCancel != nil {
		m.streamCancel()
		m.streamCancel = nil
	}
	m.streamEventCh = nil
}

// cleanup cancels any active stream and returns the quit command.
func (m *Model) cleanup() tea.Cmd {
	// Cancel main context first - this triggers all goroutines using m.ctx
	if m.ctxCancel != nil {
		m.ctxCancel()
		m.ctxCancel = nil
	}

	// Then cancel stream-specific context (may already be canceled via parent)
	m.cancelStream()

	return tea.Quit
}
