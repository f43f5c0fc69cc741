// Package tui provides the Bubble Tea terminal interface for VibeCheck.
package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/vibecheck-ai/vibecheck/internal/client"
	"github.com/vibecheck-ai/vibecheck/internal/conversation"
	"github.com/vibecheck-ai/vibecheck/internal/log"
)

// State represents the TUI state machine.
type State int

// TUI state machine states.
const (
	StateInput     State = iota // Awaiting user input
	StateThinking               // Request sent, no stream event yet
	StateStreaming              // Streaming response
	StateInterview              // Answering generated questions
)

// Memory bounds to prevent unbounded growth.
const (
	maxHistory = 100 // Maximum command history entries
	maxNotices = 20  // Maximum system/error notices kept
)

// defaultStreamTimeout bounds a single streaming turn when the caller does
// not configure one.
const defaultStreamTimeout = 5 * time.Minute

// Notice role constants for consistent display.
const (
	roleSystem = "system"
	roleError  = "error"
)

// notice is a transient system or error line shown under the transcript.
type notice struct {
	Role string // "system", "error"
	Text string
}

// Layout constants for viewport height calculation.
const (
	separatorLines = 2 // Two separator lines (above and below input)
	helpLines      = 1 // Help bar height
	promptLines    = 1 // Prompt prefix line
	minViewport    = 3 // Minimum viewport height
)

// Options configures a Model beyond its required dependencies.
type Options struct {
	// Logger receives debug events; defaults to a no-op logger.
	Logger log.Logger

	// StreamTimeout bounds each streaming turn; defaults to 5 minutes.
	StreamTimeout time.Duration

	// SeedPrompt, when non-empty, is submitted automatically as the
	// session's opening turn.
	SeedPrompt string

	// ShowThinking renders the model's intermediate exposition in the
	// transcript. Toggled at runtime with /thinking.
	ShowThinking bool

	// Cache, when non-nil, receives the session after each completed turn
	// so resuming it later skips a refetch.
	Cache *conversation.Cache

	// Exporter handles the /export slash command. Nil disables export.
	Exporter SessionExporter
}

// Model is the Bubble Tea model for the VibeCheck terminal interface.
type Model struct {
	// Input (textarea for multi-line support, Shift+Enter for newline)
	input      textarea.Model
	history    []string
	historyIdx int

	// State
	state     State
	lastCtrlC time.Time

	// Output
	spinner spinner.Model
	viewBuf strings.Builder // Reusable buffer for View() to reduce allocations
	notices []notice

	// Scrollable message viewport
	viewport viewport.Model

	// Help bar for keyboard shortcuts
	help help.Model
	keys keyMap

	// Stream management
	// Note: No sync.WaitGroup - Bubble Tea's event loop provides synchronization.
	// Single union channel with discriminated events simplifies select logic.
	streamCancel  context.CancelFunc
	streamEventCh <-chan streamEvent
	streamTimeout time.Duration

	// Turn and interview state. All mutation happens in Update; commands
	// only ferry network results back as messages.
	conv         *conversation.Conversation
	turns        conversation.Controller
	interview    *conversation.Interview
	resumeAfter  bool // interview completed, next turn resumes generation
	quizCursor   int
	quizSelected map[int]bool
	submitting   bool // an interview answer is on the wire

	// Dependencies
	api        *client.Client
	cache      *conversation.Cache
	exporter   SessionExporter
	seedPrompt string
	logger     log.Logger
	ctx        context.Context
	ctxCancel  context.CancelFunc // For canceling all operations on exit

	// Display toggles
	showThinking bool

	// Dimensions
	width  int
	height int

	// Styles
	styles Styles

	// Answer/persona markdown rendering (degrades to plain text)
	markdown *answerRenderer
}

// addNotice appends a notice and enforces maxNotices bound.
func (m *Model) addNotice(n notice) {
	m.notices = append(m.notices, n)
	if len(m.notices) > maxNotices {
		m.notices = m.notices[len(m.notices)-maxNotices:]
	}
}

// New creates a Model for chat interaction over an existing session.
// Returns error if required dependencies are nil.
//
// IMPORTANT: ctx MUST be the same context passed to tea.WithContext()
// to ensure consistent cancellation behavior.
func New(ctx context.Context, api *client.Client, conv *conversation.Conversation, opts Options) (*Model, error) {
	if api == nil {
		return nil, errors.New("tui.New: api client is required")
	}
	if conv == nil {
		return nil, errors.New("tui.New: conversation is required")
	}
	if ctx == nil {
		return nil, errors.New("tui.New: ctx is required")
	}
	if conv.Session().ID == "" {
		return nil, errors.New("tui.New: session ID is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	streamTimeout := opts.StreamTimeout
	if streamTimeout <= 0 {
		streamTimeout = defaultStreamTimeout
	}

	// Create cancellable context for cleanup on exit
	ctx, cancel := context.WithCancel(ctx)

	// Create textarea for multi-line input
	// Enter submits, Shift+Enter adds newline (default behavior)
	ta := textarea.New()
	ta.Placeholder = "Describe the audience you want personas for..."
	ta.SetHeight(1)  // Single line by default
	ta.SetWidth(120) // Wide enough for long text, updated on WindowSizeMsg
	ta.MaxWidth = 0  // No max width limit
	ta.ShowLineNumbers = false

	// No background colors, just simple text
	cleanStyle := textarea.StyleState{
		Base:        lipgloss.NewStyle(),
		Text:        lipgloss.NewStyle(),
		Placeholder: lipgloss.NewStyle().Foreground(lipgloss.Color("240")), // Gray placeholder
		Prompt:      lipgloss.NewStyle(),
	}
	ta.SetStyles(textarea.Styles{
		Focused: cleanStyle,
		Blurred: cleanStyle,
	})
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	// Create viewport for scrollable message history.
	// Disable built-in keyboard handling — we route keys explicitly
	// in handleKey to avoid conflicts with textarea/history navigation.
	vp := viewport.New(viewport.WithWidth(80), viewport.WithHeight(20))
	vp.MouseWheelEnabled = true
	vp.SoftWrap = true
	vp.KeyMap = viewport.KeyMap{} // Disable default key bindings

	h := help.New()

	m := &Model{
		api:           api,
		conv:          conv,
		cache:         opts.Cache,
		exporter:      opts.Exporter,
		seedPrompt:    strings.TrimSpace(opts.SeedPrompt),
		showThinking:  opts.ShowThinking,
		streamTimeout: streamTimeout,
		logger:        logger,
		ctx:           ctx,
		ctxCancel:     cancel,
		input:         ta,
		spinner:       sp,
		viewport:      vp,
		help:          h,
		keys:          newKeyMap(),
		styles:        DefaultStyles(),
		history:       make([]string, 0, maxHistory),
		quizSelected:  make(map[int]bool),
		markdown:      newAnswerRenderer(80),
		width:         80, // Default width until WindowSizeMsg arrives
	}
	m.interview = conversation.NewInterview(func() { m.resumeAfter = true })

	// A resumed session may land mid-interview.
	if conv.Session().AwaitingInterview() {
		m.state = StateInterview
	}
	return m, nil
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textarea.Blink,
		m.spinner.Tick,
		m.input.Focus(), // Ensure textarea is focused on startup
	}
	if m.seedPrompt != "" && m.state == StateInput {
		cmds = append(cmds, func() tea.Msg { return seedPromptMsg{} })
	}
	return tea.Batch(cmds...)
}
