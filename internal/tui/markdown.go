package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// answerWrapMargin keeps rendered answers a little clear of the right edge
// so persona cards printed beneath them line up inside the viewport.
const answerWrapMargin = 2

// answerRenderer converts the assistant's Markdown output into styled
// terminal text. Persona write-ups lean on Markdown structure (headings,
// tables, nested trait lists), so both streamed answers and the session's
// persona summary go through glamour. The underlying renderer is rebuilt
// only when the terminal width actually changes.
type answerRenderer struct {
	gr    *glamour.TermRenderer
	width int
}

// newAnswerRenderer builds a renderer for the given terminal width. When
// glamour cannot initialize, the renderer degrades to passing text through
// unstyled rather than failing the UI.
func newAnswerRenderer(width int) *answerRenderer {
	r := &answerRenderer{}
	r.Resize(width)
	return r
}

// Resize rebuilds the glamour renderer for a new terminal width and reports
// whether a rebuild happened. A failed rebuild keeps the previous renderer.
func (r *answerRenderer) Resize(width int) bool {
	if r == nil || width <= 0 {
		return false
	}
	if width == r.width && r.gr != nil {
		return false
	}

	wrap := width - answerWrapMargin
	if wrap < 20 {
		wrap = 20
	}
	gr, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
		glamour.WithEmoji(),
	)
	if err != nil {
		return false
	}

	r.gr = gr
	r.width = width
	return true
}

// Answer renders one assistant answer. The input is returned untouched when
// rendering is unavailable or fails.
func (r *answerRenderer) Answer(text string) string {
	if r == nil || r.gr == nil {
		return text
	}
	rendered, err := r.gr.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(rendered, "\n")
}

// PersonaSummary renders the session-level persona summary, which the
// backend writes as a Markdown digest of every generated persona.
func (r *answerRenderer) PersonaSummary(summary string) string {
	return r.Answer(summary)
}
