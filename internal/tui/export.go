package tui

import (
	"errors"

	"github.com/vibecheck-ai/vibecheck/internal/session"
)

// SessionExporter writes a session snapshot to a file and returns its path.
// *export.Exporter satisfies it.
type SessionExporter interface {
	Session(s *session.ChatSession) (string, error)
}

// exportTranscript hands the session to the injected exporter.
func (m *Model) exportTranscript() (string, error) {
	if m.exporter == nil {
		return "", errors.New("export is not configured")
	}
	return m.exporter.Session(m.conv.Session())
}
