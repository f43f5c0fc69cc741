// Package export writes sessions to local files. It is injected where
// needed (TUI slash command, sessions subcommand) rather than reached for
// globally.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vibecheck-ai/vibecheck/internal/log"
	"github.com/vibecheck-ai/vibecheck/internal/session"
)

// Exporter writes session snapshots as JSON files.
type Exporter struct {
	dir    string
	logger log.Logger
	now    func() time.Time
}

// New creates an exporter writing into dir. An empty dir means the current
// working directory.
func New(dir string, logger log.Logger) *Exporter {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Exporter{dir: dir, logger: logger, now: time.Now}
}

// Session writes the session as indented JSON and returns the file path.
// Provisional messages are dropped: only turns the server confirmed are
// exported.
func (e *Exporter) Session(s *session.ChatSession) (string, error) {
	if s == nil || s.ID == "" {
		return "", fmt.Errorf("export: session is empty")
	}

	snapshot := *s
	snapshot.Messages = make([]session.ChatMessage, 0, len(s.Messages))
	for _, msg := range s.Messages {
		if msg.IsProvisional() {
			continue
		}
		snapshot.Messages = append(snapshot.Messages, msg)
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}

	name := fmt.Sprintf("vibecheck-%s-%s.json", shortID(s.ID), e.now().Format("20060102-150405"))
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}

	e.logger.Debug("session exported", "session_id", s.ID, "path", path)
	return path, nil
}

// shortID trims a session id down to a filename-friendly prefix.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
