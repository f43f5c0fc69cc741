package export

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibecheck-ai/vibecheck/internal/log"
	"github.com/vibecheck-ai/vibecheck/internal/session"
)

func TestSessionWritesJSON(t *testing.T) {
	dir := t.TempDir()
	e := New(dir, log.NewNop())
	e.now = func() time.Time { return time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC) }

	s := &session.ChatSession{
		ID:   "64f1a2b3c4d5e6f708192a3b",
		Name: "Berlin coffee drinkers",
		Mode: session.ModeGeneratedPersona,
		Messages: []session.ChatMessage{
			{ID: "srv-1", MessageContent: "hello", Answer: "done"},
			{ID: session.TempIDPrefix + "abc", MessageContent: "in flight"},
		},
	}

	path, err := e.Session(s)
	require.NoError(t, err)
	assert.Contains(t, path, "vibecheck-64f1a2b3-20260301-103000.json")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got session.ChatSession
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, s.ID, got.ID)

	// The provisional in-flight message is not exported.
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "srv-1", got.Messages[0].ID)
}

func TestSessionRejectsEmpty(t *testing.T) {
	e := New(t.TempDir(), log.NewNop())

	_, err := e.Session(nil)
	require.Error(t, err)

	_, err = e.Session(&session.ChatSession{})
	require.Error(t, err)
}

func TestSessionShortID(t *testing.T) {
	assert.Equal(t, "abc", shortID("abc"))
	assert.Equal(t, "12345678", shortID("123456789"))
}
