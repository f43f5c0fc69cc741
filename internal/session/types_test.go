package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatMessageUnmarshalIDVariants(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{
			name: "underscore id",
			json: `{"_id":"m1","answer":"hi"}`,
			want: "m1",
		},
		{
			name: "plain id falls back",
			json: `{"id":"m1","answer":"hi"}`,
			want: "m1",
		},
		{
			name: "underscore id wins over plain id",
			json: `{"_id":"canonical","id":"legacy","answer":"hi"}`,
			want: "canonical",
		},
		{
			name: "no id at all",
			json: `{"answer":"hi"}`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg ChatMessage
			require.NoError(t, json.Unmarshal([]byte(tt.json), &msg))
			assert.Equal(t, tt.want, msg.ID)
			assert.Equal(t, "hi", msg.Answer, "non-id fields must survive the custom unmarshal")
		})
	}
}

func TestChatMessageUnmarshalFullPayload(t *testing.T) {
	raw := `{
		"id": "srv-9",
		"message_content": "find me sneakerheads",
		"answer": "Here are three personas.",
		"thinking_text": "considering demographics",
		"generated_personas": [{"name":"Ava","age":19,"traits":["thrifty"]}]
	}`

	var msg ChatMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	assert.Equal(t, "srv-9", msg.ID)
	assert.Equal(t, "find me sneakerheads", msg.MessageContent)
	require.Len(t, msg.GeneratedPersonas, 1)
	assert.Equal(t, "Ava", msg.GeneratedPersonas[0].Name)
	assert.Equal(t, 19, msg.GeneratedPersonas[0].Age)
}

func TestIsProvisional(t *testing.T) {
	assert.True(t, ChatMessage{ID: TempIDPrefix + "abc"}.IsProvisional())
	assert.False(t, ChatMessage{ID: "srv-1"}.IsProvisional())
	assert.False(t, ChatMessage{}.IsProvisional())
}

func TestCurrentQuestion(t *testing.T) {
	qs := []Question{
		{QuestionText: "Q1", HasAnswered: true},
		{QuestionText: "Q2"},
		{QuestionText: "Q3"},
	}

	assert.Equal(t, 1, CurrentQuestion(qs))

	qs[1].HasAnswered = true
	assert.Equal(t, 2, CurrentQuestion(qs))

	qs[2].HasAnswered = true
	assert.Equal(t, -1, CurrentQuestion(qs))

	assert.Equal(t, -1, CurrentQuestion(nil))
}

func TestCurrentQuestionToleratesOutOfOrderAnswers(t *testing.T) {
	// Server marked Q3 answered while Q2 is still open: the first
	// unanswered question must still be Q2, not "next index".
	qs := []Question{
		{QuestionText: "Q1", HasAnswered: true},
		{QuestionText: "Q2"},
		{QuestionText: "Q3", HasAnswered: true},
	}
	assert.Equal(t, 1, CurrentQuestion(qs))
	assert.Equal(t, 1, UnansweredCount(qs))
}

func TestAwaitingInterview(t *testing.T) {
	s := &ChatSession{
		Mode:               ModeQuestionGenerated,
		GeneratedQuestions: []Question{{QuestionText: "Q1"}},
	}
	assert.True(t, s.AwaitingInterview())

	s.GeneratedQuestions[0].HasAnswered = true
	assert.False(t, s.AwaitingInterview(), "all answered means free text is back")

	s.GeneratedQuestions[0].HasAnswered = false
	s.Mode = ModeGeneratedPersona
	assert.False(t, s.AwaitingInterview(), "only question_generated mode gates input")
}

func TestComposeAnswer(t *testing.T) {
	tests := []struct {
		name     string
		selected []string
		freeText string
		want     string
	}{
		{"options plus free text", []string{"A", "B"}, "extra", "A, B, extra"},
		{"options only", []string{"A", "B"}, "", "A, B"},
		{"options with whitespace text", []string{"A"}, "  ", "A"},
		{"free text only", nil, "  just this  ", "just this"},
		{"nothing", nil, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComposeAnswer(tt.selected, tt.freeText))
		})
	}
}
