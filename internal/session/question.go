package session

import "strings"

// SkipAnswer is the literal answer value submitted when the user skips a
// question instead of answering it.
const SkipAnswer = "Skipped"

// Question is one item in the server-driven interview. Once has_answered is
// true it never flips back, and the question list order is fixed: answering
// does not reorder.
type Question struct {
	QuestionText string   `json:"question_text"`
	AnswerOption []string `json:"answer_option,omitempty"`
	HasAnswered  bool     `json:"has_answered"`
	Answer       string   `json:"answer,omitempty"`
}

// CurrentQuestion returns the index of the first unanswered question, or -1
// when every question has been answered. The "first unanswered in original
// order" rule is recomputed every time rather than advancing an index, which
// tolerates the server marking an out-of-order question answered.
func CurrentQuestion(questions []Question) int {
	for i := range questions {
		if !questions[i].HasAnswered {
			return i
		}
	}
	return -1
}

// UnansweredCount returns how many questions still lack an answer.
func UnansweredCount(questions []Question) int {
	n := 0
	for i := range questions {
		if !questions[i].HasAnswered {
			n++
		}
	}
	return n
}

// AwaitingInterview reports whether the session should present the
// question-answer flow instead of free-text input: the server has generated
// questions and at least one remains unanswered.
func (s *ChatSession) AwaitingInterview() bool {
	return s.Mode == ModeQuestionGenerated && UnansweredCount(s.GeneratedQuestions) > 0
}

// ComposeAnswer builds the answer string submitted for a question.
//
// With selected options, the options are joined by ", " and any free text is
// appended after a trailing ", " so a typed addition to an options question
// is never dropped. Without options, the trimmed free text stands alone.
func ComposeAnswer(selected []string, freeText string) string {
	text := strings.TrimSpace(freeText)
	if len(selected) == 0 {
		return text
	}
	joined := strings.Join(selected, ", ")
	if text == "" {
		return joined
	}
	return joined + ", " + text
}
