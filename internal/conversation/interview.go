package conversation

import (
	"github.com/vibecheck-ai/vibecheck/internal/session"
)

// Interview drives the question-answering sub-flow. It is split into a
// compose step (pure, picks the target question and validates the answer)
// and a merge step (folds the server's post-answer state back in), so the
// network call between them can run off the UI event loop without sharing
// mutable state. The completion hook fires exactly once when every
// question is answered.
type Interview struct {
	onComplete func()
	completed  bool
}

// NewInterview builds an interview driver. onComplete may be nil.
func NewInterview(onComplete func()) *Interview {
	return &Interview{onComplete: onComplete}
}

// Compose picks the first unanswered question and builds the answer payload
// from the selected options and free text. An empty composition is rejected
// before any network I/O.
func (iv *Interview) Compose(s *session.ChatSession, selected []string, freeText string) (question, answer string, err error) {
	idx := session.CurrentQuestion(s.GeneratedQuestions)
	if idx < 0 {
		return "", "", ErrNoOpenQuestion
	}
	answer = session.ComposeAnswer(selected, freeText)
	if answer == "" {
		return "", "", ErrEmptyAnswer
	}
	return s.GeneratedQuestions[idx].QuestionText, answer, nil
}

// Skip builds the payload that answers the current question with the skip
// marker.
func (iv *Interview) Skip(s *session.ChatSession) (question, answer string, err error) {
	idx := session.CurrentQuestion(s.GeneratedQuestions)
	if idx < 0 {
		return "", "", ErrNoOpenQuestion
	}
	return s.GeneratedQuestions[idx].QuestionText, session.SkipAnswer, nil
}

// Merge folds the server's post-answer session state into the conversation
// and reports whether the interview is now complete. The current question
// is recomputed from scratch after every merge, so answers the server
// recorded out of order are tolerated: the pointer lands on the first
// question still unanswered, wherever it is.
func (iv *Interview) Merge(conv *Conversation, updated *session.ChatSession) (done bool) {
	s := conv.Session()
	if updated != nil {
		conv.MergeQuestions(updated.GeneratedQuestions)
		if updated.Mode != "" {
			s.Mode = updated.Mode
		}
	}

	if session.UnansweredCount(s.GeneratedQuestions) > 0 {
		iv.completed = false
		return false
	}
	if !iv.completed {
		iv.completed = true
		if iv.onComplete != nil {
			iv.onComplete()
		}
	}
	return true
}

// Completed reports whether the interview finished and the completion hook
// (if any) has fired.
func (iv *Interview) Completed() bool { return iv.completed }
