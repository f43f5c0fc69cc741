package conversation

import "github.com/vibecheck-ai/vibecheck/internal/session"

// Controller enforces one-turn-at-a-time submission and remembers which
// request mode the in-flight turn was sent with, so the terminal event can
// be interpreted against the request that produced it.
type Controller struct {
	inFlight    bool
	requestMode session.RequestMode
}

// InFlight reports whether a turn is currently streaming.
func (tc *Controller) InFlight() bool { return tc.inFlight }

// RequestMode returns the mode of the in-flight turn. Meaningless when no
// turn is in flight.
func (tc *Controller) RequestMode() session.RequestMode { return tc.requestMode }

// Begin acquires the streaming latch. The latch must be taken before any
// network I/O so a rapid second submit observes it.
func (tc *Controller) Begin(mode session.RequestMode) error {
	if tc.inFlight {
		return ErrTurnInFlight
	}
	tc.inFlight = true
	tc.requestMode = mode
	return nil
}

// Finish releases the latch. Called on every terminal outcome, success or
// failure, so the next submission is never blocked by a dead turn.
func (tc *Controller) Finish() {
	tc.inFlight = false
}

// NextRequestMode derives the request mode for the next outgoing turn. The
// auto-triggered seed turn on a fresh session sends initial_prompt; a
// session whose interview just completed resumes with question_answered;
// every user-authored message, including the first one typed into a fresh
// session, is generation.
func NextRequestMode(s *session.ChatSession, seeded, interviewCompleted bool) session.RequestMode {
	if interviewCompleted {
		return session.RequestQuestionAnswered
	}
	if seeded && (s == nil || (s.Mode == "" || s.Mode == session.ModeInitialPrompt) && len(s.Messages) == 0) {
		return session.RequestInitialPrompt
	}
	return session.RequestGeneration
}
