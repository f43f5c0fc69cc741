package conversation

import "errors"

// Sentinel errors, checked with errors.Is at the UI layer to pick the right
// user-facing notice.
var (
	// ErrTurnInFlight rejects a submit while the previous stream's
	// terminal event has not arrived. Surfaced as a transient notice, not
	// a failure.
	ErrTurnInFlight = errors.New("a streaming turn is already in flight")

	// ErrNoPendingTurn indicates a confirmation event arrived with no
	// optimistic message to reconcile (e.g. a thinking.chat delayed past
	// done).
	ErrNoPendingTurn = errors.New("no pending turn to reconcile")

	// ErrEmptyAnswer rejects an interview submission with nothing
	// selected and nothing typed, before any network call.
	ErrEmptyAnswer = errors.New("answer cannot be empty")

	// ErrNoOpenQuestion indicates every generated question has been
	// answered already.
	ErrNoOpenQuestion = errors.New("no unanswered question remains")
)
