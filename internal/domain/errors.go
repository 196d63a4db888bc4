package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrRoomNotFound is returned when a room code or id does not resolve.
	ErrRoomNotFound = errors.New("room not found")
	// ErrQuestionNotFound indicates a question ID is unknown to the room's quiz.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrPlayerNotFound indicates a player ID is not on the room's roster.
	ErrPlayerNotFound = errors.New("player not found")
	// ErrSubmissionNotFound indicates no ledger row exists for the query.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrDuplicateSubmission signals the (room, question, player) triple already
	// has a row. Callers re-fetch the existing submission and carry on; this is
	// expected control flow, not a fault.
	ErrDuplicateSubmission = errors.New("submission already exists")
	// ErrUnauthorized is returned when the presented token does not match the
	// room's host token or the player's token.
	ErrUnauthorized = errors.New("token does not grant this operation")
	// ErrPendingAnswers signals that not every player has answered the current
	// question; the host must confirm before the room advances past it.
	ErrPendingAnswers = errors.New("players have not answered yet")
)

// ValidationError reports quiz content that fails its mode's rules.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid quiz content: " + e.Reason
}

// PreconditionError reports a state-machine operation attempted in the
// wrong state, e.g. starting a room with no players.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "precondition failed: " + e.Reason
}
