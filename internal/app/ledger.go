package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"quizroom-service/internal/domain"
	"quizroom-service/internal/gamemode"
)

// Ledger is the append-mostly submission log. It owns the
// at-most-once-per-(room, question, player) invariant, enforced by the
// store's uniqueness constraint; a lost write race is reconciled by
// re-fetching the winner's row.
type Ledger struct {
	store Store
	now   func() time.Time
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// SubmitResult is what a player gets back from Submit. AlreadySubmitted is
// true when the triple had a row before this call; Submission is then the
// pre-existing row, answer text untouched.
type SubmitResult struct {
	Submission       domain.Submission `json:"submission"`
	AlreadySubmitted bool              `json:"alreadySubmitted"`
}

// Submit appends one answer for the question id captured by the caller at
// submit time; a cursor change while the write is in flight never retargets
// it. A duplicate is expected control flow: the existing row is fetched and
// returned as if this write had succeeded.
func (l *Ledger) Submit(ctx context.Context, roomID, questionID, playerID, playerToken, answerText string) (SubmitResult, error) {
	player, err := l.authorizePlayer(ctx, roomID, playerID, playerToken)
	if err != nil {
		return SubmitResult{}, err
	}
	room, err := l.store.GetRoom(ctx, roomID)
	if err != nil {
		return SubmitResult{}, err
	}
	// Finished rooms still take answers: a submission racing the host's
	// final advance is recorded and shows up in the full-ledger summary.
	if room.Status == domain.RoomWaiting {
		return SubmitResult{}, Precondition("room has not started")
	}
	questions, err := l.store.QuestionsByQuiz(ctx, room.QuizID)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("load questions: %w", err)
	}
	if !questionKnown(questions, questionID) {
		return SubmitResult{}, domain.ErrQuestionNotFound
	}
	quiz, err := l.store.GetQuiz(ctx, room.QuizID)
	if err != nil {
		return SubmitResult{}, err
	}
	if mode, ok := gamemode.Lookup(quiz.QuizType); ok && mode.Policy() == gamemode.EvalRank {
		if err := l.checkPlacement(ctx, roomID, questionID, player.ID, answerText); err != nil {
			return SubmitResult{}, err
		}
	}

	sub := domain.Submission{
		ID:         uuid.NewString(),
		RoomID:     roomID,
		QuestionID: questionID,
		PlayerID:   player.ID,
		AnswerText: answerText,
		CreatedAt:  l.now(),
	}
	err = l.store.CreateSubmission(ctx, sub)
	if err == nil {
		return SubmitResult{Submission: sub}, nil
	}
	if !errors.Is(err, domain.ErrDuplicateSubmission) {
		return SubmitResult{}, fmt.Errorf("submit answer: %w", err)
	}

	existing, err := l.store.FindSubmission(ctx, roomID, questionID, player.ID)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("reconcile duplicate submission: %w", err)
	}
	return SubmitResult{Submission: existing, AlreadySubmitted: true}, nil
}

// OwnSubmission returns the player's submission for one question, or
// domain.ErrSubmissionNotFound. The player poller calls this on every cursor
// change, so a reloaded client never trusts a local submitted flag.
func (l *Ledger) OwnSubmission(ctx context.Context, roomID, questionID, playerID, playerToken string) (domain.Submission, error) {
	if _, err := l.authorizePlayer(ctx, roomID, playerID, playerToken); err != nil {
		return domain.Submission{}, err
	}
	return l.store.FindSubmission(ctx, roomID, questionID, playerID)
}

// Placements returns a player's decoded rank placements keyed by question
// id, skipping rows whose payload does not parse.
func (l *Ledger) Placements(ctx context.Context, roomID, playerID, playerToken string) (map[string]int, error) {
	if _, err := l.authorizePlayer(ctx, roomID, playerID, playerToken); err != nil {
		return nil, err
	}
	subs, err := l.store.SubmissionsByPlayer(ctx, roomID, playerID)
	if err != nil {
		return nil, fmt.Errorf("load placements: %w", err)
	}
	return decodePlacements(subs), nil
}

// checkPlacement gates rank submissions before they hit the ledger: the
// payload must decode to a slot, and the slot must not already hold another
// item placed by the same player. Five placements therefore always form a
// permutation. A re-submit of the same question passes through so the
// duplicate path can reconcile it.
func (l *Ledger) checkPlacement(ctx context.Context, roomID, questionID, playerID, answerText string) error {
	slot, err := gamemode.DecodePlacement(answerText)
	if err != nil {
		return &domain.ValidationError{Reason: fmt.Sprintf("invalid placement: %v", err)}
	}
	subs, err := l.store.SubmissionsByPlayer(ctx, roomID, playerID)
	if err != nil {
		return fmt.Errorf("load placements: %w", err)
	}
	for qID, used := range decodePlacements(subs) {
		if qID != questionID && used == slot {
			return &domain.ValidationError{Reason: fmt.Sprintf("slot %d already holds another item", slot)}
		}
	}
	return nil
}

// questionKnown reports whether questionID is part of the quiz. A late
// submission for a passed question is fine; one for a question the quiz
// never had is not.
func questionKnown(questions []domain.Question, questionID string) bool {
	for _, q := range questions {
		if q.ID == questionID {
			return true
		}
	}
	return false
}

func (l *Ledger) authorizePlayer(ctx context.Context, roomID, playerID, playerToken string) (domain.Player, error) {
	player, err := l.store.GetPlayer(ctx, playerID)
	if err != nil {
		return domain.Player{}, err
	}
	if player.RoomID != roomID || playerToken == "" || player.Token != playerToken {
		return domain.Player{}, domain.ErrUnauthorized
	}
	return player, nil
}
