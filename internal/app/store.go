package app

import (
	"context"
	"errors"

	"quizroom-service/internal/domain"
)

// ErrUniqueViolation is how a Store implementation reports a write that lost
// against a row-level uniqueness constraint, kept distinct from all other
// write failures. Room creation treats it as a recoverable signal and retries
// with a fresh code; the submission triple has its own sentinel,
// domain.ErrDuplicateSubmission.
var ErrUniqueViolation = errors.New("unique constraint violated")

// QuizStore covers the authoring read/write contract the core depends on.
type QuizStore interface {
	CreateQuiz(ctx context.Context, quiz domain.Quiz) error
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	// ReplaceQuestions swaps the full question list of a quiz; positions are
	// dense and 0-based in the given order.
	ReplaceQuestions(ctx context.Context, quizID string, questions []domain.Question) error
	QuestionsByQuiz(ctx context.Context, quizID string) ([]domain.Question, error)
	// DetachRoomsFromQuiz clears the cursor of every room referencing the
	// quiz, so no room points at a question that is about to disappear.
	DetachRoomsFromQuiz(ctx context.Context, quizID string) error
}

// RoomStore persists rooms and their append-only rosters.
type RoomStore interface {
	// CreateRoom returns ErrUniqueViolation when the room code collides.
	CreateRoom(ctx context.Context, room domain.Room) error
	GetRoom(ctx context.Context, roomID string) (domain.Room, error)
	GetRoomByCode(ctx context.Context, code string) (domain.Room, error)
	UpdateRoom(ctx context.Context, room domain.Room) error
	CreatePlayer(ctx context.Context, player domain.Player) error
	GetPlayer(ctx context.Context, playerID string) (domain.Player, error)
	PlayersByRoom(ctx context.Context, roomID string) ([]domain.Player, error)
}

// SubmissionStore is the ledger's backing table. The (room, question, player)
// uniqueness constraint lives here.
type SubmissionStore interface {
	// CreateSubmission returns domain.ErrDuplicateSubmission when the
	// triple already has a row.
	CreateSubmission(ctx context.Context, sub domain.Submission) error
	GetSubmission(ctx context.Context, submissionID string) (domain.Submission, error)
	FindSubmission(ctx context.Context, roomID, questionID, playerID string) (domain.Submission, error)
	SubmissionsForQuestion(ctx context.Context, roomID, questionID string) ([]domain.Submission, error)
	SubmissionsByRoom(ctx context.Context, roomID string) ([]domain.Submission, error)
	SubmissionsByPlayer(ctx context.Context, roomID, playerID string) ([]domain.Submission, error)
	// SetVerdict records is_correct for a not-yet-evaluated submission and
	// reports whether the write applied. An already-evaluated row is left
	// untouched and returns false, which is what makes evaluation (and the
	// score increment gated on it) idempotent.
	SetVerdict(ctx context.Context, submissionID string, correct bool) (bool, error)
}

// ScoreStore keeps one mutable score per (room, player).
type ScoreStore interface {
	// IncrementScore adds delta atomically at the store layer; two
	// evaluations of the same player never race each other's read.
	IncrementScore(ctx context.Context, roomID, playerID string, delta int) error
	// PutScore replaces the stored total, used by compute-once scoring.
	PutScore(ctx context.Context, roomID, playerID string, score int) error
	ScoresByRoom(ctx context.Context, roomID string) ([]domain.Score, error)
}

// Store is the full persistent collaborator every client polls.
type Store interface {
	QuizStore
	RoomStore
	SubmissionStore
	ScoreStore
}

// QuizContentProvider serves quiz content on the hot read path; the redis
// cache implements it in front of a loader, the memory store directly.
type QuizContentProvider interface {
	QuizContent(ctx context.Context, quizID string) (domain.QuizContent, error)
}
