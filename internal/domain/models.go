package domain

import "time"

// QuizType selects the game mode a quiz is played with.
type QuizType string

const (
	TypeQA            QuizType = "qa"
	TypeTrueFalse     QuizType = "true_false"
	TypeIdentifyImage QuizType = "identify_image"
	TypeBlindTop5     QuizType = "blind_top5"
)

// RoomStatus is the lifecycle state of a room. Transitions are monotonic:
// waiting -> active -> finished, never backwards.
type RoomStatus string

const (
	RoomWaiting  RoomStatus = "waiting"
	RoomActive   RoomStatus = "active"
	RoomFinished RoomStatus = "finished"
)

func (s RoomStatus) rank() int {
	switch s {
	case RoomWaiting:
		return 0
	case RoomActive:
		return 1
	case RoomFinished:
		return 2
	}
	return -1
}

// CanTransitionTo reports whether moving to next preserves monotonicity.
func (s RoomStatus) CanTransitionTo(next RoomStatus) bool {
	return next.rank() > s.rank()
}

// Quiz is authored content; QuizType selects the game mode.
type Quiz struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	QuizType  QuizType  `json:"quizType"`
	CreatedAt time.Time `json:"createdAt"`
}

// Question belongs to a quiz; Position is dense and 0-based.
type Question struct {
	ID        string `json:"id"`
	QuizID    string `json:"quizId"`
	Position  int    `json:"position"`
	Text      string `json:"text"`
	Answer    string `json:"answer,omitempty"`    // canonical answer, mode-dependent
	ImagePath string `json:"imagePath,omitempty"` // opaque reference, never dereferenced here
}

// QuizContent bundles a quiz with its ordered questions, the unit every
// poller re-reads.
type QuizContent struct {
	Quiz      Quiz       `json:"quiz"`
	Questions []Question `json:"questions"`
}

// Room is one live play session.
type Room struct {
	ID                string     `json:"id"`
	QuizID            string     `json:"quizId"`
	Code              string     `json:"code"`
	HostToken         string     `json:"-"`
	Status            RoomStatus `json:"status"`
	CurrentQuestionID string     `json:"currentQuestionId,omitempty"`
	ScoringEnabled    bool       `json:"scoringEnabled"`
	CreatedAt         time.Time  `json:"createdAt"`
}

// Player is one roster entry; the roster is append-only for the lifetime
// of a room.
type Player struct {
	ID       string    `json:"id"`
	RoomID   string    `json:"roomId"`
	Nickname string    `json:"nickname"`
	Token    string    `json:"-"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Submission records one player's answer to one question. At most one
// exists per (room, question, player); IsCorrect stays nil until an
// evaluator sets it, exactly once.
type Submission struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"roomId"`
	QuestionID string    `json:"questionId"`
	PlayerID   string    `json:"playerId"`
	AnswerText string    `json:"answerText"`
	IsCorrect  *bool     `json:"isCorrect"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Evaluated reports whether an evaluator has already ruled on this submission.
func (s Submission) Evaluated() bool {
	return s.IsCorrect != nil
}

// Score is the mutable per-(room, player) total.
type Score struct {
	RoomID    string    `json:"roomId"`
	PlayerID  string    `json:"playerId"`
	Score     int       `json:"score"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ScoreboardEntry is a score joined with the player's nickname.
type ScoreboardEntry struct {
	PlayerID string `json:"playerId"`
	Nickname string `json:"nickname"`
	Score    int    `json:"score"`
}
