package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"quizroom-service/internal/domain"
)

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes"`

	ID        string    `bun:"id,pk"`
	Title     string    `bun:"title,notnull"`
	QuizType  string    `bun:"quiz_type,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

type questionRow struct {
	bun.BaseModel `bun:"table:quiz_questions"`

	ID        string `bun:"id,pk"`
	QuizID    string `bun:"quiz_id,notnull"`
	Position  int    `bun:"position,notnull"`
	Text      string `bun:"question,notnull"`
	Answer    string `bun:"answer,nullzero"`
	ImagePath string `bun:"image_path,nullzero"`
}

type roomRow struct {
	bun.BaseModel `bun:"table:rooms"`

	ID                string    `bun:"id,pk"`
	QuizID            string    `bun:"quiz_id,notnull"`
	Code              string    `bun:"room_code,notnull"`
	HostToken         string    `bun:"host_token,notnull"`
	Status            string    `bun:"status,notnull"`
	CurrentQuestionID string    `bun:"current_question_id,nullzero"`
	ScoringEnabled    bool      `bun:"scoring_enabled,notnull"`
	CreatedAt         time.Time `bun:"created_at,notnull"`
}

type playerRow struct {
	bun.BaseModel `bun:"table:room_players"`

	ID       string    `bun:"id,pk"`
	RoomID   string    `bun:"room_id,notnull"`
	Nickname string    `bun:"nickname,notnull"`
	Token    string    `bun:"player_token,notnull"`
	JoinedAt time.Time `bun:"created_at,notnull"`
}

type submissionRow struct {
	bun.BaseModel `bun:"table:submissions"`

	ID         string    `bun:"id,pk"`
	RoomID     string    `bun:"room_id,notnull"`
	QuestionID string    `bun:"question_id,notnull"`
	PlayerID   string    `bun:"player_id,notnull"`
	AnswerText string    `bun:"answer_text,notnull"`
	IsCorrect  *bool     `bun:"is_correct"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
}

type scoreRow struct {
	bun.BaseModel `bun:"table:room_scores"`

	RoomID    string    `bun:"room_id,pk"`
	PlayerID  string    `bun:"player_id,pk"`
	Score     int       `bun:"score,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

func (r quizRow) toDomain() domain.Quiz {
	return domain.Quiz{
		ID:        r.ID,
		Title:     r.Title,
		QuizType:  domain.QuizType(r.QuizType),
		CreatedAt: r.CreatedAt,
	}
}

func (r questionRow) toDomain() domain.Question {
	return domain.Question{
		ID:        r.ID,
		QuizID:    r.QuizID,
		Position:  r.Position,
		Text:      r.Text,
		Answer:    r.Answer,
		ImagePath: r.ImagePath,
	}
}

func questionFromDomain(q domain.Question) questionRow {
	return questionRow{
		ID:        q.ID,
		QuizID:    q.QuizID,
		Position:  q.Position,
		Text:      q.Text,
		Answer:    q.Answer,
		ImagePath: q.ImagePath,
	}
}

func (r roomRow) toDomain() domain.Room {
	return domain.Room{
		ID:                r.ID,
		QuizID:            r.QuizID,
		Code:              r.Code,
		HostToken:         r.HostToken,
		Status:            domain.RoomStatus(r.Status),
		CurrentQuestionID: r.CurrentQuestionID,
		ScoringEnabled:    r.ScoringEnabled,
		CreatedAt:         r.CreatedAt,
	}
}

func roomFromDomain(room domain.Room) roomRow {
	return roomRow{
		ID:                room.ID,
		QuizID:            room.QuizID,
		Code:              room.Code,
		HostToken:         room.HostToken,
		Status:            string(room.Status),
		CurrentQuestionID: room.CurrentQuestionID,
		ScoringEnabled:    room.ScoringEnabled,
		CreatedAt:         room.CreatedAt,
	}
}

func (r playerRow) toDomain() domain.Player {
	return domain.Player{
		ID:       r.ID,
		RoomID:   r.RoomID,
		Nickname: r.Nickname,
		Token:    r.Token,
		JoinedAt: r.JoinedAt,
	}
}

func (r submissionRow) toDomain() domain.Submission {
	return domain.Submission{
		ID:         r.ID,
		RoomID:     r.RoomID,
		QuestionID: r.QuestionID,
		PlayerID:   r.PlayerID,
		AnswerText: r.AnswerText,
		IsCorrect:  r.IsCorrect,
		CreatedAt:  r.CreatedAt,
	}
}

func (r scoreRow) toDomain() domain.Score {
	return domain.Score{
		RoomID:    r.RoomID,
		PlayerID:  r.PlayerID,
		Score:     r.Score,
		UpdatedAt: r.UpdatedAt,
	}
}
