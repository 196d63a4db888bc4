// Package postgres implements the Store contract on Postgres via bun. The
// submission triple and room code constraints live in the schema; a violated
// room code surfaces as app.ErrUniqueViolation, a violated submission triple
// as domain.ErrDuplicateSubmission, so callers can treat both as the
// recoverable signals they are.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"quizroom-service/internal/app"
	"quizroom-service/internal/domain"
)

type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// uniqueViolation is the Postgres SQLSTATE for a unique constraint hit.
const uniqueViolation = "23505"

func mapWriteError(err error) error {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) && pgErr.Field('C') == uniqueViolation {
		return app.ErrUniqueViolation
	}
	return err
}

func (s *Store) CreateQuiz(ctx context.Context, quiz domain.Quiz) error {
	row := quizRow{
		ID:        quiz.ID,
		Title:     quiz.Title,
		QuizType:  string(quiz.QuizType),
		CreatedAt: quiz.CreatedAt,
	}
	_, err := s.db.NewInsert().Model(&row).Exec(ctx)
	return mapWriteError(err)
}

func (s *Store) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var row quizRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", quizID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) ReplaceQuestions(ctx context.Context, quizID string, questions []domain.Question) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*questionRow)(nil)).Where("quiz_id = ?", quizID).Exec(ctx); err != nil {
			return err
		}
		if len(questions) == 0 {
			return nil
		}
		rows := make([]questionRow, len(questions))
		for i, q := range questions {
			rows[i] = questionFromDomain(q)
		}
		_, err := tx.NewInsert().Model(&rows).Exec(ctx)
		return err
	})
}

func (s *Store) QuestionsByQuiz(ctx context.Context, quizID string) ([]domain.Question, error) {
	var rows []questionRow
	err := s.db.NewSelect().Model(&rows).
		Where("quiz_id = ?", quizID).
		Order("position ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Question, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (s *Store) DetachRoomsFromQuiz(ctx context.Context, quizID string) error {
	_, err := s.db.NewUpdate().Model((*roomRow)(nil)).
		Set("current_question_id = NULL").
		Where("quiz_id = ?", quizID).
		Exec(ctx)
	return err
}

// LoadQuizContent serves the cache-miss path of the content caches.
func (s *Store) LoadQuizContent(ctx context.Context, quizID string) (domain.QuizContent, error) {
	quiz, err := s.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizContent{}, err
	}
	questions, err := s.QuestionsByQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizContent{}, err
	}
	return domain.QuizContent{Quiz: quiz, Questions: questions}, nil
}

// QuizContent makes the store usable directly as app.QuizContentProvider.
func (s *Store) QuizContent(ctx context.Context, quizID string) (domain.QuizContent, error) {
	return s.LoadQuizContent(ctx, quizID)
}

func (s *Store) CreateRoom(ctx context.Context, room domain.Room) error {
	row := roomFromDomain(room)
	_, err := s.db.NewInsert().Model(&row).Exec(ctx)
	return mapWriteError(err)
}

func (s *Store) GetRoom(ctx context.Context, roomID string) (domain.Room, error) {
	var row roomRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", roomID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	if err != nil {
		return domain.Room{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) GetRoomByCode(ctx context.Context, code string) (domain.Room, error) {
	var row roomRow
	err := s.db.NewSelect().Model(&row).Where("room_code = ?", code).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	if err != nil {
		return domain.Room{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) UpdateRoom(ctx context.Context, room domain.Room) error {
	row := roomFromDomain(room)
	res, err := s.db.NewUpdate().Model(&row).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrRoomNotFound
	}
	return nil
}

func (s *Store) CreatePlayer(ctx context.Context, player domain.Player) error {
	row := playerRow{
		ID:       player.ID,
		RoomID:   player.RoomID,
		Nickname: player.Nickname,
		Token:    player.Token,
		JoinedAt: player.JoinedAt,
	}
	_, err := s.db.NewInsert().Model(&row).Exec(ctx)
	return mapWriteError(err)
}

func (s *Store) GetPlayer(ctx context.Context, playerID string) (domain.Player, error) {
	var row playerRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", playerID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Player{}, domain.ErrPlayerNotFound
	}
	if err != nil {
		return domain.Player{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) PlayersByRoom(ctx context.Context, roomID string) ([]domain.Player, error) {
	var rows []playerRow
	err := s.db.NewSelect().Model(&rows).
		Where("room_id = ?", roomID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Player, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (s *Store) CreateSubmission(ctx context.Context, sub domain.Submission) error {
	row := submissionRow{
		ID:         sub.ID,
		RoomID:     sub.RoomID,
		QuestionID: sub.QuestionID,
		PlayerID:   sub.PlayerID,
		AnswerText: sub.AnswerText,
		IsCorrect:  sub.IsCorrect,
		CreatedAt:  sub.CreatedAt,
	}
	_, err := s.db.NewInsert().Model(&row).Exec(ctx)
	if err := mapWriteError(err); err != nil {
		if errors.Is(err, app.ErrUniqueViolation) {
			return domain.ErrDuplicateSubmission
		}
		return err
	}
	return nil
}

func (s *Store) GetSubmission(ctx context.Context, submissionID string) (domain.Submission, error) {
	var row submissionRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", submissionID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	if err != nil {
		return domain.Submission{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) FindSubmission(ctx context.Context, roomID, questionID, playerID string) (domain.Submission, error) {
	var row submissionRow
	err := s.db.NewSelect().Model(&row).
		Where("room_id = ?", roomID).
		Where("question_id = ?", questionID).
		Where("player_id = ?", playerID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	if err != nil {
		return domain.Submission{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) SubmissionsForQuestion(ctx context.Context, roomID, questionID string) ([]domain.Submission, error) {
	return s.selectSubmissions(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("room_id = ?", roomID).Where("question_id = ?", questionID)
	})
}

func (s *Store) SubmissionsByRoom(ctx context.Context, roomID string) ([]domain.Submission, error) {
	return s.selectSubmissions(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("room_id = ?", roomID)
	})
}

func (s *Store) SubmissionsByPlayer(ctx context.Context, roomID, playerID string) ([]domain.Submission, error) {
	return s.selectSubmissions(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("room_id = ?", roomID).Where("player_id = ?", playerID)
	})
}

func (s *Store) selectSubmissions(ctx context.Context, filter func(*bun.SelectQuery) *bun.SelectQuery) ([]domain.Submission, error) {
	var rows []submissionRow
	err := filter(s.db.NewSelect().Model(&rows)).Order("created_at ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Submission, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

// SetVerdict guards the null -> verdict transition in the statement itself:
// a row that already has a verdict matches nothing and reports not applied.
func (s *Store) SetVerdict(ctx context.Context, submissionID string, correct bool) (bool, error) {
	res, err := s.db.NewUpdate().Model((*submissionRow)(nil)).
		Set("is_correct = ?", correct).
		Where("id = ?", submissionID).
		Where("is_correct IS NULL").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// IncrementScore is a single upsert, so concurrent evaluations of one player
// serialize inside Postgres instead of racing a read-modify-write.
func (s *Store) IncrementScore(ctx context.Context, roomID, playerID string, delta int) error {
	row := scoreRow{RoomID: roomID, PlayerID: playerID, Score: delta, UpdatedAt: time.Now()}
	_, err := s.db.NewInsert().Model(&row).
		On("CONFLICT (room_id, player_id) DO UPDATE").
		Set("score = room_scores.score + EXCLUDED.score").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("increment score: %w", err)
	}
	return nil
}

func (s *Store) PutScore(ctx context.Context, roomID, playerID string, value int) error {
	row := scoreRow{RoomID: roomID, PlayerID: playerID, Score: value, UpdatedAt: time.Now()}
	_, err := s.db.NewInsert().Model(&row).
		On("CONFLICT (room_id, player_id) DO UPDATE").
		Set("score = EXCLUDED.score").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("put score: %w", err)
	}
	return nil
}

func (s *Store) ScoresByRoom(ctx context.Context, roomID string) ([]domain.Score, error) {
	var rows []scoreRow
	err := s.db.NewSelect().Model(&rows).
		Where("room_id = ?", roomID).
		Order("score DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Score, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}
