package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizroom-service/internal/domain"
)

// QuizLoader serves the read-heavy content path from a pgx pool, separate
// from the bun-backed write store; the caches sit in front of it.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuizContent(ctx context.Context, quizID string) (domain.QuizContent, error) {
	var quiz domain.Quiz
	var quizType string
	err := l.pool.QueryRow(ctx,
		`SELECT id, title, quiz_type, created_at FROM quizzes WHERE id=$1`, quizID,
	).Scan(&quiz.ID, &quiz.Title, &quizType, &quiz.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizContent{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.QuizContent{}, fmt.Errorf("load quiz: %w", err)
	}
	quiz.QuizType = domain.QuizType(quizType)

	rows, err := l.pool.Query(ctx,
		`SELECT id, quiz_id, position, question, COALESCE(answer, ''), COALESCE(image_path, '')
		 FROM quiz_questions WHERE quiz_id=$1 ORDER BY position ASC`, quizID)
	if err != nil {
		return domain.QuizContent{}, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Position, &q.Text, &q.Answer, &q.ImagePath); err != nil {
			return domain.QuizContent{}, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return domain.QuizContent{}, fmt.Errorf("load questions: %w", err)
	}
	return domain.QuizContent{Quiz: quiz, Questions: questions}, nil
}
