package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"quizroom-service/internal/domain"
	"quizroom-service/internal/gamemode"
)

// QuizService is the authoring contract the room core depends on: create a
// quiz, replace its question list under the mode's validation rules, read
// content back. Everything richer (forms, assets) lives outside this service.
type QuizService struct {
	store   Store
	content QuizContentProvider
	now     func() time.Time
}

func NewQuizService(store Store, content QuizContentProvider) *QuizService {
	return &QuizService{store: store, content: content, now: time.Now}
}

// CreateQuiz registers an empty quiz of the given type.
func (s *QuizService) CreateQuiz(ctx context.Context, title string, quizType domain.QuizType) (domain.Quiz, error) {
	if strings.TrimSpace(title) == "" {
		return domain.Quiz{}, &domain.ValidationError{Reason: "title must not be empty"}
	}
	if _, ok := gamemode.Lookup(quizType); !ok {
		return domain.Quiz{}, &domain.ValidationError{Reason: fmt.Sprintf("unknown quiz type %q", quizType)}
	}
	quiz := domain.Quiz{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(title),
		QuizType:  quizType,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("create quiz: %w", err)
	}
	return quiz, nil
}

// ReplaceQuestions validates the new question list against the quiz's mode
// and swaps it in with dense 0-based positions. Rooms referencing the quiz
// get their cursor cleared first, so no room can point at a question that no
// longer exists; an active room's host re-establishes the cursor by advancing.
func (s *QuizService) ReplaceQuestions(ctx context.Context, quizID string, questions []domain.Question) ([]domain.Question, error) {
	quiz, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	mode, ok := gamemode.Lookup(quiz.QuizType)
	if !ok {
		return nil, &domain.ValidationError{Reason: fmt.Sprintf("unknown quiz type %q", quiz.QuizType)}
	}
	valid, err := mode.Validate(questions)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.Question, len(valid))
	for i, q := range valid {
		id := q.ID
		if id == "" {
			id = uuid.NewString()
		}
		rows[i] = domain.Question{
			ID:        id,
			QuizID:    quizID,
			Position:  i,
			Text:      strings.TrimSpace(q.Text),
			Answer:    strings.TrimSpace(q.Answer),
			ImagePath: strings.TrimSpace(q.ImagePath),
		}
	}

	if err := s.store.DetachRoomsFromQuiz(ctx, quizID); err != nil {
		return nil, fmt.Errorf("detach rooms: %w", err)
	}
	if err := s.store.ReplaceQuestions(ctx, quizID, rows); err != nil {
		return nil, fmt.Errorf("replace questions: %w", err)
	}
	if inv, ok := s.content.(ContentInvalidator); ok {
		inv.Invalidate(ctx, quizID)
	}
	return rows, nil
}

// ContentInvalidator is implemented by caching QuizContentProviders so
// authoring edits become visible before the TTL runs out.
type ContentInvalidator interface {
	Invalidate(ctx context.Context, quizID string)
}

// Content returns the quiz with its ordered questions via the cached read path.
func (s *QuizService) Content(ctx context.Context, quizID string) (domain.QuizContent, error) {
	return s.content.QuizContent(ctx, quizID)
}
