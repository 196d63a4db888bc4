package app_test

import (
	"context"
	"fmt"
	"testing"

	"quizroom-service/internal/app"
	"quizroom-service/internal/domain"
	"quizroom-service/internal/infra/memory"
)

// harness wires the services over a shared in-memory store, the way the
// serve command does without a database.
type harness struct {
	store   *memory.Store
	quizzes *app.QuizService
	rooms   *app.RoomService
	ledger  *app.Ledger
}

func newHarness() *harness {
	store := memory.NewStore()
	return &harness{
		store:   store,
		quizzes: app.NewQuizService(store, store),
		rooms:   app.NewRoomService(store, store),
		ledger:  app.NewLedger(store),
	}
}

func (h *harness) seedQuiz(t *testing.T, quizType domain.QuizType, questions ...domain.Question) domain.Quiz {
	t.Helper()
	ctx := context.Background()
	quiz, err := h.quizzes.CreateQuiz(ctx, "test quiz", quizType)
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if _, err := h.quizzes.ReplaceQuestions(ctx, quiz.ID, questions); err != nil {
		t.Fatalf("replace questions: %v", err)
	}
	return quiz
}

// seedQA builds a QA quiz with n questions "question 0".."question n-1".
func (h *harness) seedQA(t *testing.T, n int) domain.Quiz {
	t.Helper()
	questions := make([]domain.Question, n)
	for i := range questions {
		questions[i] = domain.Question{
			Text:   fmt.Sprintf("question %d", i),
			Answer: fmt.Sprintf("answer %d", i),
		}
	}
	return h.seedQuiz(t, domain.TypeQA, questions...)
}

func (h *harness) openRoom(t *testing.T, quizID string, nicknames ...string) (domain.Room, []domain.Player) {
	t.Helper()
	ctx := context.Background()
	room, err := h.rooms.CreateRoom(ctx, quizID, true)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	players := make([]domain.Player, len(nicknames))
	for i, nick := range nicknames {
		p, _, err := h.rooms.Join(ctx, room.Code, nick)
		if err != nil {
			t.Fatalf("join %s: %v", nick, err)
		}
		players[i] = p
	}
	return room, players
}

func (h *harness) questionsOf(t *testing.T, quizID string) []domain.Question {
	t.Helper()
	content, err := h.quizzes.Content(context.Background(), quizID)
	if err != nil {
		t.Fatalf("quiz content: %v", err)
	}
	return content.Questions
}

func (h *harness) mustStart(t *testing.T, room domain.Room) domain.Room {
	t.Helper()
	started, err := h.rooms.Start(context.Background(), room.ID, room.HostToken)
	if err != nil {
		t.Fatalf("start room: %v", err)
	}
	return started
}
