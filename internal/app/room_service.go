package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"quizroom-service/internal/domain"
	"quizroom-service/internal/gamemode"
)

const roomCodeAttempts = 5

// RoomService drives the authoritative room state machine. Every transition
// writes the new room row before anything observes it; the pollers pick the
// change up from the store within one interval.
type RoomService struct {
	store   Store
	content QuizContentProvider
	scores  *ScoreKeeper
	now     func() time.Time
}

func NewRoomService(store Store, content QuizContentProvider) *RoomService {
	return &RoomService{store: store, content: content, scores: NewScoreKeeper(store), now: time.Now}
}

// CreateRoom opens a waiting room for a quiz. The quiz content must pass its
// mode's validation; the room code is regenerated on collision.
func (s *RoomService) CreateRoom(ctx context.Context, quizID string, scoringEnabled bool) (domain.Room, error) {
	content, err := s.content.QuizContent(ctx, quizID)
	if err != nil {
		return domain.Room{}, err
	}
	mode, ok := gamemode.Lookup(content.Quiz.QuizType)
	if !ok {
		return domain.Room{}, &domain.ValidationError{Reason: fmt.Sprintf("unknown quiz type %q", content.Quiz.QuizType)}
	}
	if _, err := mode.Validate(content.Questions); err != nil {
		return domain.Room{}, err
	}

	for attempt := 0; attempt < roomCodeAttempts; attempt++ {
		room := domain.Room{
			ID:             uuid.NewString(),
			QuizID:         quizID,
			Code:           newRoomCode(),
			HostToken:      newToken(),
			Status:         domain.RoomWaiting,
			ScoringEnabled: scoringEnabled,
			CreatedAt:      s.now(),
		}
		err := s.store.CreateRoom(ctx, room)
		if err == nil {
			return room, nil
		}
		if !errors.Is(err, ErrUniqueViolation) {
			return domain.Room{}, fmt.Errorf("create room: %w", err)
		}
	}
	return domain.Room{}, fmt.Errorf("create room: could not find a free code after %d attempts", roomCodeAttempts)
}

// RoomByCode resolves a room code; codes are case-insensitive on input.
func (s *RoomService) RoomByCode(ctx context.Context, code string) (domain.Room, error) {
	return s.store.GetRoomByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
}

// Join appends a player to the roster. Joining stays open until the room is
// finished; the roster is append-only, nobody leaves.
func (s *RoomService) Join(ctx context.Context, code, nickname string) (domain.Player, domain.Room, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return domain.Player{}, domain.Room{}, &domain.ValidationError{Reason: "nickname must not be empty"}
	}
	room, err := s.RoomByCode(ctx, code)
	if err != nil {
		return domain.Player{}, domain.Room{}, err
	}
	if room.Status == domain.RoomFinished {
		return domain.Player{}, domain.Room{}, Precondition("room is already finished")
	}
	player := domain.Player{
		ID:       uuid.NewString(),
		RoomID:   room.ID,
		Nickname: nickname,
		Token:    newToken(),
		JoinedAt: s.now(),
	}
	if err := s.store.CreatePlayer(ctx, player); err != nil {
		return domain.Player{}, domain.Room{}, fmt.Errorf("join room: %w", err)
	}
	return player, room, nil
}

// Start moves waiting -> active and sets the cursor to the first question.
// It needs at least one player and at least one valid question.
func (s *RoomService) Start(ctx context.Context, roomID, hostToken string) (domain.Room, error) {
	room, content, _, err := s.hostRoom(ctx, roomID, hostToken)
	if err != nil {
		return domain.Room{}, err
	}
	if room.Status != domain.RoomWaiting {
		return domain.Room{}, Precondition("room is not waiting")
	}
	players, err := s.store.PlayersByRoom(ctx, room.ID)
	if err != nil {
		return domain.Room{}, fmt.Errorf("load players: %w", err)
	}
	if len(players) == 0 {
		return domain.Room{}, Precondition("no players have joined")
	}
	if len(content.Questions) == 0 {
		return domain.Room{}, Precondition("quiz has no questions")
	}

	if err := setStatus(&room, domain.RoomActive); err != nil {
		return domain.Room{}, err
	}
	room.CurrentQuestionID = content.Questions[0].ID
	if err := s.store.UpdateRoom(ctx, room); err != nil {
		return domain.Room{}, fmt.Errorf("start room: %w", err)
	}
	return room, nil
}

// Advance moves the cursor to the next question, or finishes the room when
// none is left (fixed-sequence modes finish through RevealResults instead).
// When players still owe an answer for the current question
// and confirmed is false it returns ErrPendingAnswers; the caller asks the
// host and retries with confirmed set. The ledger is never touched.
func (s *RoomService) Advance(ctx context.Context, roomID, hostToken string, confirmed bool) (domain.Room, error) {
	room, content, mode, err := s.hostRoom(ctx, roomID, hostToken)
	if err != nil {
		return domain.Room{}, err
	}
	if room.Status != domain.RoomActive {
		return domain.Room{}, Precondition("room is not active")
	}

	if !confirmed && room.CurrentQuestionID != "" {
		pending, err := s.hasPendingAnswers(ctx, room)
		if err != nil {
			return domain.Room{}, err
		}
		if pending {
			return domain.Room{}, domain.ErrPendingAnswers
		}
	}

	idx := questionIndex(content.Questions, room.CurrentQuestionID)
	next := idx + 1
	if next >= len(content.Questions) {
		// Fixed-sequence rooms close through the results reveal; finishing
		// here would skip the score computation for good.
		if mode.HostFlow().FixedSequence {
			return domain.Room{}, Precondition("last item reached, end the game by revealing results")
		}
		if err := setStatus(&room, domain.RoomFinished); err != nil {
			return domain.Room{}, err
		}
	} else {
		room.CurrentQuestionID = content.Questions[next].ID
	}
	if err := s.store.UpdateRoom(ctx, room); err != nil {
		return domain.Room{}, fmt.Errorf("advance room: %w", err)
	}
	return room, nil
}

// Retreat moves the cursor back one question; only modes whose host flow
// permits backward navigation allow it.
func (s *RoomService) Retreat(ctx context.Context, roomID, hostToken string) (domain.Room, error) {
	room, content, mode, err := s.hostRoom(ctx, roomID, hostToken)
	if err != nil {
		return domain.Room{}, err
	}
	if room.Status != domain.RoomActive {
		return domain.Room{}, Precondition("room is not active")
	}
	if !mode.HostFlow().CanRetreat {
		return domain.Room{}, Precondition(fmt.Sprintf("%s does not allow going back", mode.Label()))
	}
	idx := questionIndex(content.Questions, room.CurrentQuestionID)
	if idx <= 0 {
		return domain.Room{}, Precondition("already at the first question")
	}
	room.CurrentQuestionID = content.Questions[idx-1].ID
	if err := s.store.UpdateRoom(ctx, room); err != nil {
		return domain.Room{}, fmt.Errorf("retreat room: %w", err)
	}
	return room, nil
}

// Finish ends an active room directly.
func (s *RoomService) Finish(ctx context.Context, roomID, hostToken string) (domain.Room, error) {
	room, _, _, err := s.hostRoom(ctx, roomID, hostToken)
	if err != nil {
		return domain.Room{}, err
	}
	if room.Status != domain.RoomActive {
		return domain.Room{}, Precondition("room is not active")
	}
	if err := setStatus(&room, domain.RoomFinished); err != nil {
		return domain.Room{}, err
	}
	if err := s.store.UpdateRoom(ctx, room); err != nil {
		return domain.Room{}, fmt.Errorf("finish room: %w", err)
	}
	return room, nil
}

// hostRoom loads the room, checks the host token and resolves quiz content
// and game mode.
func (s *RoomService) hostRoom(ctx context.Context, roomID, hostToken string) (domain.Room, domain.QuizContent, gamemode.Mode, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return domain.Room{}, domain.QuizContent{}, nil, err
	}
	if hostToken == "" || room.HostToken != hostToken {
		return domain.Room{}, domain.QuizContent{}, nil, domain.ErrUnauthorized
	}
	content, err := s.content.QuizContent(ctx, room.QuizID)
	if err != nil {
		return domain.Room{}, domain.QuizContent{}, nil, err
	}
	mode, ok := gamemode.Lookup(content.Quiz.QuizType)
	if !ok {
		return domain.Room{}, domain.QuizContent{}, nil, &domain.ValidationError{Reason: fmt.Sprintf("unknown quiz type %q", content.Quiz.QuizType)}
	}
	return room, content, mode, nil
}

func (s *RoomService) hasPendingAnswers(ctx context.Context, room domain.Room) (bool, error) {
	players, err := s.store.PlayersByRoom(ctx, room.ID)
	if err != nil {
		return false, fmt.Errorf("load players: %w", err)
	}
	if len(players) == 0 {
		return false, nil
	}
	subs, err := s.store.SubmissionsForQuestion(ctx, room.ID, room.CurrentQuestionID)
	if err != nil {
		return false, fmt.Errorf("load submissions: %w", err)
	}
	return len(subs) < len(players), nil
}

// setStatus moves the lifecycle forward. Transitions are monotonic; a
// regression here is a programming error, never reachable through the API.
func setStatus(room *domain.Room, next domain.RoomStatus) error {
	if !room.Status.CanTransitionTo(next) {
		return Precondition(fmt.Sprintf("room cannot move from %s to %s", room.Status, next))
	}
	room.Status = next
	return nil
}

// questionIndex returns the position of questionID in the ordered list, or
// -1 when the cursor is unset or dangling (questions edited mid-game); the
// next Advance then re-establishes the cursor at the first question.
func questionIndex(questions []domain.Question, questionID string) int {
	if questionID == "" {
		return -1
	}
	for i, q := range questions {
		if q.ID == questionID {
			return i
		}
	}
	return -1
}

// Precondition wraps a reason in a PreconditionError.
func Precondition(reason string) *domain.PreconditionError {
	return &domain.PreconditionError{Reason: reason}
}
