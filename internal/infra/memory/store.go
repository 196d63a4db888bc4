// Package memory provides the in-process Store twin used by tests and by
// serve runs without a configured database. It enforces the same row-level
// constraints as the SQL implementation: submission triple uniqueness, room
// code uniqueness, atomic score increments, verdict write-once.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"quizroom-service/internal/app"
	"quizroom-service/internal/domain"
)

type Store struct {
	mu          sync.RWMutex
	quizzes     map[string]domain.Quiz
	questions   map[string][]domain.Question // quiz id -> ordered questions
	rooms       map[string]domain.Room
	roomsByCode map[string]string // code -> room id
	players     map[string]domain.Player
	submissions map[string]domain.Submission
	subIndex    map[subKey]string // triple -> submission id
	scores      map[scoreKey]domain.Score
	now         func() time.Time
}

type subKey struct {
	roomID, questionID, playerID string
}

type scoreKey struct {
	roomID, playerID string
}

func NewStore() *Store {
	return &Store{
		quizzes:     make(map[string]domain.Quiz),
		questions:   make(map[string][]domain.Question),
		rooms:       make(map[string]domain.Room),
		roomsByCode: make(map[string]string),
		players:     make(map[string]domain.Player),
		submissions: make(map[string]domain.Submission),
		subIndex:    make(map[subKey]string),
		scores:      make(map[scoreKey]domain.Score),
		now:         time.Now,
	}
}

func (s *Store) CreateQuiz(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[quiz.ID] = quiz
	return nil
}

func (s *Store) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (s *Store) ReplaceQuestions(_ context.Context, quizID string, questions []domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]domain.Question, len(questions))
	copy(rows, questions)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Position < rows[j].Position })
	s.questions[quizID] = rows
	return nil
}

func (s *Store) QuestionsByQuiz(_ context.Context, quizID string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.questions[quizID]
	out := make([]domain.Question, len(rows))
	copy(out, rows)
	return out, nil
}

func (s *Store) DetachRoomsFromQuiz(_ context.Context, quizID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, room := range s.rooms {
		if room.QuizID == quizID && room.CurrentQuestionID != "" {
			room.CurrentQuestionID = ""
			s.rooms[id] = room
		}
	}
	return nil
}

// QuizContent makes the store usable directly as app.QuizContentProvider.
func (s *Store) QuizContent(ctx context.Context, quizID string) (domain.QuizContent, error) {
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

func (s *Store) CreateRoom(_ context.Context, room domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.roomsByCode[room.Code]; taken {
		return app.ErrUniqueViolation
	}
	s.rooms[room.ID] = room
	s.roomsByCode[room.Code] = room.ID
	return nil
}

func (s *Store) GetRoom(_ context.Context, roomID string) (domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	return room, nil
}

func (s *Store) GetRoomByCode(_ context.Context, code string) (domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.roomsByCode[code]
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	return s.rooms[id], nil
}

func (s *Store) UpdateRoom(_ context.Context, room domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.ID]; !ok {
		return domain.ErrRoomNotFound
	}
	s.rooms[room.ID] = room
	return nil
}

func (s *Store) CreatePlayer(_ context.Context, player domain.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[player.ID] = player
	return nil
}

func (s *Store) GetPlayer(_ context.Context, playerID string) (domain.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[playerID]
	if !ok {
		return domain.Player{}, domain.ErrPlayerNotFound
	}
	return player, nil
}

func (s *Store) PlayersByRoom(_ context.Context, roomID string) ([]domain.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Player
	for _, p := range s.players {
		if p.RoomID == roomID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (s *Store) CreateSubmission(_ context.Context, sub domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := subKey{sub.RoomID, sub.QuestionID, sub.PlayerID}
	if _, taken := s.subIndex[key]; taken {
		return domain.ErrDuplicateSubmission
	}
	s.submissions[sub.ID] = sub
	s.subIndex[key] = sub.ID
	return nil
}

func (s *Store) GetSubmission(_ context.Context, submissionID string) (domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.submissions[submissionID]
	if !ok {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	return sub, nil
}

func (s *Store) FindSubmission(_ context.Context, roomID, questionID, playerID string) (domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.subIndex[subKey{roomID, questionID, playerID}]
	if !ok {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	return s.submissions[id], nil
}

func (s *Store) SubmissionsForQuestion(_ context.Context, roomID, questionID string) ([]domain.Submission, error) {
	return s.filterSubmissions(func(sub domain.Submission) bool {
		return sub.RoomID == roomID && sub.QuestionID == questionID
	}), nil
}

func (s *Store) SubmissionsByRoom(_ context.Context, roomID string) ([]domain.Submission, error) {
	return s.filterSubmissions(func(sub domain.Submission) bool {
		return sub.RoomID == roomID
	}), nil
}

func (s *Store) SubmissionsByPlayer(_ context.Context, roomID, playerID string) ([]domain.Submission, error) {
	return s.filterSubmissions(func(sub domain.Submission) bool {
		return sub.RoomID == roomID && sub.PlayerID == playerID
	}), nil
}

func (s *Store) filterSubmissions(keep func(domain.Submission) bool) []domain.Submission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Submission
	for _, sub := range s.submissions {
		if keep(sub) {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Store) SetVerdict(_ context.Context, submissionID string, correct bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.submissions[submissionID]
	if !ok {
		return false, domain.ErrSubmissionNotFound
	}
	if sub.IsCorrect != nil {
		return false, nil
	}
	sub.IsCorrect = &correct
	s.submissions[submissionID] = sub
	return true, nil
}

func (s *Store) IncrementScore(_ context.Context, roomID, playerID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := scoreKey{roomID, playerID}
	score := s.scores[key]
	score.RoomID = roomID
	score.PlayerID = playerID
	score.Score += delta
	score.UpdatedAt = s.now()
	s.scores[key] = score
	return nil
}

func (s *Store) PutScore(_ context.Context, roomID, playerID string, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[scoreKey{roomID, playerID}] = domain.Score{
		RoomID:    roomID,
		PlayerID:  playerID,
		Score:     value,
		UpdatedAt: s.now(),
	}
	return nil
}

func (s *Store) ScoresByRoom(_ context.Context, roomID string) ([]domain.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Score
	for key, score := range s.scores {
		if key.roomID == roomID {
			out = append(out, score)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}
