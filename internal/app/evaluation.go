package app

import (
	"context"
	"fmt"

	"quizroom-service/internal/domain"
	"quizroom-service/internal/gamemode"
)

// HostSnapshot is what the host poller renders: roster and the submission
// queue for the current question. Late submissions for passed questions are
// excluded here but stay in the ledger for the end-of-game summary.
type HostSnapshot struct {
	Room        domain.Room         `json:"room"`
	Players     []domain.Player     `json:"players"`
	Submissions []domain.Submission `json:"submissions"`
}

// Snapshot reads the host's view of the room. For automatic-evaluation modes
// the read is not side-effect-free: un-evaluated submissions for the current
// question are evaluated and scored before the queue is returned.
func (s *RoomService) Snapshot(ctx context.Context, roomID, hostToken string) (HostSnapshot, error) {
	room, content, mode, err := s.hostRoom(ctx, roomID, hostToken)
	if err != nil {
		return HostSnapshot{}, err
	}
	players, err := s.store.PlayersByRoom(ctx, room.ID)
	if err != nil {
		return HostSnapshot{}, fmt.Errorf("load players: %w", err)
	}
	snapshot := HostSnapshot{Room: room, Players: players}
	if room.CurrentQuestionID == "" {
		return snapshot, nil
	}

	if mode.Policy() == gamemode.EvalAuto {
		if err := s.autoEvaluate(ctx, room, content); err != nil {
			return HostSnapshot{}, err
		}
	}

	subs, err := s.store.SubmissionsForQuestion(ctx, room.ID, room.CurrentQuestionID)
	if err != nil {
		return HostSnapshot{}, fmt.Errorf("load submissions: %w", err)
	}
	snapshot.Submissions = subs
	return snapshot, nil
}

// autoEvaluate rules on every un-evaluated submission for the current
// question by normalized comparison with the canonical answer. The verdict
// write reports whether it applied, so a repeated tick neither flips the
// verdict nor awards a second point.
func (s *RoomService) autoEvaluate(ctx context.Context, room domain.Room, content domain.QuizContent) error {
	idx := questionIndex(content.Questions, room.CurrentQuestionID)
	if idx < 0 {
		return nil
	}
	question := content.Questions[idx]
	subs, err := s.store.SubmissionsForQuestion(ctx, room.ID, room.CurrentQuestionID)
	if err != nil {
		return fmt.Errorf("load submissions: %w", err)
	}
	for _, sub := range subs {
		if sub.Evaluated() {
			continue
		}
		correct := gamemode.AnswerMatches(sub.AnswerText, question.Answer)
		applied, err := s.store.SetVerdict(ctx, sub.ID, correct)
		if err != nil {
			return fmt.Errorf("set verdict: %w", err)
		}
		if applied && correct {
			if err := s.scores.Award(ctx, room.ID, sub.PlayerID, 1); err != nil {
				return err
			}
		}
	}
	return nil
}

// Evaluate is the host's manual ruling on one submission. Once ruled, a
// submission never changes verdict; re-evaluating returns the existing row
// untouched and leaves the score alone.
func (s *RoomService) Evaluate(ctx context.Context, submissionID, hostToken string, correct bool) (domain.Submission, error) {
	sub, err := s.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return domain.Submission{}, err
	}
	_, _, mode, err := s.hostRoom(ctx, sub.RoomID, hostToken)
	if err != nil {
		return domain.Submission{}, err
	}
	if mode.Policy() != gamemode.EvalManual {
		return domain.Submission{}, Precondition(fmt.Sprintf("%s is not evaluated manually", mode.Label()))
	}
	if sub.Evaluated() {
		return sub, nil
	}
	applied, err := s.store.SetVerdict(ctx, sub.ID, correct)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("set verdict: %w", err)
	}
	if applied && correct {
		if err := s.scores.Award(ctx, sub.RoomID, sub.PlayerID, 1); err != nil {
			return domain.Submission{}, err
		}
	}
	return s.store.GetSubmission(ctx, sub.ID)
}

// PlayerResult is one row of a ranking reveal.
type PlayerResult struct {
	PlayerID   string         `json:"playerId"`
	Nickname   string         `json:"nickname"`
	Placements map[string]int `json:"placements"` // question id -> chosen slot
	Placed     int            `json:"placed"`
	Score      int            `json:"score"` // zero in the summary-only variant
}

// RevealResult is the outcome of a Blind Top 5 reveal.
type RevealResult struct {
	Room    domain.Room       `json:"room"`
	Items   []domain.Question `json:"items"`
	Players []PlayerResult    `json:"players"`
	Scored  bool              `json:"scored"`
}

// RevealResults ends a ranking game: placements are read straight from the
// ledger, totals are computed in one pass (exact slot 2, off by one 1) and
// persisted as absolute scores, and the room transitions to finished. The
// summary-only variant skips the point computation entirely.
func (s *RoomService) RevealResults(ctx context.Context, roomID, hostToken string) (RevealResult, error) {
	room, content, mode, err := s.hostRoom(ctx, roomID, hostToken)
	if err != nil {
		return RevealResult{}, err
	}
	if mode.Policy() != gamemode.EvalRank {
		return RevealResult{}, Precondition(fmt.Sprintf("%s has no ranking reveal", mode.Label()))
	}
	if room.Status != domain.RoomActive {
		return RevealResult{}, Precondition("room is not active")
	}
	players, err := s.store.PlayersByRoom(ctx, room.ID)
	if err != nil {
		return RevealResult{}, fmt.Errorf("load players: %w", err)
	}

	result := RevealResult{Items: content.Questions, Scored: room.ScoringEnabled}
	for _, p := range players {
		subs, err := s.store.SubmissionsByPlayer(ctx, room.ID, p.ID)
		if err != nil {
			return RevealResult{}, fmt.Errorf("load placements: %w", err)
		}
		placements := decodePlacements(subs)
		row := PlayerResult{
			PlayerID:   p.ID,
			Nickname:   p.Nickname,
			Placements: placements,
			Placed:     len(placements),
		}
		if room.ScoringEnabled {
			row.Score = gamemode.TotalScore(content.Questions, placements)
			if err := s.scores.Put(ctx, room.ID, p.ID, row.Score); err != nil {
				return RevealResult{}, err
			}
		}
		result.Players = append(result.Players, row)
	}

	if err := setStatus(&room, domain.RoomFinished); err != nil {
		return RevealResult{}, err
	}
	if err := s.store.UpdateRoom(ctx, room); err != nil {
		return RevealResult{}, fmt.Errorf("finish room: %w", err)
	}
	result.Room = room
	return result, nil
}

// Scoreboard exposes the room's current standings; readable by anyone who
// knows the room.
func (s *RoomService) Scoreboard(ctx context.Context, roomID string) ([]domain.ScoreboardEntry, error) {
	if _, err := s.store.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	return s.scores.Scoreboard(ctx, roomID)
}

// QuestionSummary groups the full ledger for one question, late submissions
// included.
type QuestionSummary struct {
	Question    domain.Question     `json:"question"`
	Submissions []domain.Submission `json:"submissions"`
}

// Summary scans the whole ledger for the end-of-game view.
func (s *RoomService) Summary(ctx context.Context, roomID, hostToken string) ([]QuestionSummary, error) {
	room, content, _, err := s.hostRoom(ctx, roomID, hostToken)
	if err != nil {
		return nil, err
	}
	subs, err := s.store.SubmissionsByRoom(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("load submissions: %w", err)
	}
	byQuestion := make(map[string][]domain.Submission)
	for _, sub := range subs {
		byQuestion[sub.QuestionID] = append(byQuestion[sub.QuestionID], sub)
	}
	out := make([]QuestionSummary, 0, len(content.Questions))
	for _, q := range content.Questions {
		out = append(out, QuestionSummary{Question: q, Submissions: byQuestion[q.ID]})
	}
	return out, nil
}
