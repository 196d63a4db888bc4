package poll

import (
	"context"
	"errors"
	"time"

	"quizroom-service/internal/app"
	"quizroom-service/internal/domain"
	"quizroom-service/internal/gamemode"
)

// Phase is the player's per-question submission state. It is terminal until
// the cursor changes.
type Phase string

const (
	// PhaseIdle: no submission yet for the current question.
	PhaseIdle Phase = "idle"
	// PhaseSubmitted: answer recorded, verdict pending.
	PhaseSubmitted Phase = "submitted"
	// PhaseEvaluated: verdict available in Submission.IsCorrect.
	PhaseEvaluated Phase = "evaluated"
	// PhasePlaced: rank-mode placement recorded and locked.
	PhasePlaced Phase = "placed"
)

// PlayerState is what a tick hands to the consuming view.
type PlayerState struct {
	Room       domain.Room
	QuestionID string
	Phase      Phase
	Submission *domain.Submission
}

// PlayerPoller is the player-side sync client. Each tick re-reads the room;
// on a cursor change the local answer state is dropped and the ledger is
// re-queried for a pre-existing submission, so a reloaded client recovers
// its submitted state instead of trusting anything local.
type PlayerPoller struct {
	rooms    *app.RoomService
	ledger   *app.Ledger
	code     string
	playerID string
	token    string
	policy   gamemode.EvalPolicy
	interval time.Duration
	onState  func(PlayerState)

	state PlayerState
}

func NewPlayerPoller(rooms *app.RoomService, ledger *app.Ledger, code, playerID, playerToken string, policy gamemode.EvalPolicy, interval time.Duration, onState func(PlayerState)) *PlayerPoller {
	if interval <= 0 {
		interval = DefaultPlayerInterval
	}
	return &PlayerPoller{
		rooms:    rooms,
		ledger:   ledger,
		code:     code,
		playerID: playerID,
		token:    playerToken,
		policy:   policy,
		interval: interval,
		onState:  onState,
	}
}

// Run polls until ctx is cancelled; cancel it when the player view is torn down.
func (p *PlayerPoller) Run(ctx context.Context) {
	runTicks(ctx, "player", p.interval, p.tick)
}

func (p *PlayerPoller) tick(ctx context.Context) error {
	room, err := p.rooms.RoomByCode(ctx, p.code)
	if err != nil {
		return err
	}

	cursorChanged := room.CurrentQuestionID != p.state.QuestionID
	p.state.Room = room
	p.state.QuestionID = room.CurrentQuestionID

	if cursorChanged {
		p.state.Phase = PhaseIdle
		p.state.Submission = nil
	}

	// Re-query the ledger while the phase can still move: on a fresh cursor
	// (reload recovery) and while a verdict is outstanding.
	if room.CurrentQuestionID != "" && p.state.Phase != PhaseEvaluated && p.state.Phase != PhasePlaced {
		if err := p.reconcileSubmission(ctx, room); err != nil {
			return err
		}
	}

	if p.onState != nil {
		p.onState(p.state)
	}
	return nil
}

func (p *PlayerPoller) reconcileSubmission(ctx context.Context, room domain.Room) error {
	sub, err := p.ledger.OwnSubmission(ctx, room.ID, room.CurrentQuestionID, p.playerID, p.token)
	if errors.Is(err, domain.ErrSubmissionNotFound) {
		p.state.Phase = PhaseIdle
		p.state.Submission = nil
		return nil
	}
	if err != nil {
		return err
	}

	p.state.Submission = &sub
	switch {
	case p.policy == gamemode.EvalRank:
		p.state.Phase = PhasePlaced
	case sub.Evaluated():
		p.state.Phase = PhaseEvaluated
	default:
		p.state.Phase = PhaseSubmitted
	}
	return nil
}
