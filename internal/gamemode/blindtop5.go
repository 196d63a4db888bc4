package gamemode

import (
	"encoding/json"
	"fmt"
	"strings"

	"quizroom-service/internal/domain"
)

// ItemCount is the fixed size of a Blind Top 5 ranking.
const ItemCount = 5

// blindTop5Mode is the ranking game: the host reveals five items one at a
// time in canonical order, each player locks every item into one of five
// rank slots. No per-submission verdict exists; totals are computed from
// the full ledger once a player has placed all five items.
type blindTop5Mode struct{}

func (blindTop5Mode) Type() domain.QuizType { return domain.TypeBlindTop5 }
func (blindTop5Mode) Label() string         { return "Blind Top 5" }
func (blindTop5Mode) Policy() EvalPolicy    { return EvalRank }

func (blindTop5Mode) HostFlow() HostFlow {
	return HostFlow{CanRetreat: false, FixedSequence: true}
}

func (blindTop5Mode) Validate(questions []domain.Question) ([]domain.Question, error) {
	valid := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		if strings.TrimSpace(q.Text) != "" {
			valid = append(valid, q)
		}
	}
	if len(valid) != ItemCount {
		return nil, &domain.ValidationError{Reason: fmt.Sprintf("blind top 5 needs exactly %d items", ItemCount)}
	}
	return valid, nil
}

// placementPayload is the wire form of a rank submission's answer text.
type placementPayload struct {
	ChosenPosition int `json:"chosen_position"`
}

// EncodePlacement renders a chosen rank slot (1..5) as submission answer text.
func EncodePlacement(slot int) (string, error) {
	if slot < 1 || slot > ItemCount {
		return "", fmt.Errorf("slot %d out of range 1..%d", slot, ItemCount)
	}
	data, err := json.Marshal(placementPayload{ChosenPosition: slot})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodePlacement parses a rank submission's answer text back into a slot.
func DecodePlacement(answerText string) (int, error) {
	var p placementPayload
	if err := json.Unmarshal([]byte(answerText), &p); err != nil {
		return 0, fmt.Errorf("malformed placement payload: %w", err)
	}
	if p.ChosenPosition < 1 || p.ChosenPosition > ItemCount {
		return 0, fmt.Errorf("slot %d out of range 1..%d", p.ChosenPosition, ItemCount)
	}
	return p.ChosenPosition, nil
}

// PlacementScore scores a single item: the canonical slot is the item's
// 0-based position plus one. Exact match is worth 2, off by one is worth 1,
// anything else 0.
func PlacementScore(chosenSlot, canonicalPosition int) int {
	canonical := canonicalPosition + 1
	switch {
	case chosenSlot == canonical:
		return 2
	case chosenSlot == canonical-1 || chosenSlot == canonical+1:
		return 1
	default:
		return 0
	}
}

// TotalScore sums PlacementScore over a player's placements, keyed by
// question ID. Items the player never placed contribute nothing.
func TotalScore(items []domain.Question, placements map[string]int) int {
	total := 0
	for _, item := range items {
		if slot, ok := placements[item.ID]; ok {
			total += PlacementScore(slot, item.Position)
		}
	}
	return total
}
