package app

import (
	"context"
	"fmt"
	"sort"

	"quizroom-service/internal/domain"
	"quizroom-service/internal/gamemode"
)

// ScoreKeeper maintains one mutable score per (room, player). Increments go
// through the store's atomic increment, so two evaluations for the same
// player cannot race a read-modify-write; absolute totals are written once
// by compute-at-reveal scoring.
type ScoreKeeper struct {
	store Store
}

func NewScoreKeeper(store Store) *ScoreKeeper {
	return &ScoreKeeper{store: store}
}

// Award adds points for one correct submission.
func (k *ScoreKeeper) Award(ctx context.Context, roomID, playerID string, points int) error {
	if err := k.store.IncrementScore(ctx, roomID, playerID, points); err != nil {
		return fmt.Errorf("increment score: %w", err)
	}
	return nil
}

// Put replaces a player's stored total.
func (k *ScoreKeeper) Put(ctx context.Context, roomID, playerID string, score int) error {
	if err := k.store.PutScore(ctx, roomID, playerID, score); err != nil {
		return fmt.Errorf("put score: %w", err)
	}
	return nil
}

// Scoreboard joins scores with nicknames, ordered by score descending with
// nickname as the tie-break. Players without a score row appear with zero.
func (k *ScoreKeeper) Scoreboard(ctx context.Context, roomID string) ([]domain.ScoreboardEntry, error) {
	players, err := k.store.PlayersByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("load players: %w", err)
	}
	scores, err := k.store.ScoresByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("load scores: %w", err)
	}
	byPlayer := make(map[string]int, len(scores))
	for _, s := range scores {
		byPlayer[s.PlayerID] = s.Score
	}
	entries := make([]domain.ScoreboardEntry, 0, len(players))
	for _, p := range players {
		entries = append(entries, domain.ScoreboardEntry{
			PlayerID: p.ID,
			Nickname: p.Nickname,
			Score:    byPlayer[p.ID],
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Nickname < entries[j].Nickname
	})
	return entries, nil
}

// decodePlacements extracts valid rank placements from ledger rows, keyed by
// question id. Malformed payloads are skipped.
func decodePlacements(subs []domain.Submission) map[string]int {
	placements := make(map[string]int)
	for _, sub := range subs {
		slot, err := gamemode.DecodePlacement(sub.AnswerText)
		if err != nil {
			continue
		}
		placements[sub.QuestionID] = slot
	}
	return placements
}
