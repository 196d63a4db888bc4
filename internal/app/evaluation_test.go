package app_test

import (
	"context"
	"testing"

	"quizroom-service/internal/domain"
	"quizroom-service/internal/gamemode"
)

// Scenario: two players, three questions, manual evaluation, final ranking.
func TestManualEvaluationFlow(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	quiz := h.seedQA(t, 3)
	room, players := h.openRoom(t, quiz.ID, "Alice", "Bob")
	room = h.mustStart(t, room)
	questions := h.questionsOf(t, quiz.ID)
	alice, bob := players[0], players[1]

	aliceSub, err := h.ledger.Submit(ctx, room.ID, questions[0].ID, alice.ID, alice.Token, "Paris")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	bobSub, err := h.ledger.Submit(ctx, room.ID, questions[0].ID, bob.ID, bob.Token, "London")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	evaluated, err := h.rooms.Evaluate(ctx, aliceSub.Submission.ID, room.HostToken, true)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if evaluated.IsCorrect == nil || !*evaluated.IsCorrect {
		t.Fatalf("expected correct verdict, got %+v", evaluated.IsCorrect)
	}
	if _, err := h.rooms.Evaluate(ctx, bobSub.Submission.ID, room.HostToken, false); err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	// two advances reach the last question, the third closes the room
	for i := 0; i < 3; i++ {
		if room, err = h.rooms.Advance(ctx, room.ID, room.HostToken, true); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}
	if room.Status != domain.RoomFinished {
		t.Fatalf("expected finished after advancing past the last question, got %s", room.Status)
	}

	board, err := h.rooms.Scoreboard(ctx, room.ID)
	if err != nil {
		t.Fatalf("scoreboard: %v", err)
	}
	if len(board) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(board))
	}
	if board[0].Nickname != "Alice" || board[0].Score != 1 {
		t.Fatalf("expected Alice leading with 1, got %+v", board[0])
	}
	if board[1].Nickname != "Bob" || board[1].Score != 0 {
		t.Fatalf("expected Bob with 0, got %+v", board[1])
	}
}

func TestEvaluationIsIdempotent(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	quiz := h.seedQA(t, 1)
	room, players := h.openRoom(t, quiz.ID, "Alice")
	room = h.mustStart(t, room)
	q := h.questionsOf(t, quiz.ID)[0]
	alice := players[0]

	sub, err := h.ledger.Submit(ctx, room.ID, q.ID, alice.ID, alice.Token, "Paris")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := h.rooms.Evaluate(ctx, sub.Submission.ID, room.HostToken, true); err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	// second ruling neither flips the verdict nor scores again
	again, err := h.rooms.Evaluate(ctx, sub.Submission.ID, room.HostToken, false)
	if err != nil {
		t.Fatalf("re-evaluate: %v", err)
	}
	if again.IsCorrect == nil || !*again.IsCorrect {
		t.Fatalf("verdict must not revert, got %+v", again.IsCorrect)
	}
	board, err := h.rooms.Scoreboard(ctx, room.ID)
	if err != nil {
		t.Fatalf("scoreboard: %v", err)
	}
	if board[0].Score != 1 {
		t.Fatalf("score must stay at 1, got %d", board[0].Score)
	}
}

// Scenario: canonical answer "Wahr", submitted "wahr " with stray whitespace.
func TestAutoEvaluationOnSnapshot(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	quiz := h.seedQuiz(t, domain.TypeTrueFalse,
		domain.Question{Text: "Die Erde ist rund.", Answer: "Wahr"},
	)
	room, players := h.openRoom(t, quiz.ID, "Alice", "Bob")
	room = h.mustStart(t, room)
	q := h.questionsOf(t, quiz.ID)[0]
	alice, bob := players[0], players[1]

	if _, err := h.ledger.Submit(ctx, room.ID, q.ID, alice.ID, alice.Token, "wahr "); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := h.ledger.Submit(ctx, room.ID, q.ID, bob.ID, bob.Token, "Falsch"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// the host's read evaluates as a side effect
	snap, err := h.rooms.Snapshot(ctx, room.ID, room.HostToken)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	verdicts := map[string]bool{}
	for _, sub := range snap.Submissions {
		if sub.IsCorrect == nil {
			t.Fatalf("submission %s not evaluated by the tick", sub.ID)
		}
		verdicts[sub.PlayerID] = *sub.IsCorrect
	}
	if !verdicts[alice.ID] {
		t.Fatalf("normalized match must be correct")
	}
	if verdicts[bob.ID] {
		t.Fatalf("wrong answer must be incorrect")
	}

	// a second tick changes nothing
	if _, err := h.rooms.Snapshot(ctx, room.ID, room.HostToken); err != nil {
		t.Fatalf("second snapshot: %v", err)
	}
	board, err := h.rooms.Scoreboard(ctx, room.ID)
	if err != nil {
		t.Fatalf("scoreboard: %v", err)
	}
	if board[0].Nickname != "Alice" || board[0].Score != 1 {
		t.Fatalf("expected Alice at 1, got %+v", board[0])
	}
	if board[1].Score != 0 {
		t.Fatalf("expected Bob at 0, got %+v", board[1])
	}
}

func TestManualEvaluateRejectedForAutoMode(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	quiz := h.seedQuiz(t, domain.TypeTrueFalse, domain.Question{Text: "q", Answer: "Wahr"})
	room, players := h.openRoom(t, quiz.ID, "Alice")
	room = h.mustStart(t, room)
	q := h.questionsOf(t, quiz.ID)[0]

	sub, err := h.ledger.Submit(ctx, room.ID, q.ID, players[0].ID, players[0].Token, "Wahr")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := h.rooms.Evaluate(ctx, sub.Submission.ID, room.HostToken, true); err == nil {
		t.Fatalf("manual ruling on an auto mode must fail")
	}
}

func TestBlindTop5RevealScoresFromLedger(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	items := []domain.Question{{Text: "a"}, {Text: "b"}, {Text: "c"}, {Text: "d"}, {Text: "e"}}
	quiz := h.seedQuiz(t, domain.TypeBlindTop5, items...)
	room, players := h.openRoom(t, quiz.ID, "Alice")
	room = h.mustStart(t, room)
	questions := h.questionsOf(t, quiz.ID)
	alice := players[0]

	// item at canonical slot 1 -> rank 1 (exact), item at canonical
	// slot 3 -> rank 2 (off by one), the rest scattered
	slots := []int{1, 4, 2, 5, 3}
	want := 0
	for i, slot := range slots {
		want += gamemode.PlacementScore(slot, i)
	}
	seen := map[int]bool{}
	for i, q := range questions {
		payload, err := gamemode.EncodePlacement(slots[i])
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		if _, err := h.ledger.Submit(ctx, room.ID, q.ID, alice.ID, alice.Token, payload); err != nil {
			t.Fatalf("place item %d: %v", i, err)
		}
		seen[slots[i]] = true
	}
	// five placements always form a permutation of 1..5
	for slot := 1; slot <= 5; slot++ {
		if !seen[slot] {
			t.Fatalf("slot %d unused, placements are not a permutation", slot)
		}
	}

	result, err := h.rooms.RevealResults(ctx, room.ID, room.HostToken)
	if err != nil {
		t.Fatalf("reveal: %v", err)
	}
	if !result.Scored {
		t.Fatalf("scoring variant must report scored results")
	}
	if result.Room.Status != domain.RoomFinished {
		t.Fatalf("reveal must finish the room, got %s", result.Room.Status)
	}
	if len(result.Players) != 1 || result.Players[0].Score != want {
		t.Fatalf("expected score %d, got %+v", want, result.Players)
	}
	if result.Players[0].Score < 0 || result.Players[0].Score > 10 {
		t.Fatalf("score out of bounds: %d", result.Players[0].Score)
	}

	board, err := h.rooms.Scoreboard(ctx, room.ID)
	if err != nil {
		t.Fatalf("scoreboard: %v", err)
	}
	if board[0].Score != want {
		t.Fatalf("persisted score %d, want %d", board[0].Score, want)
	}
}

func TestBlindTop5SummaryOnlyVariant(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	items := []domain.Question{{Text: "a"}, {Text: "b"}, {Text: "c"}, {Text: "d"}, {Text: "e"}}
	quiz := h.seedQuiz(t, domain.TypeBlindTop5, items...)

	room, err := h.rooms.CreateRoom(ctx, quiz.ID, false) // scoring disabled
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	alice, _, err := h.rooms.Join(ctx, room.Code, "Alice")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	room = h.mustStart(t, room)

	for i, q := range h.questionsOf(t, quiz.ID) {
		payload, err := gamemode.EncodePlacement(i + 1)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		if _, err := h.ledger.Submit(ctx, room.ID, q.ID, alice.ID, alice.Token, payload); err != nil {
			t.Fatalf("place item %d: %v", i, err)
		}
	}

	result, err := h.rooms.RevealResults(ctx, room.ID, room.HostToken)
	if err != nil {
		t.Fatalf("reveal: %v", err)
	}
	if result.Scored {
		t.Fatalf("summary-only variant must not score")
	}
	if result.Players[0].Placed != 5 {
		t.Fatalf("placement summary incomplete: %+v", result.Players[0])
	}
	if result.Room.Status != domain.RoomFinished {
		t.Fatalf("reveal must finish the room")
	}

	board, err := h.rooms.Scoreboard(ctx, room.ID)
	if err != nil {
		t.Fatalf("scoreboard: %v", err)
	}
	if board[0].Score != 0 {
		t.Fatalf("no points may be persisted, got %d", board[0].Score)
	}
}
