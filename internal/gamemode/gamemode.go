// Package gamemode holds the closed registry of game modes. A mode bundles
// the content validation rule, the host flow restrictions and the evaluation
// policy for one quiz type; nothing outside this package adds modes.
package gamemode

import (
	"quizroom-service/internal/domain"
)

// EvalPolicy describes who sets Submission.IsCorrect and when.
type EvalPolicy string

const (
	// EvalManual: the host rules on each submission explicitly.
	EvalManual EvalPolicy = "manual"
	// EvalAuto: the host poll tick evaluates by comparing against the
	// canonical answer.
	EvalAuto EvalPolicy = "auto"
	// EvalRank: no per-submission verdict; totals are computed from the full
	// ledger once all placements exist.
	EvalRank EvalPolicy = "rank"
)

// HostFlow restricts how the host may move the cursor.
type HostFlow struct {
	// CanRetreat permits backward navigation to the previous question.
	CanRetreat bool
	// FixedSequence marks modes that reveal items strictly in canonical
	// order and end through their own reveal step.
	FixedSequence bool
}

// Mode is one game-mode capability bundle.
type Mode interface {
	Type() domain.QuizType
	Label() string
	// Validate keeps the questions that satisfy the mode's content rules and
	// returns a *domain.ValidationError when the set as a whole is unusable.
	Validate(questions []domain.Question) ([]domain.Question, error)
	HostFlow() HostFlow
	Policy() EvalPolicy
}

var registry = map[domain.QuizType]Mode{
	domain.TypeQA:            qaMode{},
	domain.TypeTrueFalse:     trueFalseMode{},
	domain.TypeIdentifyImage: identifyImageMode{},
	domain.TypeBlindTop5:     blindTop5Mode{},
}

// Lookup resolves a quiz type to its mode.
func Lookup(t domain.QuizType) (Mode, bool) {
	m, ok := registry[t]
	return m, ok
}

// Types lists the registered quiz types; handy for authoring validation.
func Types() []domain.QuizType {
	out := make([]domain.QuizType, 0, len(registry))
	for t := range registry {
		out = append(out, t)
	}
	return out
}
