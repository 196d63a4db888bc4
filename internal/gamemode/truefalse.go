package gamemode

import (
	"strings"

	"quizroom-service/internal/domain"
)

// trueFalseMode is the binary-choice mode. Submissions are evaluated
// automatically by the host poll tick, comparing against the canonical
// answer after normalization.
type trueFalseMode struct{}

func (trueFalseMode) Type() domain.QuizType { return domain.TypeTrueFalse }
func (trueFalseMode) Label() string         { return "True or False" }
func (trueFalseMode) Policy() EvalPolicy    { return EvalAuto }

func (trueFalseMode) HostFlow() HostFlow {
	return HostFlow{CanRetreat: true}
}

func (trueFalseMode) Validate(questions []domain.Question) ([]domain.Question, error) {
	valid := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		if strings.TrimSpace(q.Text) != "" {
			valid = append(valid, q)
		}
	}
	if len(valid) == 0 {
		return nil, &domain.ValidationError{Reason: "at least one question is required"}
	}
	return valid, nil
}

// AnswerMatches reports whether a submitted answer equals the canonical one
// after trimming surrounding whitespace and folding case. "wahr " matches
// "Wahr".
func AnswerMatches(submitted, canonical string) bool {
	return strings.EqualFold(strings.TrimSpace(submitted), strings.TrimSpace(canonical))
}
