package gamemode

import (
	"fmt"
	"strings"

	"quizroom-service/internal/domain"
)

// qaMode is the classic free-text mode: every question needs a canonical
// answer the host can compare against, and the host rules on each submission.
type qaMode struct{}

func (qaMode) Type() domain.QuizType { return domain.TypeQA }
func (qaMode) Label() string         { return "Classic Q&A" }
func (qaMode) Policy() EvalPolicy    { return EvalManual }

func (qaMode) HostFlow() HostFlow {
	return HostFlow{CanRetreat: true}
}

func (qaMode) Validate(questions []domain.Question) ([]domain.Question, error) {
	valid := make([]domain.Question, 0, len(questions))
	missing := 0
	for _, q := range questions {
		text := strings.TrimSpace(q.Text)
		answer := strings.TrimSpace(q.Answer)
		switch {
		case text != "" && answer != "":
			valid = append(valid, q)
		case text != "" && answer == "":
			missing++
		}
	}
	if len(valid) == 0 {
		return nil, &domain.ValidationError{Reason: "at least one question with a canonical answer is required"}
	}
	if missing > 0 {
		return nil, &domain.ValidationError{Reason: fmt.Sprintf("%d question(s) without a canonical answer", missing)}
	}
	return valid, nil
}
