package gamemode

import (
	"fmt"
	"strings"

	"quizroom-service/internal/domain"
)

// identifyImageMode is Q&A over an image: same manual evaluation as qaMode,
// but every question additionally needs an image reference.
type identifyImageMode struct{}

func (identifyImageMode) Type() domain.QuizType { return domain.TypeIdentifyImage }
func (identifyImageMode) Label() string         { return "Who or what is this?" }
func (identifyImageMode) Policy() EvalPolicy    { return EvalManual }

func (identifyImageMode) HostFlow() HostFlow {
	return HostFlow{CanRetreat: true}
}

func (identifyImageMode) Validate(questions []domain.Question) ([]domain.Question, error) {
	valid := make([]domain.Question, 0, len(questions))
	missing := 0
	for _, q := range questions {
		hasImage := strings.TrimSpace(q.ImagePath) != ""
		hasAnswer := strings.TrimSpace(q.Answer) != ""
		switch {
		case hasImage && hasAnswer:
			valid = append(valid, q)
		case hasImage && !hasAnswer:
			missing++
		}
	}
	if len(valid) == 0 {
		return nil, &domain.ValidationError{Reason: "at least one question with an image and a canonical answer is required"}
	}
	if missing > 0 {
		return nil, &domain.ValidationError{Reason: fmt.Sprintf("%d question(s) without a canonical answer", missing)}
	}
	return valid, nil
}
