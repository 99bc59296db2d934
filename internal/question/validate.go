package question

import (
	"errors"
	"fmt"

	"github.com/ShashankAtmakur/survey-management-system/internal/model"
)

var (
	ErrMissingRequiredAnswer = errors.New("answer is required")
	ErrUnknownOption         = errors.New("answer is not one of the question options")
	ErrScoreOutOfRange       = errors.New("rating is out of range")
)

// FieldError is a validation failure for one question
type FieldError struct {
	Question string `json:"question"`
	Err      error  `json:"-"`
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Question, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Validate checks presence only. Type-specific checks belong to Collect.
func Validate(q model.Question, value model.AnswerValue) error {
	if q.Required && value.IsBlank() {
		return &FieldError{Question: q.Text, Err: ErrMissingRequiredAnswer}
	}
	return nil
}

// ValidateAll validates every question of the survey independently and
// returns the failures in survey order.
func ValidateAll(s *model.Survey, answers model.Answers) []FieldError {
	var errs []FieldError
	for _, q := range s.Questions {
		var fe *FieldError
		if err := Validate(q, answers[q.Text]); errors.As(err, &fe) {
			errs = append(errs, *fe)
		}
	}
	return errs
}
