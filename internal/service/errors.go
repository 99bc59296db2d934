package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ShashankAtmakur/survey-management-system/internal/question"
)

var (
	ErrSurveyNotFound        = errors.New("survey not found")
	ErrSurveyInactive        = errors.New("survey is not accepting responses")
	ErrResponseNotFound      = errors.New("response not found")
	ErrInvalidSurvey         = errors.New("invalid survey")
	ErrDuplicateQuestionText = errors.New("duplicate question text")
	ErrAnalyticsUnavailable  = errors.New("analytics unavailable")
	ErrInvalidPrompt         = errors.New("prompt is required")
	ErrRenameConflict        = errors.New("renamed question text already has stored answers")
)

// ValidationError lists every failed question of a submission
type ValidationError struct {
	Fields []question.FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, fmt.Sprintf("%q", f.Question))
	}
	return "missing required answers: " + strings.Join(names, ", ")
}

func invalidSurvey(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidSurvey, fmt.Sprintf(format, args...))
}
