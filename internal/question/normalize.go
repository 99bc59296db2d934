package question

import (
	"strings"

	"github.com/ShashankAtmakur/survey-management-system/internal/model"
)

// Normalize fills a partially specified question with defaults: empty text,
// type text, no options and required. It never fails.
func Normalize(in model.QuestionInput) model.Question {
	q := model.Question{
		Type:     model.QuestionTypeText,
		Options:  []string{},
		Required: true,
	}
	if in.ID != nil {
		q.ID = strings.TrimSpace(*in.ID)
	}
	if in.Text != nil {
		q.Text = strings.TrimSpace(*in.Text)
	}
	if in.Type != nil {
		if t, ok := model.ParseQuestionType(*in.Type); ok {
			q.Type = t
		}
	}
	if in.Required != nil {
		q.Required = *in.Required
	}
	if q.Type == model.QuestionTypeMultipleChoice {
		q.Options = cleanOptions(in.Options)
	}
	return q
}

// NormalizeQuestion re-applies normalization to an existing question.
func NormalizeQuestion(q model.Question) model.Question {
	return Normalize(q.Input())
}

// NormalizeAll normalizes every input, keeping order.
func NormalizeAll(in []model.QuestionInput) []model.Question {
	out := make([]model.Question, 0, len(in))
	for _, qi := range in {
		out = append(out, Normalize(qi))
	}
	return out
}

// cleanOptions trims entries and drops empties and repeats.
func cleanOptions(opts []string) []string {
	out := make([]string, 0, len(opts))
	seen := make(map[string]struct{}, len(opts))
	for _, o := range opts {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if _, dup := seen[o]; dup {
			continue
		}
		seen[o] = struct{}{}
		out = append(out, o)
	}
	return out
}
