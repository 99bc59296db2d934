// Package question normalizes authored questions, validates answers and
// collects captured input into stored answer values.
package question

import "github.com/ShashankAtmakur/survey-management-system/internal/model"

// Kind is the sealed set of question kinds. Consumers dispatch with Accept
// so every Visitor must handle every kind.
type Kind interface {
	Accept(v Visitor) error
	Type() model.QuestionType
}

// Visitor handles each question kind.
type Visitor interface {
	VisitText(k Text) error
	VisitNumber(k Number) error
	VisitMultipleChoice(k MultipleChoice) error
	VisitRating(k Rating) error
	VisitYesNo(k YesNo) error
	VisitAudio(k Audio) error
}

type Text struct{ Question model.Question }
type Number struct{ Question model.Question }
type MultipleChoice struct {
	Question model.Question
	Options  []string
}
type Rating struct {
	Question model.Question
	Min, Max int
}
type YesNo struct{ Question model.Question }
type Audio struct{ Question model.Question }

func (k Text) Accept(v Visitor) error           { return v.VisitText(k) }
func (k Number) Accept(v Visitor) error         { return v.VisitNumber(k) }
func (k MultipleChoice) Accept(v Visitor) error { return v.VisitMultipleChoice(k) }
func (k Rating) Accept(v Visitor) error         { return v.VisitRating(k) }
func (k YesNo) Accept(v Visitor) error          { return v.VisitYesNo(k) }
func (k Audio) Accept(v Visitor) error          { return v.VisitAudio(k) }

func (Text) Type() model.QuestionType           { return model.QuestionTypeText }
func (Number) Type() model.QuestionType         { return model.QuestionTypeNumber }
func (MultipleChoice) Type() model.QuestionType { return model.QuestionTypeMultipleChoice }
func (Rating) Type() model.QuestionType         { return model.QuestionTypeRating }
func (YesNo) Type() model.QuestionType          { return model.QuestionTypeYesNo }
func (Audio) Type() model.QuestionType          { return model.QuestionTypeAudio }

// YesNoOptions are the two values a yes_no question accepts.
var YesNoOptions = []string{"Yes", "No"}

// KindOf maps a question to its kind. Unknown types are treated as text,
// matching Normalize.
func KindOf(q model.Question) Kind {
	switch q.Type {
	case model.QuestionTypeNumber:
		return Number{Question: q}
	case model.QuestionTypeMultipleChoice:
		return MultipleChoice{Question: q, Options: q.Options}
	case model.QuestionTypeRating:
		return Rating{Question: q, Min: model.RatingMin, Max: model.RatingMax}
	case model.QuestionTypeYesNo:
		return YesNo{Question: q}
	case model.QuestionTypeAudio:
		return Audio{Question: q}
	default:
		return Text{Question: q}
	}
}
