package model

import (
	"errors"
	"time"
)

// ErrQuestionIndex is returned by index-addressed question edits
var ErrQuestionIndex = errors.New("question index out of range")

// Survey is an ordered set of questions authored once and answered many times.
// Question order defines display order and the question_<index> columns of
// tabular views.
type Survey struct {
	ID          string     `json:"id" bson:"_id"`
	OwnerID     string     `json:"owner_id,omitempty" bson:"ownerId"`
	Title       string     `json:"title" bson:"title"`
	Description string     `json:"description" bson:"description"`
	Questions   []Question `json:"questions" bson:"questions"`
	IsActive    bool       `json:"is_active" bson:"isActive"`
	CreatedAt   time.Time  `json:"created_at" bson:"createdAt"`
	UpdatedAt   time.Time  `json:"updated_at" bson:"updatedAt"`
}

// Question returns the question with the given text.
func (s *Survey) Question(text string) (Question, bool) {
	for _, q := range s.Questions {
		if q.Text == text {
			return q, true
		}
	}
	return Question{}, false
}

// AddQuestion appends q.
func (s *Survey) AddQuestion(q Question) {
	qs := make([]Question, 0, len(s.Questions)+1)
	qs = append(qs, s.Questions...)
	s.Questions = append(qs, q)
}

// UpdateQuestion replaces the question at index i.
func (s *Survey) UpdateQuestion(i int, q Question) error {
	if i < 0 || i >= len(s.Questions) {
		return ErrQuestionIndex
	}
	qs := append([]Question(nil), s.Questions...)
	qs[i] = q
	s.Questions = qs
	return nil
}

// RemoveQuestion deletes the question at index i, keeping the order of the rest.
func (s *Survey) RemoveQuestion(i int) error {
	if i < 0 || i >= len(s.Questions) {
		return ErrQuestionIndex
	}
	qs := make([]Question, 0, len(s.Questions)-1)
	qs = append(qs, s.Questions[:i]...)
	qs = append(qs, s.Questions[i+1:]...)
	s.Questions = qs
	return nil
}

// SurveyInput is the request body for creating or updating a survey.
// On update, nil fields are left unchanged.
type SurveyInput struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Questions   []QuestionInput `json:"questions"`
	IsActive    *bool           `json:"is_active,omitempty"`
}

// SurveyStats is the lightweight per-survey counter view
type SurveyStats struct {
	SurveyID      string    `json:"survey_id"`
	Title         string    `json:"title"`
	QuestionCount int       `json:"question_count"`
	ResponseCount int64     `json:"response_count"`
	CreatedAt     time.Time `json:"created_at"`
	IsActive      bool      `json:"is_active"`
}

// QuestionRename records a question whose text changed during an edit
type QuestionRename struct {
	QuestionID string `json:"question_id"`
	From       string `json:"from"`
	To         string `json:"to"`
	Migrated   int64  `json:"migrated_responses"`
}

// UpdateSurveyResponse is returned by PUT /surveys/{id}
type UpdateSurveyResponse struct {
	Survey  *Survey          `json:"survey"`
	Renamed []QuestionRename `json:"renamed,omitempty"`
}

// GenerateRequest asks the question generator for new questions
type GenerateRequest struct {
	Prompt        string `json:"prompt"`
	QuestionCount int    `json:"question_count"`
}

// GenerateResponse carries normalized generated questions
type GenerateResponse struct {
	Success   bool       `json:"success"`
	Questions []Question `json:"questions"`
	Count     int        `json:"count"`
	Prompt    string     `json:"prompt"`
	Error     string     `json:"error,omitempty"`
}
