package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// AnswerValue is a stored answer. Clients may send numbers or booleans;
// they are kept as their literal text.
type AnswerValue string

func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		*v = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = AnswerValue(s)
	case data[0] == '{', data[0] == '[':
		return fmt.Errorf("unsupported answer value %s", data)
	default:
		*v = AnswerValue(data)
	}
	return nil
}

// IsBlank reports whether the answer is absent for validation and counting.
func (v AnswerValue) IsBlank() bool {
	return strings.TrimSpace(string(v)) == ""
}

func (v AnswerValue) String() string {
	return string(v)
}

// Answers maps question text to answer value
type Answers map[string]AnswerValue

// ResponseRecord is one respondent's submission. Records are immutable once stored.
type ResponseRecord struct {
	ID           string            `json:"id"`
	SurveyID     string            `json:"survey_id"`
	Responses    Answers           `json:"responses"`
	AudioData    map[string]string `json:"audio_data,omitempty"` // question text -> archived object key
	RespondentIP string            `json:"respondent_ip,omitempty"`
	SubmittedAt  time.Time         `json:"submitted_at"`
}

// Answered reports whether the record has a non-blank answer for text.
func (r *ResponseRecord) Answered(text string) bool {
	v, ok := r.Responses[text]
	return ok && !v.IsBlank()
}

// SubmitResponseRequest is the request body for POST /surveys/{id}/responses
type SubmitResponseRequest struct {
	Responses Answers `json:"responses"`
}

// DeleteResponseResult is returned after deleting a response
type DeleteResponseResult struct {
	Message    string `json:"message"`
	ResponseID string `json:"response_id"`
}
