package model

import (
	"bytes"
	"encoding/json"
	"strings"
)

// QuestionType defines the type of question
type QuestionType string

const (
	QuestionTypeText           QuestionType = "text"            // Free text, sampled in analytics
	QuestionTypeNumber         QuestionType = "number"          // Numeric input, not validated as a number
	QuestionTypeMultipleChoice QuestionType = "multiple_choice" // One of the configured options
	QuestionTypeRating         QuestionType = "rating"          // Score on the RatingMin..RatingMax scale
	QuestionTypeYesNo          QuestionType = "yes_no"          // "Yes" or "No"
	QuestionTypeAudio          QuestionType = "audio"           // Base64 data URL of a recording
)

// QuestionTypes lists every supported type in display order.
var QuestionTypes = []QuestionType{
	QuestionTypeText,
	QuestionTypeNumber,
	QuestionTypeMultipleChoice,
	QuestionTypeRating,
	QuestionTypeYesNo,
	QuestionTypeAudio,
}

// Rating scale offered at capture time and reported by analytics
const (
	RatingMin = 1
	RatingMax = 5
)

// ParseQuestionType reports whether s names a supported question type.
func ParseQuestionType(s string) (QuestionType, bool) {
	t := QuestionType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range QuestionTypes {
		if t == known {
			return t, true
		}
	}
	return "", false
}

// Question is a normalized survey question. Answers are keyed by Text.
type Question struct {
	ID       string       `json:"id" bson:"id"` // Stable across edits
	Text     string       `json:"text" bson:"text"`
	Type     QuestionType `json:"type" bson:"type"`
	Options  []string     `json:"options" bson:"options"` // multiple_choice only, never nil
	Required bool         `json:"required" bson:"required"`
}

// Input returns q as authoring input with every field set.
func (q Question) Input() QuestionInput {
	id, text, typ, required := q.ID, q.Text, string(q.Type), q.Required
	return QuestionInput{
		ID:       &id,
		Text:     &text,
		Type:     &typ,
		Options:  append(OptionList(nil), q.Options...),
		Required: &required,
	}
}

// QuestionInput is a partially specified question as authored by a user or
// returned by the question generator. Nil fields are absent.
type QuestionInput struct {
	ID       *string    `json:"id,omitempty"`
	Text     *string    `json:"text,omitempty"`
	Type     *string    `json:"type,omitempty"`
	Options  OptionList `json:"options,omitempty"`
	Required *bool      `json:"required,omitempty"`
}

// OptionList decodes question options authored either as a JSON array or
// as a single comma-joined string.
type OptionList []string

func (o *OptionList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*o = nil
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*o = SplitOptions(s)
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		list := make(OptionList, 0, len(raw))
		for _, item := range raw {
			if s, ok := optionString(item); ok {
				list = append(list, s)
			}
		}
		*o = list
	case '{':
		*o = nil
	default:
		// bare number or boolean
		*o = OptionList{string(data)}
	}
	return nil
}

func optionString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || raw[0] == '{' || raw[0] == '[' {
		return "", false
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	}
	return string(raw), true
}

// SplitOptions splits a comma-joined option string into trimmed, non-empty entries.
func SplitOptions(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
