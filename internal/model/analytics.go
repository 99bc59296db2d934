package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// AnalyticsData is the per-question payload. Concrete types: RatingStats,
// ChoiceStats, TextSummary and Notice.
type AnalyticsData interface {
	analyticsData()
}

// Notice is an informational string used when no aggregate is computed
type Notice string

// RatingStats summarizes numeric rating answers
type RatingStats struct {
	Average        float64        `json:"average"`
	Median         float64        `json:"median"`
	Min            float64        `json:"min"`
	Max            float64        `json:"max"`
	Distribution   map[string]int `json:"distribution"` // rating -> count
	ValidResponses int            `json:"valid_responses"`
	ScaleMax       int            `json:"scale_max"`
}

// ChoiceCount is an option with its count
type ChoiceCount struct {
	Option string `json:"option"`
	Count  int    `json:"count"`
}

// ChoiceStats is the frequency table of a multiple choice question.
// Percentages are over respondents who answered this question.
type ChoiceStats struct {
	Options       []string       `json:"options"` // configured options, then off-list values in first-seen order
	Responses     map[string]int `json:"responses"`
	Percentages   map[string]int `json:"percentages"`
	MostCommon    *ChoiceCount   `json:"most_common"`
	TotalAnswered int            `json:"total_answered"`
}

// TextSummary samples free text answers
type TextSummary struct {
	TotalResponses   int      `json:"total_responses"`
	AverageWordCount float64  `json:"average_word_count"`
	SampleResponses  []string `json:"sample_responses"`
	LongestResponse  string   `json:"longest_response"`
	ShortestResponse string   `json:"shortest_response"`
}

func (Notice) analyticsData()      {}
func (RatingStats) analyticsData() {}
func (ChoiceStats) analyticsData() {}
func (TextSummary) analyticsData() {}

// QuestionAnalytics is the aggregate for one question
type QuestionAnalytics struct {
	Type          QuestionType  `json:"type"`
	ResponseCount int           `json:"response_count"`
	Data          AnalyticsData `json:"data"`
}

func (a *QuestionAnalytics) UnmarshalJSON(data []byte) error {
	var aux struct {
		Type          QuestionType    `json:"type"`
		ResponseCount int             `json:"response_count"`
		Data          json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	a.Type = aux.Type
	a.ResponseCount = aux.ResponseCount

	raw := bytes.TrimSpace(aux.Data)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		a.Data = Notice("")
		return nil
	}
	if raw[0] == '"' {
		var n Notice
		if err := json.Unmarshal(raw, &n); err != nil {
			return err
		}
		a.Data = n
		return nil
	}

	switch aux.Type {
	case QuestionTypeRating:
		var stats RatingStats
		if err := json.Unmarshal(raw, &stats); err != nil {
			return err
		}
		a.Data = stats
	case QuestionTypeMultipleChoice:
		var stats ChoiceStats
		if err := json.Unmarshal(raw, &stats); err != nil {
			return err
		}
		a.Data = stats
	case QuestionTypeText:
		var summary TextSummary
		if err := json.Unmarshal(raw, &summary); err != nil {
			return err
		}
		a.Data = summary
	default:
		a.Data = Notice(raw)
	}
	return nil
}

// AnalyticsResult is the analytics view of a survey
type AnalyticsResult struct {
	SurveyID       string                       `json:"survey_id"`
	Title          string                       `json:"title"`
	TotalResponses int                          `json:"total_responses"`
	Analytics      map[string]QuestionAnalytics `json:"analytics"`      // keyed by question text
	QuestionOrder  []string                     `json:"question_order"` // survey order of Analytics keys
	GeneratedAt    time.Time                    `json:"generated_at"`
}

// SurveySummary is the dashboard summary of a survey
type SurveySummary struct {
	SurveyID          string    `json:"survey_id"`
	Title             string    `json:"title"`
	TotalQuestions    int       `json:"total_questions"`
	TotalResponses    int       `json:"total_responses"`
	RecentResponses7d int       `json:"recent_responses_7d"`
	CompletionRate    float64   `json:"completion_rate"`
	CreatedAt         time.Time `json:"created_at"`
	IsActive          bool      `json:"is_active"`
}
