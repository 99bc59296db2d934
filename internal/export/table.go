// Package export renders survey responses as tables.
package export

import (
	"fmt"
	"time"

	"github.com/ShashankAtmakur/survey-management-system/internal/model"
)

// UnknownIP is shown for records without a respondent address
const UnknownIP = "Unknown"

// Column is one column of the response table. Question columns are named
// question_<index> after the question position in the survey.
type Column struct {
	Field  string `json:"field"`
	Header string `json:"header"`
}

// Row maps column fields to display values
type Row map[string]string

// Table is the tabular view of a survey's responses
type Table struct {
	SurveyID string   `json:"survey_id"`
	Title    string   `json:"title"`
	Columns  []Column `json:"columns"`
	Rows     []Row    `json:"rows"`
}

// Columns returns the fixed columns followed by one column per question.
func Columns(s *model.Survey) []Column {
	cols := []Column{
		{Field: "response_id", Header: "Response ID"},
		{Field: "submitted_at", Header: "Submitted At"},
		{Field: "respondent_ip", Header: "IP Address"},
	}
	for i, q := range s.Questions {
		cols = append(cols, Column{Field: QuestionField(i), Header: q.Text})
	}
	return cols
}

// QuestionField names the column of the question at index i.
func QuestionField(i int) string {
	return fmt.Sprintf("question_%d", i)
}

// Build lays out records in survey question order. Missing answers are empty.
func Build(s *model.Survey, records []*model.ResponseRecord) *Table {
	t := &Table{
		SurveyID: s.ID,
		Title:    s.Title,
		Columns:  Columns(s),
		Rows:     make([]Row, 0, len(records)),
	}
	for _, r := range records {
		row := Row{
			"response_id":   r.ID,
			"submitted_at":  FormatTime(r.SubmittedAt),
			"respondent_ip": r.RespondentIP,
		}
		if row["respondent_ip"] == "" {
			row["respondent_ip"] = UnknownIP
		}
		for i, q := range s.Questions {
			row[QuestionField(i)] = string(r.Responses[q.Text])
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// FormatTime renders a submission time as RFC 3339 in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
