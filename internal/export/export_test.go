package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShashankAtmakur/survey-management-system/internal/model"
)

func fixture() (*model.Survey, []*model.ResponseRecord) {
	s := &model.Survey{
		ID:    "s1",
		Title: "Lunch, \"poll\"",
		Questions: []model.Question{
			{Text: "Favorite dish", Type: model.QuestionTypeText},
			{Text: "Say \"hi\", please", Type: model.QuestionTypeText},
		},
	}
	at := time.Date(2024, 3, 1, 12, 30, 0, 0, time.FixedZone("CET", 3600))
	records := []*model.ResponseRecord{
		{
			ID:           "r1",
			RespondentIP: "10.0.0.1",
			SubmittedAt:  at,
			Responses:    model.Answers{"Favorite dish": "Rice, beans", "Say \"hi\", please": "\"hi\"\nthere"},
		},
		{
			ID:          "r2",
			SubmittedAt: at.Add(time.Minute),
			Responses:   model.Answers{"Favorite dish": "Soup"},
		},
	}
	return s, records
}

func TestWriteCSVRoundTrip(t *testing.T) {
	s, records := fixture()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, s, records))

	got, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	want := [][]string{
		{"Response ID", "Submitted At", "IP Address", "Favorite dish", "Say \"hi\", please"},
		{"r1", "2024-03-01T11:30:00Z", "10.0.0.1", "Rice, beans", "\"hi\"\nthere"},
		{"r2", "2024-03-01T11:31:00Z", "Unknown", "Soup", ""},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("csv mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteCSVQuotesEveryCell(t *testing.T) {
	s := &model.Survey{Questions: []model.Question{{Text: "Q"}}}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, s, nil))
	assert.Equal(t, "\"Response ID\",\"Submitted At\",\"IP Address\",\"Q\"\r\n", buf.String())
}

func TestBuildColumns(t *testing.T) {
	s, records := fixture()
	table := Build(s, records)

	require.Len(t, table.Columns, 5)
	assert.Equal(t, Column{Field: "question_1", Header: "Say \"hi\", please"}, table.Columns[4])
	assert.Equal(t, "Soup", table.Rows[1]["question_0"])
	assert.Equal(t, "", table.Rows[1]["question_1"])
	assert.Equal(t, UnknownIP, table.Rows[1]["respondent_ip"])
}

func TestFilename(t *testing.T) {
	s, _ := fixture()
	assert.Equal(t, "lunch_poll_responses.csv", Filename(s))
	assert.Equal(t, "survey_s1_responses.csv", Filename(&model.Survey{ID: "s1", Title: "!!"}))
}
