package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShashankAtmakur/survey-management-system/internal/capture"
	"github.com/ShashankAtmakur/survey-management-system/internal/model"
)

func testSurvey() *model.Survey {
	return &model.Survey{
		ID:    "s1",
		Title: "Launch feedback",
		Questions: []model.Question{
			{ID: "q1", Text: "What did you like?", Type: model.QuestionTypeText, Options: []string{}, Required: true},
			{ID: "q2", Text: "Favourite colour", Type: model.QuestionTypeMultipleChoice, Options: []string{"Red", "Blue"}},
			{ID: "q3", Text: "Rate the launch", Type: model.QuestionTypeRating, Options: []string{}},
			{ID: "q4", Text: "Would you recommend it?", Type: model.QuestionTypeYesNo, Options: []string{}},
			{ID: "q5", Text: "Say a few words", Type: model.QuestionTypeAudio, Options: []string{}},
			{ID: "q6", Text: "How many do you own?", Type: model.QuestionTypeNumber, Options: []string{}},
		},
	}
}

func TestTakeSurvey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answer.webm")
	require.NoError(t, os.WriteFile(path, []byte("voice"), 0o600))
	device := capture.FileDevice{Path: path, MIMEType: "audio/webm"}

	input := strings.Join([]string{
		"", // required text left blank
		"Great product",
		"2", // Blue
		"9", // out of range
		"4",
		"y",
		"", // start recording
		"", // stop recording
		"", // number skipped
	}, "\n") + "\n"

	var out strings.Builder
	answers, err := takeSurvey(context.Background(), strings.NewReader(input), &out, testSurvey(), device)
	require.NoError(t, err)

	want := model.Answers{
		"What did you like?":      "Great product",
		"Favourite colour":        "Blue",
		"Rate the launch":         "4",
		"Would you recommend it?": "Yes",
		"Say a few words":         model.AnswerValue(capture.Recording{MIME: "audio/webm", Data: []byte("voice")}.DataURL()),
	}
	if diff := cmp.Diff(want, answers); diff != "" {
		t.Errorf("answers mismatch (-want +got):\n%s", diff)
	}
	assert.Contains(t, out.String(), "answer is required")
	assert.Contains(t, out.String(), "rating is out of range")
	assert.Contains(t, out.String(), "[6/6] How many do you own?")
}

func TestTakeSurveyRejectsUnknownChoice(t *testing.T) {
	survey := &model.Survey{Questions: []model.Question{
		{Text: "Pick one", Type: model.QuestionTypeMultipleChoice, Options: []string{"A", "B"}, Required: true},
	}}

	var out strings.Builder
	answers, err := takeSurvey(context.Background(), strings.NewReader("3\nC\nB\n"), &out, survey, nil)
	require.NoError(t, err)
	assert.Equal(t, model.Answers{"Pick one": "B"}, answers)
	assert.Contains(t, out.String(), "pick 1 to 2")
	assert.Contains(t, out.String(), "not one of the question options")
}

func TestTakeSurveyWithoutDevice(t *testing.T) {
	survey := &model.Survey{Questions: []model.Question{
		{Text: "Say hi", Type: model.QuestionTypeAudio, Options: []string{}},
	}}

	var out strings.Builder
	answers, err := takeSurvey(context.Background(), strings.NewReader("\n"), &out, survey, nil)
	require.NoError(t, err)
	assert.Empty(t, answers)
	assert.Contains(t, out.String(), "audio capture is off")
}

func TestTakeSurveyEndOfInput(t *testing.T) {
	_, err := takeSurvey(context.Background(), strings.NewReader(""), io.Discard, testSurvey(), nil)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestTakeSurveyCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := takeSurvey(ctx, strings.NewReader("x\n"), io.Discard, testSurvey(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}
