package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ShashankAtmakur/survey-management-system/internal/config"
	"github.com/ShashankAtmakur/survey-management-system/internal/model"
	"github.com/ShashankAtmakur/survey-management-system/internal/question"
	"github.com/ShashankAtmakur/survey-management-system/internal/repository"
)

type sentMessage struct {
	surveyID string
	msgType  string
	payload  interface{}
}

type fakeBroadcaster struct {
	mu           sync.Mutex
	sent         []sentMessage
	disconnected []string
}

func (b *fakeBroadcaster) BroadcastToSurvey(surveyID, msgType string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, sentMessage{surveyID, msgType, payload})
}

func (b *fakeBroadcaster) DisconnectSurvey(surveyID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disconnected = append(b.disconnected, surveyID)
}

func (b *fakeBroadcaster) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.sent))
	for _, m := range b.sent {
		out = append(out, m.msgType)
	}
	return out
}

type memAnalyticsCache struct {
	mu      sync.Mutex
	results map[string]map[int64]*model.AnalyticsResult
}

func newMemAnalyticsCache() *memAnalyticsCache {
	return &memAnalyticsCache{results: make(map[string]map[int64]*model.AnalyticsResult)}
}

func (c *memAnalyticsCache) Get(ctx context.Context, surveyID string, responses int64) (*model.AnalyticsResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.results[surveyID][responses], nil
}

func (c *memAnalyticsCache) Set(ctx context.Context, result *model.AnalyticsResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.results[result.SurveyID] == nil {
		c.results[result.SurveyID] = make(map[int64]*model.AnalyticsResult)
	}
	c.results[result.SurveyID][int64(result.TotalResponses)] = result
	return nil
}

func (c *memAnalyticsCache) Invalidate(ctx context.Context, surveyID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.results, surveyID)
	return nil
}

type fakeAudioStore struct {
	objects map[string][]byte
}

func (s *fakeAudioStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	s.objects[key] = data
	return nil
}

func (s *fakeAudioStore) Delete(ctx context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

type failingSurveyRepo struct {
	repository.SurveyRepo
}

func (failingSurveyRepo) GetByID(ctx context.Context, id string) (*model.Survey, error) {
	return nil, errors.New("connection refused")
}

type fixture struct {
	surveys     *SurveyService
	responses   *ResponseService
	analytics   *AnalyticsService
	surveyRepo  *repository.MemorySurveyRepo
	respRepo    *repository.MemoryResponseRepo
	cache       *memAnalyticsCache
	broadcaster *fakeBroadcaster
}

func newFixture() *fixture {
	log := zap.NewNop()
	f := &fixture{
		surveyRepo:  repository.NewMemorySurveyRepo(),
		respRepo:    repository.NewMemoryResponseRepo(),
		cache:       newMemAnalyticsCache(),
		broadcaster: &fakeBroadcaster{},
	}
	f.surveys = NewSurveyService(f.surveyRepo, f.respRepo, log)
	f.surveys.SetAnalyticsCache(f.cache)
	f.surveys.SetBroadcaster(f.broadcaster)

	f.analytics = NewAnalyticsService(f.surveyRepo, f.respRepo, log)
	f.analytics.SetCache(f.cache)

	f.responses = NewResponseService(f.surveyRepo, f.respRepo, log)
	f.responses.SetAnalyticsService(f.analytics)
	f.responses.SetBroadcaster(f.broadcaster)
	return f
}

func str(s string) *string { return &s }
func flag(b bool) *bool    { return &b }

func qin(text, typ string) model.QuestionInput {
	return model.QuestionInput{Text: str(text), Type: str(typ)}
}

func (f *fixture) create(t *testing.T, qs ...model.QuestionInput) *model.Survey {
	t.Helper()
	s, err := f.surveys.Create(context.Background(), "owner_1", &model.SurveyInput{
		Title:     str("Team feedback"),
		Questions: qs,
	})
	require.NoError(t, err)
	return s
}

func TestSurveyCreate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.surveys.Create(ctx, "owner_1", &model.SurveyInput{Title: str("  ")})
	assert.ErrorIs(t, err, ErrInvalidSurvey)

	_, err = f.surveys.Create(ctx, "owner_1", &model.SurveyInput{
		Title:     str("Dup"),
		Questions: []model.QuestionInput{qin("Name", "text"), qin(" Name ", "number")},
	})
	assert.ErrorIs(t, err, ErrDuplicateQuestionText)

	_, err = f.surveys.Create(ctx, "owner_1", &model.SurveyInput{
		Title:     str("Blank"),
		Questions: []model.QuestionInput{{Type: str("text")}},
	})
	assert.ErrorIs(t, err, ErrInvalidSurvey)

	s := f.create(t,
		qin("Name", "text"),
		model.QuestionInput{Text: str("Color"), Type: str("multiple_choice"), Options: model.OptionList{"Red", " ", "Blue"}},
		qin("Mood", "weather"),
	)
	require.Len(t, s.Questions, 3)
	assert.True(t, s.IsActive)
	assert.Equal(t, "owner_1", s.OwnerID)
	for _, q := range s.Questions {
		assert.NotEmpty(t, q.ID)
		assert.True(t, q.Required)
		assert.NotNil(t, q.Options)
	}
	assert.Equal(t, []string{"Red", "Blue"}, s.Questions[1].Options)
	assert.Equal(t, model.QuestionTypeText, s.Questions[2].Type)

	got, err := f.surveys.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.Questions, got.Questions)

	_, err = f.surveys.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrSurveyNotFound)
}

func TestSurveyUpdateKeepsQuestionIDs(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	s := f.create(t, qin("Old", "text"), qin("Other", "text"))

	in := s.Questions[0].Input()
	in.Text = str("New")
	out, err := f.surveys.Update(ctx, s.ID, &model.SurveyInput{
		Questions: []model.QuestionInput{in, s.Questions[1].Input()},
	}, false)
	require.NoError(t, err)

	assert.Equal(t, "Team feedback", out.Survey.Title)
	assert.Equal(t, s.Questions[0].ID, out.Survey.Questions[0].ID)
	require.Len(t, out.Renamed, 1)
	assert.Equal(t, model.QuestionRename{QuestionID: s.Questions[0].ID, From: "Old", To: "New"}, out.Renamed[0])

	_, err = f.surveys.Update(ctx, s.ID, &model.SurveyInput{Title: str("")}, false)
	assert.ErrorIs(t, err, ErrInvalidSurvey)

	_, err = f.surveys.Update(ctx, "missing", &model.SurveyInput{Title: str("x")}, false)
	assert.ErrorIs(t, err, ErrSurveyNotFound)
}

func TestSurveyUpdateMigratesAnswers(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	s := f.create(t, qin("A", "text"), qin("B", "text"))

	rec, err := f.responses.Submit(ctx, s.ID, model.Answers{"A": "first", "B": "second"}, "10.0.0.1")
	require.NoError(t, err)

	// swap the two texts
	a, b := s.Questions[0].Input(), s.Questions[1].Input()
	a.Text, b.Text = str("B"), str("A")
	out, err := f.surveys.Update(ctx, s.ID, &model.SurveyInput{Questions: []model.QuestionInput{a, b}}, true)
	require.NoError(t, err)
	require.Len(t, out.Renamed, 2)
	for _, r := range out.Renamed {
		assert.EqualValues(t, 1, r.Migrated)
	}

	got, err := f.responses.Get(ctx, s.ID, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Answers{"B": "first", "A": "second"}, got.Responses)
}

func TestSurveyUpdateRejectsMigrationOntoAnsweredText(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	optional := func(text string) model.QuestionInput {
		in := qin(text, "text")
		in.Required = flag(false)
		return in
	}
	s := f.create(t, optional("A"), optional("B"))

	rec, err := f.responses.Submit(ctx, s.ID, model.Answers{"A": "a-answer", "B": "b-answer"}, "")
	require.NoError(t, err)

	// drop B and rename A onto its text
	a := s.Questions[0].Input()
	a.Text = str("B")
	_, err = f.surveys.Update(ctx, s.ID, &model.SurveyInput{Questions: []model.QuestionInput{a}}, true)
	assert.ErrorIs(t, err, ErrRenameConflict)

	got, err := f.responses.Get(ctx, s.ID, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Answers{"A": "a-answer", "B": "b-answer"}, got.Responses)

	unchanged, err := f.surveys.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.Questions, unchanged.Questions)

	// without migration the edit is allowed and nothing is moved
	out, err := f.surveys.Update(ctx, s.ID, &model.SurveyInput{Questions: []model.QuestionInput{a}}, false)
	require.NoError(t, err)
	require.Len(t, out.Renamed, 1)
	got, err = f.responses.Get(ctx, s.ID, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Answers{"A": "a-answer", "B": "b-answer"}, got.Responses)
}

func TestSurveyDelete(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	s := f.create(t, qin("Name", "text"))

	require.NoError(t, f.surveys.Delete(ctx, s.ID))
	assert.Equal(t, []string{s.ID}, f.broadcaster.disconnected)

	got, err := f.surveys.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	_, err = f.responses.Submit(ctx, s.ID, model.Answers{"Name": "x"}, "")
	assert.ErrorIs(t, err, ErrSurveyInactive)

	assert.ErrorIs(t, f.surveys.Delete(ctx, "missing"), ErrSurveyNotFound)
}

func TestSurveyListAndStats(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	first := f.create(t, qin("Name", "text"))
	second := f.create(t, qin("Age", "number"), qin("City", "text"))
	require.NoError(t, f.surveys.Delete(ctx, first.ID))

	all, err := f.surveys.List(ctx, repository.ListOptions{OwnerID: "owner_1"})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := f.surveys.List(ctx, repository.ListOptions{OwnerID: "owner_1", ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)

	_, err = f.responses.Submit(ctx, second.ID, model.Answers{"Age": "30", "City": "Oslo"}, "")
	require.NoError(t, err)

	stats, err := f.surveys.Stats(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.QuestionCount)
	assert.EqualValues(t, 1, stats.ResponseCount)
	assert.True(t, stats.IsActive)
}

func TestSubmitReportsEveryMissingAnswer(t *testing.T) {
	f := newFixture()
	s := f.create(t, qin("Name", "text"), qin("Age", "number"), model.QuestionInput{
		Text: str("Notes"), Type: str("text"), Required: flag(false),
	})

	_, err := f.responses.Submit(context.Background(), s.ID, model.Answers{"Name": "  "}, "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 2)
	assert.Equal(t, "Name", verr.Fields[0].Question)
	assert.Equal(t, "Age", verr.Fields[1].Question)
	assert.ErrorIs(t, verr.Fields[0].Err, question.ErrMissingRequiredAnswer)
	assert.Contains(t, err.Error(), `"Name"`)

	n, err := f.respRepo.CountBySurvey(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSubmitStoresKnownAnswersAndNotifies(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	s := f.create(t,
		model.QuestionInput{Text: str("Score"), Type: str("rating")},
		model.QuestionInput{Text: str("Notes"), Type: str("text"), Required: flag(false)},
	)

	rec, err := f.responses.Submit(ctx, s.ID, model.Answers{"Score": "4", "Notes": "", "Unknown": "x"}, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, model.Answers{"Score": "4"}, rec.Responses)
	assert.Equal(t, "10.0.0.1", rec.RespondentIP)
	assert.False(t, rec.SubmittedAt.IsZero())

	assert.Equal(t, []string{MsgResponseSubmitted, MsgAnalyticsUpdate}, f.broadcaster.types())
	payload := f.broadcaster.sent[0].payload.(map[string]interface{})
	assert.EqualValues(t, 1, payload["total_responses"])
	assert.Equal(t, rec.ID, payload["response_id"])

	cached, err := f.cache.Get(ctx, s.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, 1, cached.TotalResponses)

	_, err = f.responses.Submit(ctx, "missing", model.Answers{}, "")
	assert.ErrorIs(t, err, ErrSurveyNotFound)
}

func TestSubmitArchivesAudio(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	store := &fakeAudioStore{objects: make(map[string][]byte)}
	f.responses.SetAudioStore(store)
	s := f.create(t, qin("Voice", "audio"))

	rec, err := f.responses.Submit(ctx, s.ID, model.Answers{"Voice": "data:audio/ogg;codecs=opus;base64,AAEC"}, "")
	require.NoError(t, err)

	key := rec.AudioData["Voice"]
	require.NotEmpty(t, key)
	assert.True(t, strings.HasPrefix(key, s.ID+"/"+rec.ID+"/"+s.Questions[0].ID+"."))
	assert.Equal(t, []byte{0, 1, 2}, store.objects[key])
	assert.Equal(t, model.AnswerValue("data:audio/ogg;codecs=opus;base64,AAEC"), rec.Responses["Voice"])

	require.NoError(t, f.responses.Delete(ctx, s.ID, rec.ID))
	assert.Empty(t, store.objects)
	assert.ErrorIs(t, f.responses.Delete(ctx, s.ID, rec.ID), ErrResponseNotFound)
}

func TestResponseListAndExport(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	s := f.create(t, qin("Name", "text"))
	for _, name := range []string{"a", "b", "c"} {
		_, err := f.responses.Submit(ctx, s.ID, model.Answers{"Name": model.AnswerValue(name)}, "")
		require.NoError(t, err)
	}

	page, err := f.responses.List(ctx, s.ID, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)

	survey, records, err := f.responses.Export(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, survey.ID)
	assert.Len(t, records, 3)

	_, err = f.responses.List(ctx, "missing", 0, 0)
	assert.ErrorIs(t, err, ErrSurveyNotFound)
	_, err = f.responses.Get(ctx, s.ID, "missing")
	assert.ErrorIs(t, err, ErrResponseNotFound)
}

func TestAnalyticsGet(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	s := f.create(t, qin("Score", "rating"))

	result, err := f.analytics.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalResponses)

	cached := &model.AnalyticsResult{SurveyID: s.ID, Title: "cached", TotalResponses: 0}
	require.NoError(t, f.cache.Set(ctx, cached))
	result, err = f.analytics.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "cached", result.Title)

	f.analytics.Invalidate(ctx, s.ID)
	result, err = f.analytics.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Team feedback", result.Title)

	_, err = f.analytics.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrSurveyNotFound)
}

func TestAnalyticsCacheIgnoresResultForOlderCount(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	s := f.create(t, qin("Score", "rating"))

	// a refresh that raced a submission stored the result for zero responses
	// after the submission's invalidation
	require.NoError(t, f.respRepo.Create(ctx, &model.ResponseRecord{SurveyID: s.ID, Responses: model.Answers{"Score": "4"}}))
	require.NoError(t, f.cache.Set(ctx, &model.AnalyticsResult{SurveyID: s.ID, Title: "stale", TotalResponses: 0}))

	result, err := f.analytics.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalResponses)
	assert.Equal(t, "Team feedback", result.Title)

	again, err := f.cache.Get(ctx, s.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, 1, again.TotalResponses)
}

func TestAnalyticsUnavailable(t *testing.T) {
	svc := NewAnalyticsService(failingSurveyRepo{}, repository.NewMemoryResponseRepo(), zap.NewNop())

	_, err := svc.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrAnalyticsUnavailable)
	_, err = svc.Summary(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrAnalyticsUnavailable)
}

func TestAnalyticsSummary(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	s := f.create(t, qin("Name", "text"))
	_, err := f.responses.Submit(ctx, s.ID, model.Answers{"Name": "x"}, "")
	require.NoError(t, err)

	f.analytics.now = func() time.Time { return time.Now().Add(30 * 24 * time.Hour) }
	summary, err := f.analytics.Summary(ctx, s.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, summary.TotalResponses)
	assert.EqualValues(t, 0, summary.RecentResponses7d)
	assert.InDelta(t, 100, summary.CompletionRate, 0.001)
}

type fakeModel struct {
	outputs map[string]string
	calls   []string
}

func (m *fakeModel) Generate(ctx context.Context, model, prompt string) (string, error) {
	m.calls = append(m.calls, model)
	out, ok := m.outputs[model]
	if !ok {
		return "", errors.New("model overloaded")
	}
	return out, nil
}

func aiConfig() *config.AIConfig {
	return &config.AIConfig{APIKey: "key", PrimaryModel: "primary", FallbackModel: "fallback"}
}

func TestGenerateWithoutClient(t *testing.T) {
	svc := NewGeneratorService(aiConfig(), nil, zap.NewNop())

	_, err := svc.Generate(context.Background(), "   ", 3)
	assert.ErrorIs(t, err, ErrInvalidPrompt)

	resp, err := svc.Generate(context.Background(), "coffee habits", 3)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	require.Len(t, resp.Questions, 1)
	assert.Equal(t, "Question about: coffee habits", resp.Questions[0].Text)
	assert.Equal(t, model.QuestionTypeText, resp.Questions[0].Type)
}

func TestGenerateFallsBackAndNormalizes(t *testing.T) {
	m := &fakeModel{outputs: map[string]string{
		"fallback": "Here you go:\n" + `[
			{"text": " Favorite drink? ", "type": "multiple_choice", "options": "Tea, Coffee,"},
			{"type": "rating"},
			{"text": "How often?", "type": "rating", "options": ["1", "2"], "required": false},
			{"text": "Third", "type": "poll"}
		]` + "\nEnjoy.",
	}}
	svc := NewGeneratorService(aiConfig(), m, zap.NewNop())

	resp, err := svc.Generate(context.Background(), "coffee habits", 2)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"primary", "fallback"}, m.calls)
	assert.Equal(t, []model.Question{
		{Text: "Favorite drink?", Type: model.QuestionTypeMultipleChoice, Options: []string{"Tea", "Coffee"}, Required: true},
		{Text: "How often?", Type: model.QuestionTypeRating, Options: []string{}, Required: false},
	}, resp.Questions)
	assert.Equal(t, 2, resp.Count)
}

func TestGenerateFailures(t *testing.T) {
	svc := NewGeneratorService(aiConfig(), &fakeModel{}, zap.NewNop())
	resp, err := svc.Generate(context.Background(), "coffee", 0)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Empty(t, resp.Questions)
	assert.Contains(t, resp.Error, "model overloaded")

	svc = NewGeneratorService(aiConfig(), &fakeModel{outputs: map[string]string{"primary": "no idea"}}, zap.NewNop())
	resp, err = svc.Generate(context.Background(), "coffee", 0)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	require.Len(t, resp.Questions, 1)
	assert.Equal(t, "Question about: coffee", resp.Questions[0].Text)
}

func TestAuthLogin(t *testing.T) {
	cfg := config.AuthConfig{OwnerUsername: "admin", OwnerPassword: "secret", JWTSecret: "0123456789abcdef0123456789abcdef", TokenTTL: time.Hour}
	svc := NewAuthService(cfg)

	_, err := svc.Login("admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	resp, err := svc.Login("admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, OwnerID("admin"), resp.OwnerID)
	assert.True(t, strings.HasPrefix(resp.OwnerID, "owner_"))

	claims, err := svc.ValidateOwnerToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.OwnerID, claims.OwnerID)

	cfg.JWTSecret = "another-secret-another-secret-xx"
	_, err = NewAuthService(cfg).ValidateOwnerToken(resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateOwnerToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
