package service

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/ShashankAtmakur/survey-management-system/internal/capture"
	"github.com/ShashankAtmakur/survey-management-system/internal/model"
	"github.com/ShashankAtmakur/survey-management-system/internal/monitoring"
	"github.com/ShashankAtmakur/survey-management-system/internal/question"
	"github.com/ShashankAtmakur/survey-management-system/internal/repository"
)

// ResponseService handles response submission and retrieval
type ResponseService struct {
	surveyRepo   repository.SurveyRepo
	responseRepo repository.ResponseRepo
	analyticsSvc *AnalyticsService
	broadcaster  Broadcaster
	audioStore   AudioStore
	metrics      *monitoring.Metrics
	log          *zap.Logger
}

// NewResponseService creates a new response service
func NewResponseService(surveyRepo repository.SurveyRepo, responseRepo repository.ResponseRepo, log *zap.Logger) *ResponseService {
	return &ResponseService{
		surveyRepo:   surveyRepo,
		responseRepo: responseRepo,
		log:          log,
	}
}

// SetAnalyticsService sets the analytics service refreshed after submissions
func (s *ResponseService) SetAnalyticsService(a *AnalyticsService) {
	s.analyticsSvc = a
}

// SetBroadcaster sets the broadcaster for live updates
func (s *ResponseService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetAudioStore enables archiving of audio answers
func (s *ResponseService) SetAudioStore(store AudioStore) {
	s.audioStore = store
}

// SetMetrics sets the submission counters
func (s *ResponseService) SetMetrics(m *monitoring.Metrics) {
	s.metrics = m
}

func (s *ResponseService) survey(ctx context.Context, id string) (*model.Survey, error) {
	survey, err := s.surveyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if survey == nil {
		return nil, ErrSurveyNotFound
	}
	return survey, nil
}

// Submit validates and stores one respondent's answers. Answers to unknown
// questions are dropped; every missing required answer is reported at once.
func (s *ResponseService) Submit(ctx context.Context, surveyID string, answers model.Answers, respondentIP string) (*model.ResponseRecord, error) {
	survey, err := s.survey(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	if !survey.IsActive {
		return nil, ErrSurveyInactive
	}

	if fields := question.ValidateAll(survey, answers); len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	record := &model.ResponseRecord{
		ID:           primitive.NewObjectID().Hex(),
		SurveyID:     surveyID,
		Responses:    make(model.Answers, len(survey.Questions)),
		RespondentIP: respondentIP,
		SubmittedAt:  time.Now().UTC(),
	}
	for _, q := range survey.Questions {
		if v, ok := answers[q.Text]; ok && !v.IsBlank() {
			record.Responses[q.Text] = v
		}
	}
	s.archiveAudio(ctx, survey, record)

	if err := s.responseRepo.Create(ctx, record); err != nil {
		return nil, err
	}

	s.metrics.ObserveSubmission(surveyID)
	s.log.Info("response submitted", zap.String("surveyId", surveyID), zap.String("responseId", record.ID))
	s.afterChange(ctx, surveyID, record.ID)
	return record, nil
}

// archiveAudio copies audio answers to the audio store. Failures are logged
// and the answer stays inline.
func (s *ResponseService) archiveAudio(ctx context.Context, survey *model.Survey, record *model.ResponseRecord) {
	if s.audioStore == nil {
		return
	}
	for _, q := range survey.Questions {
		if q.Type != model.QuestionTypeAudio {
			continue
		}
		v, ok := record.Responses[q.Text]
		if !ok {
			continue
		}
		rec, err := capture.ParseDataURL(v.String())
		if err != nil {
			s.log.Warn("audio answer is not a data url", zap.String("surveyId", survey.ID), zap.String("question", q.Text))
			continue
		}
		key := audioKey(survey.ID, record.ID, q.ID, rec.MIME)
		if err := s.audioStore.Put(ctx, key, rec.Data, rec.MIME); err != nil {
			s.log.Error("audio archive failed", zap.String("key", key), zap.Error(err))
			continue
		}
		if record.AudioData == nil {
			record.AudioData = make(map[string]string)
		}
		record.AudioData[q.Text] = key
	}
}

// afterChange invalidates cached analytics and notifies live subscribers.
func (s *ResponseService) afterChange(ctx context.Context, surveyID, responseID string) {
	if s.analyticsSvc != nil {
		s.analyticsSvc.Invalidate(ctx, surveyID)
	}
	if s.broadcaster == nil {
		return
	}

	total, err := s.responseRepo.CountBySurvey(ctx, surveyID)
	if err != nil {
		s.log.Warn("count responses failed", zap.String("surveyId", surveyID), zap.Error(err))
	} else {
		s.broadcaster.BroadcastToSurvey(surveyID, MsgResponseSubmitted, map[string]interface{}{
			"response_id":     responseID,
			"total_responses": total,
		})
	}

	if s.analyticsSvc != nil {
		result, err := s.analyticsSvc.Get(ctx, surveyID)
		if err != nil {
			s.log.Warn("analytics refresh failed", zap.String("surveyId", surveyID), zap.Error(err))
			return
		}
		s.broadcaster.BroadcastToSurvey(surveyID, MsgAnalyticsUpdate, result)
	}
}

// List returns a page of responses in submission order
func (s *ResponseService) List(ctx context.Context, surveyID string, skip, limit int64) ([]*model.ResponseRecord, error) {
	if _, err := s.survey(ctx, surveyID); err != nil {
		return nil, err
	}
	return s.responseRepo.ListBySurvey(ctx, surveyID, skip, limit)
}

// Get returns one response
func (s *ResponseService) Get(ctx context.Context, surveyID, responseID string) (*model.ResponseRecord, error) {
	record, err := s.responseRepo.GetByID(ctx, surveyID, responseID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrResponseNotFound
	}
	return record, nil
}

// Delete removes a response and its archived audio
func (s *ResponseService) Delete(ctx context.Context, surveyID, responseID string) error {
	record, err := s.Get(ctx, surveyID, responseID)
	if err != nil {
		return err
	}
	if err := s.responseRepo.Delete(ctx, surveyID, responseID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrResponseNotFound
		}
		return err
	}

	if s.audioStore != nil {
		for _, key := range record.AudioData {
			if err := s.audioStore.Delete(ctx, key); err != nil {
				s.log.Warn("audio delete failed", zap.String("key", key), zap.Error(err))
			}
		}
	}

	s.log.Info("response deleted", zap.String("surveyId", surveyID), zap.String("responseId", responseID))
	if s.analyticsSvc != nil {
		s.analyticsSvc.Invalidate(ctx, surveyID)
	}
	return nil
}

// Export loads a survey with all of its responses for tabular export
func (s *ResponseService) Export(ctx context.Context, surveyID string) (*model.Survey, []*model.ResponseRecord, error) {
	survey, err := s.survey(ctx, surveyID)
	if err != nil {
		return nil, nil, err
	}
	records, err := s.responseRepo.ListBySurvey(ctx, surveyID, 0, 0)
	if err != nil {
		return nil, nil, err
	}
	return survey, records, nil
}
