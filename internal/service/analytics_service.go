package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ShashankAtmakur/survey-management-system/internal/analytics"
	"github.com/ShashankAtmakur/survey-management-system/internal/cache"
	"github.com/ShashankAtmakur/survey-management-system/internal/model"
	"github.com/ShashankAtmakur/survey-management-system/internal/monitoring"
	"github.com/ShashankAtmakur/survey-management-system/internal/repository"
)

// AnalyticsService loads surveys with their responses and aggregates them.
// Loading failures never produce partial results.
type AnalyticsService struct {
	surveyRepo     repository.SurveyRepo
	responseRepo   repository.ResponseRepo
	analyticsCache cache.AnalyticsCache
	metrics        *monitoring.Metrics
	log            *zap.Logger
	now            func() time.Time
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(surveyRepo repository.SurveyRepo, responseRepo repository.ResponseRepo, log *zap.Logger) *AnalyticsService {
	return &AnalyticsService{
		surveyRepo:   surveyRepo,
		responseRepo: responseRepo,
		log:          log,
		now:          time.Now,
	}
}

// SetCache sets the Redis analytics cache
func (s *AnalyticsService) SetCache(c cache.AnalyticsCache) {
	s.analyticsCache = c
}

// SetMetrics sets the cache hit counters
func (s *AnalyticsService) SetMetrics(m *monitoring.Metrics) {
	s.metrics = m
}

func (s *AnalyticsService) load(ctx context.Context, surveyID string) (*model.Survey, []*model.ResponseRecord, error) {
	survey, err := s.surveyRepo.GetByID(ctx, surveyID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: load survey: %v", ErrAnalyticsUnavailable, err)
	}
	if survey == nil {
		return nil, nil, ErrSurveyNotFound
	}
	records, err := s.responseRepo.ListBySurvey(ctx, surveyID, 0, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: load responses: %v", ErrAnalyticsUnavailable, err)
	}
	return survey, records, nil
}

// Get returns the analytics of a survey, from cache when a result for the
// current response count is stored
func (s *AnalyticsService) Get(ctx context.Context, surveyID string) (*model.AnalyticsResult, error) {
	if cached := s.cached(ctx, surveyID); cached != nil {
		return cached, nil
	}

	survey, records, err := s.load(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	result := analytics.Compute(survey, records)

	if s.analyticsCache != nil {
		if err := s.analyticsCache.Set(ctx, &result); err != nil {
			s.log.Warn("analytics cache write failed", zap.String("surveyId", surveyID), zap.Error(err))
		}
	}
	s.log.Debug("analytics computed", zap.String("surveyId", surveyID), zap.Int("responses", result.TotalResponses))
	return &result, nil
}

func (s *AnalyticsService) cached(ctx context.Context, surveyID string) *model.AnalyticsResult {
	if s.analyticsCache == nil {
		return nil
	}
	count, err := s.responseRepo.CountBySurvey(ctx, surveyID)
	if err != nil {
		s.log.Warn("count responses failed", zap.String("surveyId", surveyID), zap.Error(err))
		return nil
	}
	cached, err := s.analyticsCache.Get(ctx, surveyID, count)
	if err != nil {
		s.log.Warn("analytics cache read failed", zap.String("surveyId", surveyID), zap.Error(err))
	}
	s.metrics.ObserveCache(cached != nil)
	return cached
}

// Summary returns the dashboard summary of a survey
func (s *AnalyticsService) Summary(ctx context.Context, surveyID string) (*model.SurveySummary, error) {
	survey, records, err := s.load(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	summary := analytics.Summary(survey, records, s.now())
	return &summary, nil
}

// Invalidate drops cached analytics of a survey
func (s *AnalyticsService) Invalidate(ctx context.Context, surveyID string) {
	if s.analyticsCache == nil {
		return
	}
	if err := s.analyticsCache.Invalidate(ctx, surveyID); err != nil {
		s.log.Warn("analytics cache invalidation failed", zap.String("surveyId", surveyID), zap.Error(err))
	}
}
