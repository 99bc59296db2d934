package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ShashankAtmakur/survey-management-system/internal/cache"
	"github.com/ShashankAtmakur/survey-management-system/internal/model"
	"github.com/ShashankAtmakur/survey-management-system/internal/question"
	"github.com/ShashankAtmakur/survey-management-system/internal/repository"
)

// SurveyService handles survey CRUD operations
type SurveyService struct {
	surveyRepo     repository.SurveyRepo
	responseRepo   repository.ResponseRepo
	analyticsCache cache.AnalyticsCache
	broadcaster    Broadcaster
	log            *zap.Logger
}

// NewSurveyService creates a new survey service
func NewSurveyService(surveyRepo repository.SurveyRepo, responseRepo repository.ResponseRepo, log *zap.Logger) *SurveyService {
	return &SurveyService{
		surveyRepo:   surveyRepo,
		responseRepo: responseRepo,
		log:          log,
	}
}

// SetAnalyticsCache sets the cache invalidated by edits
func (s *SurveyService) SetAnalyticsCache(c cache.AnalyticsCache) {
	s.analyticsCache = c
}

// SetBroadcaster sets the broadcaster used to close live feeds of deleted surveys
func (s *SurveyService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Create normalizes and stores a new survey owned by ownerID
func (s *SurveyService) Create(ctx context.Context, ownerID string, in *model.SurveyInput) (*model.Survey, error) {
	survey := &model.Survey{
		OwnerID:  ownerID,
		IsActive: true,
	}
	if in.Title != nil {
		survey.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		survey.Description = strings.TrimSpace(*in.Description)
	}
	if in.IsActive != nil {
		survey.IsActive = *in.IsActive
	}

	if survey.Title == "" {
		return nil, invalidSurvey("title is required")
	}

	questions, err := prepareQuestions(in.Questions)
	if err != nil {
		return nil, err
	}
	survey.Questions = questions

	if err := s.surveyRepo.Create(ctx, survey); err != nil {
		return nil, err
	}
	s.log.Info("survey created", zap.String("surveyId", survey.ID), zap.Int("questions", len(survey.Questions)))
	return survey, nil
}

// Get retrieves a survey by ID
func (s *SurveyService) Get(ctx context.Context, id string) (*model.Survey, error) {
	survey, err := s.surveyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if survey == nil {
		return nil, ErrSurveyNotFound
	}
	return survey, nil
}

// List retrieves surveys, newest first
func (s *SurveyService) List(ctx context.Context, opts repository.ListOptions) ([]*model.Survey, error) {
	return s.surveyRepo.List(ctx, opts)
}

// Update applies the non-nil fields of in. Questions keep their ids; a
// question whose text changed is reported as renamed and, when migrate is
// set, its stored answers are moved to the new text.
func (s *SurveyService) Update(ctx context.Context, id string, in *model.SurveyInput, migrate bool) (*model.UpdateSurveyResponse, error) {
	survey, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, invalidSurvey("title is required")
		}
		survey.Title = title
	}
	if in.Description != nil {
		survey.Description = strings.TrimSpace(*in.Description)
	}
	if in.IsActive != nil {
		survey.IsActive = *in.IsActive
	}

	var renames []model.QuestionRename
	if in.Questions != nil {
		questions, err := prepareQuestions(in.Questions)
		if err != nil {
			return nil, err
		}
		renames = detectRenames(survey.Questions, questions)
		survey.Questions = questions
	}
	if migrate && len(renames) > 0 {
		if err := s.checkRenameTargets(ctx, survey.ID, renames); err != nil {
			return nil, err
		}
	}

	if err := s.surveyRepo.Update(ctx, survey); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSurveyNotFound
		}
		return nil, err
	}

	if len(renames) > 0 {
		if migrate {
			if err := s.migrateAnswers(ctx, survey.ID, renames); err != nil {
				return nil, fmt.Errorf("migrate answers: %w", err)
			}
		} else {
			for _, r := range renames {
				s.log.Warn("question renamed without answer migration; previous answers stay under the old text",
					zap.String("surveyId", survey.ID),
					zap.String("questionId", r.QuestionID),
					zap.String("from", r.From),
					zap.String("to", r.To))
			}
		}
	}

	s.invalidate(ctx, survey.ID)
	return &model.UpdateSurveyResponse{Survey: survey, Renamed: renames}, nil
}

// checkRenameTargets rejects a migration that would move answers onto a text
// stored responses already use, unless those answers move away in the same edit.
func (s *SurveyService) checkRenameTargets(ctx context.Context, surveyID string, renames []model.QuestionRename) error {
	leaving := make(map[string]bool, len(renames))
	for _, r := range renames {
		leaving[r.From] = true
	}
	for _, r := range renames {
		if leaving[r.To] {
			continue
		}
		n, err := s.responseRepo.CountAnswers(ctx, surveyID, r.To)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %d responses already answer %q", ErrRenameConflict, n, r.To)
		}
	}
	return nil
}

// migrateAnswers renames in two steps so swapped texts do not collide.
func (s *SurveyService) migrateAnswers(ctx context.Context, surveyID string, renames []model.QuestionRename) error {
	tmp := func(r model.QuestionRename) string { return "\x00rename:" + r.QuestionID }

	for _, r := range renames {
		if _, err := s.responseRepo.RenameAnswerKey(ctx, surveyID, r.From, tmp(r)); err != nil {
			return err
		}
	}
	for i, r := range renames {
		n, err := s.responseRepo.RenameAnswerKey(ctx, surveyID, tmp(r), r.To)
		if err != nil {
			return err
		}
		renames[i].Migrated = n
		s.log.Info("migrated answers to renamed question",
			zap.String("surveyId", surveyID),
			zap.String("questionId", r.QuestionID),
			zap.Int64("responses", n))
	}
	return nil
}

// Delete soft-deletes a survey; its responses are kept
func (s *SurveyService) Delete(ctx context.Context, id string) error {
	if err := s.surveyRepo.SetActive(ctx, id, false); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSurveyNotFound
		}
		return err
	}
	if s.broadcaster != nil {
		s.broadcaster.DisconnectSurvey(id)
	}
	s.log.Info("survey deactivated", zap.String("surveyId", id))
	return nil
}

// Stats returns question and response counts
func (s *SurveyService) Stats(ctx context.Context, id string) (*model.SurveyStats, error) {
	survey, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.responseRepo.CountBySurvey(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.SurveyStats{
		SurveyID:      survey.ID,
		Title:         survey.Title,
		QuestionCount: len(survey.Questions),
		ResponseCount: count,
		CreatedAt:     survey.CreatedAt,
		IsActive:      survey.IsActive,
	}, nil
}

func (s *SurveyService) invalidate(ctx context.Context, surveyID string) {
	if s.analyticsCache == nil {
		return
	}
	if err := s.analyticsCache.Invalidate(ctx, surveyID); err != nil {
		s.log.Warn("analytics cache invalidation failed", zap.String("surveyId", surveyID), zap.Error(err))
	}
}

// prepareQuestions normalizes inputs, assigns ids to questions without one
// and rejects empty or repeated texts.
func prepareQuestions(in []model.QuestionInput) ([]model.Question, error) {
	questions := question.NormalizeAll(in)
	texts := make(map[string]bool, len(questions))
	ids := make(map[string]bool, len(questions))
	for i := range questions {
		q := &questions[i]
		if q.Text == "" {
			return nil, invalidSurvey("question %d has no text", i+1)
		}
		if texts[q.Text] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateQuestionText, q.Text)
		}
		texts[q.Text] = true

		if q.ID == "" || ids[q.ID] {
			q.ID = uuid.NewString()
		}
		ids[q.ID] = true
	}
	return questions, nil
}

func detectRenames(before, after []model.Question) []model.QuestionRename {
	prev := make(map[string]string, len(before))
	for _, q := range before {
		prev[q.ID] = q.Text
	}
	var renames []model.QuestionRename
	for _, q := range after {
		if old, ok := prev[q.ID]; ok && old != q.Text {
			renames = append(renames, model.QuestionRename{QuestionID: q.ID, From: old, To: q.Text})
		}
	}
	return renames
}
