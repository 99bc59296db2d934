package repository

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ShashankAtmakur/survey-management-system/internal/model"
)

// MemorySurveyRepo keeps surveys in process memory
type MemorySurveyRepo struct {
	mu      sync.RWMutex
	surveys map[string]*model.Survey
}

// NewMemorySurveyRepo creates an empty in-memory survey repository
func NewMemorySurveyRepo() *MemorySurveyRepo {
	return &MemorySurveyRepo{surveys: make(map[string]*model.Survey)}
}

func copySurvey(s *model.Survey) *model.Survey {
	c := *s
	c.Questions = make([]model.Question, len(s.Questions))
	for i, q := range s.Questions {
		q.Options = append([]string{}, q.Options...)
		c.Questions[i] = q
	}
	return &c
}

func (r *MemorySurveyRepo) Create(ctx context.Context, survey *model.Survey) error {
	if survey.ID == "" {
		survey.ID = primitive.NewObjectID().Hex()
	}
	now := time.Now().UTC()
	survey.CreatedAt = now
	survey.UpdatedAt = now

	r.mu.Lock()
	defer r.mu.Unlock()
	r.surveys[survey.ID] = copySurvey(survey)
	return nil
}

func (r *MemorySurveyRepo) GetByID(ctx context.Context, id string) (*model.Survey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.surveys[id]
	if !ok {
		return nil, nil
	}
	return copySurvey(s), nil
}

func (r *MemorySurveyRepo) List(ctx context.Context, opts ListOptions) ([]*model.Survey, error) {
	r.mu.RLock()
	all := make([]*model.Survey, 0, len(r.surveys))
	for _, s := range r.surveys {
		if opts.OwnerID != "" && s.OwnerID != opts.OwnerID {
			continue
		}
		if opts.ActiveOnly && !s.IsActive {
			continue
		}
		all = append(all, copySurvey(s))
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return page(all, opts.Skip, opts.Limit), nil
}

func (r *MemorySurveyRepo) Update(ctx context.Context, survey *model.Survey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.surveys[survey.ID]; !ok {
		return ErrNotFound
	}
	survey.UpdatedAt = time.Now().UTC()
	r.surveys[survey.ID] = copySurvey(survey)
	return nil
}

func (r *MemorySurveyRepo) SetActive(ctx context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.surveys[id]
	if !ok {
		return ErrNotFound
	}
	s.IsActive = active
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// MemoryResponseRepo keeps response records in process memory
type MemoryResponseRepo struct {
	mu      sync.RWMutex
	records []*model.ResponseRecord
}

// NewMemoryResponseRepo creates an empty in-memory response repository
func NewMemoryResponseRepo() *MemoryResponseRepo {
	return &MemoryResponseRepo{}
}

func copyRecord(r *model.ResponseRecord) *model.ResponseRecord {
	c := *r
	c.Responses = maps.Clone(r.Responses)
	c.AudioData = maps.Clone(r.AudioData)
	return &c
}

func (r *MemoryResponseRepo) Create(ctx context.Context, record *model.ResponseRecord) error {
	if record.ID == "" {
		record.ID = primitive.NewObjectID().Hex()
	}
	if record.SubmittedAt.IsZero() {
		record.SubmittedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, copyRecord(record))
	sort.SliceStable(r.records, func(i, j int) bool {
		return r.records[i].SubmittedAt.Before(r.records[j].SubmittedAt)
	})
	return nil
}

func (r *MemoryResponseRepo) GetByID(ctx context.Context, surveyID, id string) (*model.ResponseRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.records {
		if rec.ID == id && rec.SurveyID == surveyID {
			return copyRecord(rec), nil
		}
	}
	return nil, nil
}

func (r *MemoryResponseRepo) ListBySurvey(ctx context.Context, surveyID string, skip, limit int64) ([]*model.ResponseRecord, error) {
	r.mu.RLock()
	var out []*model.ResponseRecord
	for _, rec := range r.records {
		if rec.SurveyID == surveyID {
			out = append(out, copyRecord(rec))
		}
	}
	r.mu.RUnlock()
	return page(out, skip, limit), nil
}

func (r *MemoryResponseRepo) CountBySurvey(ctx context.Context, surveyID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, rec := range r.records {
		if rec.SurveyID == surveyID {
			n++
		}
	}
	return n, nil
}

func (r *MemoryResponseRepo) Delete(ctx context.Context, surveyID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, rec := range r.records {
		if rec.ID == id && rec.SurveyID == surveyID {
			r.records = append(r.records[:i], r.records[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (r *MemoryResponseRepo) CountAnswers(ctx context.Context, surveyID, text string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, rec := range r.records {
		if _, ok := rec.Responses[text]; ok && rec.SurveyID == surveyID {
			n++
		}
	}
	return n, nil
}

func (r *MemoryResponseRepo) RenameAnswerKey(ctx context.Context, surveyID, from, to string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, rec := range r.records {
		if rec.SurveyID != surveyID {
			continue
		}
		v, ok := rec.Responses[from]
		if !ok {
			continue
		}
		if _, taken := rec.Responses[to]; taken {
			continue
		}
		delete(rec.Responses, from)
		rec.Responses[to] = v
		if key, ok := rec.AudioData[from]; ok {
			delete(rec.AudioData, from)
			rec.AudioData[to] = key
		}
		n++
	}
	return n, nil
}

func page[T any](items []T, skip, limit int64) []T {
	if skip >= int64(len(items)) {
		return []T{}
	}
	if skip > 0 {
		items = items[skip:]
	}
	if limit > 0 && limit < int64(len(items)) {
		items = items[:limit]
	}
	return items
}
