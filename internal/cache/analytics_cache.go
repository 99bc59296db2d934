package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ShashankAtmakur/survey-management-system/internal/model"
)

// AnalyticsCache handles Redis operations for computed survey analytics.
// Results are kept in one hash per survey, one field per response count, so
// a result computed before a later submission is never served after it.
type AnalyticsCache interface {
	// Get returns the result computed over responses records, or nil.
	Get(ctx context.Context, surveyID string, responses int64) (*model.AnalyticsResult, error)
	// Set stores result under its TotalResponses.
	Set(ctx context.Context, result *model.AnalyticsResult) error
	Invalidate(ctx context.Context, surveyID string) error
}

type analyticsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAnalyticsCache creates a new analytics cache
func NewAnalyticsCache(client *redis.Client, ttl time.Duration) AnalyticsCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &analyticsCache{
		client: client,
		ttl:    ttl,
	}
}

func analyticsKey(surveyID string) string {
	return fmt.Sprintf("survey:%s:analytics", surveyID)
}

func (c *analyticsCache) Get(ctx context.Context, surveyID string, responses int64) (*model.AnalyticsResult, error) {
	data, err := c.client.HGet(ctx, analyticsKey(surveyID), strconv.FormatInt(responses, 10)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var result model.AnalyticsResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *analyticsCache) Set(ctx context.Context, result *model.AnalyticsResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	key := analyticsKey(result.SurveyID)
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, strconv.Itoa(result.TotalResponses), data)
	pipe.Expire(ctx, key, c.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (c *analyticsCache) Invalidate(ctx context.Context, surveyID string) error {
	return c.client.Del(ctx, analyticsKey(surveyID)).Err()
}
