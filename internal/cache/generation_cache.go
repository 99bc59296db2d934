package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ShashankAtmakur/survey-management-system/internal/model"
)

// GenerationCache handles Redis operations for generated question sets
type GenerationCache interface {
	Get(ctx context.Context, prompt string, count int) ([]model.Question, error)
	Set(ctx context.Context, prompt string, count int, questions []model.Question) error
}

type generationCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewGenerationCache creates a new generation cache
func NewGenerationCache(client *redis.Client, ttl time.Duration) GenerationCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &generationCache{
		client: client,
		ttl:    ttl,
	}
}

// generationKey hashes the normalized prompt so keys stay short.
func generationKey(prompt string, count int) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(prompt))))
	return fmt.Sprintf("generate:%s:%d", hex.EncodeToString(sum[:12]), count)
}

func (c *generationCache) Get(ctx context.Context, prompt string, count int) ([]model.Question, error) {
	data, err := c.client.Get(ctx, generationKey(prompt, count)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var questions []model.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (c *generationCache) Set(ctx context.Context, prompt string, count int, questions []model.Question) error {
	data, err := json.Marshal(questions)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, generationKey(prompt, count), data, c.ttl).Err()
}
