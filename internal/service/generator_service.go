package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/ShashankAtmakur/survey-management-system/internal/cache"
	"github.com/ShashankAtmakur/survey-management-system/internal/config"
	"github.com/ShashankAtmakur/survey-management-system/internal/model"
	"github.com/ShashankAtmakur/survey-management-system/internal/question"
)

const (
	DefaultQuestionCount = 5
	MaxQuestionCount     = 20
)

// ModelClient sends one prompt to a named model and returns its text output
type ModelClient interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// GeminiClient is the ModelClient backed by the Gemini API
type GeminiClient struct {
	client *genai.Client
}

// NewGeminiClient creates a Gemini client for apiKey
func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiClient{client: client}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, model, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.3),
		MaxOutputTokens:  2048,
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// GeneratorService drafts survey questions from a prompt
type GeneratorService struct {
	config *config.AIConfig
	client ModelClient
	cache  cache.GenerationCache
	log    *zap.Logger
}

// NewGeneratorService creates a new generator. A nil client serves
// placeholder questions.
func NewGeneratorService(cfg *config.AIConfig, client ModelClient, log *zap.Logger) *GeneratorService {
	return &GeneratorService{
		config: cfg,
		client: client,
		log:    log,
	}
}

// SetCache sets the generated question cache
func (s *GeneratorService) SetCache(c cache.GenerationCache) {
	s.cache = c
}

var jsonArray = regexp.MustCompile(`(?s)\[.*\]`)

// Generate asks the primary model, then the fallback model, for count
// questions about prompt. Results are normalized and capped at count.
func (s *GeneratorService) Generate(ctx context.Context, prompt string, count int) (*model.GenerateResponse, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrInvalidPrompt
	}
	if count <= 0 {
		count = DefaultQuestionCount
	}
	count = min(count, MaxQuestionCount)

	if s.client == nil {
		return &model.GenerateResponse{
			Success:   false,
			Questions: []model.Question{placeholderQuestion(prompt)},
			Count:     1,
			Prompt:    prompt,
			Error:     "question generation is not configured",
		}, nil
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, prompt, count)
		if err != nil {
			s.log.Warn("generation cache read failed", zap.Error(err))
		}
		if len(cached) > 0 {
			return &model.GenerateResponse{Success: true, Questions: cached, Count: len(cached), Prompt: prompt}, nil
		}
	}

	raw, err := s.call(ctx, buildGeneratePrompt(prompt, count))
	if err != nil {
		return &model.GenerateResponse{
			Success:   false,
			Questions: []model.Question{},
			Prompt:    prompt,
			Error:     err.Error(),
		}, nil
	}

	questions, err := parseGenerated(raw, count)
	if err != nil {
		s.log.Warn("unparsable generator output", zap.String("output", truncate(raw, 200)), zap.Error(err))
		return &model.GenerateResponse{
			Success:   false,
			Questions: []model.Question{placeholderQuestion(prompt)},
			Count:     1,
			Prompt:    prompt,
			Error:     "failed to parse generated questions",
		}, nil
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, prompt, count, questions); err != nil {
			s.log.Warn("generation cache write failed", zap.Error(err))
		}
	}
	return &model.GenerateResponse{Success: true, Questions: questions, Count: len(questions), Prompt: prompt}, nil
}

func (s *GeneratorService) call(ctx context.Context, prompt string) (string, error) {
	var errs []error
	for _, m := range s.config.Models() {
		callCtx, cancel := context.WithTimeout(ctx, s.config.Timeout())
		out, err := s.client.Generate(callCtx, m, prompt)
		cancel()
		if err == nil {
			return out, nil
		}
		s.log.Warn("question generation failed", zap.String("model", m), zap.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", m, err))
	}
	if len(errs) == 0 {
		return "", errors.New("no generation model configured")
	}
	return "", fmt.Errorf("all generation models failed: %w", errors.Join(errs...))
}

// parseGenerated extracts the first JSON array from raw and keeps the
// object items that carry a question text.
func parseGenerated(raw string, count int) ([]model.Question, error) {
	match := jsonArray.FindString(raw)
	if match == "" {
		return nil, errors.New("no JSON array in output")
	}
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(match), &items); err != nil {
		return nil, err
	}

	questions := make([]model.Question, 0, min(len(items), count))
	for _, item := range items {
		var in model.QuestionInput
		if err := json.Unmarshal(item, &in); err != nil || in.Text == nil {
			continue
		}
		q := question.Normalize(in)
		if q.Text == "" {
			continue
		}
		q.ID = ""
		questions = append(questions, q)
		if len(questions) == count {
			break
		}
	}
	if len(questions) == 0 {
		return nil, errors.New("no usable questions in output")
	}
	return questions, nil
}

func placeholderQuestion(prompt string) model.Question {
	return question.Normalize(model.QuestionInput{Text: &[]string{"Question about: " + prompt}[0]})
}

func buildGeneratePrompt(prompt string, count int) string {
	return fmt.Sprintf(`You are an expert survey creator. Generate exactly %d professional survey questions based ONLY on this prompt:
%s

Respond ONLY with a valid JSON array of questions. Each question must have:
- "text": the question text (string)
- "type": one of "text", "multiple_choice", "rating", "yes_no", "number" (string)
- "options": array of strings for multiple_choice, empty array for others
- "required": true or false (boolean)

Ratings use a 1 to 5 scale.

Example response:
[
  {"text": "How satisfied are you with our service?", "type": "rating", "options": [], "required": true},
  {"text": "Which features do you use most?", "type": "multiple_choice", "options": ["Feature A", "Feature B", "Feature C"], "required": true}
]`, count, prompt)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
