// Package client is a thin client for the survey REST API. It never retries;
// transport failures are reported as ErrUnavailable.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ShashankAtmakur/survey-management-system/internal/export"
	"github.com/ShashankAtmakur/survey-management-system/internal/model"
)

// ErrUnavailable wraps every failure to reach the service
var ErrUnavailable = errors.New("survey service unavailable")

// FieldError is one rejected answer reported by the service
type FieldError struct {
	Question string `json:"question"`
	Error    string `json:"error"`
}

// APIError is a non-2xx reply from the service
type APIError struct {
	Status  int
	Message string       `json:"error"`
	Fields  []FieldError `json:"fields"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// Client wraps survey API calls
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a client for the API rooted at baseURL, e.g. http://localhost:8080
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetToken sets the owner token sent with every request
func (c *Client) SetToken(token string) {
	c.token = token
}

// doRequest sends body as JSON and returns the raw reply of a 2xx response.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		apiErr := &APIError{Status: resp.StatusCode}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		if json.Unmarshal(data, apiErr) != nil {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return nil, apiErr
	}
	return resp, nil
}

func (c *Client) call(ctx context.Context, method, path string, body, out interface{}) error {
	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %w", ErrUnavailable, method, path, err)
	}
	return nil
}

func surveyPath(id string, parts ...string) string {
	p := "/api/surveys/" + url.PathEscape(id)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

func pageQuery(skip, limit int64) url.Values {
	q := url.Values{}
	q.Set("skip", strconv.FormatInt(skip, 10))
	if limit > 0 {
		q.Set("limit", strconv.FormatInt(limit, 10))
	}
	return q
}

// Login authenticates the owner and keeps the token for later calls
func (c *Client) Login(ctx context.Context, username, password string) (*model.LoginResponse, error) {
	var resp model.LoginResponse
	if err := c.call(ctx, http.MethodPost, "/api/auth/login", model.LoginRequest{Username: username, Password: password}, &resp); err != nil {
		return nil, err
	}
	c.token = resp.Token
	return &resp, nil
}

// ListSurveys returns the owner's surveys, newest first
func (c *Client) ListSurveys(ctx context.Context, skip, limit int64, activeOnly bool) ([]*model.Survey, error) {
	q := pageQuery(skip, limit)
	if activeOnly {
		q.Set("active_only", "true")
	}
	var surveys []*model.Survey
	err := c.call(ctx, http.MethodGet, "/api/surveys?"+q.Encode(), nil, &surveys)
	return surveys, err
}

// GetSurvey returns one survey
func (c *Client) GetSurvey(ctx context.Context, id string) (*model.Survey, error) {
	var survey model.Survey
	if err := c.call(ctx, http.MethodGet, surveyPath(id), nil, &survey); err != nil {
		return nil, err
	}
	return &survey, nil
}

// CreateSurvey stores a new survey
func (c *Client) CreateSurvey(ctx context.Context, in *model.SurveyInput) (*model.Survey, error) {
	var survey model.Survey
	if err := c.call(ctx, http.MethodPost, "/api/surveys", in, &survey); err != nil {
		return nil, err
	}
	return &survey, nil
}

// UpdateSurvey applies the non-nil fields of in
func (c *Client) UpdateSurvey(ctx context.Context, id string, in *model.SurveyInput, migrateAnswers bool) (*model.UpdateSurveyResponse, error) {
	path := surveyPath(id)
	if migrateAnswers {
		path += "?migrate_answers=true"
	}
	var resp model.UpdateSurveyResponse
	if err := c.call(ctx, http.MethodPut, path, in, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteSurvey deactivates a survey
func (c *Client) DeleteSurvey(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, surveyPath(id), nil, nil)
}

// SubmitResponse submits one respondent's answers
func (c *Client) SubmitResponse(ctx context.Context, surveyID string, answers model.Answers) (*model.ResponseRecord, error) {
	var record model.ResponseRecord
	if err := c.call(ctx, http.MethodPost, surveyPath(surveyID, "responses"), model.SubmitResponseRequest{Responses: answers}, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListResponses returns a page of responses in submission order
func (c *Client) ListResponses(ctx context.Context, surveyID string, skip, limit int64) ([]*model.ResponseRecord, error) {
	var records []*model.ResponseRecord
	err := c.call(ctx, http.MethodGet, surveyPath(surveyID, "responses")+"?"+pageQuery(skip, limit).Encode(), nil, &records)
	return records, err
}

// ExportTable returns the tabular view of a survey's responses
func (c *Client) ExportTable(ctx context.Context, surveyID string) (*export.Table, error) {
	var table export.Table
	if err := c.call(ctx, http.MethodGet, surveyPath(surveyID, "responses", "export"), nil, &table); err != nil {
		return nil, err
	}
	return &table, nil
}

// ExportCSV copies the CSV export of a survey to w
func (c *Client) ExportCSV(ctx context.Context, surveyID string, w io.Writer) error {
	resp, err := c.doRequest(ctx, http.MethodGet, surveyPath(surveyID, "responses", "export")+"?format=csv", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// Analytics returns the aggregate analytics of a survey
func (c *Client) Analytics(ctx context.Context, surveyID string) (*model.AnalyticsResult, error) {
	var result model.AnalyticsResult
	if err := c.call(ctx, http.MethodGet, surveyPath(surveyID, "analytics"), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Summary returns the dashboard summary of a survey
func (c *Client) Summary(ctx context.Context, surveyID string) (*model.SurveySummary, error) {
	var summary model.SurveySummary
	if err := c.call(ctx, http.MethodGet, surveyPath(surveyID, "summary"), nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// GenerateQuestions asks the service to draft questions about prompt
func (c *Client) GenerateQuestions(ctx context.Context, prompt string, count int) (*model.GenerateResponse, error) {
	var resp model.GenerateResponse
	if err := c.call(ctx, http.MethodPost, "/api/generate-questions", model.GenerateRequest{Prompt: prompt, QuestionCount: count}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
