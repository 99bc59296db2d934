package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ShashankAtmakur/survey-management-system/internal/model"
	"github.com/ShashankAtmakur/survey-management-system/internal/service"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authSvc *service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authSvc *service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.authSvc.Login(req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Helper functions
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// FieldErrorBody is one failed question of a rejected submission
type FieldErrorBody struct {
	Question string `json:"question"`
	Error    string `json:"error"`
}

// ValidationErrorBody is the 422 response body
type ValidationErrorBody struct {
	Error  string           `json:"error"`
	Fields []FieldErrorBody `json:"fields"`
}

// writeServiceError maps service errors to statuses. Unexpected errors are
// logged and hidden behind a generic 500.
func writeServiceError(w http.ResponseWriter, log *zap.Logger, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		body := ValidationErrorBody{Error: "validation failed", Fields: make([]FieldErrorBody, 0, len(verr.Fields))}
		for _, f := range verr.Fields {
			body.Fields = append(body.Fields, FieldErrorBody{Question: f.Question, Error: f.Err.Error()})
		}
		writeJSON(w, http.StatusUnprocessableEntity, body)
	case errors.Is(err, service.ErrSurveyNotFound), errors.Is(err, service.ErrResponseNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrSurveyInactive),
		errors.Is(err, service.ErrInvalidSurvey),
		errors.Is(err, service.ErrDuplicateQuestionText),
		errors.Is(err, service.ErrInvalidPrompt):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrRenameConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrAnalyticsUnavailable):
		log.Error("analytics unavailable", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, service.ErrAnalyticsUnavailable.Error())
	default:
		log.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// pagination reads skip and limit query parameters
func pagination(r *http.Request) (skip, limit int64, ok bool) {
	q := r.URL.Query()
	skip, limit = 0, defaultLimit
	if v := q.Get("skip"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return 0, 0, false
		}
		skip = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 1 || n > maxLimit {
			return 0, 0, false
		}
		limit = n
	}
	return skip, limit, true
}

func queryBool(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return b
}
