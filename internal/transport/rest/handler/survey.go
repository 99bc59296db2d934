package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ShashankAtmakur/survey-management-system/internal/model"
	"github.com/ShashankAtmakur/survey-management-system/internal/repository"
	"github.com/ShashankAtmakur/survey-management-system/internal/service"
	"github.com/ShashankAtmakur/survey-management-system/internal/transport/rest/middleware"
)

// SurveyHandler handles survey endpoints
type SurveyHandler struct {
	surveySvc    *service.SurveyService
	analyticsSvc *service.AnalyticsService
	log          *zap.Logger
}

// NewSurveyHandler creates a new survey handler
func NewSurveyHandler(surveySvc *service.SurveyService, analyticsSvc *service.AnalyticsService, log *zap.Logger) *SurveyHandler {
	return &SurveyHandler{
		surveySvc:    surveySvc,
		analyticsSvc: analyticsSvc,
		log:          log,
	}
}

// Create handles POST /api/surveys
func (h *SurveyHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req model.SurveyInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	survey, err := h.surveySvc.Create(r.Context(), ownerID, &req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, survey)
}

// List handles GET /api/surveys
func (h *SurveyHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	skip, limit, ok := pagination(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid skip or limit")
		return
	}

	surveys, err := h.surveySvc.List(r.Context(), repository.ListOptions{
		OwnerID:    ownerID,
		Skip:       skip,
		Limit:      limit,
		ActiveOnly: queryBool(r, "active_only"),
	})
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, surveys)
}

// Get handles GET /api/surveys/{id}. Respondents only see active surveys.
func (h *SurveyHandler) Get(w http.ResponseWriter, r *http.Request) {
	survey, err := h.surveySvc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	if !survey.IsActive && middleware.GetOwnerID(r.Context()) == "" {
		writeError(w, http.StatusNotFound, service.ErrSurveyNotFound.Error())
		return
	}

	writeJSON(w, http.StatusOK, survey)
}

// Update handles PUT /api/surveys/{id}
func (h *SurveyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req model.SurveyInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.surveySvc.Update(r.Context(), mux.Vars(r)["id"], &req, queryBool(r, "migrate_answers"))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Delete handles DELETE /api/surveys/{id}
func (h *SurveyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.surveySvc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Survey deleted successfully", "survey_id": id})
}

// Stats handles GET /api/surveys/{id}/stats
func (h *SurveyHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.surveySvc.Stats(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// Summary handles GET /api/surveys/{id}/summary
func (h *SurveyHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.analyticsSvc.Summary(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// Analytics handles GET /api/surveys/{id}/analytics
func (h *SurveyHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	result, err := h.analyticsSvc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
