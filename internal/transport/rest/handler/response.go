package handler

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ShashankAtmakur/survey-management-system/internal/export"
	"github.com/ShashankAtmakur/survey-management-system/internal/model"
	"github.com/ShashankAtmakur/survey-management-system/internal/service"
	"github.com/ShashankAtmakur/survey-management-system/internal/transport/rest/middleware"
)

// ResponseHandler handles response submission and review endpoints
type ResponseHandler struct {
	responseSvc *service.ResponseService
	log         *zap.Logger
}

// NewResponseHandler creates a new response handler
func NewResponseHandler(responseSvc *service.ResponseService, log *zap.Logger) *ResponseHandler {
	return &ResponseHandler{
		responseSvc: responseSvc,
		log:         log,
	}
}

// Submit handles POST /api/surveys/{id}/responses
func (h *ResponseHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req model.SubmitResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record, err := h.responseSvc.Submit(r.Context(), mux.Vars(r)["id"], req.Responses, middleware.GetClientIP(r.Context()))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

// List handles GET /api/surveys/{id}/responses
func (h *ResponseHandler) List(w http.ResponseWriter, r *http.Request) {
	skip, limit, ok := pagination(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid skip or limit")
		return
	}

	records, err := h.responseSvc.List(r.Context(), mux.Vars(r)["id"], skip, limit)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// Get handles GET /api/surveys/{id}/responses/{rid}
func (h *ResponseHandler) Get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	record, err := h.responseSvc.Get(r.Context(), vars["id"], vars["rid"])
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// Delete handles DELETE /api/surveys/{id}/responses/{rid}
func (h *ResponseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.responseSvc.Delete(r.Context(), vars["id"], vars["rid"]); err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, model.DeleteResponseResult{Message: "Response deleted successfully", ResponseID: vars["rid"]})
}

// Export handles GET /api/surveys/{id}/responses/export. The default is the
// JSON table; format=csv downloads a CSV file.
func (h *ResponseHandler) Export(w http.ResponseWriter, r *http.Request) {
	survey, records, err := h.responseSvc.Export(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	if r.URL.Query().Get("format") != "csv" {
		writeJSON(w, http.StatusOK, export.Build(survey, records))
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, survey, records); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(survey)+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
