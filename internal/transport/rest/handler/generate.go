package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ShashankAtmakur/survey-management-system/internal/model"
	"github.com/ShashankAtmakur/survey-management-system/internal/service"
)

// GenerateHandler handles question generation
type GenerateHandler struct {
	generatorSvc *service.GeneratorService
	log          *zap.Logger
}

// NewGenerateHandler creates a new generate handler
func NewGenerateHandler(generatorSvc *service.GeneratorService, log *zap.Logger) *GenerateHandler {
	return &GenerateHandler{generatorSvc: generatorSvc, log: log}
}

// Generate handles POST /api/generate-questions. Model failures are reported
// in the body with success=false.
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req model.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.generatorSvc.Generate(r.Context(), req.Prompt, req.QuestionCount)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
