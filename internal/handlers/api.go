package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/petitor/internal/common"
	"github.com/ternarybob/petitor/internal/interfaces"
)

// APIHandler serves version, health, and the answer-cache view
type APIHandler struct {
	answers interfaces.AnswerStorage
	logger  arbor.ILogger
	started time.Time
}

func NewAPIHandler(answers interfaces.AnswerStorage, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		answers: answers,
		logger:  logger,
		started: time.Now(),
	}
}

// VersionHandler handles GET /api/version
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.Build,
		"commit":  common.GitCommit,
	})
}

// HealthHandler handles GET /api/health
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}

// AnswersHandler handles GET /api/answers, the remembered questionnaire
// answers. Useful for reviewing what the engine will auto-fill.
func (h *APIHandler) AnswersHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	entries, err := h.answers.List()
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list cached answers")
		WriteError(w, http.StatusInternalServerError, "Failed to list cached answers")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(entries),
		"answers": entries,
	})
}

// NotFoundHandler is the fallback for unmatched API routes
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusNotFound, "Not found")
}
