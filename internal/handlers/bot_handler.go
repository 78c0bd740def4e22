package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/petitor/internal/interfaces"
	"github.com/ternarybob/petitor/internal/models"
)

// BotService is the orchestrator surface the HTTP layer needs
type BotService interface {
	Start(settings models.RunSettings) error
	Stop() error
	Pause() error
	Resume() error
	Status() models.BotStatus
}

// BotHandler exposes run control and status over HTTP
type BotHandler struct {
	bot      BotService
	registry interfaces.RegistryStorage
	logger   arbor.ILogger
}

func NewBotHandler(bot BotService, registry interfaces.RegistryStorage, logger arbor.ILogger) *BotHandler {
	return &BotHandler{
		bot:      bot,
		registry: registry,
		logger:   logger,
	}
}

// StartHandler handles POST /api/bot/start. The body carries optional
// RunSettings overrides; an empty body runs with configured defaults.
func (h *BotHandler) StartHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var settings models.RunSettings
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
			h.logger.Warn().Err(err).Msg("Failed to parse run settings")
			WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	if err := h.bot.Start(settings); err != nil {
		h.logger.Warn().Err(err).Msg("Run start refused")
		WriteError(w, http.StatusConflict, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "started",
		"message": "Run started",
	})
}

// StopHandler handles POST /api/bot/stop
func (h *BotHandler) StopHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	if err := h.bot.Stop(); err != nil {
		WriteError(w, http.StatusConflict, err.Error())
		return
	}
	WriteSuccess(w, "Run stopped")
}

// PauseHandler handles POST /api/bot/pause
func (h *BotHandler) PauseHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	if err := h.bot.Pause(); err != nil {
		WriteError(w, http.StatusConflict, err.Error())
		return
	}
	WriteSuccess(w, "Run paused")
}

// ResumeHandler handles POST /api/bot/resume
func (h *BotHandler) ResumeHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	if err := h.bot.Resume(); err != nil {
		WriteError(w, http.StatusConflict, err.Error())
		return
	}
	WriteSuccess(w, "Run resumed")
}

// StatusHandler handles GET /api/bot/status. The snapshot is augmented with
// all-time registry totals.
func (h *BotHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	status := h.bot.Status()

	response := map[string]interface{}{
		"bot": status,
	}
	if h.registry != nil {
		counts, err := h.registry.Counts()
		if err != nil {
			h.logger.Warn().Err(err).Msg("Failed to read registry counts")
		} else {
			response["registry"] = counts
		}
	}

	WriteJSON(w, http.StatusOK, response)
}
