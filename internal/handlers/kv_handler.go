package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/petitor/internal/interfaces"
)

// KVHandler manages stored settings such as API keys over HTTP
type KVHandler struct {
	storage interfaces.KeyValueStorage
	logger  arbor.ILogger
}

func NewKVHandler(storage interfaces.KeyValueStorage, logger arbor.ILogger) *KVHandler {
	return &KVHandler{storage: storage, logger: logger}
}

// ListHandler handles GET /api/kv. Values are masked; this endpoint exists
// for the UI to show what is configured, not to read secrets back.
func (h *KVHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	pairs, err := h.storage.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list key/value pairs")
		WriteError(w, http.StatusInternalServerError, "Failed to list key/value pairs")
		return
	}

	sanitized := make([]map[string]interface{}, len(pairs))
	for i, pair := range pairs {
		sanitized[i] = map[string]interface{}{
			"key":         pair.Key,
			"value":       maskValue(pair.Value),
			"description": pair.Description,
			"updated_at":  pair.UpdatedAt,
		}
	}

	WriteJSON(w, http.StatusOK, sanitized)
}

// SetHandler handles PUT /api/kv/{key}
func (h *KVHandler) SetHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "PUT") {
		return
	}

	key, ok := h.keyFromPath(w, r)
	if !ok {
		return
	}

	var req struct {
		Value       string `json:"value"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Value == "" {
		WriteError(w, http.StatusBadRequest, "Value is required")
		return
	}

	if err := h.storage.Set(r.Context(), key, req.Value, req.Description); err != nil {
		h.logger.Error().Err(err).Str("key", key).Msg("Failed to store key/value pair")
		WriteError(w, http.StatusInternalServerError, "Failed to store key/value pair")
		return
	}

	h.logger.Debug().Str("key", key).Msg("Stored key/value pair")
	WriteSuccess(w, "Stored")
}

// DeleteHandler handles DELETE /api/kv/{key}
func (h *KVHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "DELETE") {
		return
	}

	key, ok := h.keyFromPath(w, r)
	if !ok {
		return
	}

	if err := h.storage.Delete(r.Context(), key); err != nil {
		if errors.Is(err, interfaces.ErrKeyNotFound) {
			WriteError(w, http.StatusNotFound, "Key not found")
			return
		}
		h.logger.Error().Err(err).Str("key", key).Msg("Failed to delete key/value pair")
		WriteError(w, http.StatusInternalServerError, "Failed to delete key/value pair")
		return
	}

	WriteSuccess(w, "Deleted")
}

func (h *KVHandler) keyFromPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	encoded := r.URL.Path[len("/api/kv/"):]
	key, err := url.QueryUnescape(encoded)
	if err != nil || key == "" {
		WriteError(w, http.StatusBadRequest, "Missing or invalid key")
		return "", false
	}
	return key, true
}

// maskValue hides secret values in list responses
func maskValue(value string) string {
	if len(value) < 8 {
		return "********"
	}
	return value[:4] + "..." + value[len(value)-4:]
}
