package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Run control
	mux.HandleFunc("/api/bot/start", s.app.BotHandler.StartHandler)
	mux.HandleFunc("/api/bot/stop", s.app.BotHandler.StopHandler)
	mux.HandleFunc("/api/bot/pause", s.app.BotHandler.PauseHandler)
	mux.HandleFunc("/api/bot/resume", s.app.BotHandler.ResumeHandler)
	mux.HandleFunc("/api/bot/status", s.app.BotHandler.StatusHandler)

	// API routes - Answer cache
	mux.HandleFunc("/api/answers", s.app.APIHandler.AnswersHandler)

	// API routes - Stored settings (API keys)
	mux.HandleFunc("/api/kv", s.app.KVHandler.ListHandler)
	mux.HandleFunc("/api/kv/", s.handleKVRoutes)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleKVRoutes dispatches /api/kv/{key} by method
func (s *Server) handleKVRoutes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPut:
		s.app.KVHandler.SetHandler(w, r)
	case http.MethodDelete:
		s.app.KVHandler.DeleteHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
