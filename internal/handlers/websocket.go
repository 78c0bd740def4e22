package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/petitor/internal/interfaces"
	"github.com/ternarybob/petitor/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Local tool, all origins accepted
	},
}

// StatusProvider supplies the snapshot pushed to newly connected clients
type StatusProvider interface {
	Status() models.BotStatus
}

// wsMessage is the frame sent to websocket clients
type wsMessage struct {
	Type             string      `json:"type"`
	Timestamp        time.Time   `json:"timestamp"`
	ServerInstanceID string      `json:"server_instance_id,omitempty"`
	Data             interface{} `json:"data,omitempty"`
}

// WebSocketHandler streams engine events and status snapshots to the UI
type WebSocketHandler struct {
	logger arbor.ILogger
	status StatusProvider

	mu      sync.RWMutex
	clients map[*websocket.Conn]*sync.Mutex

	// Clients compare this across reconnects to detect a server restart
	serverInstanceID string
}

func NewWebSocketHandler(eventService interfaces.EventService, status StatusProvider, logger arbor.ILogger) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:           logger,
		status:           status,
		clients:          make(map[*websocket.Conn]*sync.Mutex),
		serverInstanceID: uuid.New().String(),
	}

	if eventService != nil {
		for _, eventType := range []interfaces.EventType{
			interfaces.EventBotStateChanged,
			interfaces.EventJobFinalized,
			interfaces.EventDiscoveryPage,
			interfaces.EventWaitingUser,
		} {
			et := eventType
			_ = eventService.Subscribe(et, func(ctx context.Context, event interfaces.Event) error {
				h.broadcastEvent(event)
				return nil
			})
		}
	}

	return h
}

// HandleWebSocket upgrades the connection and registers the client
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = &sync.Mutex{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Int("clients", count).Msg("WebSocket client connected")

	// First frame carries the current status so the UI renders immediately
	h.sendTo(conn, wsMessage{
		Type:             "status",
		Timestamp:        time.Now(),
		ServerInstanceID: h.serverInstanceID,
		Data:             h.status.Status(),
	})

	go h.readLoop(conn)
}

// readLoop drains client frames and detects disconnects
func (h *WebSocketHandler) readLoop(conn *websocket.Conn) {
	defer h.removeClient(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *WebSocketHandler) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	count := len(h.clients)
	h.mu.Unlock()

	conn.Close()
	h.logger.Debug().Int("clients", count).Msg("WebSocket client disconnected")
}

func (h *WebSocketHandler) broadcastEvent(event interfaces.Event) {
	message := wsMessage{
		Type:      string(event.Type),
		Timestamp: event.Timestamp,
		Data:      event.Data,
	}

	// Status snapshot rides along with state changes so clients need not poll
	if event.Type == interfaces.EventBotStateChanged && h.status != nil {
		message.Data = map[string]interface{}{
			"state":  event.Data,
			"status": h.status.Status(),
		}
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		h.sendTo(conn, message)
	}
}

// sendTo serializes writes per connection; gorilla conns do not allow
// concurrent writers
func (h *WebSocketHandler) sendTo(conn *websocket.Conn, message wsMessage) {
	h.mu.RLock()
	writeMu, ok := h.clients[conn]
	h.mu.RUnlock()
	if !ok {
		return
	}

	writeMu.Lock()
	err := conn.WriteJSON(message)
	writeMu.Unlock()

	if err != nil {
		h.removeClient(conn)
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
