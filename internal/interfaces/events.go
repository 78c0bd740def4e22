package interfaces

import (
	"context"
	"time"
)

// EventType identifies the kind of event
type EventType string

const (
	EventBotStateChanged EventType = "bot_state_changed"
	EventJobFinalized    EventType = "job_finalized"
	EventDiscoveryPage   EventType = "discovery_page"
	EventWaitingUser     EventType = "waiting_user"
)

// Event represents a system event
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Source    string      `json:"source"`
	Data      interface{} `json:"data,omitempty"`
}

// EventHandler processes events
type EventHandler func(ctx context.Context, event Event) error

// EventService provides publish/subscribe for internal events
type EventService interface {
	// Publish sends an event to all subscribers asynchronously
	Publish(ctx context.Context, event Event) error

	// Subscribe registers a handler for an event type
	Subscribe(eventType EventType, handler EventHandler) error

	// Close shuts down the event service
	Close() error
}
