package models

import "time"

// BotState is the orchestrator's top-level run state
type BotState string

const (
	BotStateIdle       BotState = "idle"
	BotStateCollecting BotState = "collecting"
	BotStateApplying   BotState = "applying"
	BotStatePaused     BotState = "paused"
)

// WorkerPhase describes where a tab worker is inside the wizard pipeline
type WorkerPhase string

const (
	WorkerPhaseNavigating    WorkerPhase = "navigating"
	WorkerPhaseFilling       WorkerPhase = "filling"
	WorkerPhaseWaitingReview WorkerPhase = "waiting_review"
	WorkerPhaseDone          WorkerPhase = "done"
)

// WorkerStatus is a snapshot of one tab worker
type WorkerStatus struct {
	ID        int         `json:"id"`
	JobKey    string      `json:"job_key,omitempty"`
	JobTitle  string      `json:"job_title,omitempty"`
	Phase     WorkerPhase `json:"phase"`
	Step      int         `json:"step"`
	StartedAt time.Time   `json:"started_at"`
}

// DiscoveryProgress tracks the collecting phase
type DiscoveryProgress struct {
	Query          string `json:"query"`
	QueryIndex     int    `json:"query_index"`
	QueryCount     int    `json:"query_count"`
	Page           int    `json:"page"`
	EstimatedTotal int    `json:"estimated_total,omitempty"`
	Found          int    `json:"found"`
	EmptyStreak    int    `json:"empty_streak"`
}

// BotStatus is the full observable status snapshot served to clients
type BotStatus struct {
	State       BotState          `json:"state"`
	WaitingUser bool              `json:"waiting_user"` // At least one worker is parked on manual review
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	Discovery   DiscoveryProgress `json:"discovery"`
	Workers     []WorkerStatus    `json:"workers"`
	Pending     int               `json:"pending"`
	Applied     int               `json:"applied"`
	Skipped     int               `json:"skipped"`
	Failed      int               `json:"failed"`
	ApplyLimit  int               `json:"apply_limit,omitempty"`
	LastError   string            `json:"last_error,omitempty"`
	Logs        []LogEntry        `json:"logs,omitempty"`
}

// LogEntry is one line of the bounded in-memory activity log
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	JobKey    string    `json:"job_key,omitempty"`
}
