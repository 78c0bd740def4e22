package bot

import (
	"sync"
	"time"

	"github.com/ternarybob/petitor/internal/models"
)

// maxLogEntries bounds the in-memory activity log
const maxLogEntries = 200

// statusTracker holds the observable run state behind one mutex. Every field
// of a BotStatus snapshot comes from here; callers never see live references.
type statusTracker struct {
	mu sync.Mutex

	state       models.BotState
	startedAt   *time.Time
	discovery   models.DiscoveryProgress
	workers     map[int]models.WorkerStatus
	waitingUser int
	pending     int
	applied     int
	skipped     int
	failed      int
	applyLimit  int
	lastError   string
	logs        []models.LogEntry
}

func newStatusTracker() *statusTracker {
	return &statusTracker{
		state:   models.BotStateIdle,
		workers: make(map[int]models.WorkerStatus),
	}
}

func (t *statusTracker) setState(state models.BotState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = state
}

func (t *statusTracker) getState() models.BotState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// beginRun resets run-scoped fields
func (t *statusTracker) beginRun(applyLimit int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	t.startedAt = &now
	t.discovery = models.DiscoveryProgress{}
	t.workers = make(map[int]models.WorkerStatus)
	t.waitingUser = 0
	t.pending = 0
	t.applied = 0
	t.skipped = 0
	t.failed = 0
	t.applyLimit = applyLimit
	t.lastError = ""
}

func (t *statusTracker) endRun() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = models.BotStateIdle
	t.startedAt = nil
	t.workers = make(map[int]models.WorkerStatus)
	t.waitingUser = 0
}

func (t *statusTracker) setDiscovery(progress models.DiscoveryProgress) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.discovery = progress
}

func (t *statusTracker) setPending(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = n
}

func (t *statusTracker) setWorker(status models.WorkerStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.workers[status.ID] = status
}

func (t *statusTracker) removeWorker(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.workers, id)
}

// setWaiting tracks how many workers are parked on manual review
func (t *statusTracker) setWaiting(delta int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.waitingUser += delta
	if t.waitingUser < 0 {
		t.waitingUser = 0
	}
}

func (t *statusTracker) jobFinalized(status models.JobStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending > 0 {
		t.pending--
	}
	switch status {
	case models.JobStatusApplied:
		t.applied++
	case models.JobStatusSkipped:
		t.skipped++
	case models.JobStatusFailed:
		t.failed++
	}
}

func (t *statusTracker) appliedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.applied
}

func (t *statusTracker) setError(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastError = msg
}

// log appends an activity entry, most recent first, bounded
func (t *statusTracker) log(level, message, jobKey string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry := models.LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
		JobKey:    jobKey,
	}
	t.logs = append([]models.LogEntry{entry}, t.logs...)
	if len(t.logs) > maxLogEntries {
		t.logs = t.logs[:maxLogEntries]
	}
}

// snapshot renders the full status copy served to clients
func (t *statusTracker) snapshot() models.BotStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	workers := make([]models.WorkerStatus, 0, len(t.workers))
	for _, w := range t.workers {
		workers = append(workers, w)
	}

	logs := make([]models.LogEntry, len(t.logs))
	copy(logs, t.logs)

	return models.BotStatus{
		State:       t.state,
		WaitingUser: t.waitingUser > 0,
		StartedAt:   t.startedAt,
		Discovery:   t.discovery,
		Workers:     workers,
		Pending:     t.pending,
		Applied:     t.applied,
		Skipped:     t.skipped,
		Failed:      t.failed,
		ApplyLimit:  t.applyLimit,
		LastError:   t.lastError,
		Logs:        logs,
	}
}
