package scheduler

import (
	"sync"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/petitor/internal/common"
	"github.com/ternarybob/petitor/internal/models"
)

type fakeStarter struct {
	mu     sync.Mutex
	starts int
	err    error
}

func (f *fakeStarter) Start(settings models.RunSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	return f.err
}

func (f *fakeStarter) Status() models.BotStatus {
	return models.BotStatus{State: models.BotStateIdle}
}

func TestStartDisabledIsNoop(t *testing.T) {
	cfg := common.DefaultConfig()
	cfg.Schedule.Enabled = false

	s := NewService(cfg, &fakeStarter{}, arbor.NewLogger())
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.IsRunning() {
		t.Fatal("disabled scheduler must not run")
	}
}

func TestStartRequiresCronExpression(t *testing.T) {
	cfg := common.DefaultConfig()
	cfg.Schedule.Enabled = true
	cfg.Schedule.Cron = ""

	s := NewService(cfg, &fakeStarter{}, arbor.NewLogger())
	if err := s.Start(); err == nil {
		t.Fatal("expected error for missing cron expression")
	}
}

func TestStartRejectsInvalidExpression(t *testing.T) {
	cfg := common.DefaultConfig()
	cfg.Schedule.Enabled = true
	cfg.Schedule.Cron = "not a cron line"

	s := NewService(cfg, &fakeStarter{}, arbor.NewLogger())
	if err := s.Start(); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestStartStopLifecycle(t *testing.T) {
	cfg := common.DefaultConfig()
	cfg.Schedule.Enabled = true
	cfg.Schedule.Cron = "0 9 * * 1-5"

	s := NewService(cfg, &fakeStarter{}, arbor.NewLogger())
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !s.IsRunning() {
		t.Fatal("expected scheduler running")
	}
	if s.NextRun() == nil {
		t.Fatal("expected a next run time")
	}
	if err := s.Start(); err == nil {
		t.Fatal("second Start must fail")
	}

	s.Stop()
	if s.IsRunning() {
		t.Fatal("expected scheduler stopped")
	}
	s.Stop() // Idempotent
}

func TestTriggerRecordsOutcome(t *testing.T) {
	cfg := common.DefaultConfig()
	starter := &fakeStarter{}
	s := NewService(cfg, starter, arbor.NewLogger())

	s.trigger()
	last, errMsg := s.LastRun()
	if last == nil || errMsg != "" {
		t.Fatalf("expected clean trigger, got last=%v err=%q", last, errMsg)
	}
	if starter.starts != 1 {
		t.Fatalf("expected 1 start, got %d", starter.starts)
	}
}
