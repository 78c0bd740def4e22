package bot

import (
	"testing"
	"time"

	"github.com/ternarybob/petitor/internal/models"
)

func TestStartRunsToCompletionAndReturnsIdle(t *testing.T) {
	cfg := testConfig()
	driver := newFakeDriver()
	driver.addPage("software engineer", "us", 0, cfg.Search.PerPage, link("a"))
	registry := newFakeRegistry()
	o := newTestOrchestrator(cfg, driver, registry, nil)

	if err := o.Start(models.RunSettings{}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if !waitFor(5*time.Second, func() bool { return o.Status().State == models.BotStateIdle }) {
		t.Fatalf("run never returned to idle, state %s", o.Status().State)
	}
	if got := registry.appliedCount(); got != 1 {
		t.Fatalf("expected 1 application, got %d", got)
	}
	if applied := o.Status().Applied; applied != 1 {
		t.Fatalf("expected status to report 1 applied, got %d", applied)
	}
}

func TestStartRefusedWhileRunning(t *testing.T) {
	cfg := testConfig()
	driver := newFakeDriver()
	driver.blockNav = make(chan struct{})
	o := newTestOrchestrator(cfg, driver, newFakeRegistry(), nil)

	if err := o.Start(models.RunSettings{}); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := o.Start(models.RunSettings{}); err == nil {
		t.Fatal("second Start must be refused while a run is active")
	}

	close(driver.blockNav)
	if !waitFor(5*time.Second, func() bool { return o.Status().State == models.BotStateIdle }) {
		t.Fatal("run never finished")
	}

	// Idle again, a new run is legal
	if err := o.Start(models.RunSettings{}); err != nil {
		t.Fatalf("Start after idle: %v", err)
	}
	waitFor(5*time.Second, func() bool { return o.Status().State == models.BotStateIdle })
}

func TestStartRejectsInvalidSettings(t *testing.T) {
	cfg := testConfig()
	o := newTestOrchestrator(cfg, newFakeDriver(), newFakeRegistry(), nil)

	if err := o.Start(models.RunSettings{ApplyLimit: -1}); err == nil {
		t.Fatal("negative apply limit must be rejected")
	}
	if o.Status().State != models.BotStateIdle {
		t.Fatal("rejected start must leave the engine idle")
	}
}

func TestStartRequiresQueries(t *testing.T) {
	cfg := testConfig()
	cfg.Search.Queries = nil
	o := newTestOrchestrator(cfg, newFakeDriver(), newFakeRegistry(), nil)

	if err := o.Start(models.RunSettings{}); err == nil {
		t.Fatal("start without queries must fail")
	}
}

func TestPauseAndResume(t *testing.T) {
	cfg := testConfig()
	driver := newFakeDriver()
	driver.blockNav = make(chan struct{})
	o := newTestOrchestrator(cfg, driver, newFakeRegistry(), nil)

	if err := o.Start(models.RunSettings{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if o.Status().State != models.BotStateCollecting {
		t.Fatalf("expected collecting, got %s", o.Status().State)
	}

	if err := o.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if o.Status().State != models.BotStatePaused {
		t.Fatalf("expected paused, got %s", o.Status().State)
	}

	// Pausing twice is an error, so is resuming an unpaused run later
	if err := o.Pause(); err == nil {
		t.Fatal("Pause from paused must fail")
	}

	if err := o.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if o.Status().State != models.BotStateCollecting {
		t.Fatalf("expected collecting after resume, got %s", o.Status().State)
	}
	if err := o.Resume(); err == nil {
		t.Fatal("Resume from running must fail")
	}

	close(driver.blockNav)
	if !waitFor(5*time.Second, func() bool { return o.Status().State == models.BotStateIdle }) {
		t.Fatal("run never finished after resume")
	}
}

func TestPauseRefusedWhenIdle(t *testing.T) {
	cfg := testConfig()
	o := newTestOrchestrator(cfg, newFakeDriver(), newFakeRegistry(), nil)
	if err := o.Pause(); err == nil {
		t.Fatal("Pause must fail when no run is active")
	}
}

func TestStopCancelsActiveRun(t *testing.T) {
	cfg := testConfig()
	driver := newFakeDriver()
	driver.blockNav = make(chan struct{}) // Never closed; Stop must cut through
	o := newTestOrchestrator(cfg, driver, newFakeRegistry(), nil)

	if err := o.Start(models.RunSettings{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := o.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if o.Status().State != models.BotStateIdle {
		t.Fatalf("expected idle after stop, got %s", o.Status().State)
	}
}

func TestStopCancelsPausedRun(t *testing.T) {
	cfg := testConfig()
	driver := newFakeDriver()
	driver.blockNav = make(chan struct{})
	o := newTestOrchestrator(cfg, driver, newFakeRegistry(), nil)

	if err := o.Start(models.RunSettings{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := o.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if err := o.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if o.Status().State != models.BotStateIdle {
		t.Fatalf("expected idle after stopping a paused run, got %s", o.Status().State)
	}
}

func TestStopWithoutRun(t *testing.T) {
	cfg := testConfig()
	o := newTestOrchestrator(cfg, newFakeDriver(), newFakeRegistry(), nil)
	if err := o.Stop(); err == nil {
		t.Fatal("Stop must fail when no run is active")
	}
}

func TestStatusSnapshotIsIsolated(t *testing.T) {
	cfg := testConfig()
	o := newTestOrchestrator(cfg, newFakeDriver(), newFakeRegistry(), nil)
	o.tracker.log("info", "first", "")

	snap := o.Status()
	if len(snap.Logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(snap.Logs))
	}
	snap.Logs[0].Message = "mutated"

	if o.Status().Logs[0].Message != "first" {
		t.Fatal("snapshot must not share state with the tracker")
	}
}
