package bot

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ternarybob/petitor/internal/models"
)

func pendingJobs(keys ...string) []models.JobEntry {
	jobs := make([]models.JobEntry, 0, len(keys))
	for _, key := range keys {
		jobs = append(jobs, models.JobEntry{
			Key:    key,
			URL:    jobURL(key),
			Title:  "Job " + key,
			Status: models.JobStatusPending,
		})
	}
	return jobs
}

func TestJobQueueHonorsApplyLimit(t *testing.T) {
	queue := newJobQueue(pendingJobs("a", "b", "c", "d"), 2)

	first, ok, _ := queue.claim()
	if !ok || first.Key != "a" {
		t.Fatalf("expected first claim a, got %+v ok=%v", first, ok)
	}
	second, ok, _ := queue.claim()
	if !ok || second.Key != "b" {
		t.Fatalf("expected second claim b, got %+v ok=%v", second, ok)
	}

	// Budget is covered by in-flight work; no third claim until one fails
	if _, ok, retry := queue.claim(); ok || !retry {
		t.Fatalf("expected refused-but-retryable claim, got ok=%v retry=%v", ok, retry)
	}

	queue.release(false) // First job did not apply
	third, ok, _ := queue.claim()
	if !ok || third.Key != "c" {
		t.Fatalf("expected freed budget to admit c, got %+v ok=%v", third, ok)
	}

	queue.release(true)
	queue.release(true)
	if _, ok, retry := queue.claim(); ok || retry {
		t.Fatalf("expected final refusal after limit reached, got ok=%v retry=%v", ok, retry)
	}
	if queue.appliedCount() != 2 {
		t.Fatalf("expected 2 applied, got %d", queue.appliedCount())
	}
}

func TestJobQueueUnlimitedDrainsQueue(t *testing.T) {
	queue := newJobQueue(pendingJobs("a", "b"), 0)
	for i := 0; i < 2; i++ {
		if _, ok, _ := queue.claim(); !ok {
			t.Fatalf("claim %d refused", i)
		}
	}
	if _, ok, retry := queue.claim(); ok || retry {
		t.Fatal("expected empty queue to refuse claims outright")
	}
}

func TestApplyAllStopsAtApplyLimit(t *testing.T) {
	cfg := testConfig()
	driver := newFakeDriver()
	registry := newFakeRegistry()
	o := newTestOrchestrator(cfg, driver, registry, nil)
	o.tracker.beginRun(2)

	rc := mustResolve(t, o, models.RunSettings{ApplyLimit: 2, Concurrency: 1})
	o.applyAll(context.Background(), rc, pendingJobs("a", "b", "c", "d", "e"))

	if got := registry.appliedCount(); got != 2 {
		t.Fatalf("expected exactly 2 applications, got %d", got)
	}
}

func TestApplyAllBoundsConcurrency(t *testing.T) {
	cfg := testConfig()
	driver := newFakeDriver()
	driver.fillDelay = 20 * time.Millisecond
	registry := newFakeRegistry()
	o := newTestOrchestrator(cfg, driver, registry, nil)
	o.tracker.beginRun(0)

	rc := mustResolve(t, o, models.RunSettings{Concurrency: 2})
	o.applyAll(context.Background(), rc, pendingJobs("a", "b", "c", "d", "e", "f"))

	if driver.peakFill > 2 {
		t.Fatalf("expected at most 2 concurrent wizard fills, saw %d", driver.peakFill)
	}
	if got := registry.appliedCount(); got != 6 {
		t.Fatalf("expected all 6 jobs applied, got %d", got)
	}
}

func TestApplyAllIsolatesJobFailures(t *testing.T) {
	cfg := testConfig()
	driver := newFakeDriver()
	driver.script("b").scrapeErr = fmt.Errorf("page never loaded")
	registry := newFakeRegistry()
	o := newTestOrchestrator(cfg, driver, registry, nil)
	o.tracker.beginRun(0)

	rc := mustResolve(t, o, models.RunSettings{Concurrency: 1})
	o.applyAll(context.Background(), rc, pendingJobs("a", "b", "c"))

	if got := registry.appliedCount(); got != 2 {
		t.Fatalf("expected a and c applied despite b failing, got %d", got)
	}
	status := o.Status()
	if status.Failed != 1 {
		t.Fatalf("expected 1 failure recorded, got %d", status.Failed)
	}
	// Transient failures are not registered; the next run retries them
	if known, _ := registry.IsKnown("b"); known {
		t.Fatal("failed job must not enter the registry")
	}
}

func TestWorkerReusesTabAcrossJobs(t *testing.T) {
	cfg := testConfig()
	driver := newFakeDriver()
	registry := newFakeRegistry()
	o := newTestOrchestrator(cfg, driver, registry, nil)
	o.tracker.beginRun(0)

	rc := mustResolve(t, o, models.RunSettings{Concurrency: 1})
	o.applyAll(context.Background(), rc, pendingJobs("a", "b", "c"))

	if got := registry.appliedCount(); got != 3 {
		t.Fatalf("expected 3 applied, got %d", got)
	}
	if driver.openedTabs() != 1 {
		t.Fatalf("expected one tab for the whole worker, got %d", driver.openedTabs())
	}
}

func TestWorkerRecreatesTabAfterFailure(t *testing.T) {
	cfg := testConfig()
	driver := newFakeDriver()
	driver.script("b").scrapeErr = fmt.Errorf("renderer gone")
	registry := newFakeRegistry()
	o := newTestOrchestrator(cfg, driver, registry, nil)
	o.tracker.beginRun(0)

	rc := mustResolve(t, o, models.RunSettings{Concurrency: 1})
	o.applyAll(context.Background(), rc, pendingJobs("a", "b", "c"))

	if got := registry.appliedCount(); got != 2 {
		t.Fatalf("expected a and c applied, got %d", got)
	}
	// The failed job's tab is discarded; c runs on a fresh one
	if driver.openedTabs() != 2 {
		t.Fatalf("expected a second tab after the failure, got %d", driver.openedTabs())
	}
}

func TestApplyAllFailedJobsFreeBudget(t *testing.T) {
	cfg := testConfig()
	driver := newFakeDriver()
	driver.script("a").scrapeErr = fmt.Errorf("flaky page")
	registry := newFakeRegistry()
	o := newTestOrchestrator(cfg, driver, registry, nil)
	o.tracker.beginRun(2)

	rc := mustResolve(t, o, models.RunSettings{ApplyLimit: 2, Concurrency: 1})
	o.applyAll(context.Background(), rc, pendingJobs("a", "b", "c"))

	// a failed, so its budget slot passes to c
	if got := registry.appliedCount(); got != 2 {
		t.Fatalf("expected failed job's budget slot reused, got %d applied", got)
	}
}
