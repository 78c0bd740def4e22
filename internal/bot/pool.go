package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/petitor/internal/interfaces"
	"github.com/ternarybob/petitor/internal/models"
)

// jobQueue hands out pending jobs one at a time. A claim happens under the
// mutex and is never revoked: a worker that claimed a job finishes it even
// if the run pauses meanwhile, so no job can be half-applied twice.
type jobQueue struct {
	mu       sync.Mutex
	jobs     []models.JobEntry
	next     int
	inflight int
	applied  int
	limit    int // 0 = unlimited
}

func newJobQueue(jobs []models.JobEntry, limit int) *jobQueue {
	return &jobQueue{jobs: jobs, limit: limit}
}

// claim returns the next pending job. When ok=false, retry reports whether a
// later claim could still succeed: the budget may be covered only by
// in-flight jobs, and a failed one hands its slot back.
func (q *jobQueue) claim() (job models.JobEntry, ok bool, retry bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.next >= len(q.jobs) {
		return models.JobEntry{}, false, false
	}
	if q.limit > 0 && q.applied >= q.limit {
		return models.JobEntry{}, false, false
	}
	if q.limit > 0 && q.applied+q.inflight >= q.limit {
		return models.JobEntry{}, false, true
	}

	job = q.jobs[q.next]
	q.next++
	q.inflight++
	return job, true, false
}

// release reports a claimed job's outcome
func (q *jobQueue) release(appliedOK bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.inflight--
	if appliedOK {
		q.applied++
	}
}

func (q *jobQueue) appliedCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.applied
}

// applyAll runs the tab worker pool over the pending queue. Worker count is
// the smallest of configured concurrency, queue length, and apply budget.
func (o *Orchestrator) applyAll(ctx context.Context, rc runConfig, jobs []models.JobEntry) {
	workers := rc.concurrency
	if len(jobs) < workers {
		workers = len(jobs)
	}
	if rc.applyLimit > 0 && rc.applyLimit < workers {
		workers = rc.applyLimit
	}
	if workers < 1 {
		return
	}

	queue := newJobQueue(jobs, rc.applyLimit)

	o.logger.Info().
		Int("workers", workers).
		Int("pending", len(jobs)).
		Int("apply_limit", rc.applyLimit).
		Msg("Starting tab worker pool")

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			o.workerLoop(ctx, rc, id, queue)
		}(i + 1)

		// Stagger launches so tabs do not all hit the site at once
		if i < workers-1 {
			select {
			case <-ctx.Done():
			case <-time.After(o.config.Bot.StaggerDelayDuration()):
			}
		}
	}
	wg.Wait()

	o.logger.Info().
		Int("applied", queue.appliedCount()).
		Msg("Tab worker pool finished")
}

// workerLoop claims and applies jobs until the queue or budget runs out.
// The worker holds one tab for its whole life, reusing it across jobs and
// recreating it only after a failure. Per-job failures are contained here;
// only context cancellation stops the loop early.
func (o *Orchestrator) workerLoop(ctx context.Context, rc runConfig, id int, queue *jobQueue) {
	var tab interfaces.TabHandle
	defer func() {
		if tab != nil {
			o.driver.CloseTab(tab)
		}
	}()

	for {
		// Suspension point: pause holds workers here, between jobs
		if err := o.gate.wait(ctx); err != nil {
			return
		}

		job, ok, retry := queue.claim()
		if !ok {
			if !retry {
				return
			}
			// Budget is held by in-flight jobs; wait for one to settle
			select {
			case <-ctx.Done():
				return
			case <-time.After(o.config.Bot.PoolPollIntervalDuration()):
			}
			continue
		}

		if tab == nil {
			var err error
			tab, err = o.openTabWithRetries(ctx)
			if err != nil {
				// No browser means no more work for this worker
				o.fail(job, fmt.Errorf("no tab available: %w", err))
				queue.release(false)
				o.tracker.jobFinalized(models.JobStatusFailed)
				o.tracker.removeWorker(id)
				return
			}
		}

		status := o.applyJob(ctx, rc, id, job, tab)
		queue.release(status == models.JobStatusApplied)
		o.tracker.jobFinalized(status)
		o.tracker.removeWorker(id)
		o.publish(ctx, interfaces.EventJobFinalized, map[string]interface{}{
			"job_key": job.Key,
			"status":  status,
		})

		if status == models.JobStatusFailed {
			// The failure may have wedged the page; next job gets a fresh tab
			o.driver.CloseTab(tab)
			tab = nil
		}
		if ctx.Err() != nil {
			return
		}
	}
}
