package bot

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ternarybob/petitor/internal/common"
	"github.com/ternarybob/petitor/internal/interfaces"
	"github.com/ternarybob/petitor/internal/models"
)

// applyJob drives one job through the full application pipeline on the
// worker's tab and returns its final status. Every terminal decision is
// persisted in the registry before returning, so a crash after this point
// cannot repeat the job.
func (o *Orchestrator) applyJob(ctx context.Context, rc runConfig, workerID int, job models.JobEntry, tab interfaces.TabHandle) models.JobStatus {
	o.setWorkerPhase(workerID, job, models.WorkerPhaseNavigating, 0)
	o.tracker.log("info", "Applying: "+job.Title, job.Key)

	if !common.IsOnSiteURL(job.URL) {
		return o.skip(job, models.SkipReasonNonSiteURL)
	}

	if err := o.driver.Navigate(ctx, tab, job.URL); err != nil {
		return o.fail(job, fmt.Errorf("navigation failed: %w", err))
	}

	// The site bounces some postings to company domains
	currentURL, err := tab.CurrentURL(ctx)
	if err != nil {
		return o.fail(job, err)
	}
	if !common.IsOnSiteURL(currentURL) {
		return o.skip(job, models.SkipReasonRedirectedExternal)
	}

	posting, err := o.driver.ScrapeJob(ctx, tab)
	if err != nil {
		return o.fail(job, fmt.Errorf("scrape failed: %w", err))
	}
	if posting.Key == "" {
		posting.Key = job.Key
	}

	if rc.personalize {
		if status, ok := o.personalize(ctx, job, posting); !ok {
			return status
		}
	}

	outcome, err := o.driver.ClickApply(ctx, tab)
	if err != nil {
		return o.fail(job, fmt.Errorf("apply click failed: %w", err))
	}
	switch outcome {
	case models.ApplyOutcomeExternal:
		return o.skip(job, models.SkipReasonExternalApply)
	case models.ApplyOutcomeNotFound:
		return o.skip(job, models.SkipReasonNoApplyButton)
	}

	if !o.awaitWizard(ctx, tab) {
		return o.skip(job, models.SkipReasonWizardTimeout)
	}

	return o.walkWizard(ctx, rc, workerID, tab, job, posting)
}

// personalize tailors and renders the application documents. Returns
// ok=false with the terminal status when the job cannot proceed.
func (o *Orchestrator) personalize(ctx context.Context, job models.JobEntry, posting models.JobPosting) (models.JobStatus, bool) {
	if o.pdf == nil || o.answers == nil {
		return models.JobStatusPending, true
	}

	// Same-title jobs reuse already rendered documents without another
	// tailoring round trip
	if cv, cover, ok := o.pdf.CachedDocuments(posting.Title); ok {
		o.logger.Debug().Str("cv", cv).Str("cover", cover).Msg("Reusing documents for title")
		return models.JobStatusPending, true
	}

	baseCV, baseCover, err := o.loadBaseDocuments()
	if err != nil {
		o.logger.Warn().Err(err).Msg("Base documents unavailable, applying without tailoring")
		return models.JobStatusPending, true
	}

	content, err := o.answers.TailorContent(ctx, posting, baseCV, baseCover)
	if err == nil {
		_, _, err = o.pdf.RenderDocuments(posting.Title, content)
	}
	if err != nil {
		o.logger.Error().Err(err).Str("job_key", job.Key).Msg("Personalization failed")
		if o.config.Personalization.Required {
			return o.skip(job, models.SkipReasonCVGeneration), false
		}
		o.tracker.log("warn", "Tailoring failed, continuing with base documents", job.Key)
	}
	return models.JobStatusPending, true
}

// awaitWizard polls until the application wizard renders, bounded by the
// configured attempt count
func (o *Orchestrator) awaitWizard(ctx context.Context, tab interfaces.TabHandle) bool {
	attempts := o.config.Bot.WizardPollAttempts
	interval := o.config.Bot.WizardPollIntervalDuration()

	for i := 0; i < attempts; i++ {
		ready, err := o.driver.WizardReady(ctx, tab)
		if err == nil && ready {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(interval):
		}
	}
	return false
}

// walkWizard steps through the application form. Three bounds apply: a wall
// clock per application, a step cap, and the poll limits inside FillStep.
// A step that needs the user's hands parks the worker until the page moves.
func (o *Orchestrator) walkWizard(
	ctx context.Context,
	rc runConfig,
	workerID int,
	tab interfaces.TabHandle,
	job models.JobEntry,
	posting models.JobPosting,
) models.JobStatus {
	wizardCtx, cancel := context.WithTimeout(ctx, o.config.Bot.WizardTimeoutDuration())
	defer cancel()

	resolver := o.makeResolver(posting)

	for step := 1; step <= o.config.Bot.MaxWizardSteps; step++ {
		o.setWorkerPhase(workerID, job, models.WorkerPhaseFilling, step)

		result, err := o.driver.FillStep(wizardCtx, tab, resolver)
		if err != nil {
			if wizardCtx.Err() != nil {
				return o.skip(job, models.SkipReasonWizardTimeout)
			}
			return o.fail(job, fmt.Errorf("wizard step %d: %w", step, err))
		}

		switch result.Action {
		case models.FillActionSubmitted:
			return o.applied(job)

		case models.FillActionContinued:
			// Let the page settle before reading the next step
			select {
			case <-wizardCtx.Done():
			case <-time.After(o.config.Bot.FillRetryDelayDuration()):
			}

		case models.FillActionFilled:
			// Fields are in but the page will not advance on its own; wait
			// for the wizard to move before touching it again
			signal, err := o.driver.AwaitSignal(wizardCtx, tab)
			if err != nil {
				if wizardCtx.Err() != nil {
					return o.skip(job, models.SkipReasonWizardTimeout)
				}
				return o.fail(job, err)
			}
			switch signal {
			case models.WizardSignalSubmitted:
				return o.applied(job)
			case models.WizardSignalClosed:
				return o.fail(job, fmt.Errorf("wizard closed before submission"))
			}
			// Advanced: the next loop iteration reads the new step

		case models.FillActionNeedsInput:
			o.setWorkerPhase(workerID, job, models.WorkerPhaseWaitingReview, step)
			o.tracker.setWaiting(1)
			o.publish(wizardCtx, interfaces.EventWaitingUser, map[string]interface{}{
				"job_key":    job.Key,
				"worker":     workerID,
				"unanswered": result.Unanswered,
			})
			o.tracker.log("warn", "Waiting for manual input", job.Key)

			signal, err := o.driver.AwaitSignal(wizardCtx, tab)
			o.tracker.setWaiting(-1)
			if err != nil {
				if wizardCtx.Err() != nil {
					return o.skip(job, models.SkipReasonWizardTimeout)
				}
				return o.fail(job, err)
			}
			switch signal {
			case models.WizardSignalSubmitted:
				return o.applied(job)
			case models.WizardSignalClosed:
				return o.fail(job, fmt.Errorf("wizard closed during manual review"))
			}
			// Advanced: user pushed the step forward, keep walking
		}

		if wizardCtx.Err() != nil {
			return o.skip(job, models.SkipReasonWizardTimeout)
		}
	}

	return o.skip(job, models.SkipReasonWizardTimeout)
}

// makeResolver builds the per-job answer resolver: profile overrides first,
// then the full answer service
func (o *Orchestrator) makeResolver(posting models.JobPosting) interfaces.AnswerResolver {
	profileContext := ""
	if o.profile != nil {
		profileContext = o.profile.PromptContext()
	}

	return func(ctx context.Context, q models.WizardQuestion) (string, bool, error) {
		if q.Type == models.InputTypeFile {
			// File uploads need the user; leave the field for review
			return "", false, nil
		}

		if o.profile != nil {
			if answer, ok := o.profile.FixedAnswer(q.Label); ok {
				if len(q.Options) > 0 {
					if matched, ok := matchFixedAnswer(answer, q.Options); ok {
						return matched, true, nil
					}
				} else {
					return answer, true, nil
				}
			}
		}

		if o.answers == nil {
			return "", false, nil
		}

		resp, err := o.answers.AnswerQuestion(ctx, interfaces.AnswerRequest{
			Question:       q,
			JobTitle:       posting.Title,
			JobDescription: posting.Description,
			ProfileContext: profileContext,
		})
		if err != nil {
			return "", false, err
		}
		return resp.Answer, true, nil
	}
}

// matchFixedAnswer requires an exact (case-insensitive) option match for
// profile overrides; anything fuzzier belongs to the answer service
func matchFixedAnswer(answer string, options []string) (string, bool) {
	for _, opt := range options {
		if strings.EqualFold(strings.TrimSpace(opt), strings.TrimSpace(answer)) {
			return opt, true
		}
	}
	return "", false
}

// loadBaseDocuments reads the configured base CV and cover letter
func (o *Orchestrator) loadBaseDocuments() (string, string, error) {
	cv, err := os.ReadFile(o.config.Personalization.BaseCVPath)
	if err != nil {
		return "", "", fmt.Errorf("base CV: %w", err)
	}
	cover, err := os.ReadFile(o.config.Personalization.BaseCoverPath)
	if err != nil {
		return "", "", fmt.Errorf("base cover letter: %w", err)
	}
	return string(cv), string(cover), nil
}

func (o *Orchestrator) setWorkerPhase(id int, job models.JobEntry, phase models.WorkerPhase, step int) {
	o.tracker.setWorker(models.WorkerStatus{
		ID:        id,
		JobKey:    job.Key,
		JobTitle:  job.Title,
		Phase:     phase,
		Step:      step,
		StartedAt: time.Now(),
	})
}

// applied records a successful application in the durable registry
func (o *Orchestrator) applied(job models.JobEntry) models.JobStatus {
	if err := o.registry.MarkApplied(job.Key); err != nil {
		o.logger.Error().Err(err).Str("job_key", job.Key).Msg("Failed to record application")
	}
	o.tracker.log("info", "Applied: "+job.Title, job.Key)
	o.logger.Info().Str("job_key", job.Key).Str("title", job.Title).Msg("Application submitted")
	return models.JobStatusApplied
}

// skip records a permanent skip in the durable registry
func (o *Orchestrator) skip(job models.JobEntry, reason models.SkipReason) models.JobStatus {
	if err := o.registry.MarkSkipped(job.Key, reason); err != nil {
		o.logger.Error().Err(err).Str("job_key", job.Key).Msg("Failed to record skip")
	}
	o.tracker.log("info", fmt.Sprintf("Skipped (%s): %s", reason, job.Title), job.Key)
	o.logger.Info().Str("job_key", job.Key).Str("reason", string(reason)).Msg("Job skipped")
	return models.JobStatusSkipped
}

// fail reports a transient failure. Failed jobs are NOT registered: the next
// run may succeed where this one hit a flaky page.
func (o *Orchestrator) fail(job models.JobEntry, err error) models.JobStatus {
	o.tracker.setError(err.Error())
	o.tracker.log("error", "Failed: "+err.Error(), job.Key)
	o.logger.Error().Err(err).Str("job_key", job.Key).Msg("Job failed")
	return models.JobStatusFailed
}
