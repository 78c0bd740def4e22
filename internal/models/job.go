package models

import "time"

// JobStatus is the lifecycle state of a discovered job
type JobStatus string

const (
	JobStatusPending JobStatus = "pending"
	JobStatusClaimed JobStatus = "claimed"
	JobStatusApplied JobStatus = "applied"
	JobStatusSkipped JobStatus = "skipped"
	JobStatusFailed  JobStatus = "failed"
)

// SkipReason records why a job was permanently passed over. Reasons are
// persisted in the registry so re-runs never revisit the same dead end.
type SkipReason string

const (
	SkipReasonNonSiteURL         SkipReason = "non_site_url"
	SkipReasonRedirectedExternal SkipReason = "redirected_external"
	SkipReasonExternalApply      SkipReason = "external_apply"
	SkipReasonNoApplyButton      SkipReason = "no_apply_button"
	SkipReasonWizardTimeout      SkipReason = "wizard_timeout"
	SkipReasonCVGeneration       SkipReason = "cv_generation_failed"
)

// JobEntry is a job the discovery phase queued for application
type JobEntry struct {
	Key       string     `json:"key"` // Stable posting identifier, also the dedup key
	URL       string     `json:"url"`
	Title     string     `json:"title,omitempty"`
	Company   string     `json:"company,omitempty"`
	Query     string     `json:"query,omitempty"` // Search query that surfaced this job
	Page      int        `json:"page"`            // Result page the job was found on
	Status    JobStatus  `json:"status"`
	Reason    SkipReason `json:"reason,omitempty"`
	FoundAt   time.Time  `json:"found_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RegistryCounts summarizes the durable application registry
type RegistryCounts struct {
	Applied int `json:"applied"`
	Skipped int `json:"skipped"`
}
