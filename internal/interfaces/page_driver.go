package interfaces

import (
	"context"

	"github.com/ternarybob/petitor/internal/models"
)

// TabHandle identifies one live browser tab owned by the driver
type TabHandle interface {
	// ID returns a stable identifier for logging
	ID() string

	// CurrentURL returns the tab's current location
	CurrentURL(ctx context.Context) (string, error)
}

// PageDriver abstracts the browser automation layer. The production
// implementation drives Chrome over the DevTools protocol; tests substitute
// a scripted fake.
type PageDriver interface {
	// OpenTab creates a new tab
	OpenTab(ctx context.Context) (TabHandle, error)

	// CloseTab destroys a tab and its page context
	CloseTab(tab TabHandle) error

	// Navigate loads a URL and waits for the page to become interactive
	Navigate(ctx context.Context, tab TabHandle, url string) error

	// CollectLinks extracts job cards from the current search result page
	CollectLinks(ctx context.Context, tab TabHandle) ([]models.JobLink, error)

	// TotalCount parses the estimated result count off the current page
	TotalCount(ctx context.Context, tab TabHandle) (models.CountEstimate, error)

	// ScrapeJob extracts the posting details from the current job page
	ScrapeJob(ctx context.Context, tab TabHandle) (models.JobPosting, error)

	// ClickApply triggers the apply control and classifies the outcome
	ClickApply(ctx context.Context, tab TabHandle) (models.ApplyOutcome, error)

	// WizardReady reports whether the application wizard has rendered
	WizardReady(ctx context.Context, tab TabHandle) (bool, error)

	// WizardState reads the current wizard step
	WizardState(ctx context.Context, tab TabHandle) (models.WizardState, error)

	// FillStep answers the current step's fields using the resolver and
	// advances when possible
	FillStep(ctx context.Context, tab TabHandle, resolve AnswerResolver) (models.FillResult, error)

	// AwaitSignal blocks until the wizard advances, submits, or the tab
	// closes, or the context is done
	AwaitSignal(ctx context.Context, tab TabHandle) (models.WizardSignal, error)

	// Close releases the browser and all tabs
	Close() error
}

// AnswerResolver produces an answer for one wizard question. Returning
// ok=false leaves the field untouched.
type AnswerResolver func(ctx context.Context, q models.WizardQuestion) (answer string, ok bool, err error)
