package driver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/petitor/internal/common"
	"github.com/ternarybob/petitor/internal/interfaces"
	"github.com/ternarybob/petitor/internal/models"
)

const selSubmitSuccess = "div.ia-SuccessPage, [data-testid='submit-success']"

// ChromeDriver implements PageDriver over the Chrome DevTools protocol.
// One shared browser process hosts all tabs; each tab is an isolated
// chromedp context.
type ChromeDriver struct {
	config *common.DriverConfig
	logger arbor.ILogger

	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu   sync.Mutex
	tabs map[string]*chromeTab
}

type chromeTab struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
}

func (t *chromeTab) ID() string { return t.id }

func (t *chromeTab) CurrentURL(ctx context.Context) (string, error) {
	var url string
	runCtx, cancel := context.WithTimeout(t.ctx, 10*time.Second)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to read tab location: %w", err)
	}
	return url, nil
}

var _ interfaces.PageDriver = (*ChromeDriver)(nil)

// NewChromeDriver starts a browser process and verifies it responds
func NewChromeDriver(config *common.DriverConfig, logger arbor.ILogger) (*ChromeDriver, error) {
	allocatorOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", config.Headless),
		chromedp.Flag("disable-gpu", config.DisableGPU),
		chromedp.Flag("no-sandbox", config.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if config.UserAgent != "" {
		allocatorOpts = append(allocatorOpts, chromedp.UserAgent(config.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Startup test: an unresponsive browser fails here, not mid-run
	testCtx, testCancel := context.WithTimeout(browserCtx, 30*time.Second)
	defer testCancel()
	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("browser failed startup test: %w", err)
	}

	logger.Info().
		Bool("headless", config.Headless).
		Msg("Chrome driver started")

	return &ChromeDriver{
		config:        config,
		logger:        logger,
		allocCtx:      allocCtx,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		tabs:          make(map[string]*chromeTab),
	}, nil
}

// OpenTab creates a new tab
func (d *ChromeDriver) OpenTab(ctx context.Context) (interfaces.TabHandle, error) {
	tabCtx, tabCancel := chromedp.NewContext(d.browserCtx)

	initCtx, initCancel := context.WithTimeout(tabCtx, 15*time.Second)
	defer initCancel()

	tasks := chromedp.Tasks{network.Enable(), chromedp.Navigate("about:blank")}
	if d.config.UserAgent != "" {
		tasks = append(chromedp.Tasks{emulation.SetUserAgentOverride(d.config.UserAgent)}, tasks...)
	}
	if err := chromedp.Run(initCtx, tasks); err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}

	tab := &chromeTab{
		id:     uuid.New().String()[:8],
		ctx:    tabCtx,
		cancel: tabCancel,
	}

	d.mu.Lock()
	d.tabs[tab.id] = tab
	d.mu.Unlock()

	d.logger.Debug().Str("tab", tab.id).Msg("Tab opened")
	return tab, nil
}

// CloseTab destroys a tab and its page context
func (d *ChromeDriver) CloseTab(handle interfaces.TabHandle) error {
	tab, err := d.resolve(handle)
	if err != nil {
		return err
	}

	d.mu.Lock()
	delete(d.tabs, tab.id)
	d.mu.Unlock()

	tab.cancel()
	d.logger.Debug().Str("tab", tab.id).Msg("Tab closed")
	return nil
}

func (d *ChromeDriver) resolve(handle interfaces.TabHandle) (*chromeTab, error) {
	tab, ok := handle.(*chromeTab)
	if !ok {
		return nil, fmt.Errorf("foreign tab handle %T", handle)
	}
	return tab, nil
}

// runContext bounds an attempt by the timeout and ties it to the caller's
// context. chromedp actions must run on the tab's context chain, so the
// caller's cancellation is bridged in rather than inherited.
func runContext(tabCtx, callerCtx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithTimeout(tabCtx, timeout)
	stop := context.AfterFunc(callerCtx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

// run executes chromedp actions on a tab with bounded delivery retries.
// Transient DevTools message failures get a fixed backoff before retry.
func (d *ChromeDriver) run(ctx context.Context, tab *chromeTab, timeout time.Duration, actions ...chromedp.Action) error {
	var lastErr error
	for attempt := 0; attempt <= d.config.MessageRetries; attempt++ {
		runCtx, cancel := runContext(tab.ctx, ctx, timeout)
		err := chromedp.Run(runCtx, actions...)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if tab.ctx.Err() != nil {
			return fmt.Errorf("tab closed: %w", tab.ctx.Err())
		}
		if attempt == d.config.MessageRetries {
			break
		}

		d.logger.Warn().
			Str("tab", tab.id).
			Int("attempt", attempt+1).
			Err(err).
			Msg("Retrying page message")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.config.MessageBackoffDuration()):
		}
	}
	return fmt.Errorf("page message failed after %d retries: %w", d.config.MessageRetries, lastErr)
}

// Navigate loads a URL and waits for the page to become interactive
func (d *ChromeDriver) Navigate(ctx context.Context, handle interfaces.TabHandle, url string) error {
	tab, err := d.resolve(handle)
	if err != nil {
		return err
	}

	d.logger.Debug().Str("tab", tab.id).Str("url", url).Msg("Navigating")
	return d.run(ctx, tab, d.config.NavigationTimeoutDuration(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	)
}

// pageHTML captures the full rendered document
func (d *ChromeDriver) pageHTML(ctx context.Context, tab *chromeTab) (string, error) {
	var html string
	err := d.run(ctx, tab, d.config.ReadyTimeoutDuration(),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("failed to capture page html: %w", err)
	}
	return html, nil
}

// CollectLinks extracts job cards from the current search result page
func (d *ChromeDriver) CollectLinks(ctx context.Context, handle interfaces.TabHandle) ([]models.JobLink, error) {
	tab, err := d.resolve(handle)
	if err != nil {
		return nil, err
	}

	html, err := d.pageHTML(ctx, tab)
	if err != nil {
		return nil, err
	}
	url, err := tab.CurrentURL(ctx)
	if err != nil {
		return nil, err
	}
	return ParseJobLinks(html, url)
}

// TotalCount parses the estimated result count off the current page
func (d *ChromeDriver) TotalCount(ctx context.Context, handle interfaces.TabHandle) (models.CountEstimate, error) {
	tab, err := d.resolve(handle)
	if err != nil {
		return models.CountEstimate{}, err
	}

	html, err := d.pageHTML(ctx, tab)
	if err != nil {
		return models.CountEstimate{}, err
	}
	return ParseTotalCount(html), nil
}

// ScrapeJob extracts the posting details from the current job page
func (d *ChromeDriver) ScrapeJob(ctx context.Context, handle interfaces.TabHandle) (models.JobPosting, error) {
	tab, err := d.resolve(handle)
	if err != nil {
		return models.JobPosting{}, err
	}

	html, err := d.pageHTML(ctx, tab)
	if err != nil {
		return models.JobPosting{}, err
	}
	url, err := tab.CurrentURL(ctx)
	if err != nil {
		return models.JobPosting{}, err
	}
	return ParseJobPosting(html, url)
}

// ClickApply triggers the apply control and classifies the outcome
func (d *ChromeDriver) ClickApply(ctx context.Context, handle interfaces.TabHandle) (models.ApplyOutcome, error) {
	tab, err := d.resolve(handle)
	if err != nil {
		return "", err
	}

	var hasButton, hasExternal bool
	err = d.run(ctx, tab, d.config.ReadyTimeoutDuration(),
		chromedp.Evaluate(selectorExists(selApplyButton), &hasButton),
		chromedp.Evaluate(selectorExists(selExternalLink), &hasExternal),
	)
	if err != nil {
		return "", err
	}

	if hasButton {
		if err := d.run(ctx, tab, d.config.ReadyTimeoutDuration(),
			chromedp.Click(selApplyButton, chromedp.ByQuery),
		); err != nil {
			return "", fmt.Errorf("failed to click apply: %w", err)
		}
		return models.ApplyOutcomeClicked, nil
	}
	if hasExternal {
		return models.ApplyOutcomeExternal, nil
	}
	return models.ApplyOutcomeNotFound, nil
}

// WizardReady reports whether the application wizard has rendered
func (d *ChromeDriver) WizardReady(ctx context.Context, handle interfaces.TabHandle) (bool, error) {
	tab, err := d.resolve(handle)
	if err != nil {
		return false, err
	}

	var ready bool
	err = d.run(ctx, tab, d.config.ReadyTimeoutDuration(),
		chromedp.Evaluate(selectorExists(selWizardRoot), &ready),
	)
	if err != nil {
		return false, err
	}
	return ready, nil
}

// WizardState reads the current wizard step
func (d *ChromeDriver) WizardState(ctx context.Context, handle interfaces.TabHandle) (models.WizardState, error) {
	tab, err := d.resolve(handle)
	if err != nil {
		return models.WizardState{}, err
	}

	html, err := d.pageHTML(ctx, tab)
	if err != nil {
		return models.WizardState{}, err
	}
	return ParseWizardState(html)
}

// FillStep answers the current step's fields and advances when possible
func (d *ChromeDriver) FillStep(ctx context.Context, handle interfaces.TabHandle, resolve interfaces.AnswerResolver) (models.FillResult, error) {
	tab, err := d.resolve(handle)
	if err != nil {
		return models.FillResult{}, err
	}

	state, err := d.WizardState(ctx, tab)
	if err != nil {
		return models.FillResult{}, err
	}

	result := models.FillResult{Action: models.FillActionFilled}
	for i, q := range state.Questions {
		answer, ok, err := resolve(ctx, q)
		if err != nil {
			return models.FillResult{}, fmt.Errorf("resolving %q: %w", q.Label, err)
		}
		if !ok {
			result.Unanswered = append(result.Unanswered, q.Label)
			continue
		}
		if err := d.fillQuestion(ctx, tab, i, q, answer); err != nil {
			return models.FillResult{}, fmt.Errorf("filling %q: %w", q.Label, err)
		}
		result.Answered++
	}

	if len(result.Unanswered) > 0 {
		result.Action = models.FillActionNeedsInput
		return result, nil
	}

	// Prefer submit over continue: the last step carries both semantics
	var hasSubmit, hasContinue bool
	err = d.run(ctx, tab, d.config.ReadyTimeoutDuration(),
		chromedp.Evaluate(selectorExists(selSubmitBtn), &hasSubmit),
		chromedp.Evaluate(selectorExists(selContinueBtn), &hasContinue),
	)
	if err != nil {
		return models.FillResult{}, err
	}

	switch {
	case hasSubmit:
		if err := d.run(ctx, tab, d.config.ReadyTimeoutDuration(),
			chromedp.Click(selSubmitBtn, chromedp.ByQuery)); err != nil {
			return models.FillResult{}, fmt.Errorf("failed to submit: %w", err)
		}
		result.Action = models.FillActionSubmitted
	case hasContinue:
		if err := d.run(ctx, tab, d.config.ReadyTimeoutDuration(),
			chromedp.Click(selContinueBtn, chromedp.ByQuery)); err != nil {
			return models.FillResult{}, fmt.Errorf("failed to continue: %w", err)
		}
		result.Action = models.FillActionContinued
	}

	return result, nil
}

// fillQuestion writes one answer into the i-th question container
func (d *ChromeDriver) fillQuestion(ctx context.Context, tab *chromeTab, index int, q models.WizardQuestion, answer string) error {
	script := fillScript(index, q.Type, answer)
	var filled bool
	if err := d.run(ctx, tab, d.config.ReadyTimeoutDuration(),
		chromedp.Evaluate(script, &filled)); err != nil {
		return err
	}
	if !filled {
		return fmt.Errorf("field not found for question %d", index)
	}
	return nil
}

// AwaitSignal blocks until the wizard advances, submits, or the tab closes
func (d *ChromeDriver) AwaitSignal(ctx context.Context, handle interfaces.TabHandle) (models.WizardSignal, error) {
	tab, err := d.resolve(handle)
	if err != nil {
		return "", err
	}

	baseline, err := d.stepFingerprint(ctx, tab)
	if err != nil {
		return "", err
	}

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-tab.ctx.Done():
			return models.WizardSignalClosed, nil
		case <-ticker.C:
		}

		var submitted, wizardPresent bool
		err := d.run(ctx, tab, d.config.ReadyTimeoutDuration(),
			chromedp.Evaluate(selectorExists(selSubmitSuccess), &submitted),
			chromedp.Evaluate(selectorExists(selWizardRoot), &wizardPresent),
		)
		if err != nil {
			if tab.ctx.Err() != nil {
				return models.WizardSignalClosed, nil
			}
			return "", err
		}

		if submitted {
			return models.WizardSignalSubmitted, nil
		}
		if !wizardPresent {
			return models.WizardSignalClosed, nil
		}

		current, err := d.stepFingerprint(ctx, tab)
		if err != nil {
			return "", err
		}
		if current != baseline {
			return models.WizardSignalAdvanced, nil
		}
	}
}

// stepFingerprint hashes the wizard markup so step transitions are
// detectable without structural knowledge of every form variant
func (d *ChromeDriver) stepFingerprint(ctx context.Context, tab *chromeTab) (string, error) {
	html, err := d.pageHTML(ctx, tab)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(html))
	return hex.EncodeToString(sum[:8]), nil
}

// Close releases the browser and all tabs
func (d *ChromeDriver) Close() error {
	d.mu.Lock()
	for id, tab := range d.tabs {
		tab.cancel()
		delete(d.tabs, id)
	}
	d.mu.Unlock()

	d.browserCancel()
	d.allocCancel()
	d.logger.Info().Msg("Chrome driver closed")
	return nil
}

// selectorExists builds a JS expression testing selector presence
func selectorExists(selector string) string {
	return fmt.Sprintf("document.querySelector(%q) !== null", selector)
}

// fillScript builds the JS that writes an answer into the i-th question.
// Events are dispatched so framework-bound forms notice the change.
func fillScript(index int, inputType models.InputType, answer string) string {
	quoted := jsString(answer)
	base := fmt.Sprintf("(() => { const item = document.querySelectorAll(%q)[%d]; if (!item) return false;", selQuestionItem, index)

	var body string
	switch inputType {
	case models.InputTypeSelect:
		body = fmt.Sprintf(`
const sel = item.querySelector('select'); if (!sel) return false;
for (const opt of sel.options) {
  if (opt.text.trim() === %s) {
    sel.value = opt.value;
    sel.dispatchEvent(new Event('change', {bubbles: true}));
    return true;
  }
}
return false;`, quoted)
	case models.InputTypeRadio, models.InputTypeCheckbox:
		body = fmt.Sprintf(`
for (const input of item.querySelectorAll('input')) {
  const label = input.id ? item.querySelector('label[for="' + input.id + '"]') : input.closest('label');
  const text = label ? label.textContent.trim() : input.value;
  if (text === %s) {
    input.click();
    return true;
  }
}
return false;`, quoted)
	default:
		body = fmt.Sprintf(`
const input = item.querySelector('input, textarea'); if (!input) return false;
const setter = Object.getOwnPropertyDescriptor(Object.getPrototypeOf(input), 'value').set;
setter.call(input, %s);
input.dispatchEvent(new Event('input', {bubbles: true}));
input.dispatchEvent(new Event('change', {bubbles: true}));
return true;`, quoted)
	}

	return base + body + " })()"
}

// jsString safely quotes a Go string for embedding in a JS expression
func jsString(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"\n", `\n`,
		"\r", `\r`,
	)
	return `"` + replacer.Replace(s) + `"`
}
