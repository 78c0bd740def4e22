package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/petitor/internal/common"
	"github.com/ternarybob/petitor/internal/interfaces"
	"github.com/ternarybob/petitor/internal/models"
)

// jobScript describes how the fake driver behaves for one job key
type jobScript struct {
	posting      models.JobPosting
	scrapeErr    error
	applyOutcome models.ApplyOutcome
	neverReady   bool
	readyAfter   int // Polls before WizardReady reports true
	questions    []models.WizardQuestion
	fills        []models.FillResult
	signal       models.WizardSignal

	readyPolls int
	fillIdx    int
	resolved   []string // Answers the resolver produced
}

type fakeTab struct {
	mu  sync.Mutex
	id  string
	url string
}

func (t *fakeTab) ID() string { return t.id }

func (t *fakeTab) CurrentURL(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.url, nil
}

func (t *fakeTab) setURL(url string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.url = url
}

// fakeDriver is a scripted PageDriver. Search pages are keyed by full URL;
// job behavior is keyed by job key.
type fakeDriver struct {
	mu        sync.Mutex
	pages     map[string][]models.JobLink
	total     models.CountEstimate
	redirects map[string]string
	navErr    map[string]error
	scripts   map[string]*jobScript
	openFails int
	blockNav  chan struct{} // When set, Navigate blocks until closed

	opened     int
	closed     int
	fillDelay  time.Duration
	activeFill int
	peakFill   int
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		pages:     make(map[string][]models.JobLink),
		redirects: make(map[string]string),
		navErr:    make(map[string]error),
		scripts:   make(map[string]*jobScript),
	}
}

func (d *fakeDriver) addPage(query, locale string, page, perPage int, links ...models.JobLink) {
	d.pages[common.BuildSearchURL(query, locale, page*perPage)] = links
}

func (d *fakeDriver) script(key string) *jobScript {
	s, ok := d.scripts[key]
	if !ok {
		s = &jobScript{}
		d.scripts[key] = s
	}
	return s
}

func (d *fakeDriver) scriptFor(tab interfaces.TabHandle) *jobScript {
	url, _ := tab.CurrentURL(context.Background())
	key := common.ExtractJobKey(url)
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scripts[key]
}

func (d *fakeDriver) OpenTab(ctx context.Context) (interfaces.TabHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.openFails > 0 {
		d.openFails--
		return nil, fmt.Errorf("browser unavailable")
	}
	d.opened++
	return &fakeTab{id: fmt.Sprintf("tab-%d", d.opened)}, nil
}

func (d *fakeDriver) CloseTab(tab interfaces.TabHandle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed++
	return nil
}

func (d *fakeDriver) Navigate(ctx context.Context, tab interfaces.TabHandle, url string) error {
	d.mu.Lock()
	block := d.blockNav
	err := d.navErr[url]
	final := url
	if redirect, ok := d.redirects[url]; ok {
		final = redirect
	}
	d.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err != nil {
		return err
	}
	tab.(*fakeTab).setURL(final)
	return nil
}

func (d *fakeDriver) CollectLinks(ctx context.Context, tab interfaces.TabHandle) ([]models.JobLink, error) {
	url, _ := tab.CurrentURL(ctx)
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pages[url], nil
}

func (d *fakeDriver) TotalCount(ctx context.Context, tab interfaces.TabHandle) (models.CountEstimate, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.total, nil
}

func (d *fakeDriver) ScrapeJob(ctx context.Context, tab interfaces.TabHandle) (models.JobPosting, error) {
	url, _ := tab.CurrentURL(ctx)
	key := common.ExtractJobKey(url)
	s := d.scriptFor(tab)
	if s == nil {
		return models.JobPosting{Key: key, URL: url, Title: "Job " + key}, nil
	}
	if s.scrapeErr != nil {
		return models.JobPosting{}, s.scrapeErr
	}
	if s.posting.Key == "" {
		return models.JobPosting{Key: key, URL: url, Title: "Job " + key}, nil
	}
	return s.posting, nil
}

func (d *fakeDriver) ClickApply(ctx context.Context, tab interfaces.TabHandle) (models.ApplyOutcome, error) {
	s := d.scriptFor(tab)
	if s == nil || s.applyOutcome == "" {
		return models.ApplyOutcomeClicked, nil
	}
	return s.applyOutcome, nil
}

func (d *fakeDriver) WizardReady(ctx context.Context, tab interfaces.TabHandle) (bool, error) {
	s := d.scriptFor(tab)
	if s == nil {
		return true, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if s.neverReady {
		return false, nil
	}
	s.readyPolls++
	return s.readyPolls > s.readyAfter, nil
}

func (d *fakeDriver) WizardState(ctx context.Context, tab interfaces.TabHandle) (models.WizardState, error) {
	return models.WizardState{}, nil
}

func (d *fakeDriver) FillStep(ctx context.Context, tab interfaces.TabHandle, resolve interfaces.AnswerResolver) (models.FillResult, error) {
	d.mu.Lock()
	d.activeFill++
	if d.activeFill > d.peakFill {
		d.peakFill = d.activeFill
	}
	delay := d.fillDelay
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.activeFill--
		d.mu.Unlock()
	}()

	if delay > 0 {
		time.Sleep(delay)
	}

	s := d.scriptFor(tab)
	if s == nil {
		return models.FillResult{Action: models.FillActionSubmitted}, nil
	}

	d.mu.Lock()
	first := s.fillIdx == 0
	questions := s.questions
	d.mu.Unlock()

	if first {
		for _, q := range questions {
			answer, ok, err := resolve(ctx, q)
			if err != nil {
				return models.FillResult{}, err
			}
			if ok {
				d.mu.Lock()
				s.resolved = append(s.resolved, answer)
				d.mu.Unlock()
			}
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if s.fillIdx >= len(s.fills) {
		return models.FillResult{Action: models.FillActionSubmitted, Answered: len(s.resolved)}, nil
	}
	result := s.fills[s.fillIdx]
	s.fillIdx++
	return result, nil
}

func (d *fakeDriver) AwaitSignal(ctx context.Context, tab interfaces.TabHandle) (models.WizardSignal, error) {
	s := d.scriptFor(tab)
	if s == nil || s.signal == "" {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.signal, nil
}

func (d *fakeDriver) Close() error { return nil }

func (d *fakeDriver) openedTabs() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened
}

// fakeRegistry is an in-memory RegistryStorage with the production semantics
type fakeRegistry struct {
	mu      sync.Mutex
	applied map[string]bool
	skipped map[string]models.SkipReason
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		applied: make(map[string]bool),
		skipped: make(map[string]models.SkipReason),
	}
}

func (r *fakeRegistry) IsKnown(key string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.applied[key] {
		return true, nil
	}
	_, ok := r.skipped[key]
	return ok, nil
}

func (r *fakeRegistry) StatusOf(key string) (models.JobStatus, models.SkipReason, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.applied[key] {
		return models.JobStatusApplied, "", nil
	}
	if reason, ok := r.skipped[key]; ok {
		return models.JobStatusSkipped, reason, nil
	}
	return "", "", interfaces.ErrKeyNotFound
}

func (r *fakeRegistry) MarkApplied(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applied[key] = true
	delete(r.skipped, key)
	return nil
}

func (r *fakeRegistry) MarkSkipped(key string, reason models.SkipReason) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.applied[key] {
		return nil
	}
	r.skipped[key] = reason
	return nil
}

func (r *fakeRegistry) Counts() (models.RegistryCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return models.RegistryCounts{Applied: len(r.applied), Skipped: len(r.skipped)}, nil
}

func (r *fakeRegistry) appliedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.applied)
}

func (r *fakeRegistry) skipReason(key string) (models.SkipReason, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reason, ok := r.skipped[key]
	return reason, ok
}

// fakeAnswers is a scripted AnswerService
type fakeAnswers struct {
	mu          sync.Mutex
	answer      string
	err         error
	requests    []interfaces.AnswerRequest
	tailorCalls int
}

func (a *fakeAnswers) AnswerQuestion(ctx context.Context, req interfaces.AnswerRequest) (interfaces.AnswerResponse, error) {
	a.mu.Lock()
	a.requests = append(a.requests, req)
	a.mu.Unlock()
	if a.err != nil {
		return interfaces.AnswerResponse{}, a.err
	}
	return interfaces.AnswerResponse{Answer: a.answer, Source: models.AnswerSourceLLM}, nil
}

func (a *fakeAnswers) TailorContent(ctx context.Context, posting models.JobPosting, baseCV, baseCover string) (models.TailoredContent, error) {
	a.mu.Lock()
	a.tailorCalls++
	a.mu.Unlock()
	return models.TailoredContent{CV: baseCV, CoverLetter: baseCover}, nil
}

func (a *fakeAnswers) tailored() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tailorCalls
}

func testConfig() *common.Config {
	cfg := common.DefaultConfig()
	cfg.Search.Queries = []string{"software engineer"}
	cfg.Search.RequestDelay = "1ms"
	cfg.Search.MaxPages = 20
	cfg.Bot.StaggerDelay = "1ms"
	cfg.Bot.WizardPollAttempts = 2
	cfg.Bot.WizardPollInterval = "1ms"
	cfg.Bot.WizardTimeout = "2s"
	cfg.Bot.FillRetryDelay = "1ms"
	cfg.Bot.PoolPollInterval = "1ms"
	return cfg
}

func newTestOrchestrator(cfg *common.Config, driver *fakeDriver, registry *fakeRegistry, answers interfaces.AnswerService) *Orchestrator {
	return NewOrchestrator(cfg, driver, registry, answers, nil, nil, nil, arbor.NewLogger())
}

func jobURL(key string) string {
	return "https://www.indeed.com/viewjob?jk=" + key
}

func link(key string) models.JobLink {
	return models.JobLink{URL: jobURL(key), Title: "Job " + key}
}

// waitFor polls until the condition holds or the deadline passes
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
