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
	"github.com/ternarybob/petitor/internal/services/pdf"
	"github.com/ternarybob/petitor/internal/services/profile"
)

// Orchestrator owns the run lifecycle: idle -> collecting -> applying -> idle,
// with paused reachable from the two active states. A single run is in flight
// at most; Start refuses anything but idle.
type Orchestrator struct {
	config   *common.Config
	driver   interfaces.PageDriver
	registry interfaces.RegistryStorage
	answers  interfaces.AnswerService
	events   interfaces.EventService
	profile  *profile.Profile
	pdf      *pdf.Service
	logger   arbor.ILogger

	tracker *statusTracker
	gate    *pauseGate

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	prevState models.BotState
}

// NewOrchestrator wires the run engine. Profile and pdf may be nil when
// personalization is disabled.
func NewOrchestrator(
	config *common.Config,
	driver interfaces.PageDriver,
	registry interfaces.RegistryStorage,
	answerService interfaces.AnswerService,
	eventService interfaces.EventService,
	candidateProfile *profile.Profile,
	pdfService *pdf.Service,
	logger arbor.ILogger,
) *Orchestrator {
	return &Orchestrator{
		config:   config,
		driver:   driver,
		registry: registry,
		answers:  answerService,
		events:   eventService,
		profile:  candidateProfile,
		pdf:      pdfService,
		logger:   logger,
		tracker:  newStatusTracker(),
		gate:     newPauseGate(),
	}
}

// runConfig is the per-run effective configuration: file config with the
// start request's overrides applied
type runConfig struct {
	queries     []string
	locale      string
	perPage     int
	maxPages    int
	streakLimit int
	applyLimit  int
	concurrency int
	personalize bool
}

// resolveSettings merges request overrides over the configured defaults
func (o *Orchestrator) resolveSettings(settings models.RunSettings) (runConfig, error) {
	if err := settings.Validate(); err != nil {
		return runConfig{}, err
	}

	rc := runConfig{
		queries:     o.config.Search.Queries,
		locale:      o.config.Search.Locale,
		perPage:     o.config.Search.PerPage,
		maxPages:    o.config.Search.MaxPages,
		streakLimit: o.config.Search.EmptyPageStreak,
		applyLimit:  o.config.Bot.ApplyLimit,
		concurrency: o.config.Bot.Concurrency,
		personalize: o.config.Personalization.Enabled,
	}
	if len(settings.Queries) > 0 {
		rc.queries = settings.Queries
	}
	if settings.Locale != "" {
		rc.locale = settings.Locale
	}
	if settings.ApplyLimit > 0 {
		rc.applyLimit = settings.ApplyLimit
	}
	if settings.Concurrency > 0 {
		rc.concurrency = settings.Concurrency
	}
	if settings.MaxPages > 0 {
		rc.maxPages = settings.MaxPages
	}
	if settings.Personalize != nil {
		rc.personalize = *settings.Personalize
	}

	if len(rc.queries) == 0 {
		return runConfig{}, fmt.Errorf("no search queries configured")
	}
	if rc.concurrency < 1 {
		rc.concurrency = 1
	}
	if rc.perPage < 1 {
		rc.perPage = 10
	}
	if rc.streakLimit < 1 {
		rc.streakLimit = 3
	}
	return rc, nil
}

// Start begins a run. Only legal from idle; the run always returns the
// engine to idle no matter how it ends.
func (o *Orchestrator) Start(settings models.RunSettings) error {
	rc, err := o.resolveSettings(settings)
	if err != nil {
		return fmt.Errorf("invalid run settings: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if state := o.tracker.getState(); state != models.BotStateIdle {
		return fmt.Errorf("cannot start from state %s", state)
	}

	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	o.done = make(chan struct{})
	o.gate.resume()

	o.tracker.beginRun(rc.applyLimit)
	o.setState(ctx, models.BotStateCollecting)
	o.tracker.log("info", fmt.Sprintf("Run started: %d queries, apply limit %d", len(rc.queries), rc.applyLimit), "")

	if counts, err := o.registry.Counts(); err == nil {
		o.logger.Info().
			Int("applied", counts.Applied).
			Int("skipped", counts.Skipped).
			Msg("Registry totals at run start")
	}

	go o.run(ctx, rc)
	return nil
}

// run drives one complete run and always lands back on idle
func (o *Orchestrator) run(ctx context.Context, rc runConfig) {
	defer func() {
		o.tracker.endRun()

		// Idle must be observable before done closes so Stop callers see it
		o.mu.Lock()
		o.cancel = nil
		close(o.done)
		o.mu.Unlock()

		o.publish(context.Background(), interfaces.EventBotStateChanged, models.BotStateIdle)
		o.logger.Info().Msg("Run finished, engine idle")
	}()

	jobs, err := o.collect(ctx, rc)
	if err != nil {
		if ctx.Err() == nil {
			o.tracker.setError(err.Error())
			o.tracker.log("error", "Discovery failed: "+err.Error(), "")
			o.logger.Error().Err(err).Msg("Discovery failed")
		}
		return
	}
	if ctx.Err() != nil {
		return
	}

	o.tracker.setPending(len(jobs))
	o.tracker.log("info", fmt.Sprintf("Discovery complete: %d jobs queued", len(jobs)), "")

	if len(jobs) == 0 {
		return
	}

	o.setState(ctx, models.BotStateApplying)
	o.applyAll(ctx, rc, jobs)
}

// Stop cancels the active run. Paused runs are released first so they can
// observe the cancellation.
func (o *Orchestrator) Stop() error {
	o.mu.Lock()
	cancel := o.cancel
	done := o.done
	o.mu.Unlock()

	if cancel == nil {
		return fmt.Errorf("no active run")
	}

	cancel()
	o.gate.resume()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		o.logger.Warn().Msg("Run did not stop within 30s, detaching")
	}
	return nil
}

// Pause suspends the run between units of work. Claimed jobs finish first.
func (o *Orchestrator) Pause() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	state := o.tracker.getState()
	if state != models.BotStateCollecting && state != models.BotStateApplying {
		return fmt.Errorf("cannot pause from state %s", state)
	}

	o.prevState = state
	o.gate.pause()
	o.setState(context.Background(), models.BotStatePaused)
	o.tracker.log("info", "Run paused", "")
	return nil
}

// Resume releases a paused run back into its previous state
func (o *Orchestrator) Resume() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.tracker.getState() != models.BotStatePaused {
		return fmt.Errorf("cannot resume from state %s", o.tracker.getState())
	}

	o.setState(context.Background(), o.prevState)
	o.gate.resume()
	o.tracker.log("info", "Run resumed", "")
	return nil
}

// Status returns a full status snapshot
func (o *Orchestrator) Status() models.BotStatus {
	return o.tracker.snapshot()
}

func (o *Orchestrator) setState(ctx context.Context, state models.BotState) {
	o.tracker.setState(state)
	o.publish(ctx, interfaces.EventBotStateChanged, state)
}

func (o *Orchestrator) publish(ctx context.Context, eventType interfaces.EventType, data interface{}) {
	if o.events == nil {
		return
	}
	_ = o.events.Publish(ctx, interfaces.Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    "bot",
		Data:      data,
	})
}

// pauseGate blocks workers while the run is paused. The gate holds a channel
// that is closed while running and replaced while paused.
type pauseGate struct {
	mu sync.Mutex
	ch chan struct{}
}

func newPauseGate() *pauseGate {
	g := &pauseGate{ch: make(chan struct{})}
	close(g.ch)
	return g
}

func (g *pauseGate) pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	select {
	case <-g.ch:
		g.ch = make(chan struct{})
	default:
		// Already paused
	}
}

func (g *pauseGate) resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	select {
	case <-g.ch:
		// Already open
	default:
		close(g.ch)
	}
}

// wait blocks until the gate is open or the context ends
func (g *pauseGate) wait(ctx context.Context) error {
	g.mu.Lock()
	ch := g.ch
	g.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	}
}
