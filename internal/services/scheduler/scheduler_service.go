package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/petitor/internal/common"
	"github.com/ternarybob/petitor/internal/models"
)

// RunStarter starts an application run. Satisfied by the bot orchestrator.
type RunStarter interface {
	Start(settings models.RunSettings) error
	Status() models.BotStatus
}

// Service triggers application runs on a cron schedule. A trigger that lands
// while a run is already active is logged and dropped; the engine refuses
// overlapping runs and the next tick retries.
type Service struct {
	config *common.Config
	bot    RunStarter
	logger arbor.ILogger

	mu      sync.Mutex
	cron    *cron.Cron
	entryID cron.EntryID
	running bool
	lastRun *time.Time
	lastErr string
}

func NewService(config *common.Config, bot RunStarter, logger arbor.ILogger) *Service {
	return &Service{
		config: config,
		bot:    bot,
		logger: logger,
		cron:   cron.New(),
	}
}

// Start registers the configured schedule and begins ticking. A no-op when
// scheduling is disabled.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.config.Schedule.Enabled {
		s.logger.Debug().Msg("Scheduler disabled")
		return nil
	}
	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	expr := s.config.Schedule.Cron
	if expr == "" {
		return fmt.Errorf("schedule.cron is required when scheduling is enabled")
	}

	id, err := s.cron.AddFunc(expr, s.trigger)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	s.entryID = id

	s.cron.Start()
	s.running = true

	s.logger.Info().Str("cron", expr).Msg("Scheduler started")
	return nil
}

// Stop halts the ticker. Any run already triggered keeps going.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.cron.Stop()
	s.running = false
	s.logger.Info().Msg("Scheduler stopped")
}

// IsRunning reports whether the ticker is active
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled trigger time, if any
func (s *Service) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	entry := s.cron.Entry(s.entryID)
	if entry.Next.IsZero() {
		return nil
	}
	next := entry.Next
	return &next
}

// LastRun returns the last trigger time and the error it produced, if any
func (s *Service) LastRun() (*time.Time, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastErr
}

func (s *Service) trigger() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("panic", fmt.Sprintf("%v", r)).Msg("Panic recovered in scheduled trigger")
		}
	}()

	now := time.Now()
	s.logger.Info().Msg("Scheduled run trigger")

	// Configured defaults apply; the schedule carries no overrides
	err := s.bot.Start(models.RunSettings{})

	s.mu.Lock()
	s.lastRun = &now
	if err != nil {
		s.lastErr = err.Error()
	} else {
		s.lastErr = ""
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn().Err(err).Msg("Scheduled trigger did not start a run")
	}
}
