package app

import (
	"fmt"
	"os"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/petitor/internal/bot"
	"github.com/ternarybob/petitor/internal/common"
	"github.com/ternarybob/petitor/internal/handlers"
	"github.com/ternarybob/petitor/internal/interfaces"
	"github.com/ternarybob/petitor/internal/services/answers"
	"github.com/ternarybob/petitor/internal/services/driver"
	"github.com/ternarybob/petitor/internal/services/events"
	"github.com/ternarybob/petitor/internal/services/llm"
	"github.com/ternarybob/petitor/internal/services/pdf"
	"github.com/ternarybob/petitor/internal/services/profile"
	"github.com/ternarybob/petitor/internal/services/scheduler"
	"github.com/ternarybob/petitor/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager
	EventService   interfaces.EventService

	ProviderFactory *llm.ProviderFactory
	AnswerService   interfaces.AnswerService
	Profile         *profile.Profile
	PDFService      *pdf.Service
	PageDriver      interfaces.PageDriver
	Orchestrator    *bot.Orchestrator
	Scheduler       *scheduler.Service

	// HTTP handlers
	BotHandler *handlers.BotHandler
	KVHandler  *handlers.KVHandler
	APIHandler *handlers.APIHandler
	WSHandler  *handlers.WebSocketHandler
}

// New wires the full application from configuration. Components come up in
// dependency order; any failure tears down what already started.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: config,
		Logger: logger,
	}

	storageManager, err := badger.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.StorageManager = storageManager

	a.EventService = events.NewService(logger)

	a.ProviderFactory = llm.NewProviderFactory(
		&config.Gemini,
		&config.Claude,
		&config.LLM,
		storageManager.KeyValueStorage(),
		logger,
	)

	answerCache := answers.NewCache(storageManager.AnswerStorage(), &config.Cache, logger)
	a.AnswerService = answers.NewService(answerCache, a.ProviderFactory, config, logger)

	// The candidate profile is optional; without it the engine still runs,
	// relying on the cache and the LLM alone
	if config.Profile.Path != "" {
		if _, statErr := os.Stat(config.Profile.Path); statErr == nil {
			candidate, loadErr := profile.Load(config.Profile.Path, logger)
			if loadErr != nil {
				a.Close()
				return nil, fmt.Errorf("failed to load candidate profile: %w", loadErr)
			}
			a.Profile = candidate
		} else {
			logger.Warn().Str("path", config.Profile.Path).Msg("Candidate profile not found, continuing without fixed answers")
		}
	}

	if config.Personalization.Enabled {
		a.PDFService = pdf.NewService(&config.Personalization, logger)
	}

	pageDriver, err := driver.NewChromeDriver(&config.Driver, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to start browser driver: %w", err)
	}
	a.PageDriver = pageDriver

	a.Orchestrator = bot.NewOrchestrator(
		config,
		a.PageDriver,
		storageManager.RegistryStorage(),
		a.AnswerService,
		a.EventService,
		a.Profile,
		a.PDFService,
		logger,
	)

	a.Scheduler = scheduler.NewService(config, a.Orchestrator, logger)
	if err := a.Scheduler.Start(); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	a.BotHandler = handlers.NewBotHandler(a.Orchestrator, storageManager.RegistryStorage(), logger)
	a.KVHandler = handlers.NewKVHandler(storageManager.KeyValueStorage(), logger)
	a.APIHandler = handlers.NewAPIHandler(storageManager.AnswerStorage(), logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, a.Orchestrator, logger)

	logger.Info().
		Str("storage", config.Storage.Badger.Path).
		Bool("personalization", config.Personalization.Enabled).
		Bool("schedule", config.Schedule.Enabled).
		Msg("Application wired")

	return a, nil
}

// Close shuts down components in reverse dependency order
func (a *App) Close() {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}

	if a.Orchestrator != nil {
		if err := a.Orchestrator.Stop(); err == nil {
			a.Logger.Info().Msg("Active run stopped")
		}
	}

	if a.PageDriver != nil {
		if err := a.PageDriver.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Browser driver close failed")
		}
	}

	if a.ProviderFactory != nil {
		if err := a.ProviderFactory.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("LLM provider close failed")
		}
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Event service close failed")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Storage close failed")
		}
	}
}
