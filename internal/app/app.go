// Package app wires configuration, storage, services and handlers into
// one runnable application.
package app

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/verba/internal/common"
	"github.com/ternarybob/verba/internal/handlers"
	"github.com/ternarybob/verba/internal/interfaces"
	"github.com/ternarybob/verba/internal/services/auth"
	"github.com/ternarybob/verba/internal/services/browser"
	"github.com/ternarybob/verba/internal/services/cache"
	"github.com/ternarybob/verba/internal/services/scheduler"
	"github.com/ternarybob/verba/internal/services/scraper"
	badgerstore "github.com/ternarybob/verba/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage
	DB           *badgerstore.BadgerDB
	SessionStore interfaces.SessionStore

	// Scraping pipeline
	Browser      interfaces.Browser
	AuthService  interfaces.Authenticator
	Orchestrator interfaces.KeywordScraper

	// Supporting services
	CacheService     *cache.Service
	SchedulerService *scheduler.Service

	// HTTP handlers
	APIHandler     *handlers.APIHandler
	SearchHandler  *handlers.SearchHandler
	SessionHandler *handlers.SessionHandler
	CacheHandler   *handlers.CacheHandler
	StatusHandler  *handlers.StatusHandler
}

// New creates the application with all dependencies wired
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	app.initServices()
	app.initHandlers()

	logger.Info().
		Int("accounts", len(cfg.Accounts.Account)).
		Str("base_url", cfg.Scraper.BaseURL).
		Bool("cache", cfg.Cache.Enabled).
		Msg("Application initialized")

	return app, nil
}

func (a *App) initStorage() error {
	db, err := badgerstore.NewBadgerDB(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return err
	}

	a.DB = db
	a.SessionStore = badgerstore.NewSessionStorage(db, a.Logger)
	return nil
}

func (a *App) initServices() {
	a.Browser = browser.NewChrome(a.Config.Browser, a.Logger)
	a.AuthService = auth.NewService(a.Config, a.Logger)
	a.Orchestrator = scraper.NewOrchestrator(a.Config, a.SessionStore, a.Browser, a.AuthService, a.Logger)
	a.CacheService = cache.NewService(a.Config.Cache.Enabled, a.Config.Cache.TTL, a.Logger)

	a.SchedulerService = scheduler.NewService(a.Logger)
	if a.Config.Cache.Enabled && a.Config.Cache.CleanupSchedule != "" {
		err := a.SchedulerService.RegisterJob("cache-janitor", a.Config.Cache.CleanupSchedule, func() error {
			removed := a.CacheService.Sweep()
			if removed > 0 {
				a.Logger.Info().Int("removed", removed).Msg("Swept expired cache entries")
			}
			return nil
		})
		if err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to register cache janitor job")
		}
	}
}

func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler()
	a.SearchHandler = handlers.NewSearchHandler(a.Orchestrator, a.CacheService, a.Logger)
	a.SessionHandler = handlers.NewSessionHandler(a.SessionStore, a.Logger)
	a.CacheHandler = handlers.NewCacheHandler(a.CacheService, a.Logger)
	a.StatusHandler = handlers.NewStatusHandler(a.Config, a.SessionStore, a.CacheService, a.SchedulerService, a.Logger)
}

// Start launches background services
func (a *App) Start() error {
	return a.SchedulerService.Start()
}

// Close shuts down all components in reverse dependency order
func (a *App) Close() error {
	if err := a.SchedulerService.Stop(); err != nil {
		a.Logger.Warn().Err(err).Msg("Scheduler stop failed")
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Database close failed")
			return err
		}
	}

	a.Logger.Info().Msg("Application closed")
	return nil
}
