// Package app provides application lifecycle management for the
// brandops services.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/api"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/citation"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/config"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/database"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/dedup"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/dispatch"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/email"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/lifecycle"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/logger"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/metrics"
	internalredis "github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/redis"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/scheduler"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/telemetry"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/webhook"
)

const (
	// DefaultShutdownTimeout bounds graceful HTTP shutdown.
	DefaultShutdownTimeout = 30 * time.Second
)

// App represents the brandops application with all its dependencies
type App struct {
	config     *config.Config
	logger     logger.Logger
	db         *sqlx.DB
	redis      *redis.Client
	telemetry  *telemetry.Provider
	tracker    *lifecycle.Tracker
	worker     *scheduler.Worker
	httpServer *http.Server
	version    string
	runServer  bool
	runWorker  bool
}

// Options contains configuration for creating a new App
type Options struct {
	ConfigPath string
	Version    string

	// RunServer enables the HTTP API, RunWorker the recovery
	// scheduler. A process may run either or both.
	RunServer bool
	RunWorker bool
}

// New creates a new App instance with all dependencies initialized
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	appLogger, err := logger.NewLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	appLogger = appLogger.With(
		logger.String("service", "brandops"),
		logger.String("version", opts.Version),
	)

	db, err := database.NewPostgresConnection(cfg.Postgres)
	if err != nil {
		_ = appLogger.Sync()
		return nil, fmt.Errorf("connect to Postgres: %w", err)
	}

	redisClient, err := internalredis.NewClient(cfg.Redis)
	if err != nil {
		_ = db.Close()
		_ = appLogger.Sync()
		return nil, fmt.Errorf("connect to Redis: %w", err)
	}

	tel := telemetry.NewProvider()

	app := &App{
		config:    cfg,
		logger:    appLogger,
		db:        db,
		redis:     redisClient,
		telemetry: tel,
		version:   opts.Version,
		runServer: opts.RunServer,
		runWorker: opts.RunWorker,
	}
	if err := app.wire(); err != nil {
		_ = app.Close()
		return nil, err
	}

	return app, nil
}

// wire assembles repositories, trackers, and the optional worker and
// HTTP server from the already-connected backends.
func (a *App) wire() error {
	cfg := a.config

	cartRepo := database.NewCartRepository(a.db)
	taskRepo := database.NewTaskRepository(a.db)
	citationRepo := database.NewCitationRepository(a.db)

	recoveryMetrics := metrics.NewTracker(a.redis, a.logger)
	guard := dedup.NewTracker(a.redis, cfg.Scheduler.TaskExpiry, a.logger)

	a.tracker = lifecycle.NewTracker(cartRepo, guard, recoveryMetrics, cfg.Scheduler.MaxRecoveryAttempts, a.logger)

	if a.runWorker {
		emailClient, err := email.NewClient(cfg.Email, a.logger)
		if err != nil {
			return fmt.Errorf("create email client: %w", err)
		}

		dispatcher := dispatch.NewService(cfg.Scheduler, cfg.Email, dispatch.Deps{
			EmailClient: emailClient,
			Carts:       cartRepo,
			Tasks:       taskRepo,
			Guard:       guard,
			Metrics:     recoveryMetrics,
			Telemetry:   a.telemetry,
			Logger:      a.logger,
		})

		a.worker = scheduler.NewWorker(scheduler.WorkerConfig{
			ScanInterval:     cfg.Scheduler.ScanInterval,
			InactivityWindow: cfg.Scheduler.InactivityWindow,
			TaskExpiry:       cfg.Scheduler.TaskExpiry,
			BatchSize:        cfg.Scheduler.ScanBatchSize,
		}, scheduler.WorkerDeps{
			Carts:      cartRepo,
			Tasks:      taskRepo,
			Guard:      guard,
			Dispatcher: dispatcher,
			Metrics:    recoveryMetrics,
			Telemetry:  a.telemetry,
			Logger:     a.logger,
		})
	}

	if a.runServer {
		analyzer := citation.NewAnalyzer(cfg.Citation.ContextRadius)
		engine := citation.NewEngine(citation.EngineConfig{
			MentionRateThreshold: cfg.Citation.MentionRateThreshold,
			PositionThreshold:    cfg.Citation.PositionThreshold,
		})
		hook := webhook.NewHandler(
			webhook.NewVerifier(cfg.Webhook.Secret), a.tracker, a.telemetry, a.logger)

		var workerStats api.WorkerStats
		if a.worker != nil {
			workerStats = a.worker
		}

		router := api.NewRouter(cfg, api.RouterDeps{
			Tracker:   a.tracker,
			Citations: citationRepo,
			Analyzer:  analyzer,
			Engine:    engine,
			Webhook:   hook,
			Worker:    workerStats,
			DB:        a.db,
			Redis:     a.redis,
			Telemetry: a.telemetry,
			Logger:    a.logger,
		})

		a.httpServer = &http.Server{
			Addr:         cfg.Server.Address,
			Handler:      router.SetupRoutes(),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		}
	}

	return nil
}

// Run starts the enabled components and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	workerCtx, workerCancel := context.WithCancel(ctx)
	defer workerCancel()

	serverErr := make(chan error, 1)

	if a.worker != nil {
		a.logger.Info("Starting recovery worker",
			logger.Duration("scan_interval", a.config.Scheduler.ScanInterval),
			logger.Bool("debug", a.config.Debug),
		)
		a.worker.Start(workerCtx)
	}

	if a.httpServer != nil {
		go func() {
			a.logger.Info("Starting HTTP server",
				logger.String("address", a.httpServer.Addr),
			)
			if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()
	}

	return a.waitForShutdown(ctx, workerCancel, serverErr)
}

// waitForShutdown handles graceful shutdown
func (a *App) waitForShutdown(ctx context.Context, workerCancel context.CancelFunc, serverErr chan error) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var shutdownErr error

	select {
	case sig := <-sigChan:
		a.logger.Info("Shutting down gracefully",
			logger.String("signal", sig.String()),
		)

	case <-ctx.Done():
		a.logger.Info("Shutting down, context cancelled")

	case err := <-serverErr:
		a.logger.Error("Server error", logger.Error(err))
		shutdownErr = err
	}

	workerCancel()
	if a.worker != nil {
		a.worker.Stop()
		a.logger.Info("Worker stopped")
	}
	a.shutdownHTTPServer()

	a.logger.Info("Service stopped")
	return shutdownErr
}

// shutdownHTTPServer gracefully shuts down the HTTP server
func (a *App) shutdownHTTPServer() {
	if a.httpServer == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("Server shutdown error", logger.Error(err))
	} else {
		a.logger.Info("HTTP server stopped")
	}
}

// Close cleans up resources
func (a *App) Close() error {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("Failed to close Redis client", logger.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("Failed to close database", logger.Error(err))
		}
	}
	return a.logger.Sync()
}

// Logger returns the application logger
func (a *App) Logger() logger.Logger {
	return a.logger
}
