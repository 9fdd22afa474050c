package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"outreach_backend/internal/alerts"
	"outreach_backend/internal/config"
	"outreach_backend/internal/enrich"
	"outreach_backend/internal/exports"
	apphttp "outreach_backend/internal/http"
	"outreach_backend/internal/http/router"
	"outreach_backend/internal/pipeline"
	"outreach_backend/internal/runlog"
	"outreach_backend/internal/runs"
	runservice "outreach_backend/internal/runs/service"
	"outreach_backend/internal/scheduler"
	"outreach_backend/internal/syncer"
	"outreach_backend/internal/telephony"
	"outreach_backend/internal/trackers"
	"outreach_backend/platform/db"
	"outreach_backend/platform/kv"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/sheets"
	"outreach_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var pool *pgxpool.Pool
	var history runservice.History
	var health apphttp.HealthChecker
	if cfg.DatabaseURL != "" {
		if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
			return db.RunMigrations(ctx, cfg, runlog.Migrations())
		}); err != nil {
			log.Error("failed to run database migrations", "error", err)
			panic("failed to run database migrations: " + err.Error())
		}

		if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
			p, err := db.NewPool(ctx, cfg)
			if err != nil {
				return err
			}
			pool = p
			return nil
		}); err != nil {
			log.Error("failed to connect to database", "error", err)
			panic("failed to connect to database: " + err.Error())
		}
		defer pool.Close()
		history = runlog.NewRepository(pool)
		health = db.NewPoolAdapter(pool)
		log.Info("database connection established")
	} else {
		log.Warn("DATABASE_URL not configured; run history disabled")
	}

	var flags kv.Store
	if cfg.RedisURL != "" {
		redisStore, err := kv.NewRedisStore(ctx, cfg.RedisURL, cfg.RedisKeyPrefix)
		if err != nil {
			log.Error("failed to connect to redis", "error", err)
			panic("failed to connect to redis: " + err.Error())
		}
		defer redisStore.Close()
		flags = redisStore
	} else {
		log.Warn("REDIS_URL not configured; sync tokens and cancel flags are in-memory only")
		flags = kv.NewMemoryStore()
	}

	if len(cfg.SheetsCredentialsJSON) == 0 {
		panic("SHEETS_CREDENTIALS_FILE is required")
	}
	store, err := sheets.NewGoogleStore(ctx, cfg.SheetsCredentialsJSON)
	if err != nil {
		log.Error("failed to initialize spreadsheet client", "error", err)
		panic("failed to initialize spreadsheet client: " + err.Error())
	}

	layouts, err := loadLayouts(cfg)
	if err != nil {
		log.Error("failed to load tracker layouts", "error", err)
		panic("failed to load tracker layouts: " + err.Error())
	}

	tz, err := time.LoadLocation(cfg.ProviderTimezone)
	if err != nil {
		log.Error("invalid provider timezone", "tz", cfg.ProviderTimezone, "error", err)
		panic("invalid provider timezone: " + err.Error())
	}

	var logs pipeline.LogSyncer
	if cfg.ProviderBaseURL != "" {
		provider := telephony.New(cfg, log)
		logs = syncer.New(provider, store, flags, log, cfg.SpreadsheetID, tz)
	} else {
		log.Warn("PROVIDER_BASE_URL not configured; log sheets are taken as they are")
	}

	var notifier pipeline.Notifier
	if cfg.MailEnabled {
		sender := alerts.NewSMTPSender(cfg)
		notifier = alerts.New(sender, flags, log, cfg.MailManagerAddress, cfg.MailTestOverrideAddress)
	} else {
		log.Warn("MAIL_ENABLED is false; run reports will not be sent")
	}

	enricher := enrich.New(cfg.Thresholds, nil)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	pipe := pipeline.New(cfg, store, flags, logs, enricher, notifier, layouts, log)

	val := validator.New()
	runsModule := runs.NewModule(pipe, history, flags, cfg.CancelFlagTTL, log, val)

	modules := []apphttp.Module{runsModule}
	if cfg.IsMinIOEnabled() {
		objectStore, err := exports.NewMinIOStore(cfg)
		if err != nil {
			log.Error("failed to initialize export storage", "error", err)
			panic("failed to initialize export storage: " + err.Error())
		}
		var enqueuer exports.Enqueuer
		if cfg.RedisURL != "" {
			queueClient, err := scheduler.NewClient(cfg)
			if err != nil {
				log.Error("failed to initialize task queue client", "error", err)
				panic("failed to initialize task queue client: " + err.Error())
			}
			defer queueClient.Close()
			enqueuer = queueClient
		}
		modules = append(modules, exports.NewModule(objectStore, enqueuer, cfg.MinIOExportBucket, val))
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:  cfg,
		Logger:  log,
		Health:  health,
		Modules: modules,
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func loadLayouts(cfg *config.Config) ([]trackers.Layout, error) {
	if cfg.TrackerLayoutsPath == "" {
		return trackers.DefaultLayouts(), nil
	}
	data, err := os.ReadFile(cfg.TrackerLayoutsPath)
	if err != nil {
		return nil, err
	}
	return trackers.LoadLayouts(data)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
