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
	"outreach_backend/internal/pipeline"
	"outreach_backend/internal/runlog"
	runservice "outreach_backend/internal/runs/service"
	"outreach_backend/internal/scheduler"
	"outreach_backend/internal/syncer"
	"outreach_backend/internal/telephony"
	"outreach_backend/internal/trackers"
	"outreach_backend/platform/db"
	"outreach_backend/platform/kv"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/sheets"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RedisURL == "" {
		panic("REDIS_URL is required for the scheduler")
	}

	var pool *pgxpool.Pool
	var history runservice.History
	var pruner scheduler.RunPruner
	if cfg.DatabaseURL != "" {
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
		repo := runlog.NewRepository(pool)
		history = repo
		pruner = repo
	} else {
		log.Warn("DATABASE_URL not configured; run history disabled")
	}

	redisStore, err := kv.NewRedisStore(ctx, cfg.RedisURL, cfg.RedisKeyPrefix)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}
	defer redisStore.Close()

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

	var provider *telephony.Client
	var logs *syncer.Syncer
	if cfg.ProviderBaseURL != "" {
		provider = telephony.New(cfg, log)
		logs = syncer.New(provider, store, redisStore, log, cfg.SpreadsheetID, tz)
	} else {
		log.Warn("PROVIDER_BASE_URL not configured; sync and archive tasks disabled")
	}

	var notifier pipeline.Notifier
	if cfg.MailEnabled {
		sender := alerts.NewSMTPSender(cfg)
		notifier = alerts.New(sender, redisStore, log, cfg.MailManagerAddress, cfg.MailTestOverrideAddress)
	}

	enricher := enrich.New(cfg.Thresholds, nil)

	var pipelineLogs pipeline.LogSyncer
	if logs != nil {
		pipelineLogs = logs
	}
	pipe := pipeline.New(cfg, store, redisStore, pipelineLogs, enricher, notifier, layouts, log)
	runSvc := runservice.New(pipe, history, redisStore, cfg.CancelFlagTTL, log)

	var archiver scheduler.Archiver
	if provider != nil && cfg.IsMinIOEnabled() {
		objectStore, err := exports.NewMinIOStore(cfg)
		if err != nil {
			log.Error("failed to initialize export storage", "error", err)
			panic("failed to initialize export storage: " + err.Error())
		}
		archiver = exports.NewArchiver(provider, objectStore, cfg.MinIOExportBucket, tz, log)
	}

	if pruner != nil {
		cleanup := scheduler.NewRunHistoryCleanup(pruner, log, 0, 0)
		go cleanup.Run(ctx)
	}

	periodic, err := scheduler.NewPeriodic(cfg, log)
	if err != nil {
		log.Error("failed to initialize periodic scheduler", "error", err)
		panic("failed to initialize periodic scheduler: " + err.Error())
	}
	go periodic.Run(ctx)

	var workerLogs scheduler.LogSyncer
	if logs != nil {
		workerLogs = logs
	}
	worker, err := scheduler.NewWorker(cfg, runSvc, workerLogs, archiver, pipeline.LogSheets(cfg), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
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
