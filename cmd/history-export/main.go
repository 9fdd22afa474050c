package main

import (
	"context"
	"flag"
	"time"

	"outreach_backend/internal/config"
	"outreach_backend/internal/exports"
	"outreach_backend/internal/telephony"
	"outreach_backend/platform/logger"
)

// One-shot CLI: pull yesterday's bulk export from the provider and
// archive it in object storage. Meant for manual backfills; the
// scheduler runs the same job via the exports.archive task.
func main() {
	medium := flag.String("medium", "calls", "export medium: calls or messages")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting history export", "medium", *medium)

	if cfg.ProviderBaseURL == "" {
		panic("PROVIDER_BASE_URL is required")
	}
	if !cfg.IsMinIOEnabled() {
		panic("MINIO_ENDPOINT is required")
	}

	tz, err := time.LoadLocation(cfg.ProviderTimezone)
	if err != nil {
		panic("invalid provider timezone: " + err.Error())
	}

	store, err := exports.NewMinIOStore(cfg)
	if err != nil {
		log.Error("failed to initialize export storage", "error", err)
		panic("failed to initialize export storage: " + err.Error())
	}

	provider := telephony.New(cfg, log)
	archiver := exports.NewArchiver(provider, store, cfg.MinIOExportBucket, tz, log)

	ctx := context.Background()
	key, err := archiver.Archive(ctx, *medium)
	if err != nil {
		log.Error("history export failed", "medium", *medium, "error", err)
		panic("history export failed: " + err.Error())
	}

	log.Info("history export complete", "medium", *medium, "object", key, "bucket", cfg.MinIOExportBucket)
}
