package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"outreach_backend/internal/pipeline"
	"outreach_backend/internal/syncer"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"
)

// RunExecutor runs the pipeline synchronously under the single-run
// guard.
type RunExecutor interface {
	Execute(ctx context.Context, trigger string) (pipeline.RunSummary, error)
}

// LogSyncer syncs one log sheet against the telephony provider.
type LogSyncer interface {
	Sync(ctx context.Context, sheet syncer.LogSheet) (syncer.Summary, error)
}

// Archiver pulls a provider export archive and stores it. Nil disables
// the archive task.
type Archiver interface {
	Archive(ctx context.Context, medium string) (string, error)
}

type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	runs     RunExecutor
	logs     LogSyncer
	archiver Archiver
	sheets   []syncer.LogSheet
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, runs RunExecutor, logs LogSyncer, archiver Archiver, sheets []syncer.LogSheet, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 1
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:   server,
		mux:      mux,
		runs:     runs,
		logs:     logs,
		archiver: archiver,
		sheets:   sheets,
		log:      log,
	}

	mux.HandleFunc(TaskReconcile, w.handleReconcile)
	mux.HandleFunc(TaskSyncLogs, w.handleSyncLogs)
	mux.HandleFunc(TaskArchiveExports, w.handleArchiveExports)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// handleReconcile runs the full pipeline. A run already being active is
// not a task failure; retrying would just collide again.
func (w *Worker) handleReconcile(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseReconcilePayload(task)
	if err != nil {
		return err
	}
	trigger := payload.Trigger
	if trigger == "" {
		trigger = "schedule"
	}

	summary, err := w.runs.Execute(ctx, trigger)
	var domainErr *apperr.Error
	if errors.As(err, &domainErr) && domainErr.Kind == apperr.KindConflict {
		w.log.Warn("scheduled reconcile skipped, run already active")
		return nil
	}
	if err != nil {
		return err
	}

	if !summary.Success {
		// The failure is already recorded in the run history; a retry
		// would rerun the whole pipeline against a broken workbook.
		w.log.Error("scheduled reconcile failed", "run_id", summary.ID.String(), "message", summary.Message)
		return nil
	}
	w.log.Info("scheduled reconcile complete",
		"run_id", summary.ID.String(),
		"rows_written", summary.RowsWritten,
		"stoplight", string(summary.Stoplight),
	)
	return nil
}

func (w *Worker) handleSyncLogs(ctx context.Context, task *asynq.Task) error {
	if w.logs == nil {
		return nil
	}

	payload, err := ParseSyncLogsPayload(task)
	if err != nil {
		return err
	}

	for _, sheet := range w.sheets {
		if string(sheet.Medium) != payload.Medium {
			continue
		}
		summary, err := w.logs.Sync(ctx, sheet)
		if err != nil {
			return err
		}
		w.log.Info("scheduled log sync complete",
			"medium", payload.Medium,
			"mode", summary.Mode,
			"fetched", summary.Fetched,
			"appended", summary.Appended,
		)
		return nil
	}
	return fmt.Errorf("unknown log medium %q", payload.Medium)
}

func (w *Worker) handleArchiveExports(ctx context.Context, task *asynq.Task) error {
	if w.archiver == nil {
		return nil
	}

	payload, err := ParseArchiveExportsPayload(task)
	if err != nil {
		return err
	}

	key, err := w.archiver.Archive(ctx, payload.Medium)
	if err != nil {
		return err
	}
	w.log.Info("provider export archived", "medium", payload.Medium, "object", key)
	return nil
}
