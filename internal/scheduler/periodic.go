package scheduler

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"outreach_backend/internal/activity"
	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"
)

// Periodic enqueues the recurring tasks: log syncs on the sync cron and
// a full reconciliation run on the reconcile cron.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
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

	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{})

	if spec := cfg.GetSyncCron(); spec != "" {
		for _, medium := range []activity.Medium{activity.MediumCall, activity.MediumSMS} {
			task, err := NewSyncLogsTask(SyncLogsPayload{Medium: string(medium)})
			if err != nil {
				return nil, err
			}
			if _, err := scheduler.Register(spec, task, asynq.Queue(queue)); err != nil {
				return nil, fmt.Errorf("register %s sync: %w", medium, err)
			}
		}
	}

	if spec := cfg.GetReconcileCron(); spec != "" {
		task, err := NewReconcileTask(ReconcilePayload{Trigger: "schedule"})
		if err != nil {
			return nil, err
		}
		if _, err := scheduler.Register(spec, task, asynq.Queue(queue)); err != nil {
			return nil, fmt.Errorf("register reconcile: %w", err)
		}
	}

	return &Periodic{scheduler: scheduler, log: log}, nil
}

func (p *Periodic) Run(ctx context.Context) {
	if p == nil || p.scheduler == nil {
		return
	}

	go func() {
		<-ctx.Done()
		p.scheduler.Shutdown()
	}()

	if err := p.scheduler.Run(); err != nil {
		p.log.Error("periodic scheduler stopped", "error", err)
	}
}
