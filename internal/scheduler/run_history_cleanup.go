package scheduler

import (
	"context"
	"time"

	"outreach_backend/platform/logger"
)

const (
	defaultRunHistoryCleanupInterval = time.Hour
	defaultRunHistoryRetention       = 90 * 24 * time.Hour
)

// RunPruner deletes persisted runs older than the cutoff.
type RunPruner interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RunHistoryCleanup periodically trims old pipeline runs so the
// history table does not grow without bound.
type RunHistoryCleanup struct {
	pruner    RunPruner
	log       *logger.Logger
	interval  time.Duration
	retention time.Duration
}

func NewRunHistoryCleanup(pruner RunPruner, log *logger.Logger, interval, retention time.Duration) *RunHistoryCleanup {
	if interval <= 0 {
		interval = defaultRunHistoryCleanupInterval
	}
	if retention <= 0 {
		retention = defaultRunHistoryRetention
	}

	return &RunHistoryCleanup{
		pruner:    pruner,
		log:       log,
		interval:  interval,
		retention: retention,
	}
}

func (c *RunHistoryCleanup) Run(ctx context.Context) {
	if c == nil || c.pruner == nil {
		return
	}

	c.cleanup(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

func (c *RunHistoryCleanup) cleanup(ctx context.Context) {
	cutoff := time.Now().Add(-c.retention)

	deleted, err := c.pruner.DeleteBefore(ctx, cutoff)
	if err != nil {
		c.log.Warn("run history cleanup failed", "error", err)
		return
	}

	if deleted > 0 {
		c.log.Info("run history cleanup deleted old runs", "deleted", deleted)
	}
}
