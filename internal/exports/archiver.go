package exports

import (
	"context"
	"fmt"
	"io"
	"time"

	"outreach_backend/internal/telephony"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/logger"
)

// Exporter is the slice of the telephony client the archiver needs.
type Exporter interface {
	CreateExport(ctx context.Context, medium telephony.Medium, start, end time.Time) (string, error)
	ExportTask(ctx context.Context, taskID string) (telephony.ExportTask, error)
	DownloadExport(ctx context.Context, downloadURL string) (io.ReadCloser, int64, error)
}

// ObjectStore is the slice of the storage client the archiver needs.
type ObjectStore interface {
	EnsureBucket(ctx context.Context, bucket string) error
	Put(ctx context.Context, bucket, key, contentType string, reader io.Reader, size int64) error
}

// Archiver pulls the previous day's bulk export from the provider and
// stores the archive in object storage.
type Archiver struct {
	exporter     Exporter
	store        ObjectStore
	bucket       string
	tz           *time.Location
	pollInterval time.Duration
	pollTimeout  time.Duration
	log          *logger.Logger
	now          func() time.Time
}

// NewArchiver creates an export archiver.
func NewArchiver(exporter Exporter, store ObjectStore, bucket string, tz *time.Location, log *logger.Logger) *Archiver {
	return &Archiver{
		exporter:     exporter,
		store:        store,
		bucket:       bucket,
		tz:           tz,
		pollInterval: 5 * time.Second,
		pollTimeout:  10 * time.Minute,
		log:          log,
		now:          time.Now,
	}
}

// WithPolling overrides the export-task polling cadence.
func (a *Archiver) WithPolling(interval, timeout time.Duration) *Archiver {
	a.pollInterval = interval
	a.pollTimeout = timeout
	return a
}

// WithClock overrides the time source.
func (a *Archiver) WithClock(now func() time.Time) *Archiver {
	a.now = now
	return a
}

// Archive exports the previous provider-timezone day for one medium
// and uploads the archive. Returns the object key.
func (a *Archiver) Archive(ctx context.Context, medium string) (string, error) {
	m := telephony.Medium(medium)
	if m != telephony.MediumCall && m != telephony.MediumSMS {
		return "", apperr.BadRequest(fmt.Sprintf("unknown export medium %q", medium)).WithOp("exports.Archive")
	}

	now := a.now().In(a.tz)
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, a.tz)
	start := end.AddDate(0, 0, -1)

	taskID, err := a.exporter.CreateExport(ctx, m, start, end)
	if err != nil {
		return "", err
	}
	a.log.Info("export task created", "medium", medium, "task_id", taskID)

	task, err := a.awaitTask(ctx, taskID)
	if err != nil {
		return "", err
	}

	body, size, err := a.exporter.DownloadExport(ctx, task.DownloadURL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	if err := a.store.EnsureBucket(ctx, a.bucket); err != nil {
		return "", apperr.Wrap(apperr.KindUnavailable, "ensure export bucket", err).WithOp("exports.Archive")
	}

	key := fmt.Sprintf("%s/%s.zip", medium, start.Format("2006-01-02"))
	if err := a.store.Put(ctx, a.bucket, key, "application/zip", body, size); err != nil {
		return "", apperr.Wrap(apperr.KindUnavailable, "store export archive", err).WithOp("exports.Archive")
	}
	return key, nil
}

// awaitTask polls until the export completes, fails, or the poll
// budget runs out.
func (a *Archiver) awaitTask(ctx context.Context, taskID string) (telephony.ExportTask, error) {
	deadline := a.now().Add(a.pollTimeout)
	for {
		task, err := a.exporter.ExportTask(ctx, taskID)
		if err != nil {
			return telephony.ExportTask{}, err
		}
		switch task.Status {
		case telephony.ExportComplete:
			if task.DownloadURL == "" {
				return telephony.ExportTask{}, apperr.New(apperr.KindInternal, "completed export has no download url").WithOp("exports.awaitTask")
			}
			return task, nil
		case telephony.ExportFailed:
			return telephony.ExportTask{}, apperr.New(apperr.KindUnavailable, fmt.Sprintf("export task failed: %s", task.Message)).WithOp("exports.awaitTask")
		}

		if a.now().After(deadline) {
			return telephony.ExportTask{}, apperr.New(apperr.KindUnavailable, "export task did not complete in time").WithOp("exports.awaitTask")
		}
		select {
		case <-ctx.Done():
			return telephony.ExportTask{}, ctx.Err()
		case <-time.After(a.pollInterval):
		}
	}
}
