// Package runlog persists pipeline run summaries so the API can serve
// run history after the fact.
package runlog

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"outreach_backend/internal/compliance"
	"outreach_backend/platform/apperr"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrations exposes the embedded migration files for db.RunMigrations.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Run is one persisted pipeline run.
type Run struct {
	ID            uuid.UUID
	Trigger       string // "api", "schedule"
	StartedAt     time.Time
	FinishedAt    time.Time
	Success       bool
	Partial       bool
	Stoplight     compliance.Stoplight
	Message       string
	LeadsLoaded   int
	LeadsEnriched int
	RowsWritten   int
	Issues        []compliance.Issue
	CreatedAt     time.Time
}

// Repository provides data access for pipeline runs.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a run-history repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores one finished run.
func (r *Repository) Insert(ctx context.Context, run Run) error {
	issues, err := json.Marshal(run.Issues)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "marshal run issues", err).WithOp("runlog.Insert")
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO pipeline_runs
			(id, trigger, started_at, finished_at, success, partial, stoplight, message,
			 leads_loaded, leads_enriched, rows_written, issues)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, run.ID, run.Trigger, run.StartedAt, run.FinishedAt, run.Success, run.Partial,
		string(run.Stoplight), run.Message, run.LeadsLoaded, run.LeadsEnriched, run.RowsWritten, issues)
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "insert pipeline run", err).WithOp("runlog.Insert")
	}
	return nil
}

// Get returns one run by ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Run, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, trigger, started_at, finished_at, success, partial, stoplight, message,
		       leads_loaded, leads_enriched, rows_written, issues, created_at
		FROM pipeline_runs
		WHERE id = $1
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, apperr.NotFound("run not found").WithOp("runlog.Get")
	}
	if err != nil {
		return Run{}, apperr.Wrap(apperr.KindUnavailable, "query pipeline run", err).WithOp("runlog.Get")
	}
	return run, nil
}

// List returns the most recent runs, newest first.
func (r *Repository) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, trigger, started_at, finished_at, success, partial, stoplight, message,
		       leads_loaded, leads_enriched, rows_written, issues, created_at
		FROM pipeline_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "list pipeline runs", err).WithOp("runlog.List")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindUnavailable, "scan pipeline run", err).WithOp("runlog.List")
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LastSuccessful returns the newest successful run, if any.
func (r *Repository) LastSuccessful(ctx context.Context) (Run, bool, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, trigger, started_at, finished_at, success, partial, stoplight, message,
		       leads_loaded, leads_enriched, rows_written, issues, created_at
		FROM pipeline_runs
		WHERE success = true
		ORDER BY started_at DESC
		LIMIT 1
	`)

	run, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, apperr.Wrap(apperr.KindUnavailable, "query last successful run", err).WithOp("runlog.LastSuccessful")
	}
	return run, true, nil
}

// DeleteBefore removes runs that started before the cutoff and returns
// how many were deleted.
func (r *Repository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM pipeline_runs WHERE started_at < $1`, cutoff)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindUnavailable, "delete old pipeline runs", err).WithOp("runlog.DeleteBefore")
	}
	return tag.RowsAffected(), nil
}

func scanRun(row pgx.Row) (Run, error) {
	var run Run
	var stoplight string
	var issues []byte
	err := row.Scan(
		&run.ID, &run.Trigger, &run.StartedAt, &run.FinishedAt, &run.Success, &run.Partial,
		&stoplight, &run.Message, &run.LeadsLoaded, &run.LeadsEnriched, &run.RowsWritten,
		&issues, &run.CreatedAt,
	)
	if err != nil {
		return Run{}, err
	}
	run.Stoplight = compliance.Stoplight(stoplight)
	if len(issues) > 0 {
		if err := json.Unmarshal(issues, &run.Issues); err != nil {
			return Run{}, err
		}
	}
	return run, nil
}
