// Package service coordinates pipeline runs: one run at a time,
// triggered from the API or the scheduler, with history persisted when
// a database is configured.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"outreach_backend/internal/pipeline"
	"outreach_backend/internal/runlog"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/kv"
	"outreach_backend/platform/logger"
)

// Runner is the slice of the pipeline the service needs.
type Runner interface {
	RunAs(ctx context.Context, id uuid.UUID, trigger string) pipeline.RunSummary
}

// History is the persisted run store. Nil means history is disabled.
type History interface {
	Insert(ctx context.Context, run runlog.Run) error
	Get(ctx context.Context, id uuid.UUID) (runlog.Run, error)
	List(ctx context.Context, limit int) ([]runlog.Run, error)
	LastSuccessful(ctx context.Context) (runlog.Run, bool, error)
}

// ActiveRun describes the run currently executing, if any.
type ActiveRun struct {
	ID        uuid.UUID
	Trigger   string
	StartedAt time.Time
}

// Service serializes pipeline runs. Trigger hands back a run ID
// immediately and executes the pipeline in the background; a second
// trigger while a run is active is a conflict, not a queue.
type Service struct {
	runner    Runner
	history   History
	flags     kv.Store
	log       *logger.Logger
	cancelTTL time.Duration

	mu     sync.Mutex
	active *ActiveRun
}

// New creates the run service. history may be nil when no database is
// configured; Get and List then report the feature as unavailable.
func New(runner Runner, history History, flags kv.Store, cancelTTL time.Duration, log *logger.Logger) *Service {
	return &Service{
		runner:    runner,
		history:   history,
		flags:     flags,
		log:       log,
		cancelTTL: cancelTTL,
	}
}

// Trigger starts a run in the background and returns its ID. Returns a
// conflict error while another run is active.
func (s *Service) Trigger(ctx context.Context, trigger string) (uuid.UUID, error) {
	s.mu.Lock()
	if s.active != nil {
		active := *s.active
		s.mu.Unlock()
		return uuid.Nil, apperr.Conflict("a run is already in progress").
			WithOp("runs.Trigger").
			WithDetails(map[string]string{"active_run_id": active.ID.String()})
	}
	id := uuid.New()
	s.active = &ActiveRun{ID: id, Trigger: trigger, StartedAt: time.Now()}
	s.mu.Unlock()

	// The run outlives the HTTP request that triggered it.
	go s.execute(context.WithoutCancel(ctx), id, trigger)
	return id, nil
}

// Execute runs the pipeline synchronously under the same single-run
// guard. The scheduler worker uses this so asynq owns retry semantics.
func (s *Service) Execute(ctx context.Context, trigger string) (pipeline.RunSummary, error) {
	s.mu.Lock()
	if s.active != nil {
		s.mu.Unlock()
		return pipeline.RunSummary{}, apperr.Conflict("a run is already in progress").WithOp("runs.Execute")
	}
	id := uuid.New()
	s.active = &ActiveRun{ID: id, Trigger: trigger, StartedAt: time.Now()}
	s.mu.Unlock()

	return s.execute(ctx, id, trigger), nil
}

func (s *Service) execute(ctx context.Context, id uuid.UUID, trigger string) pipeline.RunSummary {
	defer func() {
		s.mu.Lock()
		s.active = nil
		s.mu.Unlock()
	}()

	summary := s.runner.RunAs(ctx, id, trigger)
	s.persist(ctx, summary)
	return summary
}

// persist records the finished run. History failures are logged, not
// returned: the run itself already happened.
func (s *Service) persist(ctx context.Context, summary pipeline.RunSummary) {
	if s.history == nil {
		return
	}
	run := runlog.Run{
		ID:            summary.ID,
		Trigger:       summary.Trigger,
		StartedAt:     summary.StartedAt,
		FinishedAt:    summary.Finished,
		Success:       summary.Success,
		Partial:       summary.Partial,
		Stoplight:     summary.Stoplight,
		Message:       summary.Message,
		LeadsLoaded:   summary.LeadsLoaded,
		LeadsEnriched: summary.LeadsEnriched,
		RowsWritten:   summary.RowsWritten,
		Issues:        summary.Report.Issues,
	}
	if err := s.history.Insert(ctx, run); err != nil {
		s.log.Error("persist run history failed", "run_id", summary.ID.String(), "error", err)
	}
}

// Active returns the currently executing run, if any.
func (s *Service) Active() (ActiveRun, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return ActiveRun{}, false
	}
	return *s.active, true
}

// Cancel requests cooperative cancellation of the active run.
func (s *Service) Cancel(ctx context.Context) (uuid.UUID, error) {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	if active == nil {
		return uuid.Nil, apperr.NotFound("no run in progress").WithOp("runs.Cancel")
	}
	if err := pipeline.RequestCancel(ctx, s.flags, s.cancelTTL); err != nil {
		return uuid.Nil, apperr.Wrap(apperr.KindUnavailable, "set cancel flag", err).WithOp("runs.Cancel")
	}
	s.log.Info("run cancellation requested", "run_id", active.ID.String())
	return active.ID, nil
}

// Get returns one historical run.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (runlog.Run, error) {
	if s.history == nil {
		return runlog.Run{}, apperr.New(apperr.KindUnavailable, "run history not configured").WithOp("runs.Get")
	}
	return s.history.Get(ctx, id)
}

// List returns recent runs, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]runlog.Run, error) {
	if s.history == nil {
		return nil, apperr.New(apperr.KindUnavailable, "run history not configured").WithOp("runs.List")
	}
	return s.history.List(ctx, limit)
}

// LastSuccessful returns the newest successful run.
func (s *Service) LastSuccessful(ctx context.Context) (runlog.Run, bool, error) {
	if s.history == nil {
		return runlog.Run{}, false, apperr.New(apperr.KindUnavailable, "run history not configured").WithOp("runs.LastSuccessful")
	}
	return s.history.LastSuccessful(ctx)
}
