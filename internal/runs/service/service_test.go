package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"outreach_backend/internal/pipeline"
	"outreach_backend/internal/runlog"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/kv"
	"outreach_backend/platform/logger"
)

// blockingRunner holds the run open until released so tests can observe
// the single-run guard.
type blockingRunner struct {
	started chan uuid.UUID
	release chan struct{}
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{
		started: make(chan uuid.UUID, 1),
		release: make(chan struct{}),
	}
}

func (r *blockingRunner) RunAs(ctx context.Context, id uuid.UUID, trigger string) pipeline.RunSummary {
	r.started <- id
	<-r.release
	return pipeline.RunSummary{ID: id, Trigger: trigger, Success: true, Message: "ok"}
}

type memoryHistory struct {
	inserted []runlog.Run
}

func (m *memoryHistory) Insert(ctx context.Context, run runlog.Run) error {
	m.inserted = append(m.inserted, run)
	return nil
}

func (m *memoryHistory) Get(ctx context.Context, id uuid.UUID) (runlog.Run, error) {
	for _, run := range m.inserted {
		if run.ID == id {
			return run, nil
		}
	}
	return runlog.Run{}, apperr.NotFound("run not found")
}

func (m *memoryHistory) List(ctx context.Context, limit int) ([]runlog.Run, error) {
	return m.inserted, nil
}

func (m *memoryHistory) LastSuccessful(ctx context.Context) (runlog.Run, bool, error) {
	for i := len(m.inserted) - 1; i >= 0; i-- {
		if m.inserted[i].Success {
			return m.inserted[i], true, nil
		}
	}
	return runlog.Run{}, false, nil
}

func waitIdle(t *testing.T, svc *Service) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if _, ok := svc.Active(); !ok {
			return
		}
		select {
		case <-deadline:
			t.Fatal("run never finished")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestTrigger_RejectsConcurrentRun(t *testing.T) {
	runner := newBlockingRunner()
	history := &memoryHistory{}
	svc := New(runner, history, kv.NewMemoryStore(), time.Minute, logger.New("development"))

	id, err := svc.Trigger(context.Background(), "api")
	if err != nil {
		t.Fatalf("first trigger: %v", err)
	}
	started := <-runner.started
	if started != id {
		t.Fatalf("pipeline ran under %s, API returned %s", started, id)
	}

	_, err = svc.Trigger(context.Background(), "api")
	var domainErr *apperr.Error
	if !errors.As(err, &domainErr) || domainErr.Kind != apperr.KindConflict {
		t.Fatalf("expected conflict while a run is active, got %v", err)
	}

	active, ok := svc.Active()
	if !ok || active.ID != id {
		t.Fatalf("active run not visible: %v %v", active, ok)
	}

	close(runner.release)
	waitIdle(t, svc)

	if len(history.inserted) != 1 || history.inserted[0].ID != id {
		t.Fatalf("finished run not persisted: %+v", history.inserted)
	}
}

func TestTrigger_AllowsNewRunAfterFinish(t *testing.T) {
	runner := newBlockingRunner()
	svc := New(runner, &memoryHistory{}, kv.NewMemoryStore(), time.Minute, logger.New("development"))

	first, err := svc.Trigger(context.Background(), "api")
	if err != nil {
		t.Fatalf("first trigger: %v", err)
	}
	<-runner.started
	close(runner.release)
	waitIdle(t, svc)

	runner.release = make(chan struct{})
	second, err := svc.Trigger(context.Background(), "api")
	if err != nil {
		t.Fatalf("second trigger after finish: %v", err)
	}
	if second == first {
		t.Fatal("each run needs its own ID")
	}
	<-runner.started
	close(runner.release)
	waitIdle(t, svc)
}

func TestCancel_RequiresActiveRun(t *testing.T) {
	flags := kv.NewMemoryStore()
	runner := newBlockingRunner()
	svc := New(runner, nil, flags, time.Minute, logger.New("development"))

	_, err := svc.Cancel(context.Background())
	var domainErr *apperr.Error
	if !errors.As(err, &domainErr) || domainErr.Kind != apperr.KindNotFound {
		t.Fatalf("cancel with no active run must be not-found, got %v", err)
	}

	id, err := svc.Trigger(context.Background(), "api")
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	<-runner.started

	canceled, err := svc.Cancel(context.Background())
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if canceled != id {
		t.Fatalf("cancel reported %s, active run is %s", canceled, id)
	}
	value, ok, err := flags.Get(context.Background(), kv.KeyCancelRequested)
	if err != nil || !ok || value == "" {
		t.Fatalf("cancel flag not set: %q %v %v", value, ok, err)
	}

	close(runner.release)
	waitIdle(t, svc)
}

func TestHistoryDisabled(t *testing.T) {
	svc := New(newBlockingRunner(), nil, kv.NewMemoryStore(), time.Minute, logger.New("development"))

	_, err := svc.Get(context.Background(), uuid.New())
	var domainErr *apperr.Error
	if !errors.As(err, &domainErr) || domainErr.Kind != apperr.KindUnavailable {
		t.Fatalf("expected unavailable without a database, got %v", err)
	}
	if _, err := svc.List(context.Background(), 10); err == nil {
		t.Fatal("list must fail without a database")
	}
}

func TestExecute_RunsSynchronouslyAndPersists(t *testing.T) {
	runner := newBlockingRunner()
	close(runner.release) // synchronous path should not block
	history := &memoryHistory{}
	svc := New(runner, history, kv.NewMemoryStore(), time.Minute, logger.New("development"))

	summary, err := svc.Execute(context.Background(), "schedule")
	<-runner.started
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !summary.Success || summary.Trigger != "schedule" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(history.inserted) != 1 {
		t.Fatalf("expected one persisted run, got %d", len(history.inserted))
	}
	if _, ok := svc.Active(); ok {
		t.Fatal("execute must clear the active slot before returning")
	}
}
