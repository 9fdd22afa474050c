// Package runs provides the pipeline-run domain module: trigger,
// cancel, and inspect reconciliation runs.
package runs

import (
	"time"

	apphttp "outreach_backend/internal/http"
	"outreach_backend/internal/runs/handler"
	"outreach_backend/internal/runs/service"
	"outreach_backend/platform/kv"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/validator"
)

// Module represents the runs domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates the runs module with all dependencies wired.
// history may be nil when no database is configured.
func NewModule(runner service.Runner, history service.History, flags kv.Store, cancelTTL time.Duration, log *logger.Logger, val *validator.Validator) *Module {
	svc := service.New(runner, history, flags, cancelTTL, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "runs"
}

// Service returns the service layer so the scheduler worker can share
// the single-run guard.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	runs := ctx.Protected.Group("/runs")
	m.handler.RegisterRoutes(runs)
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)
