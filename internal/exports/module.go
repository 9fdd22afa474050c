package exports

import (
	apphttp "outreach_backend/internal/http"
	"outreach_backend/platform/validator"
)

// Module is the archived-exports bounded context implementing
// http.Module.
type Module struct {
	handler *Handler
}

// NewModule creates the exports module. enqueuer may be nil when no
// task queue is configured; triggering archives then returns 503.
func NewModule(presigner DownloadPresigner, enqueuer Enqueuer, bucket string, val *validator.Validator) *Module {
	return &Module{
		handler: NewHandler(presigner, enqueuer, bucket, val),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "exports"
}

// RegisterRoutes mounts the export routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/exports")
	m.handler.RegisterRoutes(group)
}

var _ apphttp.Module = (*Module)(nil)
