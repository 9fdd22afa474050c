// Package handler exposes the runs API over HTTP.
package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"outreach_backend/internal/runs/service"
	"outreach_backend/internal/runs/transport"
	"outreach_backend/platform/httpkit"
	"outreach_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for pipeline runs.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a runs handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the run routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Trigger)
	rg.GET("", h.List)
	rg.GET("/active", h.Active)
	rg.GET("/last-successful", h.LastSuccessful)
	rg.GET("/:id", h.GetByID)
	rg.POST("/cancel", h.Cancel)
}

// Trigger starts a run and responds immediately with its ID.
func (h *Handler) Trigger(c *gin.Context) {
	var req transport.TriggerRunRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	trigger := req.Trigger
	if trigger == "" {
		trigger = "api"
	}

	id, err := h.svc.Trigger(c.Request.Context(), trigger)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Accepted(c, transport.TriggerRunResponse{
		RunID:   id.String(),
		Status:  "started",
		Trigger: trigger,
	})
}

// List returns recent runs, newest first.
func (h *Handler) List(c *gin.Context) {
	var req transport.ListRunsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	runs, err := h.svc.List(c.Request.Context(), req.Limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"runs": transport.ToRunResponses(runs)})
}

// Active reports the run currently executing, or 404.
func (h *Handler) Active(c *gin.Context) {
	active, ok := h.svc.Active()
	if !ok {
		httpkit.Error(c, http.StatusNotFound, "no run in progress", nil)
		return
	}
	httpkit.OK(c, transport.ToActiveRunResponse(active))
}

// LastSuccessful returns the newest successful run, or 404.
func (h *Handler) LastSuccessful(c *gin.Context) {
	run, ok, err := h.svc.LastSuccessful(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	if !ok {
		httpkit.Error(c, http.StatusNotFound, "no successful run recorded", nil)
		return
	}
	httpkit.OK(c, transport.ToRunResponse(run))
}

// GetByID returns one historical run.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid run id", nil)
		return
	}

	run, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToRunResponse(run))
}

// Cancel requests cooperative cancellation of the active run.
func (h *Handler) Cancel(c *gin.Context) {
	id, err := h.svc.Cancel(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Accepted(c, gin.H{"runId": id.String(), "status": "cancel_requested"})
}
