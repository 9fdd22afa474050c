package exports

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"outreach_backend/platform/httpkit"
	"outreach_backend/platform/validator"
)

// DownloadPresigner hands out short-lived download links for archived
// exports.
type DownloadPresigner interface {
	PresignDownload(ctx context.Context, bucket, key string) (string, error)
}

// Enqueuer queues an archive job. Nil when the task queue is not
// configured.
type Enqueuer interface {
	EnqueueArchiveExports(ctx context.Context, medium string) error
}

type archiveRequest struct {
	Medium string `json:"medium" validate:"required,oneof=calls messages"`
}

// Handler serves the archived-export endpoints.
type Handler struct {
	presigner DownloadPresigner
	enqueuer  Enqueuer
	bucket    string
	val       *validator.Validator
}

// NewHandler creates an exports handler.
func NewHandler(presigner DownloadPresigner, enqueuer Enqueuer, bucket string, val *validator.Validator) *Handler {
	return &Handler{presigner: presigner, enqueuer: enqueuer, bucket: bucket, val: val}
}

// RegisterRoutes registers the export routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.TriggerArchive)
	rg.GET("/:medium/:date/download", h.Download)
}

// TriggerArchive queues an archive job for one medium.
func (h *Handler) TriggerArchive(c *gin.Context) {
	if h.enqueuer == nil {
		httpkit.Error(c, http.StatusServiceUnavailable, "task queue not configured", nil)
		return
	}

	var req archiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	if err := h.enqueuer.EnqueueArchiveExports(c.Request.Context(), req.Medium); err != nil {
		httpkit.Error(c, http.StatusServiceUnavailable, "enqueue archive job", nil)
		return
	}
	httpkit.Accepted(c, gin.H{"medium": req.Medium, "status": "queued"})
}

// Download returns a presigned link for one archived day.
func (h *Handler) Download(c *gin.Context) {
	medium := c.Param("medium")
	if medium != "calls" && medium != "messages" {
		httpkit.Error(c, http.StatusBadRequest, "unknown medium", nil)
		return
	}
	date := c.Param("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "date must be YYYY-MM-DD", nil)
		return
	}

	key := medium + "/" + date + ".zip"
	url, err := h.presigner.PresignDownload(c.Request.Context(), h.bucket, key)
	if err != nil {
		httpkit.Error(c, http.StatusNotFound, "archive not available", nil)
		return
	}
	httpkit.OK(c, gin.H{"url": url, "expiresIn": int(PresignedDownloadTTL.Seconds())})
}
