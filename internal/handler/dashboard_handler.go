package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-roster-api/internal/dto"
	"github.com/noah-isme/sma-roster-api/internal/middleware"
	"github.com/noah-isme/sma-roster-api/pkg/response"
)

type dashboardService interface {
	State(ctx context.Context, professorID string) (*dto.DashboardResponse, error)
	Refresh(ctx context.Context, professorID string) (*dto.RefreshResult, error)
	DismissAlert(ctx context.Context, professorID, alertID string) error
}

type syncSubscriber interface {
	Subscribe(ctx context.Context, professorID string) (<-chan dto.SyncEvent, func())
}

const streamKeepAlive = 25 * time.Second

// DashboardHandler serves the professor dashboard and its change stream.
type DashboardHandler struct {
	service dashboardService
	sync    syncSubscriber
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService, sync syncSubscriber) *DashboardHandler {
	return &DashboardHandler{service: service, sync: sync}
}

// State godoc
// @Summary Current dashboard
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) State(c *gin.Context) {
	professor, ok := professorID(c)
	if !ok {
		return
	}
	state, err := h.service.State(c.Request.Context(), professor)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "version", state.Version)
	withMeta(c, http.StatusOK, state)
}

// Refresh godoc
// @Summary Rebuild the dashboard from stored enrollments
// @Description The result is discarded (applied=false) when an import overlaps the refresh.
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/refresh [post]
func (h *DashboardHandler) Refresh(c *gin.Context) {
	professor, ok := professorID(c)
	if !ok {
		return
	}
	result, err := h.service.Refresh(c.Request.Context(), professor)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "applied", result.Applied)
	withMeta(c, http.StatusOK, result)
}

// DismissAlert godoc
// @Summary Dismiss an alert
// @Tags Dashboard
// @Param id path string true "Alert ID"
// @Success 204
// @Router /dashboard/alerts/{id}/dismiss [post]
func (h *DashboardHandler) DismissAlert(c *gin.Context) {
	professor, ok := professorID(c)
	if !ok {
		return
	}
	if err := h.service.DismissAlert(c.Request.Context(), professor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Stream godoc
// @Summary Dashboard change events
// @Description Server-sent events; each event carries the professor's sync generation and a reason.
// @Tags Dashboard
// @Produce text/event-stream
// @Param access_token query string false "Bearer token for EventSource clients"
// @Success 200
// @Router /dashboard/stream [get]
func (h *DashboardHandler) Stream(c *gin.Context) {
	professor, ok := professorID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	events, cancel := h.sync.Subscribe(ctx, professor)
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("ready", gin.H{"professorId": professor})
	c.Writer.Flush()

	ticker := time.NewTicker(streamKeepAlive)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case event, open := <-events:
			if !open {
				return false
			}
			c.SSEvent("sync", event)
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().UTC().Unix())
			return true
		}
	})
}
