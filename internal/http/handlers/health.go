package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	ping     func() error
	draining func() bool
}

// NewHealthHandler builds the probes. draining may be nil; when it reports
// true the readiness probe fails so load balancers stop routing here.
func NewHealthHandler(ping func() error, draining func() bool) *HealthHandler {
	return &HealthHandler{ping: ping, draining: draining}
}

// GET /api/health
func (h *HealthHandler) Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GET /api/ready
func (h *HealthHandler) Ready(ctx *gin.Context) {
	if h.draining != nil && h.draining() {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "shutting_down"})
		return
	}

	if h.ping != nil {
		if err := h.ping(); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
			return
		}
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready"})
}
