package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type HealthHandler struct {
	logger    *zap.Logger
	clock     clockwork.Clock
	startTime time.Time
}

func NewHealthHandler(logger *zap.Logger, clock clockwork.Clock) *HealthHandler {
	return &HealthHandler{
		logger:    logger,
		clock:     clock,
		startTime: clock.Now(),
	}
}

func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "alive",
		Uptime: h.clock.Since(h.startTime).String(),
	})
}

// Readiness is always ready: every request fetches from the remote site afresh,
// so there is nothing to warm up.
func (h *HealthHandler) Readiness(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "ready",
		Uptime: h.clock.Since(h.startTime).String(),
	})
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Uptime:    h.clock.Since(h.startTime).String(),
		Timestamp: h.clock.Now().UTC().Format(time.RFC3339),
	})
}
