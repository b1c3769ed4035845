package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthHandler checks the health status of the service
// @Summary      Health check
// @Description  Reports whether the target database answers a ping and the age of the shared assistant. The assistant is not created here.
// @Tags         Health
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "Service health status"
// @Failure      503  {object}  map[string]interface{}  "Database unreachable"
// @Router       /health [get]
func (h *Handlers) HealthHandler(c *gin.Context) {
	status := gin.H{
		"status":     "healthy",
		"database":   "connected",
		"assistant":  "not_created",
		"generation": h.pipeline.Holder().Generation(),
	}
	code := http.StatusOK

	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := h.pinger.Ping(ctx); err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
			code = http.StatusServiceUnavailable
		}
	}

	if created := h.pipeline.Holder().CreatedAt(); !created.IsZero() {
		status["assistant"] = "ready"
		status["assistant_created_at"] = created.Format(time.RFC3339)
	}

	c.JSON(code, status)
}
