package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/stproxy/models"
)

// Prober reports driver load and remote-target reachability.
type Prober interface {
	Stats() models.SessionStats
	ProbeTarget(ctx context.Context) models.TargetStatus
}

// Health returns a handler for GET /api/v1/health.
//
// Reports in-flight sessions and the (cached) target reachability probe.
// Status degrades when the target is unreachable; the service itself is
// still up, so this never returns a non-200.
func Health(p Prober, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		target := p.ProbeTarget(c.Request.Context())

		status := "healthy"
		if !target.Reachable {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:   status,
			Uptime:   time.Since(startTime).Round(time.Second).String(),
			Sessions: p.Stats(),
			Target:   target,
			Version:  "0.1.0",
		})
	}
}
