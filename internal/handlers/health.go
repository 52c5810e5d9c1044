package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthChecker is implemented by the store and the revocation cache.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Healthz reports database and revocation cache reachability (GET /healthz).
func Healthz(db, revocationCache HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := gin.H{
			"status":   "healthy",
			"database": "connected",
			"cache":    "connected",
		}
		if err := db.Health(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "unhealthy"
			body["database"] = "disconnected"
		}
		if revocationCache != nil {
			if err := revocationCache.Health(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "unhealthy"
				body["cache"] = "disconnected"
			}
		}
		c.JSON(status, body)
	}
}
