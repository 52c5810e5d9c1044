package middleware

import (
	"net/http"
	"strings"

	"github.com/go-authgate/codegrant/internal/util"

	"github.com/gin-gonic/gin"
)

const metricsRealm = `Bearer realm="metrics"`

// MetricsAuth protects the metrics endpoint with a static bearer token.
// An empty token disables the check.
func MetricsAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		scheme, provided, ok := strings.Cut(c.GetHeader("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			c.Header("WWW-Authenticate", metricsRealm)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Bearer token required",
			})
			return
		}

		if !util.ConstantTimeEqual(strings.TrimSpace(provided), token) {
			c.Header("WWW-Authenticate", metricsRealm)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Invalid token",
			})
			return
		}

		c.Next()
	}
}
