package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

const testMetricsToken = "test-secret-token-123"

func TestMetricsAuth(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"no token configured", "", "", http.StatusOK, "metrics"},
		{"valid token", testMetricsToken, "Bearer " + testMetricsToken, http.StatusOK, "metrics"},
		{"lowercase scheme", testMetricsToken, "bearer " + testMetricsToken, http.StatusOK, "metrics"},
		{"wrong token", testMetricsToken, "Bearer wrong-token", http.StatusUnauthorized, "Invalid token"},
		{"empty token", testMetricsToken, "Bearer ", http.StatusUnauthorized, "Invalid token"},
		{"missing header", testMetricsToken, "", http.StatusUnauthorized, "Bearer token required"},
		{"basic scheme", testMetricsToken, "Basic dGVzdDp0ZXN0", http.StatusUnauthorized, "Bearer token required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			r := gin.New()
			r.GET("/metrics", MetricsAuth(tt.configured), func(c *gin.Context) {
				c.String(http.StatusOK, "metrics")
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, `Bearer realm="metrics"`, w.Header().Get("WWW-Authenticate"))
			}
		})
	}
}
