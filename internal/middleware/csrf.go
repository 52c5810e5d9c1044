package middleware

import (
	"net/http"

	"github.com/go-authgate/codegrant/internal/util"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"pkt.systems/pslog"
)

const (
	csrfTokenKey    = "csrf_token"
	csrfFormField   = "csrf_token"
	csrfHeaderField = "X-CSRF-Token"
)

// CSRF keeps a per-session token and requires it on state-changing requests.
// Safe requests receive the token through GetCSRFToken.
func CSRF(logger pslog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	return func(c *gin.Context) {
		session := sessions.Default(c)

		token, _ := session.Get(csrfTokenKey).(string)
		if token == "" {
			var err error
			token, err = util.CryptoRandomString(64)
			if err != nil {
				logger.Error("csrf.generate_failed", "error", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":             "server_error",
					"error_description": "failed to create session token",
				})
				return
			}
			session.Set(csrfTokenKey, token)
			if err := session.Save(); err != nil {
				logger.Error("csrf.session_save_failed", "error", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":             "server_error",
					"error_description": "failed to save session",
				})
				return
			}
		}
		c.Set(csrfTokenKey, token)

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
		default:
			submitted := c.PostForm(csrfFormField)
			if submitted == "" {
				submitted = c.GetHeader(csrfHeaderField)
			}
			if submitted == "" || !util.ConstantTimeEqual(submitted, token) {
				logger.Warn("csrf.rejected", "client_ip", c.ClientIP(), "path", c.Request.URL.Path)
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"error":             "access_denied",
					"error_description": "CSRF token validation failed",
				})
				return
			}
		}

		c.Next()
	}
}

// GetCSRFToken retrieves the CSRF token from the context
func GetCSRFToken(c *gin.Context) string {
	if token, exists := c.Get(csrfTokenKey); exists {
		if tokenStr, ok := token.(string); ok {
			return tokenStr
		}
	}
	return ""
}
