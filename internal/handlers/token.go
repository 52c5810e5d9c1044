package handlers

import (
	"errors"
	"net/http"

	"github.com/go-authgate/codegrant/internal/middleware"
	"github.com/go-authgate/codegrant/internal/services"
	"github.com/go-authgate/codegrant/internal/store"

	"github.com/gin-gonic/gin"
	"pkt.systems/pslog"
)

type TokenHandler struct {
	authorizationService *services.AuthorizationService
	guard                *services.ResourceGuard
	logger               pslog.Logger
}

func NewTokenHandler(
	as *services.AuthorizationService,
	guard *services.ResourceGuard,
	logger pslog.Logger,
) *TokenHandler {
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	return &TokenHandler{
		authorizationService: as,
		guard:                guard,
		logger:               logger,
	}
}

// Token issues tokens for the authorization_code and refresh_token grants
// (POST /token, POST /accessToken).
func (h *TokenHandler) Token(c *gin.Context) {
	clientID, clientSecret := clientCredentials(c)

	resp, err := h.authorizationService.ExchangeGrant(c.Request.Context(), services.TokenRequest{
		GrantType:    c.PostForm("grant_type"),
		Code:         c.PostForm("code"),
		RedirectURI:  c.PostForm("redirect_uri"),
		RefreshToken: c.PostForm("refresh_token"),
		Scope:        c.PostForm("scope"),
		ClientID:     clientID,
		ClientSecret: clientSecret,
	})

	// RFC 6749 §5.1
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")

	if err != nil {
		if errors.Is(err, store.ErrStorageUnavailable) {
			h.logger.Error("token.storage_unavailable", "client_id", clientID, "error", err)
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Revoke revokes the session behind a token (POST /revoke, RFC 7009).
// Unknown tokens still yield 200.
func (h *TokenHandler) Revoke(c *gin.Context) {
	clientID, clientSecret := clientCredentials(c)

	err := h.authorizationService.RevokeToken(
		c.Request.Context(),
		clientID,
		clientSecret,
		c.PostForm("token"),
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// Me returns the identity and owner behind the bearer token (GET /me).
// Must run behind middleware.BearerAuth.
func (h *TokenHandler) Me(c *gin.Context) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		respondError(c, services.ErrMissingToken)
		return
	}

	owner, err := h.guard.ResolveOwner(c.Request.Context(), id)
	if err != nil {
		h.logger.Warn("me.owner_unresolved",
			"owner_model", id.OwnerModel,
			"owner_id", id.OwnerID,
			"error", err,
		)
		c.JSON(http.StatusOK, gin.H{"identity": id})
		return
	}
	c.JSON(http.StatusOK, gin.H{"identity": id, "owner": owner})
}

// clientCredentials prefers HTTP Basic auth and falls back to form fields.
func clientCredentials(c *gin.Context) (string, string) {
	if id, secret, ok := c.Request.BasicAuth(); ok {
		return id, secret
	}
	return c.PostForm("client_id"), c.PostForm("client_secret")
}
