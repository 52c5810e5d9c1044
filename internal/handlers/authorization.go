package handlers

import (
	"errors"
	"maps"
	"net/http"
	"strings"

	"github.com/go-authgate/codegrant/internal/config"
	"github.com/go-authgate/codegrant/internal/core"
	"github.com/go-authgate/codegrant/internal/middleware"
	"github.com/go-authgate/codegrant/internal/services"

	"github.com/gin-gonic/gin"
	"pkt.systems/pslog"
)

const approveDecision = "Approve"

// AuthorizationHandler serves the authorization endpoint: request
// validation, auto-approval and the owner's approve/deny decision.
type AuthorizationHandler struct {
	authorizationService *services.AuthorizationService
	hooks                *services.HookDispatcher
	auth                 AuthSession
	config               *config.Config
	logger               pslog.Logger
	metrics              core.Recorder
}

func NewAuthorizationHandler(
	as *services.AuthorizationService,
	hooks *services.HookDispatcher,
	auth AuthSession,
	cfg *config.Config,
	logger pslog.Logger,
	m core.Recorder,
) *AuthorizationHandler {
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	return &AuthorizationHandler{
		authorizationService: as,
		hooks:                hooks,
		auth:                 auth,
		config:               cfg,
		logger:               logger,
		metrics:              m,
	}
}

// RedirectLegacy keeps the old /oauth entry point working (GET /oauth).
func (h *AuthorizationHandler) RedirectLegacy(c *gin.Context) {
	target := "/authorize"
	if q := c.Request.URL.RawQuery; q != "" {
		target += "?" + q
	}
	c.Redirect(http.StatusMovedPermanently, target)
}

// Authorize handles GET and POST /authorize.
//
// GET validates the request and either auto-approves it or returns the
// serialized approval prompt. POST applies the owner's decision.
//
// The request is validated before the login check so that a malformed
// request is reported without a detour through the login page.
func (h *AuthorizationHandler) Authorize(c *gin.Context) {
	ctx := c.Request.Context()
	req, err := h.authorizationService.BeginAuthorization(ctx, services.AuthorizeParams{
		ResponseType: param(c, "response_type"),
		ClientID:     param(c, "client_id"),
		RedirectURI:  param(c, "redirect_uri"),
		Scope:        param(c, "scope"),
		State:        param(c, "state"),
	})
	if err != nil {
		h.logger.Info("authorize.rejected",
			"client_id", param(c, "client_id"),
			"error", err,
		)
		if req == nil {
			respondError(c, err)
			return
		}
		h.redirectWithError(c, req, err)
		return
	}

	user, ok := h.auth.CurrentUser(c)
	if !ok {
		h.auth.RequireLogin(c)
		return
	}

	ownerModel, ownerID := h.resolveOwner(c, user)
	ev := core.EventContext{
		ClientID:    req.ClientID,
		OwnerModel:  ownerModel,
		OwnerID:     ownerID,
		RedirectURI: req.RedirectURI,
		Scopes:      req.Scopes,
		State:       req.State,
	}

	if c.Request.Method == http.MethodPost {
		if strings.EqualFold(c.PostForm("authorization"), approveDecision) {
			h.approve(c, req, ev, "approved")
			return
		}
		h.deny(c, req, ev)
		return
	}

	autoApprove, err := h.authorizationService.CanAutoApprove(ctx, req, ownerModel, ownerID)
	if err != nil {
		respondError(c, err)
		return
	}
	if autoApprove {
		h.approve(c, req, ev, "auto_approved")
		return
	}

	prompt := gin.H{}
	maps.Copy(prompt, h.hooks.BeforeAuthorize(ctx, ev))
	prompt["user"] = user
	prompt["authParams"] = req
	prompt["csrf_token"] = middleware.GetCSRFToken(c)
	c.JSON(http.StatusOK, prompt)
}

func (h *AuthorizationHandler) approve(
	c *gin.Context,
	req *services.AuthorizationRequest,
	ev core.EventContext,
	decision string,
) {
	redirect, err := h.authorizationService.Approve(c.Request.Context(), req, ev.OwnerModel, ev.OwnerID)
	if err != nil {
		if !errors.Is(err, services.ErrInvalidRequest) {
			h.logger.Error("authorize.approve_failed", "client_id", req.ClientID, "error", err)
		}
		respondError(c, err)
		return
	}
	h.metrics.RecordAuthorizationDecision(decision)
	h.hooks.AfterAuthorize(c.Request.Context(), ev)
	c.Redirect(http.StatusFound, redirect)
}

func (h *AuthorizationHandler) deny(
	c *gin.Context,
	req *services.AuthorizationRequest,
	ev core.EventContext,
) {
	h.metrics.RecordAuthorizationDecision("denied")
	h.hooks.AfterDeny(c.Request.Context(), ev)
	c.Redirect(http.StatusFound, h.authorizationService.Deny(req))
}

// redirectWithError reports a validation error to the client's verified
// redirect_uri.
func (h *AuthorizationHandler) redirectWithError(
	c *gin.Context,
	req *services.AuthorizationRequest,
	err error,
) {
	redirect, rerr := services.ErrorRedirect(req, oauthErrorCode(err), err.Error())
	if rerr != nil {
		respondError(c, err)
		return
	}
	c.Redirect(http.StatusFound, redirect)
}

// resolveOwner returns the owner the grant is issued for. Request overrides
// are only honored when enabled in the configuration.
func (h *AuthorizationHandler) resolveOwner(c *gin.Context, user *core.OwnerRecord) (string, string) {
	ownerModel, ownerID := user.Model, user.ID
	if ownerModel == "" {
		ownerModel = h.config.DefaultOwnerModel
	}
	if !h.config.AllowOwnerOverride {
		return ownerModel, ownerID
	}
	if id := param(c, "owner_id"); id != "" {
		ownerID = id
		ownerModel = h.config.DefaultOwnerModel
	}
	if model := param(c, "owner_model"); model != "" {
		ownerModel = model
	}
	return ownerModel, ownerID
}

// param reads a request parameter, preferring the POST form over the query.
func param(c *gin.Context, key string) string {
	if c.Request.Method == http.MethodPost {
		if v, ok := c.GetPostForm(key); ok {
			return v
		}
	}
	return c.Query(key)
}
