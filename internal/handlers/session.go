package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-authgate/codegrant/internal/core"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"pkt.systems/pslog"
)

// SessionUserID is the session key under which the host application stores
// the logged-in owner id.
const SessionUserID = "user_id"

// AuthSession resolves the resource owner logged in to the host application.
type AuthSession interface {
	CurrentUser(c *gin.Context) (*core.OwnerRecord, bool)
	RequireLogin(c *gin.Context)
}

// CookieAuthSession reads the owner id from the gin session cookie.
type CookieAuthSession struct {
	users      core.UserStore
	ownerModel string
	loginURL   string
	logger     pslog.Logger
}

func NewCookieAuthSession(
	users core.UserStore,
	ownerModel, loginURL string,
	logger pslog.Logger,
) *CookieAuthSession {
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	return &CookieAuthSession{
		users:      users,
		ownerModel: ownerModel,
		loginURL:   loginURL,
		logger:     logger,
	}
}

func (s *CookieAuthSession) CurrentUser(c *gin.Context) (*core.OwnerRecord, bool) {
	userID, _ := sessions.Default(c).Get(SessionUserID).(string)
	if userID == "" {
		return nil, false
	}

	owner, err := s.users.FindOwner(c.Request.Context(), s.ownerModel, userID)
	if err != nil {
		if !errors.Is(err, core.ErrOwnerNotFound) {
			s.logger.Warn("session.owner.lookup_failed", "owner_id", userID, "error", err)
		}
		return nil, false
	}
	return owner, true
}

// RequireLogin sends the browser to the login page, carrying the current
// request URI so the login flow can return to it.
func (s *CookieAuthSession) RequireLogin(c *gin.Context) {
	target := s.loginURL
	if u, err := url.Parse(s.loginURL); err == nil {
		q := u.Query()
		q.Set("redirect", c.Request.URL.RequestURI())
		u.RawQuery = q.Encode()
		target = u.String()
	}
	c.Redirect(http.StatusFound, target)
	c.Abort()
}
