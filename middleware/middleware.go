package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ariebrainware/clinic-app/service"
	"github.com/ariebrainware/clinic-app/util"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "session_token"

// SessionResolver resolves a session token to the logged-in user.
type SessionResolver interface {
	CurrentUser(ctx context.Context, token string) (service.Identity, bool)
}

// SecurityHeaders sets the response headers every HTML page carries.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "same-origin")
		c.Next()
	}
}

// LoadUser attaches the logged-in user, if any, to the request context.
func LoadUser(auth SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, ok := resolve(c, auth); ok {
			setIdentity(c, id)
		}
		c.Next()
	}
}

// RequireLogin lets authenticated requests through and redirects everyone
// else to the login page, remembering where they were going.
func RequireLogin(auth SessionResolver, security *util.SecurityLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := resolve(c, auth)
		if !ok {
			security.LogUnauthorizedAccess(c.ClientIP(), c.Request.URL.Path, "no valid session")
			util.SetFlash(c, util.Flash{Category: "warning", Message: "Faça login para acessar esta página."})
			c.Redirect(http.StatusSeeOther, "/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		setIdentity(c, id)
		c.Next()
	}
}

func resolve(c *gin.Context, auth SessionResolver) (service.Identity, bool) {
	token, err := c.Cookie(SessionCookieName)
	if err != nil || token == "" {
		return service.Identity{}, false
	}
	return auth.CurrentUser(c.Request.Context(), token)
}

func setIdentity(c *gin.Context, id service.Identity) {
	c.Set(util.UserIDContextKey, id.UserID)
	c.Set(util.UsernameContextKey, id.Username)
}

// GetUserID returns the logged-in user's id from the context.
func GetUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(util.UserIDContextKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// GetUsername returns the logged-in user's name, or "".
func GetUsername(c *gin.Context) string {
	return c.GetString(util.UsernameContextKey)
}

// Recovery turns a panic into the generic error page.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Interface("panic", recovered).
			Msg("request panicked")
		util.CallServerError(c, util.ViewErrorParams{Err: fmt.Errorf("panic: %v", recovered)})
		c.Abort()
	})
}
