package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"

	"github.com/emilythestrangee/social-media/backend/internal/auth"
	"github.com/emilythestrangee/social-media/backend/internal/models"
)

const (
	userKey      = "user"
	userIDKey    = "user_id"
	sessionIDKey = "session_id"
)

// Authenticator resolves a session token to its session id and user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, *models.User, error)
}

// AuthMiddleware attaches the signed-in user to the request when a valid
// bearer token or session cookie is present. Anonymous requests pass through.
func AuthMiddleware(a Authenticator, store sessions.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" && store != nil {
			token = auth.CookieToken(store, c.Request)
		}
		if token == "" {
			c.Next()
			return
		}

		sessionID, user, err := a.Authenticate(c.Request.Context(), token)
		if err != nil {
			slog.Debug("ignoring session token", "path", c.FullPath(), "error", err)
			c.Next()
			return
		}

		c.Set(userKey, user)
		c.Set(userIDKey, user.ID)
		c.Set(sessionIDKey, sessionID)
		c.Next()
	}
}

// RequireUser rejects anonymous requests.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the signed-in user, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// SessionID returns the id of the request's session, or "".
func SessionID(c *gin.Context) string {
	return c.GetString(sessionIDKey)
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
