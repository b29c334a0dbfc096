package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/emilythestrangee/social-media/backend/internal/auth"
	"github.com/emilythestrangee/social-media/backend/internal/middleware"
)

type AuthHandler struct {
	sessions SessionManager
	cookies  sessions.Store
	logger   *slog.Logger
}

func NewAuthHandler(m SessionManager, cookies sessions.Store, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{sessions: m, cookies: cookies, logger: logger}
}

// GitHubLogin redirects to GitHub's consent page
func (h *AuthHandler) GitHubLogin(c *gin.Context) {
	state := uuid.NewString()
	if err := auth.SaveState(h.cookies, c.Writer, c.Request, state); err != nil {
		h.logger.Error("failed to save oauth state", "error", err)
		c.HTML(http.StatusInternalServerError, "error", gin.H{"Title": "Sign in", "Error": "Could not start sign-in"})
		return
	}
	c.Redirect(http.StatusFound, h.sessions.SignInURL(state))
}

// GitHubCallback completes the OAuth flow and stores the session cookie
func (h *AuthHandler) GitHubCallback(c *gin.Context) {
	if reason := c.Query("error"); reason != "" {
		c.HTML(http.StatusBadRequest, "error", gin.H{"Title": "Sign in", "Error": "GitHub sign-in failed: " + reason})
		return
	}
	if err := auth.CheckState(h.cookies, c.Request, c.Query("state")); err != nil {
		h.renderAuthError(c, err)
		return
	}

	session, token, err := h.sessions.CompleteSignIn(c.Request.Context(), c.Query("code"))
	if err != nil {
		h.renderAuthError(c, err)
		return
	}
	if err := auth.SaveCookieToken(h.cookies, c.Writer, c.Request, token); err != nil {
		h.logger.Error("failed to save session cookie", "session", session.ID, "error", err)
		c.HTML(http.StatusInternalServerError, "error", gin.H{"Title": "Sign in", "Error": "Could not save your session"})
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) renderAuthError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("sign-in failed", "error", err)
		status, msg = http.StatusBadGateway, "GitHub sign-in failed"
	}
	c.HTML(status, "error", gin.H{"Title": "Sign in", "Error": msg})
}

// GetSession returns the signed-in user, or null
func (h *AuthHandler) GetSession(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusOK, gin.H{"user": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":       user,
		"session_id": middleware.SessionID(c),
	})
}

// signOut ends the session locally even when the store cannot be reached.
func (h *AuthHandler) signOut(c *gin.Context) {
	if id := middleware.SessionID(c); id != "" {
		if err := h.sessions.SignOut(c.Request.Context(), id); err != nil {
			h.logger.Warn("sign-out did not reach the session store", "session", id, "error", err)
		}
	}
	if err := auth.ClearCookie(h.cookies, c.Writer, c.Request); err != nil {
		h.logger.Warn("failed to clear session cookie", "error", err)
	}
}

// SignOut handles the JSON API sign-out
func (h *AuthHandler) SignOut(c *gin.Context) {
	h.signOut(c)
	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}

// SignOutPage handles the navbar sign-out form
func (h *AuthHandler) SignOutPage(c *gin.Context) {
	h.signOut(c)
	c.Redirect(http.StatusSeeOther, "/")
}
