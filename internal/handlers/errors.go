package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/social-media/backend/internal/auth"
	"github.com/emilythestrangee/social-media/backend/internal/comments"
	"github.com/emilythestrangee/social-media/backend/internal/communities"
	"github.com/emilythestrangee/social-media/backend/internal/posts"
	"github.com/emilythestrangee/social-media/backend/internal/storage"
	"github.com/emilythestrangee/social-media/backend/internal/votes"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{votes.ErrNotAuthenticated, http.StatusUnauthorized},
	{comments.ErrNotAuthenticated, http.StatusUnauthorized},
	{auth.ErrInvalidState, http.StatusBadRequest},
	{auth.ErrMissingCode, http.StatusBadRequest},

	{posts.ErrImageRequired, http.StatusBadRequest},
	{posts.ErrTitleRequired, http.StatusBadRequest},
	{posts.ErrContentRequired, http.StatusBadRequest},
	{posts.ErrUnsupportedImage, http.StatusBadRequest},
	{votes.ErrInvalidValue, http.StatusBadRequest},
	{votes.ErrInvalidPost, http.StatusBadRequest},
	{communities.ErrNameRequired, http.StatusBadRequest},
	{comments.ErrContentRequired, http.StatusBadRequest},

	{posts.ErrPostNotFound, http.StatusNotFound},
	{votes.ErrPostNotFound, http.StatusNotFound},
	{comments.ErrPostNotFound, http.StatusNotFound},
	{comments.ErrParentNotFound, http.StatusNotFound},
	{communities.ErrCommunityNotFound, http.StatusNotFound},
	{posts.ErrCommunityNotFound, http.StatusNotFound},

	{communities.ErrCommunityExists, http.StatusConflict},
}

// statusFor maps a service error to an HTTP status and a message safe to show.
func statusFor(err error) (int, string) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status, e.err.Error()
		}
	}
	var se *storage.Error
	if errors.As(err, &se) {
		return http.StatusBadGateway, "Failed to upload image"
	}
	return http.StatusInternalServerError, "Something went wrong"
}

func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
	}
	c.JSON(status, gin.H{"error": msg})
}

// parseID reads a positive integer path parameter.
func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// optionalID parses an optional positive integer, treating "" as absent.
func optionalID(raw string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, errors.New("invalid id")
	}
	return &id, nil
}
