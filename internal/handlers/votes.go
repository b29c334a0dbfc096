package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/social-media/backend/internal/middleware"
	"github.com/emilythestrangee/social-media/backend/internal/votes"
)

type VoteHandler struct {
	votes  VoteService
	logger *slog.Logger
}

func NewVoteHandler(v VoteService, logger *slog.Logger) *VoteHandler {
	return &VoteHandler{votes: v, logger: logger}
}

func viewerID(c *gin.Context) string {
	if u := middleware.CurrentUser(c); u != nil {
		return u.ID
	}
	return ""
}

// GetVotes returns likes, dislikes and the caller's own vote
func (h *VoteHandler) GetVotes(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}
	tally, err := h.votes.Tally(c.Request.Context(), id, viewerID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, tally)
}

// VotePost toggles the caller's vote: same value removes it, the other value switches it
func (h *VoteHandler) VotePost(c *gin.Context) {
	var input struct {
		Vote int `json:"vote" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": votes.ErrInvalidValue.Error()})
		return
	}

	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}

	userID := viewerID(c)
	res, err := h.votes.Apply(c.Request.Context(), id, userID, votes.Value(input.Vote))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	tally, err := h.votes.Tally(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Vote " + res.Action.String(),
		"vote":    res.Vote,
		"tally":   tally,
	})
}
