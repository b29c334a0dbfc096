package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/social-media/backend/internal/comments"
	"github.com/emilythestrangee/social-media/backend/internal/middleware"
)

type CommentHandler struct {
	comments CommentService
	logger   *slog.Logger
}

func NewCommentHandler(s CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{comments: s, logger: logger}
}

// GetComments returns the comments of a post as a reply tree
func (h *CommentHandler) GetComments(c *gin.Context) {
	postID, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}
	list, err := h.comments.List(c.Request.Context(), postID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, comments.Tree(list))
}

// CreateComment creates a new comment or reply on a post
func (h *CommentHandler) CreateComment(c *gin.Context) {
	var input struct {
		Content         string `json:"content" binding:"required"`
		ParentCommentID *int64 `json:"parent_comment_id"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	postID, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}

	comment, err := h.comments.Create(c.Request.Context(), postID, middleware.CurrentUser(c), input.Content, input.ParentCommentID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}
