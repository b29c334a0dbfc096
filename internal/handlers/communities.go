package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

type CommunityHandler struct {
	communities CommunityService
	posts       PostService
	logger      *slog.Logger
}

func NewCommunityHandler(s CommunityService, p PostService, logger *slog.Logger) *CommunityHandler {
	return &CommunityHandler{communities: s, posts: p, logger: logger}
}

func (h *CommunityHandler) GetCommunities(c *gin.Context) {
	list, err := h.communities.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *CommunityHandler) CreateCommunity(c *gin.Context) {
	var input struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	community, err := h.communities.Create(c.Request.Context(), input.Name, input.Description)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, community)
}

func (h *CommunityHandler) GetCommunity(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid community ID"})
		return
	}
	community, err := h.communities.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, community)
}

// GetCommunityPosts lists a community's posts with counts
func (h *CommunityHandler) GetCommunityPosts(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid community ID"})
		return
	}
	if _, err := h.communities.Get(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	list, err := h.posts.ListByCommunity(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
