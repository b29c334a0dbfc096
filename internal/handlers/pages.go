package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/social-media/backend/internal/comments"
	"github.com/emilythestrangee/social-media/backend/internal/middleware"
	"github.com/emilythestrangee/social-media/backend/internal/models"
	"github.com/emilythestrangee/social-media/backend/internal/votes"
)

// PageHandler serves the server-rendered site.
type PageHandler struct {
	posts       PostService
	votes       VoteService
	comments    CommentService
	communities CommunityService
	logger      *slog.Logger
}

func NewPageHandler(s Services, logger *slog.Logger) *PageHandler {
	return &PageHandler{
		posts:       s.Posts,
		votes:       s.Votes,
		comments:    s.Comments,
		communities: s.Communities,
		logger:      logger,
	}
}

type postForm struct {
	Title       string
	Content     string
	CommunityID int64
}

type communityForm struct {
	Name        string
	Description string
}

func page(c *gin.Context, title string, data gin.H) gin.H {
	data["Title"] = title
	data["User"] = middleware.CurrentUser(c)
	return data
}

func (h *PageHandler) renderError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("page failed", "path", c.Request.URL.Path, "error", err)
	}
	c.HTML(status, "error", page(c, "Error", gin.H{"Error": msg}))
}

func (h *PageHandler) notFound(c *gin.Context, what string) {
	c.HTML(http.StatusNotFound, "error", page(c, "Not found", gin.H{"Error": what + " not found"}))
}

func (h *PageHandler) Home(c *gin.Context) {
	list, err := h.posts.List(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.HTML(http.StatusOK, "posts", page(c, "Home", gin.H{"Posts": list}))
}

func (h *PageHandler) CreatePostForm(c *gin.Context) {
	h.renderCreate(c, http.StatusOK, postForm{}, "")
}

func (h *PageHandler) renderCreate(c *gin.Context, status int, form postForm, errMsg string) {
	list, err := h.communities.List(c.Request.Context())
	if err != nil {
		h.logger.Warn("failed to load communities for post form", "error", err)
		list = []models.Community{}
	}
	c.HTML(status, "create", page(c, "Create Post", gin.H{
		"Form":        form,
		"Communities": list,
		"Error":       errMsg,
	}))
}

// CreatePost handles the create-post form. Validation errors re-render the
// form with the user's input kept.
func (h *PageHandler) CreatePost(c *gin.Context) {
	in, img, cleanup, err := readPostForm(c)
	form := postForm{Title: in.Title, Content: in.Content}
	if in.CommunityID != nil {
		form.CommunityID = *in.CommunityID
	}
	if err != nil {
		h.renderCreate(c, http.StatusBadRequest, form, err.Error())
		return
	}
	defer cleanup()

	if in.Author == nil {
		h.renderCreate(c, http.StatusUnauthorized, form, "You must be logged in to create a post")
		return
	}

	post, err := h.posts.Create(c.Request.Context(), in, img)
	if err != nil {
		status, msg := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("failed to create post", "error", err)
		}
		h.renderCreate(c, status, form, msg)
		return
	}
	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/post/%d", post.ID))
}

func (h *PageHandler) Communities(c *gin.Context) {
	list, err := h.communities.List(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.HTML(http.StatusOK, "communities", page(c, "Communities", gin.H{"Communities": list}))
}

func (h *PageHandler) CreateCommunityForm(c *gin.Context) {
	c.HTML(http.StatusOK, "community_create", page(c, "Create Community", gin.H{"Form": communityForm{}}))
}

func (h *PageHandler) CreateCommunity(c *gin.Context) {
	form := communityForm{Name: c.PostForm("name"), Description: c.PostForm("description")}
	if middleware.CurrentUser(c) == nil {
		c.HTML(http.StatusUnauthorized, "community_create", page(c, "Create Community", gin.H{
			"Form":  form,
			"Error": "You must be logged in to create a community",
		}))
		return
	}

	if _, err := h.communities.Create(c.Request.Context(), form.Name, form.Description); err != nil {
		status, msg := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("failed to create community", "error", err)
		}
		c.HTML(status, "community_create", page(c, "Create Community", gin.H{"Form": form, "Error": msg}))
		return
	}
	c.Redirect(http.StatusSeeOther, "/communities")
}

func (h *PageHandler) Community(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.notFound(c, "Community")
		return
	}
	community, err := h.communities.Get(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, err)
		return
	}
	list, err := h.posts.ListByCommunity(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.HTML(http.StatusOK, "posts", page(c, community.Name, gin.H{
		"Heading":     community.Name + " Community Posts",
		"Description": community.Description,
		"Posts":       list,
	}))
}

func (h *PageHandler) Post(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.notFound(c, "Post")
		return
	}
	ctx := c.Request.Context()

	post, err := h.posts.Get(ctx, id)
	if err != nil {
		h.renderError(c, err)
		return
	}
	tally, err := h.votes.Tally(ctx, id, viewerID(c))
	if err != nil {
		h.logger.Warn("failed to load votes", "post", id, "error", err)
		tally = votes.Tally{}
	}
	list, err := h.comments.List(ctx, id)
	if err != nil {
		h.logger.Warn("failed to load comments", "post", id, "error", err)
		list = nil
	}

	c.HTML(http.StatusOK, "post", page(c, post.Title, gin.H{
		"Post":     post,
		"Tally":    tally,
		"Comments": comments.Tree(list),
	}))
}

// Vote handles the like and dislike buttons.
func (h *PageHandler) Vote(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.notFound(c, "Post")
		return
	}
	value, err := strconv.Atoi(c.PostForm("vote"))
	if err != nil {
		h.renderError(c, votes.ErrInvalidValue)
		return
	}
	if _, err := h.votes.Apply(c.Request.Context(), id, viewerID(c), votes.Value(value)); err != nil {
		h.renderError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/post/%d", id))
}

func (h *PageHandler) Comment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.notFound(c, "Post")
		return
	}
	parentID, err := optionalID(c.PostForm("parent_comment_id"))
	if err != nil {
		h.renderError(c, comments.ErrParentNotFound)
		return
	}
	if _, err := h.comments.Create(c.Request.Context(), id, middleware.CurrentUser(c), c.PostForm("content"), parentID); err != nil {
		h.renderError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/post/%d", id))
}
