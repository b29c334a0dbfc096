package handlers

import (
	"errors"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/social-media/backend/internal/middleware"
	"github.com/emilythestrangee/social-media/backend/internal/posts"
)

// maxUploadSize bounds the multipart body of a new post.
const maxUploadSize = 10 << 20

type PostHandler struct {
	posts  PostService
	logger *slog.Logger
}

func NewPostHandler(p PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: p, logger: logger}
}

// GetPosts returns all posts with like and comment counts, newest first
func (h *PostHandler) GetPosts(c *gin.Context) {
	list, err := h.posts.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetPost returns a single post with counts
func (h *PostHandler) GetPost(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}
	post, err := h.posts.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// CreatePost accepts a multipart form with title, content, optional
// community_id and the image file.
func (h *PostHandler) CreatePost(c *gin.Context) {
	in, img, cleanup, err := readPostForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer cleanup()

	post, err := h.posts.Create(c.Request.Context(), in, img)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

var (
	errInvalidCommunity = errors.New("invalid community id")
	errImageTooLarge    = errors.New("image must be smaller than 10 MB")
	errInvalidUpload    = errors.New("could not read the uploaded image")
)

// readPostForm extracts a new post from a multipart request. A missing file
// yields a nil image, which the post service rejects before any I/O.
func readPostForm(c *gin.Context) (posts.Input, *posts.Image, func(), error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	in := posts.Input{
		Title:   c.PostForm("title"),
		Content: c.PostForm("content"),
		Author:  middleware.CurrentUser(c),
	}
	communityID, err := optionalID(c.PostForm("community_id"))
	if err != nil {
		return in, nil, func() {}, errInvalidCommunity
	}
	in.CommunityID = communityID

	file, header, err := c.Request.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return in, nil, func() {}, nil
	case err != nil:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return in, nil, func() {}, errImageTooLarge
		}
		return in, nil, func() {}, errInvalidUpload
	}
	return in, imageFrom(file, header), func() { _ = file.Close() }, nil
}

func imageFrom(file multipart.File, header *multipart.FileHeader) *posts.Image {
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(filepath.Ext(header.Filename)); byExt != "" {
			contentType = byExt
		}
	}
	return &posts.Image{
		Filename:    filepath.Base(header.Filename),
		ContentType: contentType,
		Body:        file,
	}
}
