package handlers

import (
	"context"
	"log/slog"

	"github.com/gorilla/sessions"

	"github.com/emilythestrangee/social-media/backend/internal/models"
	"github.com/emilythestrangee/social-media/backend/internal/posts"
	"github.com/emilythestrangee/social-media/backend/internal/votes"
)

type PostService interface {
	Create(ctx context.Context, in posts.Input, img *posts.Image) (*models.Post, error)
	List(ctx context.Context) ([]models.PostWithCounts, error)
	Get(ctx context.Context, id int64) (*models.PostWithCounts, error)
	ListByCommunity(ctx context.Context, communityID int64) ([]models.PostWithCounts, error)
}

type VoteService interface {
	Apply(ctx context.Context, postID int64, userID string, desired votes.Value) (*votes.Result, error)
	Tally(ctx context.Context, postID int64, viewerID string) (votes.Tally, error)
}

type CommentService interface {
	Create(ctx context.Context, postID int64, user *models.User, content string, parentID *int64) (*models.Comment, error)
	List(ctx context.Context, postID int64) ([]models.Comment, error)
}

type CommunityService interface {
	Create(ctx context.Context, name, description string) (*models.Community, error)
	List(ctx context.Context) ([]models.Community, error)
	Get(ctx context.Context, id int64) (*models.Community, error)
}

type SessionManager interface {
	SignInURL(state string) string
	CompleteSignIn(ctx context.Context, code string) (*models.Session, string, error)
	SignOut(ctx context.Context, sessionID string) error
}

// Services is everything the handlers depend on.
type Services struct {
	Posts       PostService
	Votes       VoteService
	Comments    CommentService
	Communities CommunityService
	Sessions    SessionManager
	Cookies     sessions.Store
	Logger      *slog.Logger
}

// Handler combines all handler types
type Handler struct {
	Auth      *AuthHandler
	Post      *PostHandler
	Vote      *VoteHandler
	Comment   *CommentHandler
	Community *CommunityHandler
	Page      *PageHandler
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(s Services) *Handler {
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	return &Handler{
		Auth:      NewAuthHandler(s.Sessions, s.Cookies, s.Logger),
		Post:      NewPostHandler(s.Posts, s.Logger),
		Vote:      NewVoteHandler(s.Votes, s.Logger),
		Comment:   NewCommentHandler(s.Comments, s.Logger),
		Community: NewCommunityHandler(s.Communities, s.Posts, s.Logger),
		Page:      NewPageHandler(s, s.Logger),
	}
}
