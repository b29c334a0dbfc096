package comments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/emilythestrangee/social-media/backend/internal/cache"
	"github.com/emilythestrangee/social-media/backend/internal/models"
)

var (
	ErrNotAuthenticated = errors.New("you must be logged in to comment")
	ErrContentRequired  = errors.New("comment content is required")
	ErrPostNotFound     = errors.New("post not found")
	ErrParentNotFound   = errors.New("parent comment not found")
)

type Repository interface {
	// Create returns ErrPostNotFound or ErrParentNotFound on a dangling reference.
	Create(ctx context.Context, c *models.Comment) error
	// ListByPost returns the comments of a post oldest first.
	ListByPost(ctx context.Context, postID int64) ([]models.Comment, error)
	// PostCommunity returns the community the post belongs to, or nil.
	PostCommunity(ctx context.Context, postID int64) (*int64, error)
}

// Node is a comment with its replies.
type Node struct {
	models.Comment
	Replies []*Node `json:"replies"`
}

type Service struct {
	repo   Repository
	cache  *cache.Cache
	logger *slog.Logger
}

func NewService(repo Repository, c *cache.Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: c, logger: logger}
}

// Create adds a comment, or a reply when parentID is set.
func (s *Service) Create(ctx context.Context, postID int64, user *models.User, content string, parentID *int64) (*models.Comment, error) {
	if user == nil || user.ID == "" {
		return nil, ErrNotAuthenticated
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrContentRequired
	}
	if postID <= 0 {
		return nil, ErrPostNotFound
	}

	comment := &models.Comment{
		PostID:          postID,
		ParentCommentID: parentID,
		Content:         content,
		UserID:          user.ID,
		Author:          user.DisplayName(),
	}
	if err := s.repo.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	keys := []cache.Key{cache.CommentsKey{PostID: postID}, cache.PostKey{PostID: postID}, cache.PostsKey{}}
	communityID, err := s.repo.PostCommunity(ctx, postID)
	switch {
	case err != nil:
		s.logger.Warn("failed to look up post community", "post", postID, "error", err)
	case communityID != nil:
		keys = append(keys, cache.CommunityPostsKey{CommunityID: *communityID})
	}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.logger.Warn("failed to invalidate comment cache", "post", postID, "error", err)
	}
	return comment, nil
}

func (s *Service) List(ctx context.Context, postID int64) ([]models.Comment, error) {
	return cache.Fetch(ctx, s.cache, cache.CommentsKey{PostID: postID}, func(ctx context.Context) ([]models.Comment, error) {
		return s.repo.ListByPost(ctx, postID)
	})
}

// Tree nests comments under their parents, keeping input order among
// siblings. A reply whose parent is missing becomes a root.
func Tree(comments []models.Comment) []*Node {
	nodes := make(map[int64]*Node, len(comments))
	for _, c := range comments {
		nodes[c.ID] = &Node{Comment: c, Replies: []*Node{}}
	}

	roots := []*Node{}
	for _, c := range comments {
		node := nodes[c.ID]
		if c.ParentCommentID != nil {
			if parent, ok := nodes[*c.ParentCommentID]; ok && parent != node {
				parent.Replies = append(parent.Replies, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}
