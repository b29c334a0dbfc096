package posts

import (
	"context"

	"github.com/emilythestrangee/social-media/backend/internal/models"
)

// Repository defines the data access interface for posts.
type Repository interface {
	// Create inserts the post and fills in its id and created_at.
	// Returns ErrCommunityNotFound when community_id does not exist.
	Create(ctx context.Context, post *models.Post) error

	// ListWithCounts returns every post with like and comment counts, newest first.
	ListWithCounts(ctx context.Context) ([]models.PostWithCounts, error)

	// GetWithCounts returns one post, or ErrPostNotFound.
	GetWithCounts(ctx context.Context, id int64) (*models.PostWithCounts, error)

	// ListByCommunity returns the posts of one community, newest first.
	ListByCommunity(ctx context.Context, communityID int64) ([]models.PostWithCounts, error)
}
