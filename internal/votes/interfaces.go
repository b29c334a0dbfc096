package votes

import (
	"context"

	"github.com/emilythestrangee/social-media/backend/internal/models"
)

// Repository is the vote store.
type Repository interface {
	// ListByPost returns every vote row of a post.
	ListByPost(ctx context.Context, postID int64) ([]models.Vote, error)

	// PostCommunity returns the community the post belongs to, or nil.
	PostCommunity(ctx context.Context, postID int64) (*int64, error)

	// WithinTx runs fn in one transaction; fn's error rolls it back.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of writes the toggle needs, scoped to one transaction.
type Tx interface {
	// FindForUpdate returns the user's vote on the post and locks the row.
	// Returns ErrVoteNotFound when there is none.
	FindForUpdate(ctx context.Context, postID int64, userID string) (*models.Vote, error)

	// Insert adds the row unless one already exists for (post_id, user_id).
	// inserted is false when a concurrent writer got there first.
	// Returns ErrPostNotFound when the post does not exist.
	Insert(ctx context.Context, vote *models.Vote) (inserted bool, err error)

	// UpdateValue changes the value of an existing row in place.
	UpdateValue(ctx context.Context, id int64, value Value) error

	// Delete removes a row by id.
	Delete(ctx context.Context, id int64) error
}
