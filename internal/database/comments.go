package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/emilythestrangee/social-media/backend/internal/comments"
	"github.com/emilythestrangee/social-media/backend/internal/models"
)

type CommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create inserts the comment. A reply must name a parent on the same post.
func (r *CommentRepository) Create(ctx context.Context, c *models.Comment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if c.ParentCommentID != nil {
			var n int64
			err := tx.Model(&models.Comment{}).
				Where("id = ? AND post_id = ?", *c.ParentCommentID, c.PostID).
				Count(&n).Error
			if err != nil {
				return fmt.Errorf("failed to check parent comment: %w", err)
			}
			if n == 0 {
				return comments.ErrParentNotFound
			}
		}

		err := tx.Create(c).Error
		switch {
		case isCode(err, codeForeignKeyViolation):
			switch violatedConstraint(err) {
			case "comments_user_id_fkey":
				return comments.ErrNotAuthenticated
			case "comments_parent_comment_id_fkey":
				return comments.ErrParentNotFound
			default:
				return comments.ErrPostNotFound
			}
		case err != nil:
			return fmt.Errorf("failed to create comment: %w", err)
		}
		return nil
	})
}

func (r *CommentRepository) ListByPost(ctx context.Context, postID int64) ([]models.Comment, error) {
	rows := []models.Comment{}
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch comments: %w", err)
	}
	return rows, nil
}

func (r *CommentRepository) PostCommunity(ctx context.Context, postID int64) (*int64, error) {
	id, err := postCommunity(ctx, r.db, postID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, comments.ErrPostNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to fetch post community: %w", err)
	}
	return id, nil
}
