package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/emilythestrangee/social-media/backend/internal/models"
	"github.com/emilythestrangee/social-media/backend/internal/posts"
)

const postsWithCounts = "SELECT * FROM get_posts_with_counts()"

type PostRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).Create(post).Error
	switch {
	case isCode(err, codeForeignKeyViolation):
		return posts.ErrCommunityNotFound
	case err != nil:
		return fmt.Errorf("failed to create post: %w", err)
	}
	return nil
}

func (r *PostRepository) ListWithCounts(ctx context.Context) ([]models.PostWithCounts, error) {
	rows := []models.PostWithCounts{}
	if err := r.db.WithContext(ctx).Raw(postsWithCounts).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch posts: %w", err)
	}
	return rows, nil
}

func (r *PostRepository) GetWithCounts(ctx context.Context, id int64) (*models.PostWithCounts, error) {
	var row models.PostWithCounts
	res := r.db.WithContext(ctx).Raw(postsWithCounts+" WHERE id = ?", id).Scan(&row)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to fetch post: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, posts.ErrPostNotFound
	}
	return &row, nil
}

func (r *PostRepository) ListByCommunity(ctx context.Context, communityID int64) ([]models.PostWithCounts, error) {
	rows := []models.PostWithCounts{}
	if err := r.db.WithContext(ctx).Raw(postsWithCounts+" WHERE community_id = ?", communityID).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch community posts: %w", err)
	}
	return rows, nil
}

// postCommunity returns the community_id of a post. gorm.ErrRecordNotFound
// means there is no such post.
func postCommunity(ctx context.Context, db *gorm.DB, postID int64) (*int64, error) {
	var post models.Post
	err := db.WithContext(ctx).Select("community_id").Where("id = ?", postID).Take(&post).Error
	if err != nil {
		return nil, err
	}
	return post.CommunityID, nil
}
