package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/emilythestrangee/social-media/backend/internal/communities"
	"github.com/emilythestrangee/social-media/backend/internal/models"
)

type CommunityRepository struct {
	db *gorm.DB
}

func NewCommunityRepository(db *gorm.DB) *CommunityRepository {
	return &CommunityRepository{db: db}
}

func (r *CommunityRepository) Create(ctx context.Context, c *models.Community) error {
	err := r.db.WithContext(ctx).Create(c).Error
	switch {
	case isCode(err, codeUniqueViolation):
		return communities.ErrCommunityExists
	case err != nil:
		return fmt.Errorf("failed to create community: %w", err)
	}
	return nil
}

func (r *CommunityRepository) List(ctx context.Context) ([]models.Community, error) {
	rows := []models.Community{}
	if err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list communities: %w", err)
	}
	return rows, nil
}

func (r *CommunityRepository) Get(ctx context.Context, id int64) (*models.Community, error) {
	var c models.Community
	err := r.db.WithContext(ctx).First(&c, id).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, communities.ErrCommunityNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to fetch community: %w", err)
	}
	return &c, nil
}
