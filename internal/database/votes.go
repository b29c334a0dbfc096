package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/social-media/backend/internal/models"
	"github.com/emilythestrangee/social-media/backend/internal/votes"
)

type VoteRepository struct {
	db *gorm.DB
}

func NewVoteRepository(db *gorm.DB) *VoteRepository {
	return &VoteRepository{db: db}
}

func (r *VoteRepository) ListByPost(ctx context.Context, postID int64) ([]models.Vote, error) {
	var rows []models.Vote
	if err := r.db.WithContext(ctx).Where("post_id = ?", postID).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	return rows, nil
}

func (r *VoteRepository) PostCommunity(ctx context.Context, postID int64) (*int64, error) {
	id, err := postCommunity(ctx, r.db, postID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, votes.ErrPostNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to fetch post community: %w", err)
	}
	return id, nil
}

func (r *VoteRepository) WithinTx(ctx context.Context, fn func(votes.Tx) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&voteTx{db: tx})
	})
}

type voteTx struct {
	db *gorm.DB
}

// FindForUpdate locks the user's vote row until the transaction ends.
func (t *voteTx) FindForUpdate(ctx context.Context, postID int64, userID string) (*models.Vote, error) {
	var vote models.Vote
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Take(&vote).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, votes.ErrVoteNotFound
	case isCode(err, codeInvalidText):
		return nil, votes.ErrNotAuthenticated
	case err != nil:
		return nil, fmt.Errorf("failed to lock vote: %w", err)
	}
	return &vote, nil
}

// Insert reports false when a row for (post_id, user_id) already exists.
func (t *voteTx) Insert(ctx context.Context, vote *models.Vote) (bool, error) {
	res := t.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(vote)
	if res.Error != nil {
		if isCode(res.Error, codeForeignKeyViolation) {
			if violatedConstraint(res.Error) == "votes_user_id_fkey" {
				return false, votes.ErrNotAuthenticated
			}
			return false, votes.ErrPostNotFound
		}
		return false, fmt.Errorf("failed to insert vote: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (t *voteTx) UpdateValue(ctx context.Context, id int64, value votes.Value) error {
	err := t.db.WithContext(ctx).Model(&models.Vote{}).Where("id = ?", id).Update("vote", int(value)).Error
	if err != nil {
		return fmt.Errorf("failed to update vote: %w", err)
	}
	return nil
}

func (t *voteTx) Delete(ctx context.Context, id int64) error {
	if err := t.db.WithContext(ctx).Delete(&models.Vote{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete vote: %w", err)
	}
	return nil
}
