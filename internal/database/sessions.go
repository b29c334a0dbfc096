package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/social-media/backend/internal/auth"
	"github.com/emilythestrangee/social-media/backend/internal/models"
)

// SessionRepository stores users and their sign-in sessions.
type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) ActiveSessions(ctx context.Context) ([]models.Session, error) {
	var rows []models.Session
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("expires_at > ?", time.Now().UTC()).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}
	return rows, nil
}

func (r *SessionRepository) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var s models.Session
	err := r.db.WithContext(ctx).Preload("User").Where("id = ?", id).Take(&s).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound), isCode(err, codeInvalidText):
		return nil, auth.ErrSessionNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to fetch session: %w", err)
	}
	return &s, nil
}

// UpsertUser refreshes the profile of a returning GitHub user and loads its id.
func (r *SessionRepository) UpsertUser(ctx context.Context, u *models.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "github_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_name", "email", "avatar_url", "updated_at"}),
		}).Create(u).Error
		if err != nil {
			return fmt.Errorf("failed to upsert user: %w", err)
		}
		if err := tx.Where("github_id = ?", u.GitHubID).Take(u).Error; err != nil {
			return fmt.Errorf("failed to reload user: %w", err)
		}
		return nil
	})
}

func (r *SessionRepository) CreateSession(ctx context.Context, s *models.Session) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(s).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) DeleteSession(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Session{})
	switch {
	case isCode(res.Error, codeInvalidText):
		return auth.ErrSessionNotFound
	case res.Error != nil:
		return fmt.Errorf("failed to delete session: %w", res.Error)
	case res.RowsAffected == 0:
		return auth.ErrSessionNotFound
	}
	return nil
}

// DeleteExpiredSessions removes sessions past their expiry and reports how many.
func (r *SessionRepository) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", time.Now().UTC()).Delete(&models.Session{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}
