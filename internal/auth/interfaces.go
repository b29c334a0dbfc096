package auth

import (
	"context"

	"github.com/emilythestrangee/social-media/backend/internal/models"
)

// SessionStore persists users and sessions.
type SessionStore interface {
	// ActiveSessions returns unexpired sessions with User loaded.
	ActiveSessions(ctx context.Context) ([]models.Session, error)
	// GetSession returns ErrSessionNotFound for an unknown id.
	GetSession(ctx context.Context, id string) (*models.Session, error)
	// UpsertUser inserts or refreshes the user keyed by GitHubID and fills in its ID.
	UpsertUser(ctx context.Context, u *models.User) error
	CreateSession(ctx context.Context, s *models.Session) error
	DeleteSession(ctx context.Context, id string) error
}

// Notifier carries events between API instances. Every published event is
// delivered to Events, including those published by this instance.
type Notifier interface {
	Publish(ctx context.Context, ev Event) error
	Events() <-chan Event
	// Close stops delivery and closes the Events channel.
	Close() error
}

// Provider is a third-party OAuth identity provider.
type Provider interface {
	Name() string
	AuthCodeURL(state string) string
	// Exchange trades an authorization code for the provider's profile.
	Exchange(ctx context.Context, code string) (*models.User, error)
}
