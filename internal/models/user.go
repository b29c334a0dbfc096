package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a GitHub identity seen by the service. Rows are refreshed on every sign-in.
type User struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	GitHubID  int64     `gorm:"column:github_id;uniqueIndex;not null" json:"github_id"`
	UserName  string    `gorm:"not null" json:"user_name"`
	Email     string    `json:"email,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// DisplayName mirrors what the navbar shows: the GitHub login, falling back to the email.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.UserName != "" {
		return u.UserName
	}
	return u.Email
}

// Session ties a signed-in client to a user until ExpiresAt.
type Session struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
