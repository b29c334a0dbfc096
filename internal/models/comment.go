package models

import "time"

type Comment struct {
	ID              int64     `gorm:"primaryKey" json:"id"`
	PostID          int64     `gorm:"not null" json:"post_id"`
	ParentCommentID *int64    `json:"parent_comment_id,omitempty"`
	Content         string    `gorm:"not null" json:"content"`
	UserID          string    `gorm:"type:uuid;not null" json:"user_id"`
	Author          string    `gorm:"not null" json:"author"`
	CreatedAt       time.Time `json:"created_at"`
}
