package models

import "time"

// Vote tracks one user's like (1) or dislike (-1) of one post.
// The schema allows a single row per (post_id, user_id).
type Vote struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	PostID    int64     `gorm:"not null" json:"post_id"`
	UserID    string    `gorm:"type:uuid;not null" json:"user_id"`
	Value     int       `gorm:"column:vote;not null" json:"vote"`
	CreatedAt time.Time `json:"created_at"`
}
