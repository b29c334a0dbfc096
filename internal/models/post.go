package models

import "time"

type Post struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Content     string    `gorm:"not null" json:"content"`
	ImageURL    string    `gorm:"not null" json:"image_url"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	CommunityID *int64    `json:"community_id,omitempty"`
	AuthorID    *string   `gorm:"type:uuid" json:"author_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// PostWithCounts is the row shape returned by get_posts_with_counts().
type PostWithCounts struct {
	Post
	LikeCount     int64   `json:"like_count"`
	CommentCount  int64   `json:"comment_count"`
	CommunityName *string `json:"community_name,omitempty"`
}
