package cache

import "fmt"

// Key identifies one cached query. The set of keys is closed: only the types
// in this file implement it.
type Key interface {
	String() string
	isKey()
}

// PostsKey caches the full post list with like and comment counts.
type PostsKey struct{}

// PostKey caches a single post with counts.
type PostKey struct{ PostID int64 }

// VotesKey caches the vote rows of one post. It goes stale after the vote
// refresh interval rather than the cache-wide window.
type VotesKey struct{ PostID int64 }

// CommunitiesKey caches the community list.
type CommunitiesKey struct{}

// CommunityPostsKey caches the posts of one community.
type CommunityPostsKey struct{ CommunityID int64 }

// CommentsKey caches the comments of one post.
type CommentsKey struct{ PostID int64 }

func (PostsKey) String() string            { return "posts" }
func (k PostKey) String() string           { return fmt.Sprintf("post:%d", k.PostID) }
func (k VotesKey) String() string          { return fmt.Sprintf("votes:%d", k.PostID) }
func (CommunitiesKey) String() string      { return "communities" }
func (k CommunityPostsKey) String() string { return fmt.Sprintf("community-posts:%d", k.CommunityID) }
func (k CommentsKey) String() string       { return fmt.Sprintf("comments:%d", k.PostID) }

func (PostsKey) isKey()          {}
func (PostKey) isKey()           {}
func (VotesKey) isKey()          {}
func (CommunitiesKey) isKey()    {}
func (CommunityPostsKey) isKey() {}
func (CommentsKey) isKey()       {}
