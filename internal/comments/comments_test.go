package comments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/social-media/backend/internal/cache"
	"github.com/emilythestrangee/social-media/backend/internal/models"
)

type memoryRepo struct {
	rows        []models.Comment
	posts       map[int64]bool
	communities map[int64]int64
	lists       int
}

func (r *memoryRepo) Create(_ context.Context, c *models.Comment) error {
	if !r.posts[c.PostID] {
		return ErrPostNotFound
	}
	if c.ParentCommentID != nil {
		found := false
		for _, row := range r.rows {
			if row.ID == *c.ParentCommentID {
				found = true
			}
		}
		if !found {
			return ErrParentNotFound
		}
	}
	c.ID = int64(len(r.rows) + 1)
	c.CreatedAt = time.Now()
	r.rows = append(r.rows, *c)
	return nil
}

func (r *memoryRepo) ListByPost(_ context.Context, postID int64) ([]models.Comment, error) {
	r.lists++
	var out []models.Comment
	for _, c := range r.rows {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memoryRepo) PostCommunity(_ context.Context, postID int64) (*int64, error) {
	if !r.posts[postID] {
		return nil, ErrPostNotFound
	}
	if id, ok := r.communities[postID]; ok {
		return &id, nil
	}
	return nil, nil
}

func ptr(v int64) *int64 { return &v }

func TestCreate(t *testing.T) {
	repo := &memoryRepo{posts: map[int64]bool{1: true}}
	svc := NewService(repo, cache.New(cache.NewMemoryBackend(16, time.Hour)), nil)
	ctx := context.Background()
	user := &models.User{ID: "u-1", UserName: "octocat"}

	_, err := svc.Create(ctx, 1, nil, "hi", nil)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = svc.Create(ctx, 1, user, "   ", nil)
	assert.ErrorIs(t, err, ErrContentRequired)

	_, err = svc.Create(ctx, 9, user, "hi", nil)
	assert.ErrorIs(t, err, ErrPostNotFound)

	_, err = svc.Create(ctx, 1, user, "hi", ptr(77))
	assert.ErrorIs(t, err, ErrParentNotFound)

	c, err := svc.Create(ctx, 1, user, " hello ", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", c.Content)
	assert.Equal(t, "octocat", c.Author)
	assert.Equal(t, "u-1", c.UserID)
}

func TestList_InvalidatedByCreate(t *testing.T) {
	repo := &memoryRepo{posts: map[int64]bool{1: true}}
	svc := NewService(repo, cache.New(cache.NewMemoryBackend(16, time.Hour)), nil)
	ctx := context.Background()
	user := &models.User{ID: "u-1", Email: "a@example.com"}

	list, err := svc.List(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = svc.Create(ctx, 1, user, "first", nil)
	require.NoError(t, err)

	list, err = svc.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a@example.com", list[0].Author)
	assert.Equal(t, 2, repo.lists)
}

func TestTree(t *testing.T) {
	rows := []models.Comment{
		{ID: 1, Content: "root"},
		{ID: 2, Content: "reply", ParentCommentID: ptr(1)},
		{ID: 3, Content: "nested", ParentCommentID: ptr(2)},
		{ID: 4, Content: "second root"},
		{ID: 5, Content: "orphan", ParentCommentID: ptr(99)},
		{ID: 6, Content: "another reply", ParentCommentID: ptr(1)},
	}

	roots := Tree(rows)
	require.Len(t, roots, 3)
	assert.Equal(t, int64(1), roots[0].ID)
	assert.Equal(t, int64(4), roots[1].ID)
	assert.Equal(t, int64(5), roots[2].ID)

	require.Len(t, roots[0].Replies, 2)
	assert.Equal(t, int64(2), roots[0].Replies[0].ID)
	assert.Equal(t, int64(6), roots[0].Replies[1].ID)
	require.Len(t, roots[0].Replies[0].Replies, 1)
	assert.Equal(t, "nested", roots[0].Replies[0].Replies[0].Content)

	assert.Empty(t, Tree(nil))
}

func TestCreate_InvalidatesCommunityPosts(t *testing.T) {
	repo := &memoryRepo{posts: map[int64]bool{4: true}, communities: map[int64]int64{4: 2}}
	c := cache.New(cache.NewMemoryBackend(16, time.Hour))
	svc := NewService(repo, c, nil)
	ctx := context.Background()

	loads := 0
	load := func(context.Context) (int, error) {
		loads++
		return loads, nil
	}

	_, err := cache.Fetch(ctx, c, cache.CommunityPostsKey{CommunityID: 2}, load)
	require.NoError(t, err)

	_, err = svc.Create(ctx, 4, &models.User{ID: "u-1", UserName: "octocat"}, "nice", nil)
	require.NoError(t, err)

	v, err := cache.Fetch(ctx, c, cache.CommunityPostsKey{CommunityID: 2}, load)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}
