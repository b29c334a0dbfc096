package communities

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
	rows  []models.Community
	lists int
}

func (r *memoryRepo) Create(_ context.Context, c *models.Community) error {
	for _, existing := range r.rows {
		if existing.Name == c.Name {
			return ErrCommunityExists
		}
	}
	c.ID = int64(len(r.rows) + 1)
	c.CreatedAt = time.Now()
	r.rows = append(r.rows, *c)
	return nil
}

func (r *memoryRepo) List(context.Context) ([]models.Community, error) {
	r.lists++
	out := make([]models.Community, 0, len(r.rows))
	for i := len(r.rows) - 1; i >= 0; i-- {
		out = append(out, r.rows[i])
	}
	return out, nil
}

func (r *memoryRepo) Get(_ context.Context, id int64) (*models.Community, error) {
	for _, c := range r.rows {
		if c.ID == id {
			c := c
			return &c, nil
		}
	}
	return nil, ErrCommunityNotFound
}

func newTestService() (*Service, *memoryRepo) {
	repo := &memoryRepo{}
	return NewService(repo, cache.New(cache.NewMemoryBackend(16, time.Hour)), nil), repo
}

func TestCreate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	c, err := svc.Create(ctx, "  golang ", " gophers ")
	require.NoError(t, err)
	assert.Equal(t, "golang", c.Name)
	assert.Equal(t, "gophers", c.Description)
	assert.NotZero(t, c.ID)

	_, err = svc.Create(ctx, "golang", "again")
	assert.ErrorIs(t, err, ErrCommunityExists)

	_, err = svc.Create(ctx, "   ", "")
	assert.ErrorIs(t, err, ErrNameRequired)
}

func TestList_InvalidatedByCreate(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, "first", "")
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.lists)

	_, err = svc.Create(ctx, "second", "")
	require.NoError(t, err)

	list, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Name)
	assert.Equal(t, 2, repo.lists)
}

func TestGet(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Get(ctx, 0)
	assert.ErrorIs(t, err, ErrCommunityNotFound)

	created, err := svc.Create(ctx, "golang", "")
	require.NoError(t, err)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "golang", got.Name)

	_, err = svc.Get(ctx, 42)
	assert.ErrorIs(t, err, ErrCommunityNotFound)
}
