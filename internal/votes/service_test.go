package votes

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/social-media/backend/internal/cache"
	"github.com/emilythestrangee/social-media/backend/internal/models"
)

// memoryRepo serializes transactions with a mutex, standing in for row locks.
type memoryRepo struct {
	mu          sync.Mutex
	nextID      int64
	rows        map[int64]*models.Vote
	posts       map[int64]bool
	communities map[int64]int64
	failOn      string
	queries     int
}

func newMemoryRepo(postIDs ...int64) *memoryRepo {
	r := &memoryRepo{rows: map[int64]*models.Vote{}, posts: map[int64]bool{}, communities: map[int64]int64{}}
	for _, id := range postIDs {
		r.posts[id] = true
	}
	return r
}

func (r *memoryRepo) ListByPost(_ context.Context, postID int64) ([]models.Vote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries++
	var out []models.Vote
	for _, v := range r.rows {
		if v.PostID == postID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (r *memoryRepo) PostCommunity(_ context.Context, postID int64) (*int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.posts[postID] {
		return nil, ErrPostNotFound
	}
	if id, ok := r.communities[postID]; ok {
		return &id, nil
	}
	return nil, nil
}

func (r *memoryRepo) WithinTx(ctx context.Context, fn func(Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make(map[int64]models.Vote, len(r.rows))
	for id, v := range r.rows {
		snapshot[id] = *v
	}
	if err := fn(&memoryTx{r}); err != nil {
		r.rows = make(map[int64]*models.Vote, len(snapshot))
		for id, v := range snapshot {
			v := v
			r.rows[id] = &v
		}
		return err
	}
	return nil
}

type memoryTx struct{ r *memoryRepo }

func (t *memoryTx) FindForUpdate(_ context.Context, postID int64, userID string) (*models.Vote, error) {
	for _, v := range t.r.rows {
		if v.PostID == postID && v.UserID == userID {
			cp := *v
			return &cp, nil
		}
	}
	return nil, ErrVoteNotFound
}

func (t *memoryTx) Insert(_ context.Context, vote *models.Vote) (bool, error) {
	if t.r.failOn == "insert" {
		return false, errors.New("insert failed")
	}
	if !t.r.posts[vote.PostID] {
		return false, ErrPostNotFound
	}
	for _, v := range t.r.rows {
		if v.PostID == vote.PostID && v.UserID == vote.UserID {
			return false, nil
		}
	}
	t.r.nextID++
	vote.ID = t.r.nextID
	vote.CreatedAt = time.Now()
	cp := *vote
	t.r.rows[vote.ID] = &cp
	return true, nil
}

func (t *memoryTx) UpdateValue(_ context.Context, id int64, value Value) error {
	if t.r.failOn == "update" {
		return errors.New("update failed")
	}
	t.r.rows[id].Value = int(value)
	return nil
}

func (t *memoryTx) Delete(_ context.Context, id int64) error {
	if t.r.failOn == "delete" {
		return errors.New("delete failed")
	}
	delete(t.r.rows, id)
	return nil
}

func (r *memoryRepo) rowsFor(postID int64, userID string) []models.Vote {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Vote
	for _, v := range r.rows {
		if v.PostID == postID && v.UserID == userID {
			out = append(out, *v)
		}
	}
	return out
}

func newTestService(repo *memoryRepo) *Service {
	return NewService(repo, cache.New(cache.NewMemoryBackend(64, time.Hour)), nil)
}

func TestDecide(t *testing.T) {
	assert.Equal(t, ActionInsert, Decide(nil, Like))
	assert.Equal(t, ActionRetract, Decide(&models.Vote{Value: 1}, Like))
	assert.Equal(t, ActionRetract, Decide(&models.Vote{Value: -1}, Dislike))
	assert.Equal(t, ActionUpdate, Decide(&models.Vote{Value: 1}, Dislike))
	assert.Equal(t, ActionUpdate, Decide(&models.Vote{Value: -1}, Like))
}

func TestApply_SameValueTwiceRetracts(t *testing.T) {
	for _, v := range []Value{Like, Dislike} {
		repo := newMemoryRepo(1)
		svc := newTestService(repo)
		ctx := context.Background()

		res, err := svc.Apply(ctx, 1, "user-a", v)
		require.NoError(t, err)
		assert.Equal(t, ActionInsert, res.Action)

		res, err = svc.Apply(ctx, 1, "user-a", v)
		require.NoError(t, err)
		assert.Equal(t, ActionRetract, res.Action)
		assert.Nil(t, res.Vote)

		assert.Empty(t, repo.rowsFor(1, "user-a"))
	}
}

func TestApply_OppositeValueUpdatesInPlace(t *testing.T) {
	repo := newMemoryRepo(1)
	svc := newTestService(repo)
	ctx := context.Background()

	first, err := svc.Apply(ctx, 1, "user-a", Like)
	require.NoError(t, err)

	second, err := svc.Apply(ctx, 1, "user-a", Dislike)
	require.NoError(t, err)
	assert.Equal(t, ActionUpdate, second.Action)

	rows := repo.rowsFor(1, "user-a")
	require.Len(t, rows, 1)
	assert.Equal(t, -1, rows[0].Value)
	assert.Equal(t, first.Vote.ID, rows[0].ID, "row identity is preserved")
}

func TestApply_Validation(t *testing.T) {
	repo := newMemoryRepo(1)
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Apply(ctx, 1, "", Like)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = svc.Apply(ctx, 1, "user-a", Value(2))
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = svc.Apply(ctx, 0, "user-a", Like)
	assert.ErrorIs(t, err, ErrInvalidPost)

	_, err = svc.Apply(ctx, 99, "user-a", Like)
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestApply_StoreErrorSurfacesWithoutPartialState(t *testing.T) {
	repo := newMemoryRepo(1)
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Apply(ctx, 1, "user-a", Like)
	require.NoError(t, err)

	repo.failOn = "update"
	_, err = svc.Apply(ctx, 1, "user-a", Dislike)
	require.Error(t, err)

	rows := repo.rowsFor(1, "user-a")
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Value)
}

func TestApply_ConcurrentClicksLeaveAtMostOneRow(t *testing.T) {
	repo := newMemoryRepo(1)
	svc := newTestService(repo)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Apply(ctx, 1, "user-a", Like)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// An even number of identical toggles ends with no vote.
	assert.Empty(t, repo.rowsFor(1, "user-a"))
}

// insertLosesRace reports a conflict on the first insert, as if another
// request had committed the same vote between lookup and insert.
type insertLosesRace struct {
	*memoryRepo
	raced bool
}

func (r *insertLosesRace) WithinTx(ctx context.Context, fn func(Tx) error) error {
	return r.memoryRepo.WithinTx(ctx, func(tx Tx) error {
		return fn(&racingTx{Tx: tx, outer: r})
	})
}

type racingTx struct {
	Tx
	outer *insertLosesRace
}

func (t *racingTx) Insert(ctx context.Context, vote *models.Vote) (bool, error) {
	if !t.outer.raced {
		t.outer.raced = true
		concurrent := *vote
		if _, err := t.Tx.Insert(ctx, &concurrent); err != nil {
			return false, err
		}
		return false, nil
	}
	return t.Tx.Insert(ctx, vote)
}

func TestApply_LostInsertRaceTogglesAgainstCommittedRow(t *testing.T) {
	repo := &insertLosesRace{memoryRepo: newMemoryRepo(1)}
	svc := NewService(repo, cache.New(cache.NewMemoryBackend(64, time.Hour)), nil)

	res, err := svc.Apply(context.Background(), 1, "user-a", Like)
	require.NoError(t, err)
	assert.Equal(t, ActionRetract, res.Action)
	assert.Empty(t, repo.rowsFor(1, "user-a"))
}

func TestCount(t *testing.T) {
	rows := []models.Vote{
		{UserID: "a", Value: 1},
		{UserID: "b", Value: -1},
		{UserID: "c", Value: 1},
		{UserID: "d", Value: 1},
		{UserID: "e", Value: -1},
	}

	tally := Count(rows, "b")
	assert.Equal(t, 3, tally.Likes)
	assert.Equal(t, 2, tally.Dislikes)
	require.NotNil(t, tally.UserVote)
	assert.Equal(t, -1, *tally.UserVote)

	assert.Nil(t, Count(rows, "").UserVote)
	assert.Nil(t, Count(rows, "zz").UserVote)
	assert.Equal(t, Tally{}, Count(nil, "a"))
}

func TestScenario_Post42(t *testing.T) {
	repo := newMemoryRepo(42)
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Apply(ctx, 42, "user-a", Like)
	require.NoError(t, err)
	_, err = svc.Apply(ctx, 42, "user-b", Dislike)
	require.NoError(t, err)

	tally, err := svc.Tally(ctx, 42, "user-a")
	require.NoError(t, err)
	assert.Equal(t, 1, tally.Likes)
	assert.Equal(t, 1, tally.Dislikes)
	require.NotNil(t, tally.UserVote)
	assert.Equal(t, 1, *tally.UserVote)

	res, err := svc.Apply(ctx, 42, "user-a", Like)
	require.NoError(t, err)
	assert.Equal(t, ActionRetract, res.Action)

	tally, err = svc.Tally(ctx, 42, "user-a")
	require.NoError(t, err)
	assert.Equal(t, 0, tally.Likes)
	assert.Equal(t, 1, tally.Dislikes)
	assert.Nil(t, tally.UserVote)
}

func TestTally_ServedFromCacheUntilVoteInvalidates(t *testing.T) {
	repo := newMemoryRepo(5)
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Tally(ctx, 5, "")
	require.NoError(t, err)
	_, err = svc.Tally(ctx, 5, "")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.queries)

	_, err = svc.Apply(ctx, 5, "user-a", Like)
	require.NoError(t, err)

	tally, err := svc.Tally(ctx, 5, "")
	require.NoError(t, err)
	assert.Equal(t, 1, tally.Likes)
	assert.Equal(t, 2, repo.queries)
}

func TestApply_InvalidatesCommunityPosts(t *testing.T) {
	repo := newMemoryRepo(7)
	repo.communities[7] = 1
	c := cache.New(cache.NewMemoryBackend(64, time.Hour))
	svc := NewService(repo, c, nil)
	ctx := context.Background()

	loads := 0
	load := func(context.Context) (int, error) {
		loads++
		return loads, nil
	}

	_, err := cache.Fetch(ctx, c, cache.CommunityPostsKey{CommunityID: 1}, load)
	require.NoError(t, err)

	_, err = svc.Apply(ctx, 7, "user-a", Like)
	require.NoError(t, err)

	v, err := cache.Fetch(ctx, c, cache.CommunityPostsKey{CommunityID: 1}, load)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, loads)
}

func TestApply_PostWithoutCommunity(t *testing.T) {
	repo := newMemoryRepo(8)
	svc := newTestService(repo)

	res, err := svc.Apply(context.Background(), 8, "user-a", Dislike)
	require.NoError(t, err)
	assert.Equal(t, ActionInsert, res.Action)
}
