package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(t *testing.T) (*Cache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New(NewMemoryBackend(128, time.Hour), WithStaleAfter(30*time.Second), withClock(clock.Now))
	return c, clock
}

func TestKeysRenderStableStrings(t *testing.T) {
	tests := []struct {
		key  Key
		want string
	}{
		{PostsKey{}, "posts"},
		{PostKey{PostID: 42}, "post:42"},
		{VotesKey{PostID: 42}, "votes:42"},
		{CommunitiesKey{}, "communities"},
		{CommunityPostsKey{CommunityID: 7}, "community-posts:7"},
		{CommentsKey{PostID: 3}, "comments:3"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.key.String())
	}
}

func TestFetch_MissThenHit(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	var calls int32

	load := func(context.Context) ([]string, error) {
		atomic.AddInt32(&calls, 1)
		return []string{"a", "b"}, nil
	}

	got, err := Fetch(ctx, c, CommunitiesKey{}, load)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)

	got, err = Fetch(ctx, c, CommunitiesKey{}, load)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetch_DeduplicatesConcurrentLoads(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	var calls int32
	release := make(chan struct{})
	load := func(context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 7, nil
	}

	const n = 10
	var wg sync.WaitGroup
	results := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := Fetch(ctx, c, VotesKey{PostID: 1}, load)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, v := range results {
		assert.Equal(t, 7, v)
	}
}

func TestFetch_ServesStaleAndRevalidates(t *testing.T) {
	c, clock := newTestCache(t)
	ctx := context.Background()

	var version int32
	load := func(context.Context) (int32, error) {
		return atomic.AddInt32(&version, 1), nil
	}

	v, err := Fetch(ctx, c, PostsKey{}, load)
	require.NoError(t, err)
	assert.Equal(t, int32(1), v)

	clock.Advance(31 * time.Second)

	v, err = Fetch(ctx, c, PostsKey{}, load)
	require.NoError(t, err)
	assert.Equal(t, int32(1), v, "stale value is served immediately")

	require.Eventually(t, func() bool {
		v, err := Fetch(ctx, c, PostsKey{}, load)
		return err == nil && v >= 2
	}, time.Second, 10*time.Millisecond)
}

func TestFetch_VotesUseRefreshInterval(t *testing.T) {
	c, clock := newTestCache(t)
	ctx := context.Background()

	var calls int32
	load := func(context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 1, nil
	}

	_, err := Fetch(ctx, c, VotesKey{PostID: 9}, load)
	require.NoError(t, err)

	// Past the cache-wide window but inside the vote refresh interval.
	clock.Advance(40 * time.Second)
	_, err = Fetch(ctx, c, VotesKey{PostID: 9}, load)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestInvalidateForcesReload(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	var calls int32
	load := func(context.Context) (int32, error) {
		return atomic.AddInt32(&calls, 1), nil
	}

	_, err := Fetch(ctx, c, VotesKey{PostID: 42}, load)
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(ctx, VotesKey{PostID: 42}, PostsKey{}))

	v, err := Fetch(ctx, c, VotesKey{PostID: 42}, load)
	require.NoError(t, err)
	assert.Equal(t, int32(2), v)
}

func TestFetch_LoaderErrorIsNotCached(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	boom := errors.New("backend down")

	_, err := Fetch(ctx, c, CommentsKey{PostID: 1}, func(context.Context) (int, error) {
		return 0, boom
	})
	require.ErrorIs(t, err, boom)

	v, err := Fetch(ctx, c, CommentsKey{PostID: 1}, func(context.Context) (int, error) {
		return 5, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 5, v)
}

type brokenBackend struct{}

func (brokenBackend) Get(context.Context, string) (Entry, bool, error) {
	return Entry{}, false, errors.New("connection refused")
}
func (brokenBackend) Set(context.Context, string, Entry) error { return errors.New("connection refused") }
func (brokenBackend) Delete(context.Context, ...string) error  { return errors.New("connection refused") }

func TestFetch_BackendFailureFallsBackToLoader(t *testing.T) {
	c := New(brokenBackend{})

	v, err := Fetch(context.Background(), c, PostKey{PostID: 1}, func(context.Context) (string, error) {
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)

	err = c.Invalidate(context.Background(), PostKey{PostID: 1})
	assert.Error(t, err)
}

func TestInvalidateDuringLoadDiscardsOldResult(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	var version, calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	load := func(context.Context) (int32, error) {
		v := atomic.LoadInt32(&version)
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
			<-release
		}
		return v, nil
	}

	first := make(chan int32, 1)
	go func() {
		v, err := Fetch(ctx, c, VotesKey{PostID: 1}, load)
		assert.NoError(t, err)
		first <- v
	}()
	<-started

	atomic.StoreInt32(&version, 1)
	require.NoError(t, c.Invalidate(ctx, VotesKey{PostID: 1}))

	// A fetch after the write must not join the load that began before it.
	v, err := Fetch(ctx, c, VotesKey{PostID: 1}, load)
	require.NoError(t, err)
	assert.Equal(t, int32(1), v)

	close(release)
	assert.Equal(t, int32(0), <-first)

	// The old load finished last but must not have replaced the newer entry.
	v, err = Fetch(ctx, c, VotesKey{PostID: 1}, load)
	require.NoError(t, err)
	assert.Equal(t, int32(1), v)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestInvalidateDuringLoadLeavesNoEntry(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := Fetch(ctx, c, PostsKey{}, func(context.Context) (string, error) {
			close(started)
			<-release
			return "old", nil
		})
		assert.NoError(t, err)
	}()
	<-started
	require.NoError(t, c.Invalidate(ctx, PostsKey{}))
	close(release)
	<-done

	_, ok, err := c.backend.Get(ctx, PostsKey{}.String())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWithVoteRefresh(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New(NewMemoryBackend(16, time.Hour), WithVoteRefresh(5*time.Second), withClock(clock.Now))
	ctx := context.Background()

	var calls int32
	load := func(context.Context) (int32, error) {
		return atomic.AddInt32(&calls, 1), nil
	}

	_, err := Fetch(ctx, c, VotesKey{PostID: 3}, load)
	require.NoError(t, err)

	clock.Advance(6 * time.Second)
	_, err = Fetch(ctx, c, VotesKey{PostID: 3}, load)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) == 2
	}, time.Second, 10*time.Millisecond)

	// Other keys still use the cache-wide window.
	_, err = Fetch(ctx, c, PostsKey{}, load)
	require.NoError(t, err)
	_, err = Fetch(ctx, c, PostsKey{}, load)
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}
