package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Entry is what a Backend stores: the JSON-encoded query result and when it was fetched.
type Entry struct {
	Data      []byte    `json:"data"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Backend stores entries by their rendered key. Implementations must be safe
// for concurrent use. A missing entry is reported with ok == false, not an error.
type Backend interface {
	Get(ctx context.Context, key string) (entry Entry, ok bool, err error)
	Set(ctx context.Context, key string, entry Entry) error
	Delete(ctx context.Context, keys ...string) error
}

// Cache is a read-through query cache. Concurrent fetches of the same key are
// collapsed into one loader call; stale entries are served while a single
// background refetch runs.
//
// Every Invalidate bumps the key's generation. A load started under an older
// generation never writes its result back, and fetches after the bump do not
// join it.
type Cache struct {
	backend     Backend
	group       singleflight.Group
	staleAfter  time.Duration
	voteRefresh time.Duration
	timeout     time.Duration
	logger      *slog.Logger
	now         func() time.Time

	mu   sync.Mutex
	gens map[string]uint64
}

type Option func(*Cache)

// WithStaleAfter sets how long an entry is served before it is revalidated.
func WithStaleAfter(d time.Duration) Option {
	return func(c *Cache) { c.staleAfter = d }
}

// WithVoteRefresh sets how long vote rows are served before a background refetch.
func WithVoteRefresh(d time.Duration) Option {
	return func(c *Cache) { c.voteRefresh = d }
}

// WithRevalidateTimeout bounds background refetches.
func WithRevalidateTimeout(d time.Duration) Option {
	return func(c *Cache) { c.timeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

func withClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func New(backend Backend, opts ...Option) *Cache {
	c := &Cache{
		backend:     backend,
		staleAfter:  30 * time.Second,
		voteRefresh: 50 * time.Second,
		timeout:     10 * time.Second,
		logger:      slog.Default(),
		now:         time.Now,
		gens:        map[string]uint64{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the cached value for key, loading it with fn on a miss.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	name := key.String()
	load := func(ctx context.Context) (any, error) { return fn(ctx) }

	entry, ok, err := c.backend.Get(ctx, name)
	if err != nil {
		c.logger.Warn("cache read failed, loading from source", "key", name, "error", err)
		ok = false
	}

	if ok {
		var v T
		if err := json.Unmarshal(entry.Data, &v); err == nil {
			if c.isStale(key, entry) {
				c.revalidate(ctx, key, load)
			}
			return v, nil
		}
		c.logger.Warn("cache entry undecodable, reloading", "key", name)
	}

	gen := c.generation(name)
	data, err, _ := c.group.Do(flightKey(name, gen), func() (any, error) {
		return c.load(ctx, name, gen, load)
	})
	if err != nil {
		return zero, err
	}

	var v T
	if err := json.Unmarshal(data.([]byte), &v); err != nil {
		return zero, fmt.Errorf("decode cached %s: %w", name, err)
	}
	return v, nil
}

// Invalidate drops the entries for keys so the next Fetch reloads them.
// Loads already running for those keys keep their result to themselves.
func (c *Cache) Invalidate(ctx context.Context, keys ...Key) error {
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, len(keys))
	c.mu.Lock()
	for i, k := range keys {
		names[i] = k.String()
		c.gens[names[i]]++
	}
	c.mu.Unlock()

	if err := c.backend.Delete(ctx, names...); err != nil {
		return fmt.Errorf("invalidate %v: %w", names, err)
	}
	c.logger.Debug("cache invalidated", "keys", names)
	return nil
}

func (c *Cache) generation(name string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[name]
}

func flightKey(name string, gen uint64) string {
	return name + "#" + strconv.FormatUint(gen, 10)
}

func (c *Cache) isStale(key Key, entry Entry) bool {
	window := c.staleAfter
	if _, ok := key.(VotesKey); ok {
		window = c.voteRefresh
	}
	return c.now().Sub(entry.FetchedAt) >= window
}

// revalidate refreshes key in the background, detached from the request.
func (c *Cache) revalidate(ctx context.Context, key Key, fn func(context.Context) (any, error)) {
	name := key.String()
	gen := c.generation(name)
	ch := c.group.DoChan(flightKey(name, gen), func() (any, error) {
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.load(bg, name, gen, fn)
	})
	go func() {
		if res := <-ch; res.Err != nil {
			c.logger.Warn("background revalidation failed", "key", name, "error", res.Err)
		}
	}()
}

// load runs fn and stores its result unless name was invalidated meanwhile.
func (c *Cache) load(ctx context.Context, name string, gen uint64, fn func(context.Context) (any, error)) ([]byte, error) {
	v, err := fn(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	if c.generation(name) != gen {
		c.logger.Debug("discarding load finished after invalidation", "key", name)
		return data, nil
	}
	if err := c.backend.Set(ctx, name, Entry{Data: data, FetchedAt: c.now()}); err != nil {
		c.logger.Warn("cache write failed", "key", name, "error", err)
		return data, nil
	}
	// Invalidate bumps before it deletes, so a bump racing the Set above is seen here.
	if c.generation(name) != gen {
		if err := c.backend.Delete(ctx, name); err != nil {
			c.logger.Warn("cache delete failed", "key", name, "error", err)
		}
	}
	return data, nil
}
