package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryBackend keeps entries in a process-local LRU with a hard TTL.
type MemoryBackend struct {
	lru *expirable.LRU[string, Entry]
}

func NewMemoryBackend(size int, ttl time.Duration) *MemoryBackend {
	return &MemoryBackend{lru: expirable.NewLRU[string, Entry](size, nil, ttl)}
}

func (m *MemoryBackend) Get(_ context.Context, key string) (Entry, bool, error) {
	e, ok := m.lru.Get(key)
	return e, ok, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, entry Entry) error {
	m.lru.Add(key, entry)
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.lru.Remove(k)
	}
	return nil
}
