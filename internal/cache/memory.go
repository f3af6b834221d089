package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultMaxPaths bounds how many path keys a Memory cache holds when no
// limit is given.
const DefaultMaxPaths = 1024

// Memory is an in-process Views store. Path keys live in a bounded LRU:
// the least recently used path is evicted once MaxPaths is reached, and
// expired paths are swept in the background.
type Memory struct {
	mu  sync.Mutex // serializes read-modify-write of a path's variants
	ttl time.Duration
	now func() time.Time
	lru *expirable.LRU[string, variants]
}

// variants maps a variant name to its entry. Values stored in the LRU are
// never mutated; Set replaces the whole map.
type variants map[string]entry

type entry struct {
	body    []byte
	expires time.Time
}

var _ Views = (*Memory)(nil)

// NewMemory creates a Memory cache. A ttl of zero keeps entries until they
// are invalidated or evicted. maxPaths <= 0 means DefaultMaxPaths.
func NewMemory(ttl time.Duration, maxPaths int) *Memory {
	if maxPaths <= 0 {
		maxPaths = DefaultMaxPaths
	}
	return &Memory{
		ttl: ttl,
		now: time.Now,
		lru: expirable.NewLRU[string, variants](maxPaths, nil, ttl),
	}
}

// Get returns a copy of the cached body.
func (m *Memory) Get(_ context.Context, path, variant string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	vs, ok := m.lru.Get(path)
	if !ok {
		return nil, false, nil
	}
	e, ok := vs[variant]
	if !ok || e.expired(m.now()) {
		return nil, false, nil
	}
	return append([]byte(nil), e.body...), true, nil
}

// Set stores a copy of body. Adding a new path may evict the least recently
// used one.
func (m *Memory) Set(_ context.Context, path, variant string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	old, _ := m.lru.Peek(path)
	vs := make(variants, len(old)+1)
	for k, e := range old {
		if !e.expired(now) {
			vs[k] = e
		}
	}

	e := entry{body: append([]byte(nil), body...)}
	if m.ttl > 0 {
		e.expires = now.Add(m.ttl)
	}
	vs[variant] = e
	m.lru.Add(path, vs)
	return nil
}

func (m *Memory) Invalidate(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lru.Remove(path)
	return nil
}

// Len reports how many path keys are held, expired ones not yet swept
// included.
func (m *Memory) Len() int {
	return m.lru.Len()
}

func (m *Memory) Close() error {
	m.lru.Purge()
	return nil
}

func (e entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}
