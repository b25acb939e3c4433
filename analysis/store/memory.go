// Package store provides CacheStore implementations.
package store

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// MEMORY STORE - In-process cache store with lazy TTL expiry
// =============================================================================

type entry struct {
	value     any
	expiresAt time.Time
}

// Memory is a thread-safe in-memory CacheStore. Entries expire lazily: an
// expired entry is dropped on the read that finds it, matching the semantics
// of an external cache rather than running a sweeper goroutine.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// NewMemoryWithClock injects a clock for TTL tests.
func NewMemoryWithClock(now func() time.Time) *Memory {
	return &Memory{
		entries: make(map[string]entry),
		now:     now,
	}
}

func (m *Memory) Get(_ context.Context, key string) (any, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = entry{value: value, expiresAt: expiresAt}
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		delete(m.entries, key)
	}
	return nil
}

// Len reports the number of stored entries, counting expired ones that have
// not been read yet.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
