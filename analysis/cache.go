/*
cache.go - Per-user bounded result cache with mixed TTLs

PURPOSE:
  Avoids recomputing analysis results while keeping storage bounded. Two kinds
  of entries coexist for the same family of requests:
  - "hot" result entries with a short TTL (60s), keyed by
    (family, user, requested period)
  - a per-user ordered key list with a longer TTL (1h) tracking which of the
    last 5 result keys are live, most-recently-used first

EVICTION DISCIPLINE:
  On insert the key is removed from the list if present, pushed to the front,
  and when the list exceeds 5 entries the oldest key is popped and its result
  entry deleted explicitly - eviction is synchronous with list trimming so
  storage stays bounded, never left to TTL alone. A read hit moves the key to
  the front before returning.

CONSISTENCY:
  The store offers atomic get/set/delete per key but no read-modify-write
  across the list + entries pair. Two concurrent inserts for the same user can
  transiently exceed the cap or double-evict; that is an accepted best-effort
  bound, not a hard invariant. Store failures degrade to recompute - a broken
  cache must never fail the request.

INVALIDATION:
  Invalidate deletes the whole key list and every listed entry for a user and
  family. The upload handler calls it whenever a new file of the corresponding
  template type is stored: results computed from stale data must not survive a
  new upload.
*/
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// =============================================================================
// CACHE STORE - Injected key/value backend
// =============================================================================

// CacheStore is the external key/value store behind the result cache.
// Implementations must provide atomic get/set/delete per key; no cross-key
// atomicity is assumed.
type CacheStore interface {
	Get(ctx context.Context, key string) (any, bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

const (
	// ResultTTL bounds how long a computed analysis result stays hot.
	ResultTTL = 60 * time.Second

	// ListTTL bounds the per-user key list used for LRU bookkeeping.
	ListTTL = time.Hour

	// MaxEntriesPerUser caps the number of live results per user and family.
	MaxEntriesPerUser = 5
)

// =============================================================================
// RESULT CACHE
// =============================================================================

// ResultCache layers the MRU key-list discipline on top of a CacheStore.
type ResultCache struct {
	store CacheStore
}

// NewResultCache wraps a cache store.
func NewResultCache(store CacheStore) *ResultCache {
	return &ResultCache{store: store}
}

func listKey(family Family, user UserID) string {
	return fmt.Sprintf("%s_cache_list_%s", family, user)
}

// Get returns the cached result for key, moving it to the MRU position on a
// hit. Store errors are logged and reported as misses.
func (c *ResultCache) Get(ctx context.Context, family Family, user UserID, key string) (any, bool) {
	value, ok, err := c.store.Get(ctx, key)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache read failed, recomputing")
		return nil, false
	}
	if !ok {
		return nil, false
	}

	c.touch(ctx, family, user, key)
	zerolog.Ctx(ctx).Info().Str("key", key).Msg("using cached analysis result")
	return value, true
}

// touch moves an accessed key to the front of the user's list.
func (c *ResultCache) touch(ctx context.Context, family Family, user UserID, key string) {
	lk := listKey(family, user)
	list := c.loadList(ctx, lk)

	for i, k := range list {
		if k == key {
			list = append(list[:i], list[i+1:]...)
			list = append([]string{key}, list...)
			if err := c.store.Set(ctx, lk, list, ListTTL); err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Msg("cache list update failed")
			}
			return
		}
	}
}

// Put stores a result and registers its key at the MRU position, evicting the
// oldest entry when the user's list exceeds the cap.
func (c *ResultCache) Put(ctx context.Context, family Family, user UserID, key string, value any) {
	lk := listKey(family, user)
	list := c.loadList(ctx, lk)

	// Re-insert at the front (update scenario).
	for i, k := range list {
		if k == key {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	list = append([]string{key}, list...)

	// Evict synchronously so storage stays bounded.
	if len(list) > MaxEntriesPerUser {
		oldest := list[len(list)-1]
		list = list[:len(list)-1]
		if err := c.store.Delete(ctx, oldest); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("key", oldest).Msg("cache eviction failed")
		} else {
			zerolog.Ctx(ctx).Info().Str("key", oldest).Msg("evicted oldest cache entry")
		}
	}

	if err := c.store.Set(ctx, lk, list, ListTTL); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("cache list write failed")
		return
	}
	if err := c.store.Set(ctx, key, value, ResultTTL); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// GetPlain reads an untracked entry (results cached outside the LRU list).
func (c *ResultCache) GetPlain(ctx context.Context, key string) (any, bool) {
	value, ok, err := c.store.Get(ctx, key)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache read failed, recomputing")
		return nil, false
	}
	return value, ok
}

// PutPlain writes an untracked entry with its own TTL.
func (c *ResultCache) PutPlain(ctx context.Context, key string, value any, ttl time.Duration) {
	if err := c.store.Set(ctx, key, value, ttl); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// Invalidate deletes the user's key list for the family together with every
// entry it references, plus any extra keys the caller knows about.
func (c *ResultCache) Invalidate(ctx context.Context, family Family, user UserID, extraKeys ...string) {
	lk := listKey(family, user)
	list := c.loadList(ctx, lk)

	keys := append(list, extraKeys...)
	keys = append(keys, lk)
	if err := c.store.Delete(ctx, keys...); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("cache invalidation failed")
		return
	}
	zerolog.Ctx(ctx).Info().
		Str("family", string(family)).
		Str("user", string(user)).
		Int("entries", len(list)).
		Msg("cache invalidated")
}

func (c *ResultCache) loadList(ctx context.Context, lk string) []string {
	value, ok, err := c.store.Get(ctx, lk)
	if err != nil || !ok {
		return nil
	}
	list, ok := value.([]string)
	if !ok {
		return nil
	}
	// Copy so list mutations never alias the stored value.
	return append([]string(nil), list...)
}
