package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finlens/metrics-engine/analysis/store"
)

func TestMemory_SetGetDelete(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", "v", time.Minute))

	value, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", value)

	require.NoError(t, m.Delete(ctx, "k", "never-existed"))
	_, ok, err = m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_LazyTTLExpiry(t *testing.T) {
	// GIVEN: An entry with a 60s TTL and a controllable clock
	// WHEN: The clock moves past the deadline
	// THEN: The next read reports a miss and drops the entry

	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	m := store.NewMemoryWithClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", "v", 60*time.Second))

	now = now.Add(59 * time.Second)
	_, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok, "entry should be live just before the deadline")

	now = now.Add(time.Second)
	_, ok, err = m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "entry should expire exactly at the deadline")
	assert.Equal(t, 0, m.Len(), "expired entry should be dropped on read")
}

func TestMemory_ZeroTTLNeverExpires(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	m := store.NewMemoryWithClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", "v", 0))
	now = now.Add(1000 * time.Hour)

	_, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}
