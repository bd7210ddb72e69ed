package l1

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUBackend_SetGet(t *testing.T) {
	ctx := context.Background()
	b := NewLRU(LRUConfig{Enabled: true, MaxSize: 10})

	require.NoError(t, b.Set(ctx, "a", "x", 0))
	v, found, err := b.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "x", v)
}

func TestLRUBackend_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	b := NewLRU(LRUConfig{Enabled: true, MaxSize: 2})

	b.Set(ctx, "a", 1, 0)
	b.Set(ctx, "b", 2, 0)
	b.Get(ctx, "a") // touch a, making b the LRU tail
	b.Set(ctx, "c", 3, 0)

	_, found, _ := b.Get(ctx, "b")
	assert.False(t, found, "b should have been evicted as least-recently-used")

	_, found, _ = b.Get(ctx, "a")
	assert.True(t, found)
	_, found, _ = b.Get(ctx, "c")
	assert.True(t, found)

	stats, _ := b.GetStats(ctx)
	assert.Equal(t, int64(1), stats.Evictions)
}

func TestLRUBackend_TTLTakesPrecedenceOverRecency(t *testing.T) {
	ctx := context.Background()
	b := NewLRU(LRUConfig{Enabled: true, MaxSize: 2})

	// "a" is the most-recently-used (touched after "b"), but expires soon.
	b.Set(ctx, "b", 2, time.Hour)
	b.Set(ctx, "a", 1, 20*time.Millisecond)
	b.Get(ctx, "a")

	time.Sleep(30 * time.Millisecond)

	b.Set(ctx, "c", 3, time.Hour)

	_, found, _ := b.Get(ctx, "a")
	assert.False(t, found, "expired entry should be purged even though it was most-recently-used")
	_, found, _ = b.Get(ctx, "b")
	assert.True(t, found, "true LRU tail should survive since an expired entry was evicted instead")
	_, found, _ = b.Get(ctx, "c")
	assert.True(t, found)
}

func TestLRUBackend_SetIfNotExist(t *testing.T) {
	ctx := context.Background()
	b := NewLRU(LRUConfig{Enabled: true, MaxSize: 10})

	set, err := b.SetIfNotExist(ctx, "a", 1, 0)
	require.NoError(t, err)
	assert.True(t, set)

	set, err = b.SetIfNotExist(ctx, "a", 2, 0)
	require.NoError(t, err)
	assert.False(t, set)
}

func TestLRUBackend_Delete(t *testing.T) {
	ctx := context.Background()
	b := NewLRU(LRUConfig{Enabled: true, MaxSize: 10})

	b.Set(ctx, "a", 1, 0)
	require.NoError(t, b.Delete(ctx, "a"))
	_, found, _ := b.Get(ctx, "a")
	assert.False(t, found)
}

func TestLRUBackend_Clear(t *testing.T) {
	ctx := context.Background()
	b := NewLRU(LRUConfig{Enabled: true, MaxSize: 10})

	b.Set(ctx, "a", 1, 0)
	b.Set(ctx, "b", 2, 0)
	n, err := b.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestLRUBackend_ListKeysAndGetTTL(t *testing.T) {
	ctx := context.Background()
	b := NewLRU(LRUConfig{Enabled: true, MaxSize: 10})

	b.Set(ctx, "user:1", 1, time.Minute)
	b.Set(ctx, "order:1", 2, 0)

	keys, err := b.ListKeys(ctx, "user:")
	require.NoError(t, err)
	assert.Equal(t, []string{"user:1"}, keys)

	ttl, ok, err := b.GetTTL(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Greater(t, ttl, time.Duration(0))

	_, ok, _ = b.GetTTL(ctx, "order:1")
	assert.False(t, ok)
}

func TestLRUBackend_Stats(t *testing.T) {
	ctx := context.Background()
	b := NewLRU(LRUConfig{Enabled: true, MaxSize: 10})

	b.Set(ctx, "a", 1, 0)
	b.Get(ctx, "a")
	b.Get(ctx, "missing")

	stats, err := b.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "lru", stats.Backend)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}
