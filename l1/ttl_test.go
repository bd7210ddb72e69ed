package l1

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLBackend_SetGet(t *testing.T) {
	ctx := context.Background()
	b := NewTTL(TTLConfig{Enabled: true, MaxSize: 10, DefaultTTL: time.Minute})

	require.NoError(t, b.Set(ctx, "a", 1, 0))
	v, found, err := b.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, v)
}

func TestTTLBackend_Miss(t *testing.T) {
	ctx := context.Background()
	b := NewTTL(TTLConfig{Enabled: true, MaxSize: 10})

	_, found, err := b.Get(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestTTLBackend_ExpiresLazily(t *testing.T) {
	ctx := context.Background()
	b := NewTTL(TTLConfig{Enabled: true, MaxSize: 10})

	require.NoError(t, b.Set(ctx, "a", "x", 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	_, found, err := b.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, found)

	size, err := b.GetSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, size, "expired entry should be purged on access")
}

func TestTTLBackend_SetIfNotExist(t *testing.T) {
	ctx := context.Background()
	b := NewTTL(TTLConfig{Enabled: true, MaxSize: 10})

	set, err := b.SetIfNotExist(ctx, "a", 1, 0)
	require.NoError(t, err)
	assert.True(t, set)

	set, err = b.SetIfNotExist(ctx, "a", 2, 0)
	require.NoError(t, err)
	assert.False(t, set)

	v, _, _ := b.Get(ctx, "a")
	assert.Equal(t, 1, v, "second set_if_not_exist must not overwrite")
}

func TestTTLBackend_SetIfNotExist_TreatsExpiredAsAbsent(t *testing.T) {
	ctx := context.Background()
	b := NewTTL(TTLConfig{Enabled: true, MaxSize: 10})

	_, err := b.SetIfNotExist(ctx, "a", 1, 10*time.Millisecond)
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	set, err := b.SetIfNotExist(ctx, "a", 2, 0)
	require.NoError(t, err)
	assert.True(t, set, "expired key should be treated as absent")
}

func TestTTLBackend_Delete(t *testing.T) {
	ctx := context.Background()
	b := NewTTL(TTLConfig{Enabled: true, MaxSize: 10})

	require.NoError(t, b.Set(ctx, "a", 1, 0))
	require.NoError(t, b.Delete(ctx, "a"))
	_, found, _ := b.Get(ctx, "a")
	assert.False(t, found)

	assert.NoError(t, b.Delete(ctx, "never-existed"))
}

func TestTTLBackend_Clear(t *testing.T) {
	ctx := context.Background()
	b := NewTTL(TTLConfig{Enabled: true, MaxSize: 10})

	b.Set(ctx, "a", 1, 0)
	b.Set(ctx, "b", 2, 0)
	n, err := b.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	size, _ := b.GetSize(ctx)
	assert.Equal(t, 0, size)
}

func TestTTLBackend_GetTTL(t *testing.T) {
	ctx := context.Background()
	b := NewTTL(TTLConfig{Enabled: true, MaxSize: 10})

	b.Set(ctx, "a", 1, time.Minute)
	ttl, ok, err := b.GetTTL(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, time.Minute.Seconds(), ttl.Seconds(), 2)

	b.Set(ctx, "b", 1, 0)
	_, ok, _ = b.GetTTL(ctx, "b")
	assert.False(t, ok, "no-expiration entry reports no TTL")

	_, ok, _ = b.GetTTL(ctx, "absent")
	assert.False(t, ok)
}

func TestTTLBackend_ListKeys(t *testing.T) {
	ctx := context.Background()
	b := NewTTL(TTLConfig{Enabled: true, MaxSize: 10})

	b.Set(ctx, "user:1", 1, 0)
	b.Set(ctx, "user:2", 2, 0)
	b.Set(ctx, "order:1", 3, 0)

	keys, err := b.ListKeys(ctx, "user:")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"user:1", "user:2"}, keys)

	all, err := b.ListKeys(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestTTLBackend_EvictsNearestDeadlineWhenFull(t *testing.T) {
	ctx := context.Background()
	b := NewTTL(TTLConfig{Enabled: true, MaxSize: 2})

	b.Set(ctx, "soon", "v", 50*time.Millisecond)
	b.Set(ctx, "later", "v", time.Hour)
	b.Set(ctx, "newest", "v", time.Hour)

	size, _ := b.GetSize(ctx)
	assert.Equal(t, 2, size)

	_, found, _ := b.Get(ctx, "soon")
	assert.False(t, found, "entry with the nearest deadline should have been evicted")

	_, found, _ = b.Get(ctx, "later")
	assert.True(t, found)
	_, found, _ = b.Get(ctx, "newest")
	assert.True(t, found)

	stats, _ := b.GetStats(ctx)
	assert.Equal(t, int64(1), stats.Evictions)
}

func TestTTLBackend_Stats_HitsAndMisses(t *testing.T) {
	ctx := context.Background()
	b := NewTTL(TTLConfig{Enabled: true, MaxSize: 10})

	b.Set(ctx, "a", 1, 0)
	b.Get(ctx, "a")
	b.Get(ctx, "missing")

	stats, err := b.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(2), stats.TotalRequests())
	assert.Equal(t, 0.5, stats.HitRate())
}
