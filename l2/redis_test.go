package l2

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dclobato/resilient-cache/cacheerrors"
	"github.com/dclobato/resilient-cache/internal/testutil"
	"github.com/dclobato/resilient-cache/serializer"
)

func newTestBackend(t *testing.T) *RedisBackend {
	t.Helper()
	client, _ := testutil.NewMiniredisClient(t)
	ser, err := serializer.Get("json")
	require.NoError(t, err)

	return NewFromClient(client, Config{
		Name:       "test",
		Enabled:    true,
		KeyPrefix:  "cache",
		DefaultTTL: time.Minute,
	}, ser)
}

func TestRedisBackend_SetGet(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	require.NoError(t, b.Set(ctx, "a", "hello", 0))
	v, found, err := b.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "hello", v)
}

func TestRedisBackend_Miss(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	_, found, err := b.Get(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisBackend_KeysAreNamespaced(t *testing.T) {
	ctx := context.Background()
	client, srv := testutil.NewMiniredisClient(t)
	ser, _ := serializer.Get("json")
	b := NewFromClient(client, Config{Name: "t", Enabled: true, KeyPrefix: "myapp", DefaultTTL: time.Minute}, ser)

	require.NoError(t, b.Set(ctx, "a", 1, 0))
	assert.True(t, srv.Exists("myapp:a"))
}

func TestRedisBackend_SetIfNotExist_IsAtomic(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	set, err := b.SetIfNotExist(ctx, "a", 1, 0)
	require.NoError(t, err)
	assert.True(t, set)

	set, err = b.SetIfNotExist(ctx, "a", 2, 0)
	require.NoError(t, err)
	assert.False(t, set)

	v, _, _ := b.Get(ctx, "a")
	assert.EqualValues(t, 1, v)
}

func TestRedisBackend_Delete(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	require.NoError(t, b.Set(ctx, "a", 1, 0))
	require.NoError(t, b.Delete(ctx, "a"))

	_, found, _ := b.Get(ctx, "a")
	assert.False(t, found)
}

func TestRedisBackend_Exists(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	ok, err := b.Exists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	b.Set(ctx, "a", 1, 0)
	ok, err = b.Exists(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisBackend_GetTTL(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	b.Set(ctx, "a", 1, time.Minute)
	ttl, ok, err := b.GetTTL(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Greater(t, ttl, time.Duration(0))

	_, ok, _ = b.GetTTL(ctx, "absent")
	assert.False(t, ok)
}

func TestRedisBackend_ClearRemovesOnlyPrefixedKeys(t *testing.T) {
	ctx := context.Background()
	client, srv := testutil.NewMiniredisClient(t)
	ser, _ := serializer.Get("json")
	b := NewFromClient(client, Config{Name: "t", Enabled: true, KeyPrefix: "cache", DefaultTTL: time.Minute}, ser)

	require.NoError(t, b.Set(ctx, "a", 1, 0))
	require.NoError(t, b.Set(ctx, "b", 2, 0))
	srv.Set("other:unrelated", "x")

	n, err := b.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, srv.Exists("other:unrelated"), "clear must not touch keys outside its prefix")
}

func TestRedisBackend_ListKeys_StripsPrefix(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	b.Set(ctx, "user:1", 1, 0)
	b.Set(ctx, "user:2", 2, 0)

	keys, err := b.ListKeys(ctx, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"user:1", "user:2"}, keys)
}

func TestRedisBackend_ListKeys_WithAdditionalPrefix(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	b.Set(ctx, "user:1", 1, 0)
	b.Set(ctx, "order:1", 2, 0)

	keys, err := b.ListKeys(ctx, "user:")
	require.NoError(t, err)
	assert.Equal(t, []string{"user:1"}, keys)
}

func TestRedisBackend_GetSize(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	b.Set(ctx, "a", 1, 0)
	b.Set(ctx, "b", 2, 0)

	size, err := b.GetSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, size)
}

func TestRedisBackend_Get_SerializationErrorIsDistinguished(t *testing.T) {
	ctx := context.Background()
	client, srv := testutil.NewMiniredisClient(t)
	ser, _ := serializer.Get("json")
	b := NewFromClient(client, Config{Name: "t", Enabled: true, KeyPrefix: "cache", DefaultTTL: time.Minute}, ser)

	require.NoError(t, srv.Set("cache:bad", "not valid json"))

	_, _, err := b.Get(ctx, "bad")
	require.Error(t, err)
	assert.True(t, cacheerrors.IsSerialization(err))
	assert.False(t, cacheerrors.IsConnection(err))
}

func TestRedisBackend_Get_ConnectionErrorOnClosedServer(t *testing.T) {
	ctx := context.Background()
	client, srv := testutil.NewMiniredisClient(t)
	ser, _ := serializer.Get("json")
	b := NewFromClient(client, Config{Name: "t", Enabled: true, KeyPrefix: "cache", DefaultTTL: time.Minute}, ser)

	srv.Close()

	_, _, err := b.Get(ctx, "a")
	require.Error(t, err)
	assert.True(t, cacheerrors.IsConnection(err))
}

func TestRedisBackend_GetStats(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)
	b.Set(ctx, "a", 1, 0)

	stats, err := b.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "redis", stats.Backend)
	assert.Equal(t, 1, stats.Size)
}

func TestRedisBackend_StringAndClose(t *testing.T) {
	b := newTestBackend(t)
	assert.Contains(t, b.String(), "cache")
	assert.NoError(t, b.Close())
}
