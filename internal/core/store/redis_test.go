package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/digitalplanet/shopclient/internal/config"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisKV) {
	t.Helper()
	mr := miniredis.RunT(t)
	kv, err := OpenRedis(context.Background(), config.StoreConfig{Driver: "redis", RedisAddr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return mr, kv
}

func TestRedisKVRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, kv := newTestRedis(t)

	_, ok, err := kv.Get(ctx, "auth_token")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, kv.Set(ctx, "auth_token", "A1"))
	require.True(t, mr.Exists("shopclient:auth_token"))

	value, ok, err := kv.Get(ctx, "auth_token")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "A1", value)

	require.NoError(t, kv.Delete(ctx, "auth_token"))
	require.False(t, mr.Exists("shopclient:auth_token"))
}

func TestRedisKVList(t *testing.T) {
	ctx := context.Background()
	mr, kv := newTestRedis(t)
	require.NoError(t, mr.Set("unrelated", "x"))

	require.NoError(t, kv.Set(ctx, "refresh_token", "R1"))
	require.NoError(t, kv.Set(ctx, "auth_token", "A1"))
	require.NoError(t, kv.Set(ctx, "csrfToken", "c"))

	entries, err := kv.List(ctx, Query{All: true})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "auth_token", entries[0].Key)

	entries, err = kv.List(ctx, Query{Prefix: "refresh"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "R1", entries[0].Value)

	entries, err = kv.List(ctx, Query{Key: "missing"})
	require.NoError(t, err)
	require.Empty(t, entries)

	_, err = kv.List(ctx, Query{})
	require.Error(t, err)
}

func TestOpenKVSelectsRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	kv, err := OpenKV(context.Background(), config.StoreConfig{Driver: "redis", RedisAddr: mr.Addr()})
	require.NoError(t, err)
	defer func() { _ = kv.Close() }()

	_, isRedis := kv.(*RedisKV)
	require.True(t, isRedis)
}

func TestRedisKVNilReceiver(t *testing.T) {
	var kv *RedisKV
	_, _, err := kv.Get(context.Background(), "k")
	require.Error(t, err)
	require.NoError(t, kv.Close())
}
