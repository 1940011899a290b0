//go:build cgo

package store

import (
	"context"
	"testing"

	"github.com/digitalplanet/shopclient/internal/config"
	"github.com/stretchr/testify/require"
)

func TestOpenMemoryStore(t *testing.T) {
	ctx := context.Background()
	cfg := config.StoreConfig{
		Driver: "libsql",
		Path:   ":memory:",
	}

	store, err := Open(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, store)
	require.Equal(t, "libsql", store.Driver())
	require.NoError(t, store.Close())
}

func TestOpenLocalStore_ConfiguresSQLite(t *testing.T) {
	ctx := context.Background()

	cfg := config.StoreConfig{
		Driver: "libsql",
		Path:   "file:" + t.TempDir() + "/shopclient.db",
	}

	store, err := Open(ctx, cfg)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	require.Equal(t, 1, store.DB.Stats().MaxOpenConnections)

	var journalMode string
	require.NoError(t, store.DB.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journalMode))
	require.Contains(t, journalMode, "wal")

	var busyTimeout int
	require.NoError(t, store.DB.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&busyTimeout))
	require.GreaterOrEqual(t, busyTimeout, 1000)
}

func TestStoreKeyValueRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv, err := OpenKV(ctx, config.StoreConfig{
		Driver: "libsql",
		Path:   "file:" + t.TempDir() + "/kv.db",
	})
	require.NoError(t, err)
	defer func() { _ = kv.Close() }()

	_, ok, err := kv.Get(ctx, "auth_token")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, kv.Set(ctx, "auth_token", "A1"))
	require.NoError(t, kv.Set(ctx, "auth_token", "A2"))
	require.NoError(t, kv.Set(ctx, "refresh_token", "R1"))

	value, ok, err := kv.Get(ctx, "auth_token")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "A2", value)

	entries, err := kv.List(ctx, Query{All: true})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "auth_token", entries[0].Key)
	require.Equal(t, "refresh_token", entries[1].Key)

	entries, err = kv.List(ctx, Query{Prefix: "refresh"})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NoError(t, kv.Delete(ctx, "auth_token"))
	require.NoError(t, kv.Delete(ctx, "auth_token"))
	_, ok, err = kv.Get(ctx, "auth_token")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	cfg := config.StoreConfig{Driver: "libsql", Path: "file:" + t.TempDir() + "/persist.db"}

	kv, err := OpenKV(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "user_id", "42"))
	require.NoError(t, kv.Close())

	kv, err = OpenKV(ctx, cfg)
	require.NoError(t, err)
	defer func() { _ = kv.Close() }()

	value, ok, err := kv.Get(ctx, "user_id")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "42", value)
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, config.StoreConfig{Driver: "libsql", Path: "file:" + t.TempDir() + "/migrate.db"})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Migrate(ctx))

	rows, err := store.DB.QueryContext(ctx, "SELECT name FROM pragma_table_info('kv') ORDER BY cid")
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	var columns []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		columns = append(columns, name)
	}
	require.NoError(t, rows.Err())
	require.Equal(t, []string{"key", "value", "updated_at"}, columns)
}

func TestMigrateRejectsUninitializedStore(t *testing.T) {
	var store *Store
	require.Error(t, store.Migrate(context.Background()))
	require.Error(t, (&Store{}).Migrate(context.Background()))
}
