package metadata

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE metadata (
  key   TEXT PRIMARY KEY,
  value BLOB NOT NULL
);`)
	require.NoError(t, err)
	return db
}

func TestSetAndGet(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, KeyCuratorID, []byte("curator-a")))

	v, err := r.Get(ctx, KeyCuratorID)
	require.NoError(t, err)
	assert.Equal(t, []byte("curator-a"), v)

	// upsert overwrites
	require.NoError(t, r.Set(ctx, KeyCuratorID, []byte("curator-b")))
	v, err = r.Get(ctx, KeyCuratorID)
	require.NoError(t, err)
	assert.Equal(t, []byte("curator-b"), v)
}

func TestGet_Absent_ReturnsNilNil(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)

	v, err := r.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestDeleteAndClear(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, KeyAccessToken, []byte("tok")))
	require.NoError(t, r.Set(ctx, KeyLastSyncAt, []byte("2026-08-30T00:00:00Z")))

	require.NoError(t, r.Delete(ctx, KeyAccessToken))
	v, err := r.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	assert.Nil(t, v)

	list, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, r.Clear(ctx))
	list, err = r.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
