package records

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/plateful/plateful/internal/client/models"
	"github.com/plateful/plateful/internal/common"
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
CREATE TABLE records (
  local_id         TEXT PRIMARY KEY,
  remote_id        TEXT NOT NULL DEFAULT '',
  shared_entity_id TEXT NOT NULL,
  owner_id         TEXT NOT NULL,
  origin_owner_id  TEXT NOT NULL DEFAULT '',
  origin           TEXT NOT NULL DEFAULT 'local',
  deleted_locally  INTEGER NOT NULL DEFAULT 0,
  delete_state     TEXT NOT NULL DEFAULT 'active',
  payload          TEXT NOT NULL,
  created_at       TIMESTAMP NOT NULL,
  updated_at       TIMESTAMP NOT NULL
);
`)
	require.NoError(t, err)

	return db
}

func newRecord(localID, owner string) *models.Record {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.Record{
		LocalID:        localID,
		SharedEntityID: "shared-" + localID,
		OwnerID:        owner,
		OriginOwnerID:  owner,
		Origin:         models.OriginLocal,
		DeleteState:    models.DeleteStateActive,
		Payload:        models.Payload{Name: "Trattoria " + localID, Tags: []string{"italian"}, Lat: 41.9, Lng: 12.5},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestCreateOrUpdate_InsertAndUpdate(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	rec := newRecord("l1", "curator-a")
	require.NoError(t, r.CreateOrUpdate(ctx, rec))

	got, err := r.GetByLocalID(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, "Trattoria l1", got.Payload.Name)
	assert.Equal(t, models.OriginLocal, got.Origin)
	assert.Empty(t, got.RemoteID)

	// update payload via upsert
	rec.Payload.Name = "Trattoria Nuova"
	require.NoError(t, r.CreateOrUpdate(ctx, rec))

	got, err = r.GetByLocalID(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, "Trattoria Nuova", got.Payload.Name)
}

func TestGetByLocalID_NotFound(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)

	_, err := r.GetByLocalID(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGetAll_ExcludesTombstones(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.CreateOrUpdate(ctx, newRecord("l1", "curator-a")))
	require.NoError(t, r.CreateOrUpdate(ctx, newRecord("l2", "curator-a")))
	require.NoError(t, r.MarkDeleted(ctx, "l2"))

	list, err := r.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "l1", list[0].LocalID)

	// tombstone still readable for sync bookkeeping
	got, err := r.GetByLocalID(ctx, "l2")
	require.NoError(t, err)
	assert.True(t, got.DeletedLocally)
	assert.Equal(t, models.DeleteStateDeletedLocally, got.DeleteState)
}

func TestMarkDeleted_AlreadyDeleted(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.CreateOrUpdate(ctx, newRecord("l1", "curator-a")))
	require.NoError(t, r.MarkDeleted(ctx, "l1"))
	assert.Error(t, r.MarkDeleted(ctx, "l1"))
}

func TestApplySyncResult_RemoteIDStable(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.CreateOrUpdate(ctx, newRecord("l1", "curator-a")))
	require.NoError(t, r.ApplySyncResult(ctx, "l1", "rem-1"))

	got, err := r.GetByLocalID(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, "rem-1", got.RemoteID)
	assert.Equal(t, models.OriginRemote, got.Origin)

	// a later result must not reassign the remote id
	require.NoError(t, r.ApplySyncResult(ctx, "l1", "rem-2"))
	got, err = r.GetByLocalID(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, "rem-1", got.RemoteID)
}

func TestSetRemoteID_OnlyWhenEmpty(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.CreateOrUpdate(ctx, newRecord("l1", "curator-a")))
	require.NoError(t, r.SetRemoteID(ctx, "l1", "rem-1"))
	require.NoError(t, r.SetRemoteID(ctx, "l1", "rem-2"))

	got, err := r.GetByLocalID(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, "rem-1", got.RemoteID)
	assert.Equal(t, models.OriginLocal, got.Origin, "duplicate correction must not clear the dirty state")
}

func TestFindBranch(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	rec := newRecord("l1", "curator-a")
	rec.SharedEntityID = "shared-x"
	require.NoError(t, r.CreateOrUpdate(ctx, rec))

	got, err := r.FindBranch(ctx, "shared-x", "curator-a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "l1", got.LocalID)

	got, err = r.FindBranch(ctx, "shared-x", "curator-b")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPurge(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.CreateOrUpdate(ctx, newRecord("l1", "curator-a")))
	require.NoError(t, r.Purge(ctx, "l1"))

	_, err := r.GetByLocalID(ctx, "l1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
