package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/plateful/plateful/internal/client/client"
	"github.com/plateful/plateful/internal/client/models"
	"github.com/plateful/plateful/internal/client/repositories/metadata"
	"github.com/plateful/plateful/internal/client/repositories/pendingops"
	"github.com/plateful/plateful/internal/client/repositories/records"
	"github.com/plateful/plateful/internal/logging"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
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

CREATE TABLE pending_operations (
  local_id    TEXT NOT NULL,
  kind        TEXT NOT NULL,
  enqueued_at TIMESTAMP NOT NULL,
  retry_count INTEGER NOT NULL DEFAULT 0,
  last_error  TEXT NOT NULL DEFAULT '',
  not_before  TIMESTAMP,
  PRIMARY KEY (local_id, kind)
);

CREATE TABLE metadata (
  key   TEXT PRIMARY KEY,
  value BLOB NOT NULL
);
`)
	require.NoError(t, err)
	return db
}

type testEnv struct {
	db       *sql.DB
	records  records.Repository
	pending  pendingops.Repository
	meta     metadata.Repository
	resolver *ConflictResolver
	recon    *Reconciler
	log      logging.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupDB(t)
	recs := records.NewSQLiteRepository(db)
	pend := pendingops.NewSQLiteRepository(db)
	meta := metadata.NewSQLiteRepository(db)
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	resolver := NewConflictResolver(recs)
	recon := NewReconciler(recs, pend, resolver, log)
	return &testEnv{db: db, records: recs, pending: pend, meta: meta,
		resolver: resolver, recon: recon, log: log}
}

func (e *testEnv) syncService(gw client.Client, curatorID string) SyncService {
	return NewSyncService(gw, e.records, e.pending, e.meta, e.recon, e.log, curatorID, SyncOptions{})
}

// mustAddDirty inserts a local-origin record with a queued operation.
func (e *testEnv) mustAddDirty(t *testing.T, rec *models.Record, kind models.OpKind, at time.Time) {
	t.Helper()
	require.NoError(t, e.records.CreateOrUpdate(context.Background(), rec))
	require.NoError(t, e.pending.Enqueue(context.Background(), rec.LocalID, kind, at))
}

func localRecord(localID, owner, name string) *models.Record {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.Record{
		LocalID:        localID,
		SharedEntityID: "shared-" + localID,
		OwnerID:        owner,
		OriginOwnerID:  owner,
		Origin:         models.OriginLocal,
		DeleteState:    models.DeleteStateActive,
		Payload:        models.Payload{Name: name, Lat: 48.85, Lng: 2.35},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// fakeGateway implements client.Client with preset outcomes and counters.
type fakeGateway struct {
	client.Client

	snapshot    []client.RemoteRecord
	snapshotErr error
	snapshotFn  func(ctx context.Context) ([]client.RemoteRecord, error)

	bulkResp *client.BulkResponse
	bulkErr  error

	createRemoteID string
	createErr      error
	updateErr      error
	deleteErr      error

	snapshotCalls int
	bulkCalls     int
	createCalls   int
	updateCalls   int
	deleteCalls   int

	lastBulkReq *client.BulkRequest
}

func (f *fakeGateway) FetchSnapshot(ctx context.Context) ([]client.RemoteRecord, error) {
	f.snapshotCalls++
	if f.snapshotFn != nil {
		return f.snapshotFn(ctx)
	}
	return f.snapshot, f.snapshotErr
}

func (f *fakeGateway) BulkSync(ctx context.Context, req *client.BulkRequest) (*client.BulkResponse, error) {
	f.bulkCalls++
	f.lastBulkReq = req
	return f.bulkResp, f.bulkErr
}

func (f *fakeGateway) CreateRecord(ctx context.Context, payload client.RecordPayload) (string, error) {
	f.createCalls++
	if f.createErr != nil {
		return "", f.createErr
	}
	if f.createRemoteID != "" {
		return f.createRemoteID, nil
	}
	return "remote-" + payload.LocalID, nil
}

func (f *fakeGateway) UpdateRecord(ctx context.Context, remoteID string, payload client.RecordPayload) error {
	f.updateCalls++
	return f.updateErr
}

func (f *fakeGateway) DeleteRecord(ctx context.Context, remoteID string) error {
	f.deleteCalls++
	return f.deleteErr
}

func (f *fakeGateway) networkCalls() int {
	return f.snapshotCalls + f.bulkCalls + f.createCalls + f.updateCalls + f.deleteCalls
}
