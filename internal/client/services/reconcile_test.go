package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plateful/plateful/internal/client/client"
	"github.com/plateful/plateful/internal/client/models"
)

func op(localID string, kind models.OpKind, enqueued time.Time) *models.PendingOperation {
	return &models.PendingOperation{LocalID: localID, Kind: kind, EnqueuedAt: enqueued}
}

func TestCollapseOps(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		ops  []*models.PendingOperation
		want models.OpKind
	}{
		{"single create", []*models.PendingOperation{op("r", models.OpCreate, now)}, models.OpCreate},
		{"create then updates", []*models.PendingOperation{
			op("r", models.OpCreate, now), op("r", models.OpUpdate, now.Add(time.Second)),
		}, models.OpCreate},
		{"updates only", []*models.PendingOperation{
			op("r", models.OpUpdate, now), op("r", models.OpUpdate, now.Add(time.Second)),
		}, models.OpUpdate},
		{"update then delete", []*models.PendingOperation{
			op("r", models.OpUpdate, now), op("r", models.OpDelete, now.Add(time.Second)),
		}, models.OpDelete},
		{"create then delete", []*models.PendingOperation{
			op("r", models.OpCreate, now), op("r", models.OpDelete, now.Add(time.Second)),
		}, models.OpDelete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CollapseOps(tt.ops)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Kind)
		})
	}
}

func TestBuildBatch_Classification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now()

	create := localRecord("c1", "alice", "Septime")
	update := localRecord("u1", "alice", "Frenchie")
	update.RemoteID = "remote-u1"
	del := localRecord("d1", "alice", "Closed Place")
	del.RemoteID = "remote-d1"
	neverSynced := localRecord("d2", "alice", "Ghost")

	for _, r := range []*models.Record{create, update, del, neverSynced} {
		require.NoError(t, env.records.CreateOrUpdate(ctx, r))
	}

	items := []models.BatchItem{
		{Record: create, Op: op("c1", models.OpCreate, now)},
		{Record: update, Op: op("u1", models.OpUpdate, now)},
		{Record: del, Op: op("d1", models.OpDelete, now)},
		{Record: neverSynced, Op: op("d2", models.OpDelete, now)},
	}

	batch, err := env.recon.BuildBatch(ctx, "alice", items, nil)
	require.NoError(t, err)

	require.Len(t, batch.Creates, 1)
	require.Len(t, batch.Updates, 1)
	require.Len(t, batch.Deletes, 1)
	require.Len(t, batch.Skipped, 1)
	assert.Equal(t, "c1", batch.Creates[0].Record.LocalID)
	assert.Equal(t, "u1", batch.Updates[0].Record.LocalID)
	assert.Equal(t, "d1", batch.Deletes[0].Record.LocalID)
	assert.Equal(t, "d2", batch.Skipped[0].Record.LocalID)
	assert.Equal(t, 3, batch.Size())
}

func TestBuildBatch_DuplicateDowngradesToUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec := localRecord("c1", "alice", "Le Chateaubriand")
	require.NoError(t, env.records.CreateOrUpdate(ctx, rec))

	snapshot := []client.RemoteRecord{{
		RemoteID:       "remote-42",
		SharedEntityID: "other-shared",
		OwnerID:        "alice",
		Payload:        models.Payload{Name: "LE  CHATEAUBRIAND", Lat: 48.85, Lng: 2.35},
	}}

	items := []models.BatchItem{{Record: rec, Op: op("c1", models.OpCreate, time.Now())}}
	batch, err := env.recon.BuildBatch(ctx, "alice", items, snapshot)
	require.NoError(t, err)

	require.Len(t, batch.Updates, 1)
	assert.Empty(t, batch.Creates)
	assert.Equal(t, "remote-42", batch.Updates[0].Record.RemoteID)

	// The correction is durable, not just in-memory.
	stored, err := env.records.GetByLocalID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "remote-42", stored.RemoteID)
}

func TestBuildBatch_ForeignOwnerDoesNotMatchAsDuplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec := localRecord("c1", "alice", "Septime")
	require.NoError(t, env.records.CreateOrUpdate(ctx, rec))

	snapshot := []client.RemoteRecord{{
		RemoteID:       "remote-bob",
		SharedEntityID: "other-shared",
		OwnerID:        "bob",
		Payload:        rec.Payload,
	}}

	items := []models.BatchItem{{Record: rec, Op: op("c1", models.OpCreate, time.Now())}}
	batch, err := env.recon.BuildBatch(ctx, "alice", items, snapshot)
	require.NoError(t, err)

	// Same fingerprint, different curator: an independent copy, not a
	// duplicate to collapse onto.
	require.Len(t, batch.Creates, 1)
	assert.Empty(t, batch.Updates)
}

func TestBuildBatch_OwnRemoteCopyFromAnotherDevice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec := localRecord("c1", "alice", "Septime")
	require.NoError(t, env.records.CreateOrUpdate(ctx, rec))

	// Alice already created this shared entity from another device.
	snapshot := []client.RemoteRecord{{
		RemoteID:       "remote-other-device",
		SharedEntityID: rec.SharedEntityID,
		OwnerID:        "alice",
		Payload:        models.Payload{Name: "Septime (old)", Lat: 40, Lng: 3},
	}}

	items := []models.BatchItem{{Record: rec, Op: op("c1", models.OpCreate, time.Now())}}
	batch, err := env.recon.BuildBatch(ctx, "alice", items, snapshot)
	require.NoError(t, err)

	require.Len(t, batch.Updates, 1)
	assert.Equal(t, "remote-other-device", batch.Updates[0].Record.RemoteID)
}

func TestBuildBatch_UpdateAgainstForeignRowBranches(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now()

	// A queued update addresses a remote row the snapshot says bob owns.
	rec := localRecord("u1", "bob", "Noma")
	rec.RemoteID = "remote-u1"
	rec.OriginOwnerID = "bob"
	require.NoError(t, env.records.CreateOrUpdate(ctx, rec))
	require.NoError(t, env.pending.Enqueue(ctx, "u1", models.OpUpdate, now))

	snapshot := []client.RemoteRecord{{
		RemoteID:       "remote-u1",
		SharedEntityID: rec.SharedEntityID,
		OwnerID:        "bob",
		Payload:        rec.Payload,
	}}

	items := []models.BatchItem{{Record: rec, Op: op("u1", models.OpUpdate, now)}}
	batch, err := env.recon.BuildBatch(ctx, "alice", items, snapshot)
	require.NoError(t, err)

	// The update was rerouted onto a fresh curator-owned branch that syncs
	// as a create; the foreign copy's queue is drained.
	require.Len(t, batch.Creates, 1)
	assert.Empty(t, batch.Updates)
	branch := batch.Creates[0].Record
	assert.NotEqual(t, "u1", branch.LocalID)
	assert.Equal(t, rec.SharedEntityID, branch.SharedEntityID)
	assert.Equal(t, "alice", branch.OwnerID)
	assert.Empty(t, branch.RemoteID)

	ops, err := env.pending.GetByLocalID(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, ops)

	ops, err = env.pending.GetByLocalID(ctx, branch.LocalID)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, models.OpCreate, ops[0].Kind)
}
