package services

import (
	"context"
	"fmt"
	"time"

	"github.com/plateful/plateful/internal/client/client"
	"github.com/plateful/plateful/internal/client/models"
	"github.com/plateful/plateful/internal/client/repositories/pendingops"
	"github.com/plateful/plateful/internal/client/repositories/records"
	"github.com/plateful/plateful/internal/logging"
)

// Reconciler turns a set of locally-dirty records into the minimal batch of
// remote operations, detecting duplicates against a remote snapshot and
// routing shared-entity conflicts through the ConflictResolver.
type Reconciler struct {
	records  records.Repository
	pending  pendingops.Repository
	resolver *ConflictResolver
	log      logging.Logger
	now      func() time.Time
}

func NewReconciler(recs records.Repository, pend pendingops.Repository, resolver *ConflictResolver, log logging.Logger) *Reconciler {
	return &Reconciler{records: recs, pending: pend, resolver: resolver, log: log, now: time.Now}
}

// CollapseOps reduces a record's queued operations to their latest net
// effect. Ordering guarantee: operations for a single record are never
// reordered, so the net effect is
//
//	… + delete           -> delete
//	create + update(s)   -> create (latest payload is read at send time)
//	update(s)            -> update
func CollapseOps(ops []*models.PendingOperation) *models.PendingOperation {
	var create, update, del *models.PendingOperation
	for _, op := range ops {
		switch op.Kind {
		case models.OpCreate:
			create = op
		case models.OpUpdate:
			update = op
		case models.OpDelete:
			del = op
		}
	}
	if del != nil {
		return del
	}
	if create != nil {
		return create
	}
	return update
}

// snapshotIndex provides the lookups duplicate and ownership detection need.
type snapshotIndex struct {
	byRemoteID    map[string]client.RemoteRecord
	byFingerprint map[string][]client.RemoteRecord
	byShared      map[string][]client.RemoteRecord
}

func indexSnapshot(snapshot []client.RemoteRecord) *snapshotIndex {
	idx := &snapshotIndex{
		byRemoteID:    make(map[string]client.RemoteRecord, len(snapshot)),
		byFingerprint: make(map[string][]client.RemoteRecord),
		byShared:      make(map[string][]client.RemoteRecord),
	}
	for _, rr := range snapshot {
		idx.byRemoteID[rr.RemoteID] = rr
		fp := rr.Payload.Fingerprint()
		idx.byFingerprint[fp] = append(idx.byFingerprint[fp], rr)
		idx.byShared[rr.SharedEntityID] = append(idx.byShared[rr.SharedEntityID], rr)
	}
	return idx
}

// sharedCopy returns the remote copy of a shared entity owned by ownerID,
// and separately some copy owned by anyone else.
func (idx *snapshotIndex) sharedCopy(sharedEntityID, ownerID string) (own *client.RemoteRecord, foreign *client.RemoteRecord) {
	for i := range idx.byShared[sharedEntityID] {
		rr := idx.byShared[sharedEntityID][i]
		if rr.OwnerID == ownerID {
			own = &rr
		} else {
			foreign = &rr
		}
	}
	return own, foreign
}

// duplicateOf looks for a remote row of the same curator matching the
// payload fingerprint. Matches across curators are not duplicates; they are
// independent copies governed by the ownership policy.
func (idx *snapshotIndex) duplicateOf(rec *models.Record) *client.RemoteRecord {
	for i := range idx.byFingerprint[rec.Payload.Fingerprint()] {
		rr := idx.byFingerprint[rec.Payload.Fingerprint()][i]
		if rr.OwnerID == rec.OwnerID {
			return &rr
		}
	}
	return nil
}

// BuildBatch classifies each (record, net operation) pair into creates,
// updates, deletes and locally-resolvable skips, for curatorID. snapshot may
// be nil, in which case duplicate and ownership detection are skipped.
func (r *Reconciler) BuildBatch(ctx context.Context, curatorID string, items []models.BatchItem, snapshot []client.RemoteRecord) (*models.Batch, error) {
	idx := indexSnapshot(snapshot)
	batch := &models.Batch{}

	for _, item := range items {
		rec, op := item.Record, item.Op

		switch {
		case op.Kind == models.OpDelete && !rec.Synced():
			// Tombstone that never reached the remote store: resolved
			// locally with no network call.
			batch.Skipped = append(batch.Skipped, item)

		case op.Kind == models.OpDelete:
			batch.Deletes = append(batch.Deletes, item)

		case rec.Synced():
			classified, err := r.classifyUpdate(ctx, curatorID, item, idx)
			if err != nil {
				return nil, err
			}
			appendItem(batch, classified)

		default:
			classified, err := r.classifyCreate(ctx, curatorID, item, idx)
			if err != nil {
				return nil, err
			}
			appendItem(batch, classified)
		}
	}

	return batch, nil
}

type classifiedItem struct {
	item models.BatchItem
	kind models.OpKind
}

func appendItem(batch *models.Batch, c classifiedItem) {
	switch c.kind {
	case models.OpCreate:
		batch.Creates = append(batch.Creates, c.item)
	case models.OpUpdate:
		batch.Updates = append(batch.Updates, c.item)
	}
}

// classifyCreate handles a record with no remote identity yet: it may stay a
// create, collapse onto a duplicate remote row, or branch away from a
// foreign shared copy.
func (r *Reconciler) classifyCreate(ctx context.Context, curatorID string, item models.BatchItem, idx *snapshotIndex) (classifiedItem, error) {
	rec, op := item.Record, item.Op

	// The curator's own copy of this shared entity already exists remotely
	// (created from another device): correct the local record and update
	// instead of creating a duplicate row.
	if own, foreign := idx.sharedCopy(rec.SharedEntityID, rec.OwnerID); own != nil {
		return r.downgradeToUpdate(ctx, item, own.RemoteID)
	} else if foreign != nil && rec.OwnerID != curatorID {
		return r.branch(ctx, curatorID, item, foreign.OwnerID)
	}

	// Same logical venue entered independently before either client saw
	// the other's copy: update the matched row instead of creating twins.
	if dup := idx.duplicateOf(rec); dup != nil {
		return r.downgradeToUpdate(ctx, item, dup.RemoteID)
	}

	return classifiedItem{item: models.BatchItem{Record: rec, Op: op}, kind: models.OpCreate}, nil
}

// classifyUpdate guards a pending update against foreign ownership of the
// addressed remote row.
func (r *Reconciler) classifyUpdate(ctx context.Context, curatorID string, item models.BatchItem, idx *snapshotIndex) (classifiedItem, error) {
	rec := item.Record

	if rr, ok := idx.byRemoteID[rec.RemoteID]; ok && rr.OwnerID != curatorID {
		return r.branch(ctx, curatorID, item, rr.OwnerID)
	}
	return classifiedItem{item: item, kind: models.OpUpdate}, nil
}

// downgradeToUpdate corrects the local record with the matched remote id and
// reclassifies the pending create as an update of that row.
func (r *Reconciler) downgradeToUpdate(ctx context.Context, item models.BatchItem, remoteID string) (classifiedItem, error) {
	rec := item.Record

	if err := r.records.SetRemoteID(ctx, rec.LocalID, remoteID); err != nil {
		return classifiedItem{}, err
	}
	rec.RemoteID = remoteID
	r.log.Info(ctx, "duplicate detected, downgraded create to update",
		"localId", rec.LocalID, "remoteId", remoteID)

	return classifiedItem{item: item, kind: models.OpUpdate}, nil
}

// branch moves the outbound operation from a foreign-owned copy onto the
// curator's own branch of the shared entity. The foreign copy's queue entry
// is dropped; the branch syncs as a create.
func (r *Reconciler) branch(ctx context.Context, curatorID string, item models.BatchItem, remoteOwnerID string) (classifiedItem, error) {
	rec := item.Record

	res, err := r.resolver.Resolve(ctx, curatorID, rec, remoteOwnerID)
	if err != nil {
		return classifiedItem{}, err
	}
	if res.Action == ActionEditInPlace {
		kind := item.Op.Kind
		return classifiedItem{item: item, kind: kind}, nil
	}

	branch := res.Record
	branch.Payload = rec.Payload
	branch.UpdatedAt = r.now().UTC()
	if err := r.records.CreateOrUpdate(ctx, branch); err != nil {
		return classifiedItem{}, fmt.Errorf("failed to persist branch: %w", err)
	}

	now := r.now().UTC()
	if err := r.pending.RemoveAllForRecord(ctx, rec.LocalID); err != nil {
		return classifiedItem{}, err
	}
	kind := models.OpCreate
	if branch.Synced() {
		kind = models.OpUpdate
	}
	if err := r.pending.Enqueue(ctx, branch.LocalID, kind, now); err != nil {
		return classifiedItem{}, err
	}

	r.log.Info(ctx, "shared entity owned by another curator, branched",
		"sharedEntityId", rec.SharedEntityID, "owner", remoteOwnerID, "branchLocalId", branch.LocalID)

	op := &models.PendingOperation{LocalID: branch.LocalID, Kind: kind, EnqueuedAt: now}
	return classifiedItem{item: models.BatchItem{Record: branch, Op: op}, kind: kind}, nil
}
