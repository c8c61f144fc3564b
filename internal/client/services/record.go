package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/plateful/plateful/internal/client/client"
	"github.com/plateful/plateful/internal/client/models"
	"github.com/plateful/plateful/internal/client/repositories/pendingops"
	"github.com/plateful/plateful/internal/client/repositories/records"
	"github.com/plateful/plateful/internal/dbx"
)

// RecordService is the UI-facing mutation surface. Every mutation marks the
// record dirty by enqueueing a pending operation; the sync coordinator picks
// them up later.
type RecordService interface {
	Add(ctx context.Context, curatorID string, payload models.Payload) (*models.Record, error)

	// Update edits a record. Editing another curator's shared copy is
	// redirected through the ownership policy: the returned record is the
	// one the edit actually landed on (a branch, possibly pre-existing).
	Update(ctx context.Context, curatorID string, localID string, payload models.Payload) (*models.Record, error)

	List(ctx context.Context) ([]models.Record, error)
	Get(ctx context.Context, localID string) (*models.Record, error)

	// Delete applies the soft-delete state machine: tombstone plus a
	// queued remote delete for synced records, immediate purge otherwise.
	Delete(ctx context.Context, localID string) error

	// ImportSnapshot stores remote rows owned by the curator that are
	// unknown locally (first run on a new device). Dirty local copies are
	// never overwritten.
	ImportSnapshot(ctx context.Context, curatorID string, snapshot []client.RemoteRecord) (int, error)
}

type recordService struct {
	db       *sql.DB
	records  records.Repository
	pending  pendingops.Repository
	resolver *ConflictResolver
	now      func() time.Time
}

// NewRecordService wires the mutation surface. db is used for the delete
// flow, whose tombstone and queue writes must land atomically.
func NewRecordService(db *sql.DB, recs records.Repository, pend pendingops.Repository, resolver *ConflictResolver) RecordService {
	return &recordService{db: db, records: recs, pending: pend, resolver: resolver, now: time.Now}
}

func (s *recordService) Add(ctx context.Context, curatorID string, payload models.Payload) (*models.Record, error) {
	now := s.now().UTC()
	rec := &models.Record{
		LocalID:        uuid.NewString(),
		SharedEntityID: uuid.NewString(),
		OwnerID:        curatorID,
		OriginOwnerID:  curatorID,
		Origin:         models.OriginLocal,
		DeleteState:    models.DeleteStateActive,
		Payload:        payload,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.records.CreateOrUpdate(ctx, rec); err != nil {
		return nil, fmt.Errorf("saving error: %w", err)
	}
	if err := s.pending.Enqueue(ctx, rec.LocalID, models.OpCreate, now); err != nil {
		return nil, fmt.Errorf("failed to enqueue create: %w", err)
	}
	return rec, nil
}

func (s *recordService) Update(ctx context.Context, curatorID string, localID string, payload models.Payload) (*models.Record, error) {
	rec, err := s.records.GetByLocalID(ctx, localID)
	if err != nil {
		return nil, fmt.Errorf("error retrieving record: %w", err)
	}
	if rec.DeletedLocally {
		return nil, errors.New("record is deleted")
	}

	res, err := s.resolver.Resolve(ctx, curatorID, rec, rec.OwnerID)
	if err != nil {
		return nil, err
	}
	target := res.Record
	if res.Action == ActionBranchCopy && target.LocalID != rec.LocalID {
		// Copy-on-write: the foreign copy stays untouched, remote-origin.
		if rec.Origin == models.OriginLocal {
			rec.Origin = models.OriginRemote
			if err := s.records.CreateOrUpdate(ctx, rec); err != nil {
				return nil, err
			}
		}
	}

	now := s.now().UTC()
	target.Payload = payload
	target.Origin = models.OriginLocal
	target.UpdatedAt = now
	if err := s.records.CreateOrUpdate(ctx, target); err != nil {
		return nil, fmt.Errorf("saving error: %w", err)
	}

	if err := s.enqueueMutation(ctx, target, now); err != nil {
		return nil, err
	}
	return target, nil
}

// enqueueMutation queues the net outbound effect of an edit: a create while
// the record has no remote identity, an update afterwards. A still-queued
// create swallows later edits (the payload is read at send time).
func (s *recordService) enqueueMutation(ctx context.Context, rec *models.Record, now time.Time) error {
	ops, err := s.pending.GetByLocalID(ctx, rec.LocalID)
	if err != nil {
		return err
	}
	for _, op := range ops {
		if op.Kind == models.OpCreate {
			return nil
		}
	}

	kind := models.OpUpdate
	if !rec.Synced() {
		kind = models.OpCreate
	}
	if err := s.pending.Enqueue(ctx, rec.LocalID, kind, now); err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", kind, err)
	}
	return nil
}

func (s *recordService) List(ctx context.Context) ([]models.Record, error) {
	list, err := s.records.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("error: %w", err)
	}
	return list, nil
}

func (s *recordService) Get(ctx context.Context, localID string) (*models.Record, error) {
	rec, err := s.records.GetByLocalID(ctx, localID)
	if err != nil {
		return nil, fmt.Errorf("error retrieving record: %w", err)
	}
	return rec, nil
}

func (s *recordService) Delete(ctx context.Context, localID string) error {
	rec, err := s.records.GetByLocalID(ctx, localID)
	if err != nil {
		return fmt.Errorf("error retrieving record: %w", err)
	}

	// The record and queue writes must move together: a tombstone without
	// its queued delete would hide the record forever without ever
	// removing the server row.
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		recs := records.NewSQLiteRepository(tx)
		pend := pendingops.NewSQLiteRepository(tx)

		if !rec.Synced() {
			// Never reached the remote store: the tombstone resolves
			// locally with no network interaction at all.
			if err := pend.RemoveAllForRecord(ctx, localID); err != nil {
				return err
			}
			return recs.Purge(ctx, localID)
		}

		// Tombstone first so listings hide the record before the remote
		// confirms; a queued update is superseded by the delete.
		if err := recs.MarkDeleted(ctx, localID); err != nil {
			return fmt.Errorf("error deleting record: %w", err)
		}
		if err := pend.RemoveAllForRecord(ctx, localID); err != nil {
			return err
		}
		return pend.Enqueue(ctx, localID, models.OpDelete, s.now().UTC())
	})
}

func (s *recordService) ImportSnapshot(ctx context.Context, curatorID string, snapshot []client.RemoteRecord) (int, error) {
	imported := 0
	for _, rr := range snapshot {
		if rr.OwnerID != curatorID {
			continue
		}
		existing, err := s.records.FindBranch(ctx, rr.SharedEntityID, curatorID)
		if err != nil {
			return imported, err
		}
		if existing != nil {
			continue
		}

		now := s.now().UTC()
		rec := &models.Record{
			LocalID:        uuid.NewString(),
			RemoteID:       rr.RemoteID,
			SharedEntityID: rr.SharedEntityID,
			OwnerID:        rr.OwnerID,
			OriginOwnerID:  rr.OriginOwnerID,
			Origin:         models.OriginRemote,
			DeleteState:    models.DeleteStateActive,
			Payload:        rr.Payload,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.records.CreateOrUpdate(ctx, rec); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}
