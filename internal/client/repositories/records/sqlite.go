package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/plateful/plateful/internal/client/models"
	"github.com/plateful/plateful/internal/common"
	"github.com/plateful/plateful/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const recordColumns = `local_id, remote_id, shared_entity_id, owner_id, origin_owner_id,
	origin, deleted_locally, delete_state, payload, created_at, updated_at`

// CreateOrUpdate upserts a record by local id. On conflict, mutable columns
// are replaced; created_at is kept.
func (r *SQLiteRepository) CreateOrUpdate(ctx context.Context, record *models.Record) error {
	payload, err := json.Marshal(record.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	query := `INSERT INTO records (` + recordColumns + `)
			values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(local_id) DO UPDATE SET remote_id = excluded.remote_id,
				origin = excluded.origin,
				deleted_locally = excluded.deleted_locally,
				delete_state = excluded.delete_state,
				payload = excluded.payload,
				updated_at = excluded.updated_at
	`
	_, err = r.db.ExecContext(ctx, query,
		record.LocalID, record.RemoteID, record.SharedEntityID, record.OwnerID,
		record.OriginOwnerID, string(record.Origin), record.DeletedLocally,
		string(record.DeleteState), payload, record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}
	return nil
}

func scanRecord(scan func(dest ...any) error) (*models.Record, error) {
	var (
		rec     models.Record
		origin  string
		state   string
		payload []byte
	)
	err := scan(&rec.LocalID, &rec.RemoteID, &rec.SharedEntityID, &rec.OwnerID,
		&rec.OriginOwnerID, &origin, &rec.DeletedLocally, &state, &payload,
		&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rec.Origin = models.Origin(origin)
	rec.DeleteState = models.DeleteState(state)
	if err := json.Unmarshal(payload, &rec.Payload); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return &rec, nil
}

// GetByLocalID returns a single record, tombstoned or not.
func (r *SQLiteRepository) GetByLocalID(ctx context.Context, localID string) (*models.Record, error) {
	query := `select ` + recordColumns + ` from records where local_id=?`
	row := r.db.QueryRowContext(ctx, query, localID)

	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select record: %w", err)
	}
	return rec, nil
}

// GetAll lists all non-deleted records.
func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Record, error) {
	query := `select ` + recordColumns + ` from records where deleted_locally=0 order by created_at`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	var result []models.Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// FindBranch returns the curator's own copy of a shared entity, nil if none.
// Tombstoned copies count: a curator who deleted their branch still holds the
// (curator, sharedEntityId) slot until the tombstone is resolved.
func (r *SQLiteRepository) FindBranch(ctx context.Context, sharedEntityID, ownerID string) (*models.Record, error) {
	query := `select ` + recordColumns + ` from records where shared_entity_id=? and owner_id=?`
	row := r.db.QueryRowContext(ctx, query, sharedEntityID, ownerID)

	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select branch: %w", err)
	}
	return rec, nil
}

// MarkDeleted applies the tombstone. It expects exactly one live row to be affected.
func (r *SQLiteRepository) MarkDeleted(ctx context.Context, localID string) error {
	query := `update records set deleted_locally=1, delete_state=? where local_id=? and deleted_locally=0`
	res, err := r.db.ExecContext(ctx, query, string(models.DeleteStateDeletedLocally), localID)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("wrong rows affected count: %d", ra)
	}
	return nil
}

// SetDeleteState advances the delete lifecycle.
func (r *SQLiteRepository) SetDeleteState(ctx context.Context, localID string, state models.DeleteState) error {
	query := `update records set delete_state=? where local_id=?`
	if _, err := r.db.ExecContext(ctx, query, string(state), localID); err != nil {
		return fmt.Errorf("failed to set delete state: %w", err)
	}
	return nil
}

// ApplySyncResult marks a record clean after a confirmed remote outcome.
// The remote id is only assigned when still empty; once set it is stable.
func (r *SQLiteRepository) ApplySyncResult(ctx context.Context, localID string, remoteID string) error {
	query := `update records
			set remote_id = CASE WHEN remote_id = '' THEN ? ELSE remote_id END,
				origin = ?
			where local_id=?`
	if _, err := r.db.ExecContext(ctx, query, remoteID, string(models.OriginRemote), localID); err != nil {
		return fmt.Errorf("failed to apply sync result: %w", err)
	}
	return nil
}

// SetRemoteID corrects a record with a remote identity matched during
// duplicate detection. Origin stays local so the pending update is still sent.
func (r *SQLiteRepository) SetRemoteID(ctx context.Context, localID string, remoteID string) error {
	query := `update records set remote_id=? where local_id=? and remote_id=''`
	if _, err := r.db.ExecContext(ctx, query, remoteID, localID); err != nil {
		return fmt.Errorf("failed to set remote id: %w", err)
	}
	return nil
}

// Purge physically removes a record row.
func (r *SQLiteRepository) Purge(ctx context.Context, localID string) error {
	if _, err := r.db.ExecContext(ctx, `delete from records where local_id=?`, localID); err != nil {
		return fmt.Errorf("failed to purge record: %w", err)
	}
	return nil
}
