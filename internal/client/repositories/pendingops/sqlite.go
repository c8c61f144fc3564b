package pendingops

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/plateful/plateful/internal/client/models"
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

// Enqueue upserts the (localId, kind) row. Re-enqueueing an already queued
// operation refreshes its enqueue time and resets the retry bookkeeping: the
// record changed again, so earlier failures no longer describe it.
func (r *SQLiteRepository) Enqueue(ctx context.Context, localID string, kind models.OpKind, now time.Time) error {
	query := `INSERT INTO pending_operations (local_id, kind, enqueued_at, retry_count, last_error)
			values (?, ?, ?, 0, '')
			ON CONFLICT(local_id, kind) DO UPDATE SET enqueued_at = excluded.enqueued_at,
				retry_count = 0,
				last_error = '',
				not_before = NULL
	`
	if _, err := r.db.ExecContext(ctx, query, localID, string(kind), now); err != nil {
		return fmt.Errorf("failed to enqueue operation: %w", err)
	}
	return nil
}

func scanOps(rows *sql.Rows) ([]*models.PendingOperation, error) {
	var result []*models.PendingOperation
	for rows.Next() {
		var (
			op        models.PendingOperation
			kind      string
			notBefore sql.NullTime
		)
		if err := rows.Scan(&op.LocalID, &kind, &op.EnqueuedAt, &op.RetryCount, &op.LastError, &notBefore); err != nil {
			return nil, err
		}
		op.Kind = models.OpKind(kind)
		if notBefore.Valid {
			op.NotBefore = notBefore.Time
		}
		result = append(result, &op)
	}
	return result, rows.Err()
}

// GetAll returns the whole queue ordered oldest-first to bound starvation.
func (r *SQLiteRepository) GetAll(ctx context.Context) ([]*models.PendingOperation, error) {
	query := `select local_id, kind, enqueued_at, retry_count, last_error, not_before
			from pending_operations order by enqueued_at, local_id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending operations: %w", err)
	}
	defer rows.Close()
	return scanOps(rows)
}

// GetByLocalID returns the operations queued for one record.
func (r *SQLiteRepository) GetByLocalID(ctx context.Context, localID string) ([]*models.PendingOperation, error) {
	query := `select local_id, kind, enqueued_at, retry_count, last_error, not_before
			from pending_operations where local_id=? order by enqueued_at`
	rows, err := r.db.QueryContext(ctx, query, localID)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending operations: %w", err)
	}
	defer rows.Close()
	return scanOps(rows)
}

// Remove deletes one queued operation.
func (r *SQLiteRepository) Remove(ctx context.Context, localID string, kind models.OpKind) error {
	query := `delete from pending_operations where local_id=? and kind=?`
	if _, err := r.db.ExecContext(ctx, query, localID, string(kind)); err != nil {
		return fmt.Errorf("failed to remove operation: %w", err)
	}
	return nil
}

// RemoveAllForRecord drops every operation queued for a record.
func (r *SQLiteRepository) RemoveAllForRecord(ctx context.Context, localID string) error {
	query := `delete from pending_operations where local_id=?`
	if _, err := r.db.ExecContext(ctx, query, localID); err != nil {
		return fmt.Errorf("failed to remove operations: %w", err)
	}
	return nil
}

// RecordFailure keeps the operation queued with updated retry bookkeeping.
// A zero notBefore clears any backoff gate.
func (r *SQLiteRepository) RecordFailure(ctx context.Context, localID string, kind models.OpKind, reason string, notBefore time.Time) error {
	var nb any
	if !notBefore.IsZero() {
		nb = notBefore
	}
	query := `update pending_operations
			set retry_count = retry_count + 1, last_error = ?, not_before = ?
			where local_id=? and kind=?`
	if _, err := r.db.ExecContext(ctx, query, reason, nb, localID, string(kind)); err != nil {
		return fmt.Errorf("failed to record failure: %w", err)
	}
	return nil
}
