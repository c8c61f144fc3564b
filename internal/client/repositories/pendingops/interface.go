package pendingops

import (
	"context"
	"time"

	"github.com/plateful/plateful/internal/client/models"
)

// Repository is the durable pending-operation queue. One row exists per
// (localId, kind); a record's queued operations are collapsed to their net
// effect by the callers (record service on enqueue, reconciler before batching).
type Repository interface {
	// Enqueue inserts the operation, or refreshes its enqueue time if the
	// same (localId, kind) is already queued.
	Enqueue(ctx context.Context, localID string, kind models.OpKind, now time.Time) error

	// GetAll returns every queued operation ordered by enqueue time,
	// oldest first.
	GetAll(ctx context.Context) ([]*models.PendingOperation, error)

	// GetByLocalID returns the operations queued for one record.
	GetByLocalID(ctx context.Context, localID string) ([]*models.PendingOperation, error)

	// Remove deletes one queued operation after a confirmed remote outcome.
	Remove(ctx context.Context, localID string, kind models.OpKind) error

	// RemoveAllForRecord drops every operation queued for a record.
	RemoveAllForRecord(ctx context.Context, localID string) error

	// RecordFailure increments the retry count, stores the failure reason
	// and optionally defers the next attempt.
	RecordFailure(ctx context.Context, localID string, kind models.OpKind, reason string, notBefore time.Time) error
}
