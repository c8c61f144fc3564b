package records

import (
	"context"

	"github.com/plateful/plateful/internal/client/models"
)

// Repository describes CRUD and query operations for Record objects.
// Implementations are typically backed by a local SQLite database.
type Repository interface {
	// CreateOrUpdate inserts a new record or updates an existing one by LocalID.
	CreateOrUpdate(ctx context.Context, record *models.Record) error

	// GetByLocalID returns a record by its local identifier, including
	// tombstoned ones (sync bookkeeping needs them).
	GetByLocalID(ctx context.Context, localID string) (*models.Record, error)

	// GetAll returns all non-deleted records for user-facing listings.
	GetAll(ctx context.Context) ([]models.Record, error)

	// FindBranch returns the record a given curator owns for a shared
	// entity, or nil if the curator has no copy of it.
	FindBranch(ctx context.Context, sharedEntityID, ownerID string) (*models.Record, error)

	// MarkDeleted applies the local tombstone.
	MarkDeleted(ctx context.Context, localID string) error

	// SetDeleteState advances the delete lifecycle of a tombstoned record.
	SetDeleteState(ctx context.Context, localID string, state models.DeleteState) error

	// ApplySyncResult records a confirmed remote outcome: assigns the
	// remote id (if not yet set) and flips the record to remote origin.
	ApplySyncResult(ctx context.Context, localID string, remoteID string) error

	// SetRemoteID corrects a record with a remote identity discovered
	// during duplicate detection, without touching its origin.
	SetRemoteID(ctx context.Context, localID string, remoteID string) error

	// Purge physically removes a record. Only used for tombstones that
	// never reached the remote store.
	Purge(ctx context.Context, localID string) error
}
