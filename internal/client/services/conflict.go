package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/plateful/plateful/internal/client/models"
	"github.com/plateful/plateful/internal/client/repositories/records"
)

// ResolutionAction says how an edit of a shared entity must proceed.
type ResolutionAction string

const (
	// ActionEditInPlace keeps the record as-is: the curator owns it.
	ActionEditInPlace ResolutionAction = "editInPlace"

	// ActionBranchCopy redirects the edit to a curator-owned copy of the
	// shared entity, freshly created or already existing.
	ActionBranchCopy ResolutionAction = "branchCopy"
)

// Resolution is the conflict resolver's verdict. Record is the record the
// edit (and any outbound sync operation) must target.
type Resolution struct {
	Action ResolutionAction
	Record *models.Record
}

// ConflictResolver applies the ownership policy for shared entities. The
// remote store has no field-level merge: letting two curators update the
// same remote row would silently destroy one curator's edits, so edits of
// foreign copies branch instead.
type ConflictResolver struct {
	records records.Repository
	now     func() time.Time
}

func NewConflictResolver(repo records.Repository) *ConflictResolver {
	return &ConflictResolver{records: repo, now: time.Now}
}

// Resolve decides between in-place editing and copy-on-write for curatorID
// editing local, given that remoteOwnerID owns the canonical remote copy of
// the shared entity (empty when no remote copy exists).
//
// A branch keeps the shared entity id, takes a fresh local id, an empty
// remote id (it syncs as a create, never as an update to the foreign row)
// and the edited payload. At most one branch exists per
// (curator, sharedEntityId): repeat edits route to the existing branch.
func (c *ConflictResolver) Resolve(ctx context.Context, curatorID string, local *models.Record, remoteOwnerID string) (*Resolution, error) {
	if local.OwnerID == curatorID && (remoteOwnerID == "" || remoteOwnerID == curatorID) {
		return &Resolution{Action: ActionEditInPlace, Record: local}, nil
	}

	existing, err := c.records.FindBranch(ctx, local.SharedEntityID, curatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up branch: %w", err)
	}
	if existing != nil {
		if existing.LocalID == local.LocalID {
			return &Resolution{Action: ActionEditInPlace, Record: local}, nil
		}
		return &Resolution{Action: ActionBranchCopy, Record: existing}, nil
	}

	originOwner := local.OriginOwnerID
	if originOwner == "" {
		originOwner = local.OwnerID
	}

	now := c.now().UTC()
	branch := &models.Record{
		LocalID:        uuid.NewString(),
		SharedEntityID: local.SharedEntityID,
		OwnerID:        curatorID,
		OriginOwnerID:  originOwner,
		Origin:         models.OriginLocal,
		DeleteState:    models.DeleteStateActive,
		Payload:        local.Payload,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return &Resolution{Action: ActionBranchCopy, Record: branch}, nil
}
