// Package models defines client-side data models used by the Plateful CLI.
package models

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"
)

// Origin tells which side produced a record's last known-good state.
// It drives sync direction: only local-origin records are sent outbound.
type Origin string

const (
	OriginLocal  Origin = "local"
	OriginRemote Origin = "remote"
)

// DeleteState tracks a record through the soft-delete lifecycle.
type DeleteState string

const (
	DeleteStateActive          DeleteState = "active"
	DeleteStateDeletedLocally  DeleteState = "deleted_locally"
	DeleteStateRemoteConfirmed DeleteState = "remote_delete_confirmed"
	DeleteStateRemoteFailed    DeleteState = "remote_delete_failed"
)

// Payload carries the curated domain fields of a restaurant record.
type Payload struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`
	MediaRefs   []string `json:"media_refs"`
}

// Record is a curated restaurant entity persisted locally and synced with
// the shared remote store.
type Record struct {
	// LocalID is the client-assigned identity, stable for the record's
	// local lifetime.
	LocalID string

	// RemoteID is the server-assigned identity. Empty until the first
	// successful remote create; never cleared by a client-only operation.
	RemoteID string

	// SharedEntityID links every curator's copy of the same real-world
	// place. Assigned exactly once and propagated verbatim.
	SharedEntityID string

	// OwnerID is the curator who created or owns this copy.
	OwnerID string

	// OriginOwnerID is the curator who first introduced the shared-entity
	// lineage. Informational, used for provenance display only.
	OriginOwnerID string

	// Origin marks whether the last known-good state came from a remote
	// pull or a local edit.
	Origin Origin

	// DeletedLocally is the tombstone flag. A soft-deleted record stays
	// out of listings but is kept for sync bookkeeping.
	DeletedLocally bool

	// DeleteState refines the tombstone through the delete lifecycle.
	DeleteState DeleteState

	Payload Payload

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Synced reports whether the record has ever been created on the remote store.
func (r *Record) Synced() bool {
	return r.RemoteID != ""
}

// Fingerprint produces a coarse domain key used for duplicate detection:
// normalized name plus location rounded to ~110 m. Two disconnected curators
// entering the same venue independently should collide on it; neighbouring
// branches of a chain should not.
func (p Payload) Fingerprint() string {
	return fmt.Sprintf("%s|%.3f|%.3f", normalizeName(p.Name), roundCoord(p.Lat), roundCoord(p.Lng))
}

func normalizeName(name string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case !lastSpace:
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

func roundCoord(v float64) float64 {
	return math.Round(v*1000) / 1000
}
