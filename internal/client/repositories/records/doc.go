// Package records provides the client-side persistence layer for curated
// restaurant records.
//
// The package defines a Repository interface for CRUD and query operations on
// Record models (see internal/client/models). A SQLite-backed implementation
// (SQLiteRepository) persists data using a dbx.DBTX (either *sql.DB or *sql.Tx).
//
// Records are soft-deleted: listings exclude tombstoned rows, but the rows are
// retained until the sync engine confirms the remote delete. A record that
// never reached the remote store is purged immediately instead.
//
// Key Types
//
//   - type Repository        — interface used by higher-level services
//   - type SQLiteRepository  — SQLite implementation over dbx.DBTX
package records
