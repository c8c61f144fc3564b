package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/plateful/plateful/internal/client/migrations"
	"github.com/plateful/plateful/internal/client/repositories/metadata"
	"github.com/plateful/plateful/internal/client/repositories/pendingops"
	"github.com/plateful/plateful/internal/client/repositories/records"
)

// Repositories bundles the local-store access layer handed to services.
type Repositories struct {
	Records    records.Repository
	PendingOps pendingops.Repository
	Metadata   metadata.Repository
	DB         *sql.DB
}

// RunMigrations applies the embedded goose migrations to the local store.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens the SQLite store at dsn, applies migrations and wires
// the repositories.
func InitDatabase(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		return nil, err
	}

	return &Repositories{
		Records:    records.NewSQLiteRepository(db),
		PendingOps: pendingops.NewSQLiteRepository(db),
		Metadata:   metadata.NewSQLiteRepository(db),
		DB:         db,
	}, nil
}
