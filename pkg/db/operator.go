// Package db describes access to the PostgreSQL database of gntree.
package db

import (
	"context"

	"github.com/gnames/gntree/pkg/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/gorm"
)

// Operator owns the connection pool shared by the schema manager, the
// taxa and guide stores and the job queue.
type Operator interface {
	Connect(context.Context, *config.DatabaseConfig) error
	Close() error

	// Pool is nil until Connect succeeds. Raw SQL such as orphan removal
	// and VACUUM goes through it.
	Pool() *pgxpool.Pool

	// GORM returns a session over the same pool.
	GORM() (*gorm.DB, error)

	TableExists(ctx context.Context, table string) (bool, error)

	// HasTables is true if the public schema has at least one table.
	HasTables(ctx context.Context) (bool, error)

	// DropAllTables removes every table of the public schema with its
	// data.
	DropAllTables(ctx context.Context) error
}
