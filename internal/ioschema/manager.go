// Package ioschema creates and migrates the gntree schema: GORM
// AutoMigrate of the models plus collations and indexes that GORM tags
// cannot describe.
package ioschema

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/gnames/gntree/pkg/config"
	"github.com/gnames/gntree/pkg/db"
	"github.com/gnames/gntree/pkg/lifecycle"
	"github.com/gnames/gntree/pkg/schema"
)

// nameColumn is a column of scientific names sorted byte-wise.
type nameColumn struct {
	table, column string
	varchar       int
}

func (c nameColumn) sql() string {
	return fmt.Sprintf(`ALTER TABLE %s ALTER COLUMN %s TYPE VARCHAR(%d) COLLATE "C"`,
		c.table, c.column, c.varchar)
}

var nameColumns = []nameColumn{
	{"taxa", "name", 255},
	{"taxon_names", "name", 255},
	{"guide_taxa", "name", 255},
}

// index is created after AutoMigrate.
type index struct {
	name, sql string
}

var indexes = []index{
	// subtree lookups by ancestry prefix
	{"idx_taxa_ancestry_pattern", `CREATE INDEX IF NOT EXISTS idx_taxa_ancestry_pattern
		ON taxa (ancestry varchar_pattern_ops)`},
	{"idx_taxa_parent_name", `CREATE INDEX IF NOT EXISTS idx_taxa_parent_name
		ON taxa (parent_id, name)`},
	{"idx_jobs_claim", `CREATE INDEX IF NOT EXISTS idx_jobs_claim
		ON jobs (status, run_at)`},
	// one pending (queued or retriable failed) job per type and entity
	{"idx_jobs_open", `CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_open
		ON jobs (job_type, entity_id) WHERE status IN ('queued', 'failed')`},
}

// indexFixups prepare older databases for indexes: the unique index of
// queued jobs is replaced by idx_jobs_open, and only the newest pending
// job of an entity stays pending.
var indexFixups = []index{
	{"idx_jobs_pending", `DROP INDEX IF EXISTS idx_jobs_pending`},
	{"idx_jobs_open", `UPDATE jobs j SET status = 'dead', updated_at = now()
		WHERE status IN ('queued', 'failed') AND EXISTS (
			SELECT 1 FROM jobs n
			WHERE n.job_type = j.job_type AND n.entity_id = j.entity_id
				AND n.status IN ('queued', 'failed')
				AND (n.created_at, n.id) > (j.created_at, j.id))`},
}

type manager struct {
	operator db.Operator
}

// NewManager creates a SchemaManager on top of a connected operator.
func NewManager(op db.Operator) lifecycle.SchemaManager {
	return &manager{operator: op}
}

// Create builds the schema on an empty database.
func (m *manager) Create(ctx context.Context, cfg *config.Config) error {
	if err := m.migrate(ctx, CreateSchemaError); err != nil {
		return err
	}
	if err := m.setCollation(ctx); err != nil {
		return err
	}
	if err := m.createIndexes(ctx); err != nil {
		return err
	}
	slog.Info("Schema created", "database", cfg.Database.Database)
	return nil
}

// Migrate brings an existing schema to the current models. It never drops
// columns or tables.
func (m *manager) Migrate(ctx context.Context, cfg *config.Config) error {
	if err := m.migrate(ctx, MigrateSchemaError); err != nil {
		return err
	}
	if err := m.createIndexes(ctx); err != nil {
		return err
	}
	slog.Info("Schema migrated", "database", cfg.Database.Database)
	return nil
}

func (m *manager) migrate(ctx context.Context, wrap func(error) error) error {
	if m.operator.Pool() == nil {
		return NotConnectedError()
	}
	gormDB, err := m.operator.GORM()
	if err != nil {
		return GORMConnectionError(err)
	}
	if err = schema.Migrate(gormDB.WithContext(ctx)); err != nil {
		return wrap(err)
	}
	return nil
}

func (m *manager) setCollation(ctx context.Context) error {
	pool := m.operator.Pool()
	for _, v := range nameColumns {
		if _, err := pool.Exec(ctx, v.sql()); err != nil {
			return CollationError(v.table, v.column, err)
		}
	}
	return nil
}

func (m *manager) createIndexes(ctx context.Context) error {
	pool := m.operator.Pool()
	for _, v := range slices.Concat(indexFixups, indexes) {
		if _, err := pool.Exec(ctx, v.sql); err != nil {
			return IndexError(v.name, err)
		}
	}
	return nil
}
