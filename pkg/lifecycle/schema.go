// Package lifecycle defines contracts of database lifecycle steps run
// by gntree commands.
package lifecycle

import (
	"context"

	"github.com/gnames/gntree/pkg/config"
)

// SchemaManager builds and upgrades tables of taxa, guides and jobs.
// Both methods can run repeatedly.
type SchemaManager interface {
	// Create makes tables of an empty database, sets the C collation of
	// name columns and adds indexes. Callers drop old tables first with
	// Operator.DropAllTables.
	Create(ctx context.Context, cfg *config.Config) error

	// Migrate adds missing tables, columns and indexes, keeping data.
	Migrate(ctx context.Context, cfg *config.Config) error
}
