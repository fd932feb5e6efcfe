package iooptimize

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/jackc/pgx/v5/pgxpool"
)

// orphanRule describes a reference column and what happens to rows whose
// referenced row is gone.
type orphanRule struct {
	table  string
	column string
	parent string
	detach bool
}

// orphanRules are applied in order, entries of deleted guides go before
// their photos.
var orphanRules = []orphanRule{
	{table: "guide_taxa", column: "guide_id", parent: "guides"},
	{table: "guide_photos", column: "guide_taxon_id", parent: "guide_taxa"},
	{table: "taxon_names", column: "taxon_id", parent: "taxa"},
	{table: "listed_taxa", column: "taxon_id", parent: "taxa"},
	{table: "identifications", column: "taxon_id", parent: "taxa"},
	{table: "guide_taxa", column: "taxon_id", parent: "taxa", detach: true},
	{table: "guides", column: "taxon_id", parent: "taxa", detach: true},
	{table: "observations", column: "taxon_id", parent: "taxa", detach: true},
	{table: "taxa", column: "iconic_taxon_id", parent: "taxa", detach: true},
}

func (r orphanRule) sql() string {
	cond := fmt.Sprintf(`%[1]s IS NOT NULL AND NOT EXISTS (
	SELECT 1 FROM %[2]s p WHERE p.id = %[3]s.%[1]s
)`, r.column, r.parent, r.table)
	if r.detach {
		return fmt.Sprintf("UPDATE %s SET %s = NULL WHERE %s",
			r.table, r.column, cond)
	}
	return fmt.Sprintf("DELETE FROM %s WHERE %s", r.table, cond)
}

// removeOrphans deletes dependent rows of deleted records and clears
// optional references to deleted taxa.
func removeOrphans(ctx context.Context, pool *pgxpool.Pool) (string, error) {
	var total int64
	for _, r := range orphanRules {
		tag, err := pool.Exec(ctx, r.sql())
		if err != nil {
			return "", OrphanRemovalError(r.table, r.column, err)
		}
		n := tag.RowsAffected()
		if n > 0 {
			slog.Info("Fixed orphaned records",
				"table", r.table, "column", r.column, "count", n)
		}
		total += n
	}

	if total == 0 {
		return "<em>No orphaned records found</em>", nil
	}
	return fmt.Sprintf("<em>Fixed %s orphaned records</em>",
		humanize.Comma(total)), nil
}
