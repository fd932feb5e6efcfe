package iooptimize

import (
	"context"
	"log/slog"
	"time"

	"github.com/gnames/gnfmt"
	"github.com/jackc/pgx/v5/pgxpool"
)

// vacuumAnalyze reclaims space of dead tuples and updates planner
// statistics. It cannot run inside a transaction.
func vacuumAnalyze(ctx context.Context, pool *pgxpool.Pool) error {
	start := time.Now()
	if _, err := pool.Exec(ctx, "VACUUM ANALYZE"); err != nil {
		return VacuumError(err)
	}
	slog.Info("VACUUM ANALYZE completed",
		"duration", gnfmt.TimeString(time.Since(start).Seconds()))
	return nil
}
