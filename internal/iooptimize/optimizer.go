// Package iooptimize implements lifecycle.Optimizer. It merges
// duplicate taxa, removes orphaned records and refreshes statistics of
// the query planner.
package iooptimize

import (
	"context"
	"log/slog"
	"time"

	"github.com/gnames/gn"
	"github.com/gnames/gnfmt"
	"github.com/gnames/gntree/pkg/config"
	"github.com/gnames/gntree/pkg/db"
	"github.com/gnames/gntree/pkg/lifecycle"
	"github.com/gnames/gntree/pkg/taxon"
)

type optimizer struct {
	operator db.Operator
	engine   *taxon.Engine
}

// NewOptimizer creates an Optimizer.
func NewOptimizer(op db.Operator, engine *taxon.Engine) lifecycle.Optimizer {
	return &optimizer{operator: op, engine: engine}
}

// Optimize runs three steps:
//  1. Merge taxa sharing name and parent
//  2. Remove or detach records pointing to deleted rows
//  3. VACUUM ANALYZE
func (o *optimizer) Optimize(ctx context.Context, _ *config.Config) error {
	pool := o.operator.Pool()
	if pool == nil {
		return NotConnectedError()
	}
	start := time.Now()

	slog.Info("Step 1/3: Merging duplicate taxa")
	sweep, err := o.engine.FindDuplicates(ctx)
	if err != nil {
		return err
	}
	gn.Info("Merged <em>%d</em> duplicate taxa", sweep.Merged)

	slog.Info("Step 2/3: Removing orphaned records")
	msg, err := removeOrphans(ctx, pool)
	if err != nil {
		return err
	}
	gn.Info(msg)

	slog.Info("Step 3/3: Updating statistics")
	if err = vacuumAnalyze(ctx, pool); err != nil {
		return err
	}

	slog.Info("Database optimization completed",
		"duration", gnfmt.TimeString(time.Since(start).Seconds()))
	return nil
}
