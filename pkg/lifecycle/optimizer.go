package lifecycle

import (
	"context"

	"github.com/gnames/gntree/pkg/config"
)

// Optimizer tidies up a populated database: merges duplicate taxa,
// removes records orphaned by deletions and refreshes planner statistics.
// Every run repeats all steps.
type Optimizer interface {
	Optimize(ctx context.Context, cfg *config.Config) error
}
