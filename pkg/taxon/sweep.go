package taxon

import (
	"context"
	"log/slog"
	"time"

	"github.com/gnames/gnfmt"
)

// SweepResult summarizes a duplicates sweep.
type SweepResult struct {
	Passes int `json:"passes"`
	Groups int `json:"groups"`
	Merged int `json:"merged"`
	Failed int `json:"failed"`
}

// FindDuplicates merges taxa that share name and parent into the one with
// the lowest ID. A failed merge is logged and the sweep goes on. Merging
// can bring children with equal names under one parent, so the sweep
// repeats until a pass finds nothing to merge.
func (e *Engine) FindDuplicates(ctx context.Context) (*SweepResult, error) {
	start := time.Now()
	res := &SweepResult{}

	for res.Passes < e.sweeps {
		groups, err := e.store.DuplicateGroups(ctx)
		if err != nil {
			return res, wrapStore("find duplicate taxa", err)
		}
		if len(groups) == 0 {
			break
		}
		res.Passes++
		res.Groups += len(groups)

		var merged int
		for _, g := range groups {
			keeper := g[0]
			for _, id := range g[1:] {
				if err = ctx.Err(); err != nil {
					return res, err
				}
				if _, err = e.Merge(ctx, keeper, id); err != nil {
					res.Failed++
					slog.Warn("Cannot merge duplicate taxon",
						"keeper", keeper, "reject", id, "error", err)
					continue
				}
				merged++
			}
		}
		res.Merged += merged
		if merged == 0 {
			break
		}
	}

	slog.Info("Finished duplicates sweep",
		"passes", res.Passes,
		"groups", res.Groups,
		"merged", res.Merged,
		"failed", res.Failed,
		"duration", gnfmt.TimeString(time.Since(start).Seconds()),
	)
	return res, nil
}
