package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/gnames/gnfmt"
	"github.com/robfig/cron/v3"
)

// Schedule runs task on a cron schedule until ctx is cancelled. A run that
// is still going when the next one is due makes the next one skip. The
// returned function stops the schedule and waits for a running task.
// An empty spec disables the schedule.
func Schedule(
	ctx context.Context,
	spec, name string,
	task func(context.Context) error,
) (func(), error) {
	if spec == "" {
		return func() {}, nil
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(spec, func() {
		if ctx.Err() != nil {
			return
		}
		start := time.Now()
		if err := task(ctx); err != nil {
			slog.Error("Scheduled task failed", "task", name, "error", err)
			return
		}
		slog.Info("Scheduled task done", "task", name,
			"duration", gnfmt.TimeString(time.Since(start).Seconds()))
	})
	if err != nil {
		return nil, ScheduleError(spec, err)
	}

	c.Start()
	slog.Info("Scheduled task", "task", name, "schedule", spec)
	stop := func() {
		<-c.Stop().Done()
	}
	return stop, nil
}
