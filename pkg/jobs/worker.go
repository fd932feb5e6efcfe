package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gnames/gntree/pkg/schema"
)

// Worker claims jobs from a queue and runs them with registered handlers.
type Worker struct {
	queue        Queue
	registry     *Registry
	metrics      *Metrics
	concurrency  int
	pollInterval time.Duration

	wg sync.WaitGroup
}

// Option configures a Worker.
type Option func(*Worker)

// OptConcurrency sets the number of goroutines that run jobs.
func OptConcurrency(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.concurrency = n
		}
	}
}

// OptPollInterval sets how often an idle goroutine checks the queue.
func OptPollInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// OptMetrics sets the metrics collector.
func OptMetrics(m *Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

// NewWorker creates a Worker.
func NewWorker(q Queue, reg *Registry, opts ...Option) *Worker {
	res := &Worker{
		queue:        q,
		registry:     reg,
		concurrency:  1,
		pollInterval: time.Second,
	}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// Start launches worker goroutines. They stop when the context is
// cancelled; use Wait to block until they are done.
func (w *Worker) Start(ctx context.Context) {
	slog.Info("Starting jobs worker",
		"concurrency", w.concurrency,
		"poll", w.pollInterval.String(),
	)
	for i := range w.concurrency {
		w.wg.Add(1)
		go func(n int) {
			defer w.wg.Done()
			w.loop(ctx, n)
		}(i + 1)
	}
}

// Wait blocks until all worker goroutines exit.
func (w *Worker) Wait() {
	w.wg.Wait()
}

// RunOnce claims and runs one job. Returns false if the queue had nothing
// to run.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.queue.Claim(ctx)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	w.process(ctx, job)
	return true, nil
}

func (w *Worker) loop(ctx context.Context, n int) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		// drain the queue before waiting for the next tick
		for {
			if ctx.Err() != nil {
				return
			}
			ran, err := w.RunOnce(ctx)
			if err != nil {
				if ctx.Err() == nil {
					slog.Error("Cannot claim job", "worker", n, "error", err)
				}
				break
			}
			if !ran {
				break
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) process(ctx context.Context, job *schema.Job) {
	start := time.Now()
	w.metrics.started(job.JobType)

	err := w.run(ctx, job)

	// the outcome is saved even when shutdown interrupted the handler
	bookCtx := context.WithoutCancel(ctx)
	status := schema.JobSucceeded
	if err != nil {
		status = schema.JobFailed
		slog.Warn("Job failed",
			"id", job.ID,
			"type", job.JobType,
			"entity", job.EntityID,
			"attempt", job.Attempts,
			"error", err,
		)
		if ferr := w.queue.Fail(bookCtx, job.ID, err); ferr != nil {
			slog.Error("Cannot record job failure", "id", job.ID, "error", ferr)
		}
	} else {
		slog.Debug("Job done", "id", job.ID, "type", job.JobType,
			"entity", job.EntityID)
		if cerr := w.queue.Complete(bookCtx, job.ID); cerr != nil {
			slog.Error("Cannot complete job", "id", job.ID, "error", cerr)
		}
	}
	w.metrics.finished(job.JobType, status, time.Since(start))
}

func (w *Worker) run(ctx context.Context, job *schema.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = HandlerError(job.JobType,
				fmt.Errorf("panic: %v\n%s", r, debug.Stack()))
		}
	}()

	h, ok := w.registry.Get(job.JobType)
	if !ok {
		return HandlerError(job.JobType, errors.New("no handler"))
	}
	return h.Run(ctx, job)
}
