/*
Copyright © 2025 Dmitry Mozzherin <dmozzherin@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gnames/gn"
	"github.com/gnames/gntree/pkg/jobs"
	"github.com/spf13/cobra"
)

// getWorkerCmd returns the worker command.
func getWorkerCmd() *cobra.Command {
	var concurrency int

	workerCmd := &cobra.Command{
		Use:   "worker",
		Short: "Process background jobs",
		Long: `Worker runs background jobs until interrupted:

  guide_bundle         regenerate bundles of downloadable guides
  taxon_summary        fetch encyclopedia summaries of taxa
  observation_iconic   update iconic taxa of observations after tree changes

It also merges duplicate taxa on the 'worker.duplicates_schedule' cron
schedule and serves prometheus metrics at 'worker.metrics_addr'.

Examples:
  gntree worker
  gntree worker --concurrency 8`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("concurrency") && concurrency > 0 {
				cfg.Worker.Concurrency = concurrency
			}
			return runWorker()
		},
	}

	workerCmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0,
		"number of jobs processed at the same time")
	return workerCmd
}

func runWorker() error {
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := connect(ctx)
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}
	defer a.Close()

	guides, err := a.guides(ctx)
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	reg := jobs.NewRegistry()
	for _, h := range []jobs.Handler{
		guides.Handler(),
		a.summaries().Handler(),
		a.engine.Handler(),
	} {
		if err = reg.Register(h); err != nil {
			gn.PrintErrorMessage(err)
			return err
		}
	}

	metrics := jobs.NewMetrics("gntree")
	stopSweep, err := jobs.Schedule(ctx, cfg.Worker.DuplicatesSchedule,
		"duplicates sweep", func(ctx context.Context) error {
			res, err := a.engine.FindDuplicates(ctx)
			if res != nil {
				metrics.ObserveSweep(res.Merged, res.Failed)
			}
			return err
		})
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}
	defer stopSweep()

	srv := serveMetrics(cfg.Worker.MetricsAddr, metrics)

	w := jobs.NewWorker(a.queue, reg,
		jobs.OptConcurrency(cfg.Worker.Concurrency),
		jobs.OptPollInterval(cfg.Worker.PollInterval),
		jobs.OptMetrics(metrics),
	)
	w.Start(ctx)
	gn.Info("Worker is running with <em>%d</em> goroutines, press Ctrl-C to stop",
		cfg.Worker.Concurrency)

	<-ctx.Done()
	slog.Info("Stopping jobs worker")
	w.Wait()

	if srv != nil {
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err = srv.Shutdown(shutCtx); err != nil {
			slog.Warn("Cannot stop metrics server", "error", err)
		}
	}
	gn.Info("Worker stopped")
	return nil
}

// serveMetrics starts the prometheus endpoint in the background. Empty
// address disables it.
func serveMetrics(addr string, m *jobs.Metrics) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", "addr", addr, "error", err)
		}
	}()
	slog.Info("Serving metrics", "addr", addr)
	return srv
}
