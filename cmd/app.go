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
	"log/slog"

	"github.com/gnames/gn"
	"github.com/gnames/gntree/internal/iobundle"
	"github.com/gnames/gntree/internal/ioclient"
	"github.com/gnames/gntree/internal/iocollection"
	"github.com/gnames/gntree/internal/iodb"
	"github.com/gnames/gntree/internal/ioguide"
	"github.com/gnames/gntree/internal/iojobs"
	"github.com/gnames/gntree/internal/iostore"
	"github.com/gnames/gntree/internal/iosummary"
	"github.com/gnames/gntree/internal/iotaxon"
	"github.com/gnames/gntree/pkg/db"
	"github.com/gnames/gntree/pkg/jobs"
	"github.com/gnames/gntree/pkg/parserpool"
	"github.com/gnames/gntree/pkg/summary"
	"github.com/gnames/gntree/pkg/taxon"
)

// app holds connected components shared by commands.
type app struct {
	op     db.Operator
	store  taxon.Store
	queue  jobs.Queue
	engine *taxon.Engine
	client *ioclient.Client
	pool   parserpool.Pool
}

// connect opens the database and builds the taxon engine with the
// persistent jobs queue.
func connect(ctx context.Context) (*app, error) {
	op := iodb.NewPgxOperator()
	if err := op.Connect(ctx, &cfg.Database); err != nil {
		return nil, err
	}

	hasTables, err := op.HasTables(ctx)
	if err != nil {
		op.Close()
		return nil, err
	}
	if !hasTables {
		op.Close()
		return nil, iodb.EmptyDatabaseError(cfg.Database.Host, cfg.Database.Database)
	}

	store, err := iotaxon.New(op)
	if err != nil {
		op.Close()
		return nil, err
	}

	queue := iojobs.New(op,
		iojobs.OptMaxAttempts(cfg.Worker.MaxAttempts),
		iojobs.OptRetryDelay(cfg.Worker.RetryDelay),
		iojobs.OptStaleRunning(cfg.Worker.StaleRunning),
	)

	res := &app{
		op:     op,
		store:  store,
		queue:  queue,
		engine: taxon.NewEngine(store,
			taxon.OptQueue(queue),
			taxon.OptIconicTTL(cfg.Worker.IconicTTL),
			taxon.OptSweepPasses(cfg.Worker.DuplicatesPasses),
		),
		client: ioclient.New(cfg.Services),
	}
	slog.Info("Connected to database",
		"host", cfg.Database.Host,
		"database", cfg.Database.Database,
	)
	return res, nil
}

// Close releases the parser pool and the database connection.
func (a *app) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if err := a.op.Close(); err != nil {
		slog.Warn("Cannot close database", "error", err)
	}
}

func (a *app) parser() parserpool.Pool {
	if a.pool == nil {
		a.pool = parserpool.NewPool(cfg.JobsNumber)
	}
	return a.pool
}

// summaries creates the summary service backed by the encyclopedia API.
func (a *app) summaries() *summary.Service {
	fetcher := iosummary.New(a.client, cfg.Services.WikipediaURL)
	return summary.New(a.store, fetcher, a.queue,
		summary.OptCoolDown(cfg.Services.SummaryCoolDown))
}

// guides creates the guide service with its collection source and bundle
// storage.
func (a *app) guides(ctx context.Context) (*ioguide.Service, error) {
	gdb, err := a.op.GORM()
	if err != nil {
		return nil, err
	}

	attachments, err := iostore.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	builder := iobundle.New(
		iobundle.OptConcurrency(cfg.Bundle.FetchConcurrency),
		iobundle.OptTimeout(cfg.Bundle.FetchTimeout),
	)
	collections := iocollection.New(a.client, cfg.Services.CollectionURL, a.parser())

	res := ioguide.New(gdb, a.engine, a.queue,
		ioguide.OptCollections(collections),
		ioguide.OptBundles(builder, attachments),
	)
	return res, nil
}

// withApp connects, runs fn and prints its error for the user.
func withApp(fn func(ctx context.Context, a *app) error) error {
	ctx := context.Background()
	a, err := connect(ctx)
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}
	defer a.Close()

	if err = fn(ctx, a); err != nil {
		printError(err)
		return err
	}
	return nil
}

// withOperator connects to the database without building the engine.
// Schema commands use it because tables may not exist yet.
func withOperator(fn func(ctx context.Context, op db.Operator) error) error {
	ctx := context.Background()
	op := iodb.NewPgxOperator()
	if err := op.Connect(ctx, &cfg.Database); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}
	defer op.Close()

	if err := fn(ctx, op); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}
	return nil
}

// printError shows validation problems field by field and other errors
// through gn.
func printError(err error) {
	if verr, ok := taxon.AsValidationError(err); ok {
		for _, v := range verr.Fields {
			gn.Warn("<warn>%s</warn> %s", v.Field, v.Message)
		}
		return
	}
	gn.PrintErrorMessage(err)
}
