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

	"github.com/gnames/gn"
	"github.com/gnames/gntree/internal/iodb"
	"github.com/gnames/gntree/internal/ioschema"
	"github.com/gnames/gntree/pkg/db"
	"github.com/spf13/cobra"
)

func getMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Migrate database schema to latest version",
		Long: `Bring tables and indexes of an existing gntree database up to date.

Missing tables, columns and indexes are added, nothing is dropped. Run
it after upgrading gntree.

Examples:
  gntree migrate`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return withOperator(migrateSchema)
		},
	}
}

func migrateSchema(ctx context.Context, op db.Operator) error {
	ok, err := op.HasTables(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return iodb.EmptyDatabaseError(cfg.Database.Host, cfg.Database.Database)
	}

	if err = ioschema.NewManager(op).Migrate(ctx, cfg); err != nil {
		return err
	}
	gn.Info("Schema of <em>%s</em> is up to date", cfg.Database.Database)
	return nil
}
