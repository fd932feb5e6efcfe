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
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gnames/gn"
	"github.com/gnames/gntree/internal/ioschema"
	"github.com/gnames/gntree/pkg/db"
	"github.com/spf13/cobra"
)

func getCreateCmd() *cobra.Command {
	var force bool

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create database schema",
		Long: `Create tables of taxa, names, guides, observations and jobs.

Name columns get the C collation and the ancestry, duplicate lookup and
job claim indexes are added. If the database already has tables, they
are dropped after confirmation or right away with --force.

Examples:
  gntree create
  gntree create --force`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return withOperator(func(ctx context.Context, op db.Operator) error {
				return createSchema(ctx, op, force)
			})
		},
	}

	createCmd.Flags().BoolVarP(&force, "force", "f", false,
		"drop existing tables without confirmation")
	return createCmd
}

func createSchema(ctx context.Context, op db.Operator, force bool) error {
	ok, err := op.HasTables(ctx)
	if err != nil {
		return err
	}
	if ok {
		if !force && !confirm(os.Stdin) {
			gn.Info("Aborted, database is unchanged")
			return nil
		}
		if err = op.DropAllTables(ctx); err != nil {
			return err
		}
		gn.Info("Dropped existing tables")
	}

	if err = ioschema.NewManager(op).Create(ctx, cfg); err != nil {
		return err
	}

	gn.Info(`Schema of <em>%s</em> is created.

Import taxa with 'gntree taxon import --source <sfga>'
and run 'gntree worker' to process background jobs.`, cfg.Database.Database)
	return nil
}

// confirm asks before dropping existing tables.
func confirm(r io.Reader) bool {
	gn.Warn("<warn>Database %s is not empty.</warn>", cfg.Database.Database)
	fmt.Print("Drop ALL tables and data? (yes/no): ")

	answer, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "yes" || answer == "y"
}
