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
	"github.com/gnames/gntree/internal/iosfga"
	"github.com/gnames/gntree/pkg/config"
	"github.com/spf13/cobra"
)

func getTaxonImportCmd() *cobra.Command {
	var source, code string

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import a tree of taxa from an SFGA archive",
		Long: `Import reads the classification of an SFGA archive (a local file
or a URL) and adds its taxa to the tree, parents before children.
Taxa that already exist under the same parent are reused, so the import
can be repeated. Vernacular names become common names of taxa.

Names are parsed with the botanical or zoological code.

Examples:
  gntree taxon import --source ~/data/birds.sqlite.zip --code zoological
  gntree taxon import -s https://example.org/sfga/plants.sql.zip`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var importOpts []config.Option
			if cmd.Flags().Changed("source") {
				importOpts = append(importOpts, config.OptImportSource(source))
			}
			if cmd.Flags().Changed("code") {
				importOpts = append(importOpts, config.OptImportCode(code))
			}
			cfg.Update(importOpts)

			if cfg.Import.Source == "" {
				err := iosfga.SourceError()
				gn.PrintErrorMessage(err)
				return err
			}

			return withApp(func(ctx context.Context, a *app) error {
				imp := iosfga.New(a.engine, a.store, a.parser())
				res, err := imp.Import(ctx, cfg)
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			})
		},
	}

	importCmd.Flags().StringVarP(&source, "source", "s", "",
		"path or URL of an SFGA archive")
	importCmd.Flags().StringVarP(&code, "code", "c", "",
		"nomenclatural code: botanical or zoological")
	return importCmd
}
