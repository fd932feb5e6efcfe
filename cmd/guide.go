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
	"time"

	"github.com/gnames/gn"
	"github.com/gnames/gntree/pkg/guide"
	"github.com/gnames/gntree/pkg/schema"
	"github.com/spf13/cobra"
)

// getGuideCmd returns the guide command with its subcommands.
func getGuideCmd() *cobra.Command {
	guideCmd := &cobra.Command{
		Use:   "guide",
		Short: "Manage field guides",
		Long: `A field guide is an ordered list of taxa with descriptions and
photos. Downloadable guides are packed into .ngz bundles by the worker
whenever their title, description or publication changes.`,
	}

	guideCmd.AddCommand(
		getGuideCreateCmd(),
		getGuideUpdateCmd(),
		getGuideShowCmd(),
		getGuideDeleteCmd(),
		getGuideAddCmd(),
		getGuideConsensusCmd(),
		getGuideReorderCmd(),
		getGuideImportCmd(),
		getGuideBundleCmd(),
	)
	return guideCmd
}

// guideIDCmd builds a command that takes a guide ID and runs fn with the
// guide service.
func guideIDCmd(
	use, short string,
	fn func(ctx context.Context, cmd *cobra.Command, svc guide.Service, id int64) error,
) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <guide-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				gn.PrintErrorMessage(err)
				return err
			}
			return withApp(func(ctx context.Context, a *app) error {
				svc, err := a.guides(ctx)
				if err != nil {
					return err
				}
				return fn(ctx, cmd, svc, id)
			})
		},
	}
}

func getGuideCreateCmd() *cobra.Command {
	var (
		d       guide.Draft
		publish bool
	)

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a guide",
		Long: `Create a guide. When --source points to an external collection,
missing title, description and icon are taken from the collection and
its items become entries of the guide.

Examples:
  gntree guide create --title "Birds of Zurich" --downloadable
  gntree guide create --source https://eol.org/collections/176`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			taxonID, _, err := optionalID(cmd, "taxon")
			if err != nil {
				gn.PrintErrorMessage(err)
				return err
			}
			d.TaxonID = taxonID
			if publish {
				now := time.Now()
				d.PublishedAt = &now
			}
			return withApp(func(ctx context.Context, a *app) error {
				svc, err := a.guides(ctx)
				if err != nil {
					return err
				}
				g, err := svc.Create(ctx, d)
				if err != nil {
					return err
				}
				return printJSON(cmd, g)
			})
		},
	}

	f := createCmd.Flags()
	f.StringVarP(&d.Title, "title", "t", "", "title of the guide")
	f.StringVarP(&d.Description, "description", "d", "", "description of the guide")
	f.StringVarP(&d.SourceURL, "source", "s", "", "URL of an external collection")
	f.StringVar(&d.IconURL, "icon", "", "URL of the guide icon")
	f.BoolVar(&d.Downloadable, "downloadable", false, "generate a bundle")
	f.BoolVar(&publish, "publish", false, "publish the guide now")
	f.Int64("taxon", 0, "ID of the guide taxon")
	return createCmd
}

func getGuideUpdateCmd() *cobra.Command {
	updateCmd := guideIDCmd("update", "Change a guide",
		func(ctx context.Context, cmd *cobra.Command, svc guide.Service, id int64) error {
			c, err := guideChanges(cmd, time.Now())
			if err != nil {
				return err
			}
			g, err := svc.Update(ctx, id, c)
			if err != nil {
				return err
			}
			return printJSON(cmd, g)
		})
	updateCmd.Long = `Update changes fields given by flags. A change of title, description,
downloadable flag or publication regenerates the bundle of a
downloadable guide and discards the bundle of a guide that is not
downloadable anymore.

Examples:
  gntree guide update 3 --title "Owls of Zurich"
  gntree guide update 3 --downloadable=false
  gntree guide update 3 --publish`

	f := updateCmd.Flags()
	f.StringP("title", "t", "", "new title")
	f.StringP("description", "d", "", "new description")
	f.String("icon", "", "new icon URL")
	f.Bool("downloadable", false, "generate a bundle")
	f.Bool("publish", false, "publish the guide now")
	f.Bool("unpublish", false, "remove the publication date")
	return updateCmd
}

// guideChanges collects changed flags of the update command.
func guideChanges(cmd *cobra.Command, now time.Time) (guide.Changes, error) {
	var res guide.Changes
	f := cmd.Flags()

	str := func(name string) *string {
		if !f.Changed(name) {
			return nil
		}
		s, _ := f.GetString(name)
		return &s
	}
	res.Title = str("title")
	res.Description = str("description")
	res.IconURL = str("icon")

	if f.Changed("downloadable") {
		b, _ := f.GetBool("downloadable")
		res.Downloadable = &b
	}

	publish, _ := f.GetBool("publish")
	unpublish, _ := f.GetBool("unpublish")
	if publish && unpublish {
		return res, errors.New("--publish and --unpublish are mutually exclusive")
	}
	if publish {
		res.PublishedAt = &now
	}
	res.Unpublish = unpublish
	return res, nil
}

func getGuideShowCmd() *cobra.Command {
	return guideIDCmd("show", "Show a guide with its entries",
		func(ctx context.Context, cmd *cobra.Command, svc guide.Service, id int64) error {
			g, err := svc.Get(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(cmd, g)
		})
}

func getGuideDeleteCmd() *cobra.Command {
	return guideIDCmd("delete", "Delete a guide, its entries and bundle",
		func(ctx context.Context, _ *cobra.Command, svc guide.Service, id int64) error {
			if err := svc.Delete(ctx, id); err != nil {
				return err
			}
			gn.Info("Deleted guide <em>%d</em>", id)
			return nil
		})
}

func getGuideAddCmd() *cobra.Command {
	addCmd := guideIDCmd("add", "Add an entry to the end of a guide",
		func(ctx context.Context, cmd *cobra.Command, svc guide.Service, id int64) error {
			e, err := guideEntry(cmd)
			if err != nil {
				return err
			}
			res, err := svc.AddEntry(ctx, id, e)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		})
	addCmd.Long = `Add an entry for a taxon or a free-text name. Every --photo URL
becomes a photo of the entry in all sizes.

Examples:
  gntree guide add 3 --taxon 42 --photo https://example.org/pica.jpg
  gntree guide add 3 --name "Unknown owl" --description "Heard at night"`

	f := addCmd.Flags()
	f.Int64("taxon", 0, "ID of the entry taxon")
	f.StringP("name", "n", "", "name of the entry, taxon name by default")
	f.String("display-name", "", "common name shown in the guide")
	f.StringP("description", "d", "", "description of the entry")
	f.StringSlice("photo", nil, "photo URL, can be repeated")
	return addCmd
}

// guideEntry reads an entry from flags of the add command.
func guideEntry(cmd *cobra.Command) (guide.Entry, error) {
	var res guide.Entry
	var err error
	f := cmd.Flags()

	if res.TaxonID, _, err = optionalID(cmd, "taxon"); err != nil {
		return res, err
	}
	res.Name, _ = f.GetString("name")
	res.DisplayName, _ = f.GetString("display-name")
	res.Description, _ = f.GetString("description")

	urls, _ := f.GetStringSlice("photo")
	for _, v := range urls {
		res.Photos = append(res.Photos, schema.GuidePhoto{
			Kind:      schema.PhotoKind,
			ThumbURL:  v,
			SmallURL:  v,
			MediumURL: v,
		})
	}
	return res, nil
}

// consensusOutput is the consensus taxon of a guide.
type consensusOutput struct {
	GuideID int64  `json:"guideId"`
	TaxonID *int64 `json:"taxonId"`
}

func getGuideConsensusCmd() *cobra.Command {
	return guideIDCmd("consensus", "Set the guide taxon to the consensus of its entries",
		func(ctx context.Context, cmd *cobra.Command, svc guide.Service, id int64) error {
			taxonID, err := svc.SetTaxon(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(cmd, consensusOutput{GuideID: id, TaxonID: taxonID})
		})
}

func getGuideReorderCmd() *cobra.Command {
	return guideIDCmd("reorder", "Order guide entries following the tree of taxa",
		func(ctx context.Context, cmd *cobra.Command, svc guide.Service, id int64) error {
			if err := svc.ReorderByTaxonomy(ctx, id); err != nil {
				return err
			}
			g, err := svc.Get(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(cmd, g)
		})
}

func getGuideImportCmd() *cobra.Command {
	importCmd := guideIDCmd("import", "Import entries from a subtree or a collection",
		func(ctx context.Context, cmd *cobra.Command, svc guide.Service, id int64) error {
			var opts guide.ImportOptions
			var err error
			if opts.TaxonID, _, err = optionalID(cmd, "taxon"); err != nil {
				return err
			}
			opts.CollectionURL, _ = cmd.Flags().GetString("collection")
			res, err := svc.ImportTaxa(ctx, id, opts)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		})
	importCmd.Long = `Import adds entries for a taxon and all its descendants, or for the
items of an external collection. Entries that cannot be saved are
reported and skipped.

Examples:
  gntree guide import 3 --taxon 42
  gntree guide import 3 --collection https://eol.org/collections/176`

	importCmd.Flags().Int64("taxon", 0, "ID of the subtree root")
	importCmd.Flags().String("collection", "", "URL of an external collection")
	return importCmd
}

func getGuideBundleCmd() *cobra.Command {
	bundleCmd := guideIDCmd("bundle", "Generate the downloadable bundle of a guide",
		func(ctx context.Context, cmd *cobra.Command, svc guide.Service, id int64) error {
			g, err := svc.GenerateBundle(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(cmd, g)
		})
	bundleCmd.Long = `Bundle builds the .ngz archive of a downloadable guide right away:
guide XML, downloaded media and a manifest. The worker does the same
for guides changed since their last bundle.`
	return bundleCmd
}
