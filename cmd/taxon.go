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
	"github.com/gnames/gntree/pkg/schema"
	"github.com/gnames/gntree/pkg/taxon"
	"github.com/spf13/cobra"
)

// getTaxonCmd returns the taxon command with its subcommands.
func getTaxonCmd() *cobra.Command {
	taxonCmd := &cobra.Command{
		Use:   "taxon",
		Short: "Create, move, merge and inspect taxa",
		Long: `Taxon commands change the tree of taxa. Every change keeps ancestry
paths, iconic taxa and listed taxa of the affected subtree consistent.
Observations are updated by the 'observation_iconic' background job.`,
	}

	taxonCmd.AddCommand(
		getTaxonAddCmd(),
		getTaxonMoveCmd(),
		getTaxonIconicCmd(),
		getTaxonMergeCmd(),
		getTaxonShowCmd(),
		getTaxonDedupeCmd(),
		getTaxonSummaryCmd(),
		getTaxonImportCmd(),
	)
	return taxonCmd
}

func getTaxonAddCmd() *cobra.Command {
	var d taxon.Draft

	addCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a taxon",
		Long: `Add a taxon to the tree. The rank is normalized, the name is
capitalized and the iconic taxon is inherited from the nearest iconic
ancestor.

Examples:
  gntree taxon add Corvus --rank genus --parent 12
  gntree taxon add Aves --rank class --parent 3 --iconic`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d.Name = args[0]
			parentID, _, err := optionalID(cmd, "parent")
			if err != nil {
				gn.PrintErrorMessage(err)
				return err
			}
			d.ParentID = parentID
			return withApp(func(ctx context.Context, a *app) error {
				t, err := a.engine.Create(ctx, d)
				if err != nil {
					return err
				}
				return printJSON(cmd, t)
			})
		},
	}

	addCmd.Flags().StringVarP(&d.Rank, "rank", "r", "", "rank of the taxon")
	addCmd.Flags().Int64P("parent", "p", 0, "ID of the parent taxon")
	addCmd.Flags().BoolVarP(&d.IsIconic, "iconic", "i", false,
		"mark the taxon as iconic")
	addCmd.Flags().StringVarP(&d.WikipediaTitle, "wikipedia-title", "w", "",
		"title of the encyclopedia article")
	return addCmd
}

func getTaxonMoveCmd() *cobra.Command {
	moveCmd := &cobra.Command{
		Use:   "move <id>",
		Short: "Move a taxon with its subtree under another parent",
		Long: `Move a taxon and all its descendants under a new parent. Parent 0
makes the taxon a root. A taxon cannot move under itself or its
descendant.

Examples:
  gntree taxon move 42 --parent 7
  gntree taxon move 42 --parent 0`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				gn.PrintErrorMessage(err)
				return err
			}
			parentID, _, err := optionalID(cmd, "parent")
			if err != nil {
				gn.PrintErrorMessage(err)
				return err
			}
			return withApp(func(ctx context.Context, a *app) error {
				t, err := a.engine.Move(ctx, id, parentID)
				if err != nil {
					return err
				}
				return printJSON(cmd, t)
			})
		},
	}

	moveCmd.Flags().Int64P("parent", "p", 0, "ID of the new parent, 0 for root")
	_ = moveCmd.MarkFlagRequired("parent")
	return moveCmd
}

// iconicOutput is an iconic taxon with its common group name.
type iconicOutput struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Rank        string `json:"rank,omitempty"`
}

func newIconicOutput(t schema.Taxon) iconicOutput {
	return iconicOutput{
		ID:          t.ID,
		Name:        t.Name,
		DisplayName: taxon.DisplayName(t.Name),
		Rank:        t.Rank,
	}
}

func getTaxonIconicCmd() *cobra.Command {
	var off, list bool

	iconicCmd := &cobra.Command{
		Use:   "iconic <id>",
		Short: "Mark or unmark a taxon as iconic",
		Long: `Iconic taxa are broad groups such as birds or plants. Every taxon
refers to its nearest iconic ancestor or to itself. Changing the flag
updates the whole subtree.

Examples:
  gntree taxon iconic 3
  gntree taxon iconic 3 --off
  gntree taxon iconic --list`,
		Args: func(cmd *cobra.Command, args []string) error {
			if list {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				return withApp(func(ctx context.Context, a *app) error {
					taxa, err := a.engine.Iconic().All(ctx)
					if err != nil {
						return err
					}
					res := make([]iconicOutput, len(taxa))
					for i, v := range taxa {
						res[i] = newIconicOutput(v)
					}
					return printJSON(cmd, res)
				})
			}
			id, err := parseID(args[0])
			if err != nil {
				gn.PrintErrorMessage(err)
				return err
			}
			return withApp(func(ctx context.Context, a *app) error {
				t, err := a.engine.SetIconic(ctx, id, !off)
				if err != nil {
					return err
				}
				return printJSON(cmd, t)
			})
		},
	}

	iconicCmd.Flags().BoolVar(&off, "off", false, "remove the iconic flag")
	iconicCmd.Flags().BoolVarP(&list, "list", "l", false,
		"list iconic taxa, shallow ones first")
	return iconicCmd
}

func getTaxonMergeCmd() *cobra.Command {
	mergeCmd := &cobra.Command{
		Use:   "merge <keeper-id> <reject-id>",
		Short: "Merge one taxon into another",
		Long: `Merge moves children, names and all references of the rejected
taxon to the keeper and deletes the rejected taxon. The merge either
completes fully or changes nothing.

Examples:
  gntree taxon merge 12 15`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			keeper, err := parseID(args[0])
			if err != nil {
				gn.PrintErrorMessage(err)
				return err
			}
			reject, err := parseID(args[1])
			if err != nil {
				gn.PrintErrorMessage(err)
				return err
			}
			return withApp(func(ctx context.Context, a *app) error {
				res, err := a.engine.Merge(ctx, keeper, reject)
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			})
		},
	}
	return mergeCmd
}

// taxonOutput is a taxon with its neighbourhood in the tree.
type taxonOutput struct {
	Taxon     *schema.Taxon  `json:"taxon"`
	Iconic    *iconicOutput  `json:"iconic,omitempty"`
	Ancestors []schema.Taxon `json:"ancestors,omitempty"`
	Children  []schema.Taxon `json:"children,omitempty"`
}

func getTaxonShowCmd() *cobra.Command {
	var withChildren bool

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a taxon with its ancestors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				gn.PrintErrorMessage(err)
				return err
			}
			return withApp(func(ctx context.Context, a *app) error {
				var res taxonOutput
				if res.Taxon, err = a.engine.Get(ctx, id); err != nil {
					return err
				}
				if res.Ancestors, err = a.engine.Ancestors(ctx, id); err != nil {
					return err
				}
				if res.Iconic, err = iconicOf(ctx, a.engine, res.Taxon); err != nil {
					return err
				}
				if withChildren {
					if res.Children, err = a.engine.Children(ctx, id); err != nil {
						return err
					}
				}
				return printJSON(cmd, res)
			})
		},
	}

	showCmd.Flags().BoolVarP(&withChildren, "children", "c", false,
		"include direct children")
	return showCmd
}

// iconicOf finds the iconic group of a taxon in the engine's index.
func iconicOf(
	ctx context.Context,
	e *taxon.Engine,
	t *schema.Taxon,
) (*iconicOutput, error) {
	if t.IconicTaxonID == nil {
		return nil, nil
	}
	ic, ok, err := e.Iconic().Get(ctx, *t.IconicTaxonID)
	if err != nil || !ok {
		return nil, err
	}
	res := newIconicOutput(ic)
	return &res, nil
}

func getTaxonDedupeCmd() *cobra.Command {
	dedupeCmd := &cobra.Command{
		Use:   "dedupe",
		Short: "Merge taxa that share a name and a parent",
		Long: `Dedupe finds groups of taxa with the same name under the same
parent and merges each group into its member with the lowest ID. The
worker runs the same sweep on a schedule.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				res, err := a.engine.FindDuplicates(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			})
		},
	}
	return dedupeCmd
}

// summaryOutput is a stored summary of a taxon.
type summaryOutput struct {
	ID      int64  `json:"id"`
	Summary string `json:"summary"`
}

func getTaxonSummaryCmd() *cobra.Command {
	var reload, now bool

	summaryCmd := &cobra.Command{
		Use:   "summary <id>",
		Short: "Show the encyclopedia summary of a taxon",
		Long: `Summary prints the stored summary of a taxon. A missing summary is
requested by a background job, --now fetches it right away instead.
After a failed lookup new lookups wait for a cool-down period.

Examples:
  gntree taxon summary 42
  gntree taxon summary 42 --reload
  gntree taxon summary 42 --now`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				gn.PrintErrorMessage(err)
				return err
			}
			return withApp(func(ctx context.Context, a *app) error {
				svc := a.summaries()
				res := summaryOutput{ID: id}
				if now {
					res.Summary, err = svc.Refresh(ctx, id)
				} else {
					res.Summary, err = svc.Summary(ctx, id, reload)
				}
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			})
		},
	}

	summaryCmd.Flags().BoolVarP(&reload, "reload", "r", false,
		"request a new lookup even if a summary exists")
	summaryCmd.Flags().BoolVarP(&now, "now", "n", false,
		"fetch the summary synchronously")
	return summaryCmd
}
