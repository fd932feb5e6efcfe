package cmd

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommands(t *testing.T) {
	tests := []struct {
		msg   string
		cmd   *cobra.Command
		use   string
		short string
		flags []string
	}{
		{"create", getCreateCmd(), "create", "schema", []string{"force"}},
		{"migrate", getMigrateCmd(), "migrate", "schema", nil},
		{"optimize", getOptimizeCmd(), "optimize", "taxa", nil},
		{"rank", getRankCmd(), "rank", "ranks", []string{"list", "preferred"}},
		{"worker", getWorkerCmd(), "worker", "jobs", []string{"concurrency"}},
		{"taxon add", getTaxonAddCmd(), "add", "taxon",
			[]string{"rank", "parent", "iconic", "wikipedia-title"}},
		{"taxon move", getTaxonMoveCmd(), "move", "subtree", []string{"parent"}},
		{"taxon iconic", getTaxonIconicCmd(), "iconic", "iconic",
			[]string{"off", "list"}},
		{"taxon merge", getTaxonMergeCmd(), "merge", "Merge", nil},
		{"taxon show", getTaxonShowCmd(), "show", "ancestors", []string{"children"}},
		{"taxon dedupe", getTaxonDedupeCmd(), "dedupe", "name", nil},
		{"taxon summary", getTaxonSummaryCmd(), "summary", "summary",
			[]string{"reload", "now"}},
		{"taxon import", getTaxonImportCmd(), "import", "SFGA",
			[]string{"source", "code"}},
		{"guide create", getGuideCreateCmd(), "create", "guide",
			[]string{"title", "description", "source", "icon", "downloadable",
				"publish", "taxon"}},
		{"guide update", getGuideUpdateCmd(), "update", "guide",
			[]string{"title", "description", "icon", "downloadable", "publish",
				"unpublish"}},
		{"guide add", getGuideAddCmd(), "add", "entry",
			[]string{"taxon", "name", "display-name", "description", "photo"}},
		{"guide consensus", getGuideConsensusCmd(), "consensus", "consensus", nil},
		{"guide reorder", getGuideReorderCmd(), "reorder", "taxa", nil},
		{"guide import", getGuideImportCmd(), "import", "collection",
			[]string{"taxon", "collection"}},
		{"guide bundle", getGuideBundleCmd(), "bundle", "bundle", nil},
	}

	for _, v := range tests {
		t.Run(v.msg, func(t *testing.T) {
			require.NotNil(t, v.cmd)
			assert.Equal(t, v.use, v.cmd.Name())
			assert.Contains(t, v.cmd.Short, v.short)
			assert.NotNil(t, v.cmd.RunE)
			for _, f := range v.flags {
				assert.NotNil(t, v.cmd.Flags().Lookup(f), "--%s", f)
			}
		})
	}
}

func TestSubcommands(t *testing.T) {
	names := func(c *cobra.Command) []string {
		var res []string
		for _, v := range c.Commands() {
			res = append(res, v.Name())
		}
		return res
	}

	assert.ElementsMatch(t,
		[]string{"add", "move", "iconic", "merge", "show", "dedupe", "summary",
			"import"},
		names(getTaxonCmd()))
	assert.ElementsMatch(t,
		[]string{"create", "update", "show", "delete", "add", "consensus",
			"reorder", "import", "bundle"},
		names(getGuideCmd()))
}

func TestArgs(t *testing.T) {
	merge := getTaxonMergeCmd()
	assert.Error(t, merge.Args(merge, []string{"1"}))
	assert.NoError(t, merge.Args(merge, []string{"1", "2"}))
	bundle := getGuideBundleCmd()
	assert.Error(t, bundle.Args(bundle, nil))
	dedupe := getTaxonDedupeCmd()
	assert.Error(t, dedupe.Args(dedupe, []string{"1"}))
}
