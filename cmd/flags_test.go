package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gnames/gntree/pkg/config"
	"github.com/gnames/gntree/pkg/schema"
	"github.com/gnames/gntree/pkg/taxon"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, v := range []string{"", "0", "-3", "abc", "4.2"} {
		_, err = parseID(v)
		assert.Error(t, err, v)
	}
}

func TestOptionalID(t *testing.T) {
	newCmd := func(args ...string) *cobra.Command {
		c := &cobra.Command{}
		c.Flags().Int64("parent", 0, "")
		require.NoError(t, c.Flags().Parse(args))
		return c
	}

	id, set, err := optionalID(newCmd(), "parent")
	require.NoError(t, err)
	assert.Nil(t, id)
	assert.False(t, set)

	id, set, err = optionalID(newCmd("--parent", "7"), "parent")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, int64(7), *id)
	assert.True(t, set)

	id, set, err = optionalID(newCmd("--parent", "0"), "parent")
	require.NoError(t, err)
	assert.Nil(t, id, "zero means no parent")
	assert.True(t, set)

	_, _, err = optionalID(newCmd("--parent", "-1"), "parent")
	assert.Error(t, err)
}

func TestPrintJSON(t *testing.T) {
	c := &cobra.Command{}
	buf := new(bytes.Buffer)
	c.SetOut(buf)

	require.NoError(t, printJSON(c, schema.Taxon{ID: 3, Name: "Aves"}))
	assert.Contains(t, buf.String(), `"name": "Aves"`)
}

func TestNormalizeRanks(t *testing.T) {
	res := normalizeRanks([]string{"ssp.", "Division", "unranked", "clade"})
	require.Len(t, res, 4)

	assert.Equal(t, "subspecies", res[0].Rank)
	assert.True(t, res[0].Canonical)
	assert.Positive(t, res[0].Level)

	assert.Equal(t, "phylum", res[1].Rank)
	assert.Greater(t, res[1].Level, res[0].Level)

	assert.Empty(t, res[2].Rank)
	assert.Equal(t, "unranked", res[2].Input)

	assert.Equal(t, "clade", res[3].Rank)
	assert.False(t, res[3].Canonical)
	assert.Zero(t, res[3].Level)
}

func TestListRanks(t *testing.T) {
	all := listRanks(false)
	pref := listRanks(true)
	assert.Equal(t, "kingdom", all[0])
	assert.Less(t, len(pref), len(all))
	for _, v := range pref {
		assert.Contains(t, all, v)
	}
}

func TestIconicArgs(t *testing.T) {
	c := getTaxonIconicCmd()
	require.NoError(t, c.ValidateArgs([]string{"3"}))
	assert.Error(t, c.ValidateArgs(nil))

	require.NoError(t, c.Flags().Parse([]string{"--list"}))
	require.NoError(t, c.ValidateArgs(nil))
	assert.Error(t, c.ValidateArgs([]string{"3"}))
}

func TestIconicOf(t *testing.T) {
	ctx := context.Background()
	e := taxon.NewEngine(taxon.NewMemStore())
	aves, err := e.Create(ctx, taxon.Draft{Name: "Aves", Rank: "class", IsIconic: true})
	require.NoError(t, err)
	pica, err := e.Create(ctx, taxon.Draft{Name: "Pica", Rank: "genus", ParentID: &aves.ID})
	require.NoError(t, err)
	plain, err := e.Create(ctx, taxon.Draft{Name: "Incertae", Rank: "genus"})
	require.NoError(t, err)

	res, err := iconicOf(ctx, e, pica)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, aves.ID, res.ID)
	assert.Equal(t, "Birds", res.DisplayName)

	res, err = iconicOf(ctx, e, plain)
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestGuideChanges(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	parse := func(args ...string) *cobra.Command {
		c := getGuideUpdateCmd()
		require.NoError(t, c.Flags().Parse(args))
		return c
	}

	res, err := guideChanges(parse(), now)
	require.NoError(t, err)
	assert.Nil(t, res.Title)
	assert.Nil(t, res.Downloadable)
	assert.Nil(t, res.PublishedAt)
	assert.False(t, res.Unpublish)

	res, err = guideChanges(parse("--title", "Owls", "--description", "",
		"--downloadable=false", "--publish"), now)
	require.NoError(t, err)
	assert.Equal(t, "Owls", *res.Title)
	require.NotNil(t, res.Description)
	assert.Empty(t, *res.Description, "explicit empty description")
	assert.False(t, *res.Downloadable)
	assert.Equal(t, now, *res.PublishedAt)
	assert.Nil(t, res.IconURL)

	res, err = guideChanges(parse("--unpublish"), now)
	require.NoError(t, err)
	assert.True(t, res.Unpublish)

	_, err = guideChanges(parse("--publish", "--unpublish"), now)
	assert.Error(t, err)
}

func TestGuideEntry(t *testing.T) {
	c := getGuideAddCmd()
	require.NoError(t, c.Flags().Parse([]string{
		"--taxon", "42", "--description", "Black and white",
		"--photo", "https://example.org/1.jpg",
		"--photo", "https://example.org/2.jpg",
	}))

	res, err := guideEntry(c)
	require.NoError(t, err)
	require.NotNil(t, res.TaxonID)
	assert.Equal(t, int64(42), *res.TaxonID)
	assert.Empty(t, res.Name)
	assert.Equal(t, "Black and white", res.Description)
	require.Len(t, res.Photos, 2)
	assert.Equal(t, "https://example.org/2.jpg", res.Photos[1].MediumURL)
	assert.Equal(t, schema.PhotoKind, res.Photos[0].Kind)
}

func TestConfirm(t *testing.T) {
	cfg = config.New()
	tests := []struct {
		input string
		res   bool
	}{
		{"yes\n", true},
		{"Y\n", true},
		{"  yes  ", true},
		{"no\n", false},
		{"", false},
		{"maybe\n", false},
	}
	for _, v := range tests {
		assert.Equal(t, v.res, confirm(strings.NewReader(v.input)), v.input)
	}
}
