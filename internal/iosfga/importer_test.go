package iosfga

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/gnames/gn"
	"github.com/gnames/gnlib/ent/nomcode"
	"github.com/gnames/gntree/pkg/config"
	"github.com/gnames/gntree/pkg/errcode"
	"github.com/gnames/gntree/pkg/parserpool"
	"github.com/gnames/gntree/pkg/taxon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ddl = `
CREATE TABLE name (col__id TEXT, col__scientific_name TEXT, col__rank_id TEXT);
CREATE TABLE taxon (col__id TEXT, col__parent_id TEXT, col__name_id TEXT);
CREATE TABLE vernacular (col__taxon_id TEXT, col__name TEXT, col__language TEXT);
`

var names = [][]string{
	{"n1", "Animalia", "kingdom"},
	{"n2", "Chordata Haeckel, 1874", "phylum"},
	{"n3", "Aves Linnaeus, 1758", "class"},
	{"n4", "Pica pica (Linnaeus, 1758)", "species"},
	{"n5", "Corvus corax Linnaeus, 1758", "species"},
	{"n6", "Lost taxon", "genus"},
	{"n7", "Lost child", "species"},
}

var taxa = [][]string{
	{"t1", "", "n1"},
	{"t2", "t1", "n2"},
	{"t3", "t2", "n3"},
	{"t4", "t3", "n4"},
	{"t5", "t3", "n5"},
	{"t6", "missing", "n6"},
	{"t7", "t6", "n7"},
}

func sfgaDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.sqlite")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(ddl)
	require.NoError(t, err)
	for _, v := range names {
		_, err = db.Exec("INSERT INTO name VALUES (?, ?, ?)", v[0], v[1], v[2])
		require.NoError(t, err)
	}
	for _, v := range taxa {
		_, err = db.Exec("INSERT INTO taxon VALUES (?, ?, ?)", v[0], v[1], v[2])
		require.NoError(t, err)
	}
	for _, v := range [][]string{
		{"t4", "Magpie", "ENG"},
		{"t4", "Magpie", "ENG"},
		{"t5", "Raven", ""},
		{"t7", "Lost", "eng"},
	} {
		_, err = db.Exec("INSERT INTO vernacular VALUES (?, ?, ?)", v[0], v[1], v[2])
		require.NoError(t, err)
	}
	return db
}

func TestSortNodes(t *testing.T) {
	nodes := map[string]*node{
		"1": {id: "1", name: "Plantae"},
		"2": {id: "2", name: "Animalia"},
		"3": {id: "3", parentID: "2", name: "Chordata"},
		"4": {id: "4", parentID: "2", name: "Arthropoda"},
		"5": {id: "5", parentID: "x", name: "Orphan"},
		"6": {id: "6", parentID: "7", name: "Loop a"},
		"7": {id: "7", parentID: "6", name: "Loop b"},
	}
	sorted, orphans := sortNodes(nodes)
	var ids []string
	for _, v := range sorted {
		ids = append(ids, v.id)
	}
	assert.Equal(t, []string{"2", "1", "4", "3"}, ids)
	assert.Len(t, orphans, 3)
}

func TestImportDB(t *testing.T) {
	ctx := context.Background()
	pool := parserpool.NewPool(2)
	defer pool.Close()
	store := taxon.NewMemStore()
	engine := taxon.NewEngine(store)
	imp := &importer{engine: engine, store: store, pool: pool}
	db := sfgaDB(t)

	res, err := imp.importDB(ctx, db, nomcode.Zoological, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Created)
	assert.Equal(t, 2, res.Skipped)
	assert.Zero(t, res.Failed)
	assert.Equal(t, 2, res.Vernaculars)

	all := store.All()
	require.Len(t, all, 5)
	byName := make(map[string]int64)
	for _, v := range all {
		byName[v.Name] = v.ID
	}
	pica, err := engine.Get(ctx, byName["Pica pica"])
	require.NoError(t, err)
	assert.Equal(t, "species", pica.Rank)
	anc, err := engine.Ancestors(ctx, pica.ID)
	require.NoError(t, err)
	require.Len(t, anc, 3)
	assert.Equal(t, "Animalia", anc[0].Name)

	tns, err := store.TaxonNames(ctx, pica.ID)
	require.NoError(t, err)
	var lex []string
	for _, v := range tns {
		lex = append(lex, v.Lexicon)
	}
	assert.ElementsMatch(t, []string{"scientific", "eng"}, lex)

	res, err = imp.importDB(ctx, db, nomcode.Zoological, 1)
	require.NoError(t, err)
	assert.Zero(t, res.Created)
	assert.Equal(t, 5, res.Existing)
	assert.Zero(t, res.Vernaculars, "names are not repeated")
	assert.Len(t, store.All(), 5)
}

func TestImportNoSource(t *testing.T) {
	imp := New(nil, nil, nil)
	_, err := imp.Import(context.Background(), config.New())
	gnErr, ok := err.(*gn.Error)
	require.True(t, ok)
	assert.Equal(t, errcode.ImportSFGAFetchError, gnErr.Code)
	assert.ErrorIs(t, gnErr.Err, ErrNoSource)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, nomcode.Zoological, codeOf("zoological"))
	assert.Equal(t, nomcode.Botanical, codeOf("botanical"))
	assert.Equal(t, nomcode.Botanical, codeOf(""))
}
