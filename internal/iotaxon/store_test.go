package iotaxon_test

import (
	"context"
	"testing"

	"github.com/gnames/gntree/internal/iotaxon"
	"github.com/gnames/gntree/internal/iotesting"
	"github.com/gnames/gntree/pkg/schema"
	"github.com/gnames/gntree/pkg/taxon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setup(t *testing.T) (*taxon.Engine, taxon.Store, *gorm.DB) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	op := iotesting.ConnectTestDB(t)
	store, err := iotaxon.New(op)
	require.NoError(t, err)
	gdb, err := op.GORM()
	require.NoError(t, err)
	return taxon.NewEngine(store), store, gdb
}

func add(
	t *testing.T,
	e *taxon.Engine,
	name string,
	parent *schema.Taxon,
	iconic bool,
) *schema.Taxon {
	t.Helper()
	d := taxon.Draft{Name: name, Rank: "genus", IsIconic: iconic}
	if parent != nil {
		d.ParentID = &parent.ID
	}
	res, err := e.Create(context.Background(), d)
	require.NoError(t, err)
	return res
}

func TestStoreBasics(t *testing.T) {
	ctx := context.Background()
	e, store, _ := setup(t)

	a := add(t, e, "Animalia", nil, true)
	b := add(t, e, "Chordata", a, false)
	c := add(t, e, "Aves", b, false)
	assert.Equal(t, a.ID, *c.IconicTaxonID)

	ok, err := store.NameExists(ctx, "Chordata", &a.ID, 0)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.NameExists(ctx, "Chordata", &a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = store.NameExists(ctx, "Animalia", nil, 0)
	require.NoError(t, err)
	assert.True(t, ok)

	desc, err := store.Descendants(ctx, a)
	require.NoError(t, err)
	assert.Len(t, desc, 2)

	names, err := store.TaxonNames(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, names, 1)
	assert.Equal(t, "Aves", names[0].Name)
	assert.NotEmpty(t, names[0].NameUUID)

	_, err = store.Taxon(ctx, 12345)
	assert.ErrorIs(t, err, taxon.ErrNotFound)
}

func TestStoreStale(t *testing.T) {
	ctx := context.Background()
	e, store, _ := setup(t)
	a := add(t, e, "Plantae", nil, false)

	first, err := store.Taxon(ctx, a.ID)
	require.NoError(t, err)
	second, err := store.Taxon(ctx, a.ID)
	require.NoError(t, err)

	first.WikipediaTitle = "Plant"
	require.NoError(t, store.Update(ctx, first))
	assert.Equal(t, a.LockVersion+1, first.LockVersion)

	second.WikipediaTitle = "Plants"
	err = store.Update(ctx, second)
	assert.ErrorIs(t, err, taxon.ErrStale)
	assert.Equal(t, a.LockVersion, second.LockVersion)
}

func TestStoreMoveAndMerge(t *testing.T) {
	ctx := context.Background()
	e, _, gdb := setup(t)

	a := add(t, e, "Animalia", nil, true)
	b := add(t, e, "Chordata", a, false)
	c := add(t, e, "Aves", b, false)
	d := add(t, e, "Corvus", c, false)
	p := add(t, e, "Plantae", nil, true)

	obs := schema.Observation{TaxonID: &d.ID, IconicTaxonID: &a.ID}
	require.NoError(t, gdb.Create(&obs).Error)
	lt := schema.ListedTaxon{ListID: 1, TaxonID: d.ID}
	require.NoError(t, gdb.Create(&lt).Error)

	_, err := e.Move(ctx, c.ID, &p.ID)
	require.NoError(t, err)

	moved, err := e.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, taxon.SubtreePrefix(get(t, e, c.ID)), moved.Ancestry)
	assert.Equal(t, p.ID, *moved.IconicTaxonID)

	require.NoError(t, gdb.First(&lt, lt.ID).Error)
	assert.Equal(t, taxon.Path(moved).Child(moved.ID).Join(","), lt.TaxonAncestorIDs)

	_, err = e.ReconcileObservations(ctx, p.ID)
	require.NoError(t, err)
	require.NoError(t, gdb.First(&obs, obs.ID).Error)
	assert.Equal(t, p.ID, *obs.IconicTaxonID)

	dup := add(t, e, "Corvidae", p, false)
	child := add(t, e, "Pica", dup, false)
	gt := schema.Guide{Title: "Birds", TaxonID: &dup.ID}
	require.NoError(t, gdb.Create(&gt).Error)

	res, err := e.Merge(ctx, c.ID, dup.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Children)

	require.NoError(t, gdb.First(&gt, gt.ID).Error)
	assert.Equal(t, c.ID, *gt.TaxonID)
	assert.Equal(t, c.ID, *get(t, e, child.ID).ParentID)
	_, err = e.Get(ctx, dup.ID)
	assert.True(t, taxon.IsNotFound(err))
}

func TestStoreDuplicates(t *testing.T) {
	ctx := context.Background()
	e, store, gdb := setup(t)

	a := add(t, e, "Animalia", nil, false)
	b := add(t, e, "Chordata", a, false)
	dup := schema.Taxon{Name: "Chordata", ParentID: &a.ID, Ancestry: taxon.SubtreePrefix(a)}
	require.NoError(t, gdb.Create(&dup).Error)

	groups, err := store.DuplicateGroups(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]int64{{b.ID, dup.ID}}, groups)

	res, err := e.FindDuplicates(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Merged)

	groups, err = store.DuplicateGroups(ctx)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func get(t *testing.T, e *taxon.Engine, id int64) *schema.Taxon {
	t.Helper()
	res, err := e.Get(context.Background(), id)
	require.NoError(t, err)
	return res
}
