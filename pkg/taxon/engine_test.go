package taxon_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gnames/gn"
	"github.com/gnames/gntree/pkg/errcode"
	"github.com/gnames/gntree/pkg/jobs"
	"github.com/gnames/gntree/pkg/schema"
	"github.com/gnames/gntree/pkg/taxon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) (*taxon.Engine, *taxon.MemStore, *jobs.MemQueue) {
	t.Helper()
	store := taxon.NewMemStore()
	queue := jobs.NewMemQueue(3)
	return taxon.NewEngine(store, taxon.OptQueue(queue)), store, queue
}

func add(
	t *testing.T,
	e *taxon.Engine,
	name, rnk string,
	parent *schema.Taxon,
	iconic bool,
) *schema.Taxon {
	t.Helper()
	d := taxon.Draft{Name: name, Rank: rnk, IsIconic: iconic}
	if parent != nil {
		d.ParentID = &parent.ID
	}
	res, err := e.Create(context.Background(), d)
	require.NoError(t, err)
	return res
}

func get(t *testing.T, e *taxon.Engine, id int64) *schema.Taxon {
	t.Helper()
	res, err := e.Get(context.Background(), id)
	require.NoError(t, err)
	return res
}

func iconicOf(t *schema.Taxon) int64 {
	if t.IconicTaxonID == nil {
		return 0
	}
	return *t.IconicTaxonID
}

func TestPipelineNames(t *testing.T) {
	e, _, _ := newEngine(t)
	assert.Equal(t,
		[]string{"normalize", "validate", "persist", "recompute", "enqueue"},
		e.Pipeline().Names(),
	)
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	e, store, _ := newEngine(t)

	a := add(t, e, "Animalia", "Kingdom", nil, true)
	assert.Equal(t, "kingdom", a.Rank)
	require.NotNil(t, a.RankLevel)
	assert.Equal(t, 70, *a.RankLevel)
	assert.Equal(t, "", a.Ancestry)
	assert.Equal(t, a.ID, iconicOf(a))

	b := add(t, e, "chordata", "division", a, false)
	assert.Equal(t, "Chordata", b.Name)
	assert.Equal(t, "phylum", b.Rank)

	c := add(t, e, "Pica pica ssp. pica", "ssp", b, false)
	assert.Equal(t, "Pica pica pica", c.Name)
	assert.Equal(t, "subspecies", c.Rank)
	assert.Equal(t, a.ID, iconicOf(c), "iconic comes from the nearest ancestor")

	path := taxon.Path(c)
	assert.Equal(t, []int64{a.ID, b.ID}, []int64(path))

	u := add(t, e, "Incertae", "unranked", nil, false)
	assert.Equal(t, "", u.Rank)
	assert.Nil(t, u.RankLevel)
	assert.Nil(t, u.IconicTaxonID)

	names, err := store.TaxonNames(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, names, 1)
	assert.Equal(t, "Pica pica pica", names[0].Name)
	assert.Equal(t, schema.LexiconScientific, names[0].Lexicon)
	assert.True(t, names[0].IsValid)
	assert.NotEmpty(t, names[0].NameUUID)
}

func TestCreateValidation(t *testing.T) {
	e, store, _ := newEngine(t)
	a := add(t, e, "Plantae", "kingdom", nil, true)
	add(t, e, "Rosa", "genus", a, false)
	missing := int64(1000)

	tests := []struct {
		msg   string
		draft taxon.Draft
		field string
	}{
		{"blank name", taxon.Draft{Name: "  "}, "name"},
		{"missing parent", taxon.Draft{Name: "Rubus", ParentID: &missing}, "parent"},
		{"duplicate", taxon.Draft{Name: "rosa", ParentID: &a.ID}, "name"},
	}

	for _, v := range tests {
		t.Run(v.msg, func(t *testing.T) {
			before := store.All()
			_, err := e.Create(context.Background(), v.draft)
			require.Error(t, err)
			verr, ok := taxon.AsValidationError(err)
			require.True(t, ok)
			assert.True(t, verr.Has(v.field), verr.Error())
			assert.Equal(t, before, store.All(), "nothing is persisted")
		})
	}

	// same name under another parent is fine
	b := add(t, e, "Fungi", "kingdom", nil, true)
	add(t, e, "Rosa", "genus", b, false)
}

func TestMoveCycle(t *testing.T) {
	ctx := context.Background()
	e, store, _ := newEngine(t)
	a := add(t, e, "Animalia", "kingdom", nil, false)
	b := add(t, e, "Chordata", "phylum", a, false)
	c := add(t, e, "Aves", "class", b, false)
	before := store.All()

	_, err := e.Move(ctx, a.ID, &a.ID)
	verr, ok := taxon.AsValidationError(err)
	require.True(t, ok)
	assert.True(t, verr.Has("parent"))

	_, err = e.Move(ctx, a.ID, &c.ID)
	verr, ok = taxon.AsValidationError(err)
	require.True(t, ok)
	assert.True(t, verr.Has("parent"))

	assert.Equal(t, before, store.All(), "tree is unchanged")
}

func TestMoveNotFound(t *testing.T) {
	e, _, _ := newEngine(t)
	_, err := e.Move(context.Background(), 42, nil)
	require.Error(t, err)
	assert.True(t, taxon.IsNotFound(err))
	gnErr, ok := err.(*gn.Error)
	require.True(t, ok)
	assert.Equal(t, errcode.TaxonNotFoundError, gnErr.Code)
}

func TestMove(t *testing.T) {
	ctx := context.Background()
	e, store, queue := newEngine(t)

	animalia := add(t, e, "Animalia", "kingdom", nil, true)
	plantae := add(t, e, "Plantae", "kingdom", nil, true)
	group := add(t, e, "Misplaced", "order", animalia, false)
	fam := add(t, e, "Rosaceae", "family", group, false)
	gen := add(t, e, "Rosa", "genus", fam, false)
	aves := add(t, e, "Aves", "class", group, true)
	pica := add(t, e, "Pica", "genus", aves, false)

	obs := store.AddObservation(gen.ID, &animalia.ID)
	lt := store.AddListedTaxon(1, gen.ID)

	moved, err := e.Move(ctx, group.ID, &plantae.ID)
	require.NoError(t, err)
	assert.Equal(t, taxon.Path(plantae).Child(plantae.ID).String(), moved.Ancestry)
	assert.Equal(t, plantae.ID, iconicOf(moved))

	gen = get(t, e, gen.ID)
	assert.Equal(t, plantae.ID, iconicOf(gen), "iconic pushed to descendants")
	assert.Equal(t,
		taxon.Path(moved).Child(moved.ID).Child(fam.ID).String(),
		gen.Ancestry,
	)

	pica = get(t, e, pica.ID)
	assert.Equal(t, aves.ID, iconicOf(pica), "nested iconic taxon is kept")

	listed, ok := store.ListedTaxon(lt)
	require.True(t, ok)
	assert.Equal(t,
		taxon.Path(gen).Child(gen.ID).Join(","),
		listed.TaxonAncestorIDs,
	)

	pending := queue.Pending(jobs.ObservationIconic)
	require.Len(t, pending, 1)
	assert.Equal(t, group.ID, pending[0].EntityID)

	o, _ := store.Observation(obs)
	assert.Equal(t, animalia.ID, *o.IconicTaxonID, "observations wait for the job")
	n, err := e.ReconcileObservations(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	o, _ = store.Observation(obs)
	assert.Equal(t, plantae.ID, *o.IconicTaxonID)
}

func TestMoveDuplicateName(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newEngine(t)
	a := add(t, e, "Animalia", "kingdom", nil, false)
	b := add(t, e, "Plantae", "kingdom", nil, false)
	add(t, e, "Incertae", "", a, false)
	x := add(t, e, "Incertae", "", b, false)

	_, err := e.Move(ctx, x.ID, &a.ID)
	verr, ok := taxon.AsValidationError(err)
	require.True(t, ok)
	assert.True(t, verr.Has("name"))
}

func TestMoveToRoot(t *testing.T) {
	e, _, _ := newEngine(t)
	a := add(t, e, "Animalia", "kingdom", nil, true)
	b := add(t, e, "Chordata", "phylum", a, false)
	c := add(t, e, "Aves", "class", b, false)

	moved, err := e.Move(context.Background(), b.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "", moved.Ancestry)
	assert.Nil(t, moved.IconicTaxonID)

	c = get(t, e, c.ID)
	assert.Equal(t, taxon.Path(moved).Child(b.ID).String(), c.Ancestry)
	assert.Nil(t, c.IconicTaxonID)
}

func TestRootsShareName(t *testing.T) {
	ctx := context.Background()
	e, store, _ := newEngine(t)
	first := add(t, e, "Plantae", "kingdom", nil, true)
	second := add(t, e, "Plantae", "kingdom", nil, false)
	assert.NotEqual(t, first.ID, second.ID)

	// a child named like an existing root moves to the root level
	fungi := add(t, e, "Fungi", "kingdom", nil, false)
	child := add(t, e, "Plantae", "", fungi, false)
	moved, err := e.Move(ctx, child.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, moved.ParentID)
	assert.Equal(t, "", moved.Ancestry)

	var roots int
	for _, v := range store.All() {
		if v.ParentID == nil && v.Name == "Plantae" {
			roots++
		}
	}
	assert.Equal(t, 3, roots)
}

func TestMemStoreTaxonCopy(t *testing.T) {
	ctx := context.Background()
	e, store, _ := newEngine(t)
	a := add(t, e, "Animalia", "kingdom", nil, true)
	b := add(t, e, "Chordata", "phylum", a, false)

	res, err := store.Taxon(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, res.ParentID)
	require.NotNil(t, res.IconicTaxonID)
	require.NotNil(t, res.RankLevel)
	lvl := *res.RankLevel
	*res.ParentID = 42
	*res.IconicTaxonID = 42
	*res.RankLevel = 1

	stored, err := store.Taxon(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, *stored.ParentID)
	assert.Equal(t, a.ID, *stored.IconicTaxonID)
	assert.Equal(t, lvl, *stored.RankLevel)
}

func TestSetIconic(t *testing.T) {
	ctx := context.Background()
	e, _, queue := newEngine(t)
	a := add(t, e, "Animalia", "kingdom", nil, true)
	b := add(t, e, "Chordata", "phylum", a, false)
	c := add(t, e, "Aves", "class", b, false)
	d := add(t, e, "Pica", "genus", c, false)

	_, err := e.SetIconic(ctx, c.ID, true)
	require.NoError(t, err)
	assert.Equal(t, c.ID, iconicOf(get(t, e, c.ID)))
	assert.Equal(t, c.ID, iconicOf(get(t, e, d.ID)))
	assert.Equal(t, a.ID, iconicOf(get(t, e, b.ID)))

	ic, ok, err := e.Iconic().Get(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Aves", ic.Name)

	_, err = e.SetIconic(ctx, c.ID, false)
	require.NoError(t, err)
	assert.Equal(t, a.ID, iconicOf(get(t, e, d.ID)))

	_, ok, err = e.Iconic().Get(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, ok, "index is invalidated")

	assert.Len(t, queue.Pending(jobs.ObservationIconic), 1,
		"one pending job per taxon")
}

func TestStaleUpdate(t *testing.T) {
	ctx := context.Background()
	store := taxon.NewMemStore()
	e := taxon.NewEngine(store)
	a := add(t, e, "Animalia", "kingdom", nil, false)

	stale := *a
	_, err := e.SetIconic(ctx, a.ID, true)
	require.NoError(t, err)

	err = store.Update(ctx, &stale)
	assert.True(t, errors.Is(err, taxon.ErrStale))
}

func TestWikipediaFollowup(t *testing.T) {
	e, _, queue := newEngine(t)
	_, err := e.Create(context.Background(), taxon.Draft{
		Name:           "Pica",
		WikipediaTitle: "Magpie",
	})
	require.NoError(t, err)
	assert.Len(t, queue.Pending(jobs.TaxonSummary), 1)
}

func TestDescendants(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newEngine(t)
	a := add(t, e, "Animalia", "kingdom", nil, false)
	b := add(t, e, "Chordata", "phylum", a, false)
	add(t, e, "Mammalia", "class", b, false)
	add(t, e, "Aves", "class", b, false)
	add(t, e, "Arthropoda", "phylum", a, false)

	desc, err := e.Descendants(ctx, a.ID)
	require.NoError(t, err)
	var names []string
	for _, v := range desc {
		names = append(names, v.Name)
	}
	assert.Equal(t, []string{"Arthropoda", "Chordata", "Aves", "Mammalia"}, names)

	anc, err := e.Ancestors(ctx, desc[2].ID)
	require.NoError(t, err)
	require.Len(t, anc, 2)
	assert.Equal(t, "Animalia", anc[0].Name)
	assert.Equal(t, "Chordata", anc[1].Name)

	ch, err := e.Children(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, ch, 2)
}

func TestFindChild(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newEngine(t)
	a := add(t, e, "Animalia", "kingdom", nil, false)
	b := add(t, e, "Chordata", "phylum", a, false)

	res, err := e.FindChild(ctx, taxon.Draft{Name: "chordata", ParentID: &a.ID})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, b.ID, res.ID)

	res, err = e.FindChild(ctx, taxon.Draft{Name: "Animalia"})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, a.ID, res.ID)

	res, err = e.FindChild(ctx, taxon.Draft{Name: "Chordata"})
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestObservationsHandler(t *testing.T) {
	ctx := context.Background()
	e, store, _ := newEngine(t)
	plantae := add(t, e, "Plantae", "kingdom", nil, true)
	quercus := add(t, e, "Quercus", "genus", plantae, false)
	obs := store.AddObservation(quercus.ID, nil)

	h := e.Handler()
	assert.Equal(t, jobs.ObservationIconic, h.Type())
	require.NoError(t, h.Run(ctx, &schema.Job{EntityID: plantae.ID}))
	o, _ := store.Observation(obs)
	require.NotNil(t, o.IconicTaxonID)
	assert.Equal(t, plantae.ID, *o.IconicTaxonID)

	assert.NoError(t, h.Run(ctx, &schema.Job{EntityID: 999}),
		"missing taxon is not an error")
}
