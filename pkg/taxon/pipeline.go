package taxon

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/gnames/gntree/pkg/ancestry"
	"github.com/gnames/gntree/pkg/jobs"
	"github.com/gnames/gntree/pkg/schema"
	"github.com/gnames/gnuuid"
)

// Kind tells what a mutation does to a taxon.
type Kind int

const (
	KindCreate Kind = iota
	KindMove
	KindIconic
)

func (k Kind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindMove:
		return "move"
	case KindIconic:
		return "iconic"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Mutation carries a taxon through pipeline steps.
type Mutation struct {
	Kind Kind

	// Taxon is the new state of the taxon.
	Taxon *schema.Taxon

	// Before is the stored state, nil for new taxa.
	Before *schema.Taxon

	// Parent is the parent of the new state, nil for roots.
	Parent *schema.Taxon

	// AllowDuplicateName skips the check of name uniqueness among
	// siblings. Merges use it to move children of the merged taxon.
	AllowDuplicateName bool

	// IconicChanged is set when the iconic taxon of the node changed.
	IconicChanged bool

	// OldIconic is the iconic taxon before the mutation.
	OldIconic *int64

	// Followups are jobs to enqueue after commit.
	Followups []Followup
}

// Followup is a job submitted after a successful commit.
type Followup struct {
	JobType  string
	EntityID int64
}

// Step is a named stage of the mutation pipeline.
type Step struct {
	Name string
	Run  func(ctx context.Context, tx Store, m *Mutation) error
}

// Pipeline is an ordered list of steps applied to every mutation.
type Pipeline []Step

// DefaultPipeline returns normalize, validate, persist, recompute and
// enqueue steps.
func DefaultPipeline() Pipeline {
	return Pipeline{
		{Name: "normalize", Run: normalizeStep},
		{Name: "validate", Run: validateStep},
		{Name: "persist", Run: persistStep},
		{Name: "recompute", Run: recomputeStep},
		{Name: "enqueue", Run: enqueueStep},
	}
}

// Names returns names of the steps in order.
func (p Pipeline) Names() []string {
	res := make([]string, len(p))
	for i, v := range p {
		res[i] = v.Name
	}
	return res
}

// Run applies all steps and stops at the first error.
func (p Pipeline) Run(ctx context.Context, tx Store, m *Mutation) error {
	for _, v := range p {
		if err := v.Run(ctx, tx, m); err != nil {
			slog.Debug("Mutation step failed",
				"step", v.Name, "kind", m.Kind.String(), "error", err)
			return err
		}
	}
	return nil
}

func normalizeStep(_ context.Context, _ Store, m *Mutation) error {
	Normalize(m.Taxon)
	return nil
}

func validateStep(ctx context.Context, tx Store, m *Mutation) error {
	t := m.Taxon
	verr := ValidateFields(t)
	if len(verr.Fields) > 0 {
		return verr
	}

	m.Parent = nil
	if t.ParentID != nil {
		parent, err := tx.Taxon(ctx, *t.ParentID)
		switch {
		case IsNotFound(err):
			verr.Add("parent", "does not exist")
			return verr
		case err != nil:
			return wrapStore("load parent", err)
		}
		if t.ID != 0 && IsDescendant(parent, t.ID) {
			verr.Add("parent", "can't be a descendant of the taxon")
			return verr
		}
		m.Parent = parent
	}

	// names are unique among siblings, roots may share a name
	if m.AllowDuplicateName || t.ParentID == nil || !nameOrParentChanged(m) {
		return nil
	}
	exists, err := tx.NameExists(ctx, t.Name, t.ParentID, t.ID)
	if err != nil {
		return wrapStore("check name uniqueness", err)
	}
	if exists {
		verr.Add("name", "already exists under this parent")
		return verr
	}
	return nil
}

func nameOrParentChanged(m *Mutation) bool {
	if m.Before == nil {
		return true
	}
	return m.Before.Name != m.Taxon.Name ||
		!sameID(m.Before.ParentID, m.Taxon.ParentID)
}

func persistStep(ctx context.Context, tx Store, m *Mutation) error {
	t := m.Taxon
	if m.Parent != nil {
		t.Ancestry = Path(m.Parent).Child(m.Parent.ID).String()
	} else {
		t.Ancestry = ""
	}

	if m.Before == nil {
		if err := tx.Insert(ctx, t); err != nil {
			return wrapStore("insert taxon", err)
		}
		return nil
	}

	if err := update(ctx, tx, t); err != nil {
		return err
	}
	if t.Ancestry != m.Before.Ancestry {
		_, err := tx.MoveSubtree(ctx, SubtreePrefix(m.Before), SubtreePrefix(t))
		if err != nil {
			return wrapStore("move subtree", err)
		}
	}
	return nil
}

func recomputeStep(ctx context.Context, tx Store, m *Mutation) error {
	t := m.Taxon
	anc, err := tx.Taxa(ctx, Path(t))
	if err != nil {
		return wrapStore("load ancestors", err)
	}

	m.OldIconic = t.IconicTaxonID
	if m.Before != nil {
		m.OldIconic = m.Before.IconicTaxonID
	}
	iconic := IconicFor(t, anc)
	m.IconicChanged = !sameID(m.OldIconic, iconic)

	if !sameID(t.IconicTaxonID, iconic) {
		t.IconicTaxonID = iconic
		if err = update(ctx, tx, t); err != nil {
			return err
		}
	}

	if m.Before != nil && m.IconicChanged {
		_, err = tx.PushIconic(ctx, t, m.OldIconic, iconic)
		if err != nil {
			return wrapStore("propagate iconic taxon", err)
		}
	}

	if m.Before == nil || t.Ancestry != m.Before.Ancestry {
		if _, err = tx.UpdateListedTaxa(ctx, t); err != nil {
			return wrapStore("update listed taxa", err)
		}
	}

	if m.Kind == KindCreate {
		return matchingName(ctx, tx, t)
	}
	return nil
}

// matchingName makes sure a taxon has a valid scientific name equal to its
// own name.
func matchingName(ctx context.Context, tx Store, t *schema.Taxon) error {
	names, err := tx.TaxonNames(ctx, t.ID)
	if err != nil {
		return wrapStore("load taxon names", err)
	}
	exists := slices.ContainsFunc(names, func(n schema.TaxonName) bool {
		return n.Name == t.Name && n.Lexicon == schema.LexiconScientific
	})
	if exists {
		return nil
	}
	tn := schema.TaxonName{
		TaxonID:  t.ID,
		Name:     t.Name,
		NameUUID: gnuuid.New(t.Name).String(),
		Lexicon:  schema.LexiconScientific,
		IsValid:  true,
	}
	return wrapStore("save taxon name", tx.SaveTaxonName(ctx, &tn))
}

func enqueueStep(_ context.Context, _ Store, m *Mutation) error {
	t := m.Taxon
	if m.Before != nil && m.IconicChanged {
		m.Followups = append(m.Followups,
			Followup{JobType: jobs.ObservationIconic, EntityID: t.ID})
	}
	titleChanged := m.Before == nil ||
		m.Before.WikipediaTitle != t.WikipediaTitle
	if titleChanged && t.WikipediaTitle != "" {
		m.Followups = append(m.Followups,
			Followup{JobType: jobs.TaxonSummary, EntityID: t.ID})
	}
	return nil
}

func update(ctx context.Context, tx Store, t *schema.Taxon) error {
	version := t.LockVersion
	err := tx.Update(ctx, t)
	switch {
	case err == nil:
		return nil
	case IsStale(err):
		return StaleError(t.ID, version)
	default:
		return wrapStore("update taxon", err)
	}
}

// orderAncestors returns ancestors in the order of the path, root first.
func orderAncestors(p ancestry.Path, taxa []schema.Taxon) []schema.Taxon {
	byID := make(map[int64]schema.Taxon, len(taxa))
	for _, v := range taxa {
		byID[v.ID] = v
	}
	res := make([]schema.Taxon, 0, len(p))
	for _, id := range p {
		if v, ok := byID[id]; ok {
			res = append(res, v)
		}
	}
	return res
}
