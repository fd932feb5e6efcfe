package taxon

import (
	"context"

	"github.com/gnames/gntree/pkg/schema"
)

// Store persists taxa and the records that depend on them. Mutating engine
// operations call Store methods only inside InTx.
type Store interface {
	// InTx runs fn in a transaction. If fn returns an error, all its
	// changes are discarded.
	InTx(ctx context.Context, fn func(tx Store) error) error

	// Taxon returns a taxon by ID or ErrNotFound.
	Taxon(ctx context.Context, id int64) (*schema.Taxon, error)

	// LockTaxa takes row locks on the taxa until the end of the
	// transaction. Missing IDs are ignored.
	LockTaxa(ctx context.Context, ids ...int64) error

	// Taxa returns existing taxa with given IDs, in no particular order.
	Taxa(ctx context.Context, ids []int64) ([]schema.Taxon, error)

	// Children returns immediate children of a taxon ordered by name.
	Children(ctx context.Context, id int64) ([]schema.Taxon, error)

	// Descendants returns all taxa in the subtree of t, without t itself.
	Descendants(ctx context.Context, t *schema.Taxon) ([]schema.Taxon, error)

	// NameExists checks if a taxon other than exceptID with the same name
	// shares the parent. Nil parentID means roots.
	NameExists(
		ctx context.Context,
		name string,
		parentID *int64,
		exceptID int64,
	) (bool, error)

	// ChildByName returns the taxon with the name under the parent, the
	// one with the lowest ID if there are several. Nil parentID means
	// roots. Returns ErrNotFound if there is none.
	ChildByName(ctx context.Context, parentID *int64, name string) (*schema.Taxon, error)

	// Insert saves a new taxon and sets its ID.
	Insert(ctx context.Context, t *schema.Taxon) error

	// Update saves all fields of a taxon if its LockVersion matches the
	// stored one, and increments LockVersion. Returns ErrStale otherwise.
	Update(ctx context.Context, t *schema.Taxon) error

	// SetSummary stores an external summary of a taxon without touching
	// its lock version.
	SetSummary(ctx context.Context, id int64, summary string) error

	// Delete removes a taxon.
	Delete(ctx context.Context, id int64) error

	// MoveSubtree replaces oldPrefix with newPrefix in the ancestry of
	// every taxon whose ancestry equals oldPrefix or starts with
	// oldPrefix + "/".
	MoveSubtree(ctx context.Context, oldPrefix, newPrefix string) (int64, error)

	// PushIconic sets iconic taxon to newID for descendants of t whose
	// iconic taxon is oldID or null.
	PushIconic(
		ctx context.Context,
		t *schema.Taxon,
		oldID, newID *int64,
	) (int64, error)

	// UpdateListedTaxa refreshes cached ancestor IDs of listed taxa of t
	// and of its descendants.
	UpdateListedTaxa(ctx context.Context, t *schema.Taxon) (int64, error)

	// TaxonNames returns names of a taxon.
	TaxonNames(ctx context.Context, taxonID int64) ([]schema.TaxonName, error)

	// SaveTaxonName inserts a name with zero ID or updates an existing one.
	SaveTaxonName(ctx context.Context, n *schema.TaxonName) error

	// DeleteTaxonName removes a name.
	DeleteTaxonName(ctx context.Context, id int64) error

	// RepointReferences moves references from one taxon to another and
	// returns the number of changed records.
	RepointReferences(
		ctx context.Context,
		ref schema.Reference,
		fromID, toID int64,
	) (int64, error)

	// IconicTaxa returns taxa flagged as iconic.
	IconicTaxa(ctx context.Context) ([]schema.Taxon, error)

	// DuplicateGroups returns IDs of taxa sharing name and parent. IDs
	// are sorted within a group, groups with one member are omitted.
	DuplicateGroups(ctx context.Context) ([][]int64, error)

	// ReconcileObservations copies iconic taxa of t and its descendants to
	// their observations.
	ReconcileObservations(ctx context.Context, t *schema.Taxon) (int64, error)
}
