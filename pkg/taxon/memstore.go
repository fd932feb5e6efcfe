package taxon

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gnames/gntree/pkg/schema"
)

// MemStore is an in-memory Store. Taxa live in an arena keyed by ID with
// a children index. Transactions are serialized and roll back by restoring
// a snapshot taken at their start.
type MemStore struct {
	core *memCore
	tx   bool
}

type memCore struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	d    *memData
}

type memData struct {
	lastID       int64
	taxa         map[int64]schema.Taxon
	children     map[int64]map[int64]bool
	names        map[int64]schema.TaxonName
	observations map[int64]schema.Observation
	listed       map[int64]schema.ListedTaxon
	refs         map[schema.Reference]map[int64]int64
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		core: &memCore{
			d: &memData{
				taxa:         make(map[int64]schema.Taxon),
				children:     make(map[int64]map[int64]bool),
				names:        make(map[int64]schema.TaxonName),
				observations: make(map[int64]schema.Observation),
				listed:       make(map[int64]schema.ListedTaxon),
				refs:         make(map[schema.Reference]map[int64]int64),
			},
		},
	}
}

func (d *memData) clone() *memData {
	res := &memData{
		lastID:       d.lastID,
		taxa:         maps.Clone(d.taxa),
		children:     make(map[int64]map[int64]bool, len(d.children)),
		names:        maps.Clone(d.names),
		observations: maps.Clone(d.observations),
		listed:       maps.Clone(d.listed),
		refs:         make(map[schema.Reference]map[int64]int64, len(d.refs)),
	}
	for k, v := range d.children {
		res.children[k] = maps.Clone(v)
	}
	for k, v := range d.refs {
		res.refs[k] = maps.Clone(v)
	}
	return res
}

func (d *memData) nextID() int64 {
	d.lastID++
	return d.lastID
}

func (d *memData) link(t schema.Taxon) {
	parent := int64(0)
	if t.ParentID != nil {
		parent = *t.ParentID
	}
	if d.children[parent] == nil {
		d.children[parent] = make(map[int64]bool)
	}
	d.children[parent][t.ID] = true
}

func (d *memData) unlink(t schema.Taxon) {
	parent := int64(0)
	if t.ParentID != nil {
		parent = *t.ParentID
	}
	delete(d.children[parent], t.ID)
}

// subtree returns IDs of t and all its descendants.
func (d *memData) subtree(id int64) []int64 {
	res := []int64{id}
	for i := 0; i < len(res); i++ {
		for c := range d.children[res[i]] {
			res = append(res, c)
		}
	}
	return res
}

func (s *MemStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	if s.tx {
		return fn(s)
	}
	s.core.txMu.Lock()
	defer s.core.txMu.Unlock()

	s.core.mu.Lock()
	snap := s.core.d.clone()
	s.core.mu.Unlock()

	err := ctx.Err()
	if err == nil {
		err = fn(&MemStore{core: s.core, tx: true})
	}
	if err != nil {
		s.core.mu.Lock()
		s.core.d = snap
		s.core.mu.Unlock()
		return err
	}
	return nil
}

func (s *MemStore) Taxon(_ context.Context, id int64) (*schema.Taxon, error) {
	s.core.mu.RLock()
	defer s.core.mu.RUnlock()
	t, ok := s.core.d.taxa[id]
	if !ok {
		return nil, ErrNotFound
	}
	res := detach(t)
	return &res, nil
}

// LockTaxa is a no-op, transactions of MemStore are already serialized.
func (s *MemStore) LockTaxa(_ context.Context, _ ...int64) error {
	return nil
}

func (s *MemStore) Taxa(_ context.Context, ids []int64) ([]schema.Taxon, error) {
	s.core.mu.RLock()
	defer s.core.mu.RUnlock()
	res := make([]schema.Taxon, 0, len(ids))
	for _, id := range ids {
		if t, ok := s.core.d.taxa[id]; ok {
			res = append(res, t)
		}
	}
	return res, nil
}

func (s *MemStore) Children(_ context.Context, id int64) ([]schema.Taxon, error) {
	s.core.mu.RLock()
	defer s.core.mu.RUnlock()
	var res []schema.Taxon
	for c := range s.core.d.children[id] {
		res = append(res, s.core.d.taxa[c])
	}
	slices.SortFunc(res, func(a, b schema.Taxon) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return res, nil
}

func (s *MemStore) Descendants(_ context.Context, t *schema.Taxon) ([]schema.Taxon, error) {
	s.core.mu.RLock()
	defer s.core.mu.RUnlock()
	prefix := SubtreePrefix(t)
	var res []schema.Taxon
	for _, v := range s.core.d.taxa {
		if inSubtree(v.Ancestry, prefix) {
			res = append(res, v)
		}
	}
	slices.SortFunc(res, func(a, b schema.Taxon) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return res, nil
}

func inSubtree(anc, prefix string) bool {
	return anc == prefix || strings.HasPrefix(anc, prefix+"/")
}

func (s *MemStore) NameExists(
	_ context.Context,
	name string,
	parentID *int64,
	exceptID int64,
) (bool, error) {
	s.core.mu.RLock()
	defer s.core.mu.RUnlock()
	parent := int64(0)
	if parentID != nil {
		parent = *parentID
	}
	for c := range s.core.d.children[parent] {
		if c != exceptID && s.core.d.taxa[c].Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemStore) ChildByName(
	_ context.Context,
	parentID *int64,
	name string,
) (*schema.Taxon, error) {
	s.core.mu.RLock()
	defer s.core.mu.RUnlock()
	parent := int64(0)
	if parentID != nil {
		parent = *parentID
	}
	var res *schema.Taxon
	for c := range s.core.d.children[parent] {
		t := s.core.d.taxa[c]
		if t.Name == name && (res == nil || t.ID < res.ID) {
			d := detach(t)
			res = &d
		}
	}
	if res == nil {
		return nil, ErrNotFound
	}
	return res, nil
}

func (s *MemStore) Insert(_ context.Context, t *schema.Taxon) error {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	now := time.Now()
	t.ID = s.core.d.nextID()
	t.LockVersion = 0
	t.CreatedAt = now
	t.UpdatedAt = now
	s.core.d.taxa[t.ID] = detach(*t)
	s.core.d.link(*t)
	return nil
}

func (s *MemStore) Update(_ context.Context, t *schema.Taxon) error {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	old, ok := s.core.d.taxa[t.ID]
	if !ok {
		return ErrNotFound
	}
	if old.LockVersion != t.LockVersion {
		return ErrStale
	}
	t.LockVersion++
	t.UpdatedAt = time.Now()
	s.core.d.unlink(old)
	s.core.d.taxa[t.ID] = detach(*t)
	s.core.d.link(*t)
	return nil
}

func (s *MemStore) SetSummary(_ context.Context, id int64, summary string) error {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	t, ok := s.core.d.taxa[id]
	if !ok {
		return ErrNotFound
	}
	t.WikipediaSummary = summary
	s.core.d.taxa[id] = t
	return nil
}

func (s *MemStore) Delete(_ context.Context, id int64) error {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	t, ok := s.core.d.taxa[id]
	if !ok {
		return ErrNotFound
	}
	s.core.d.unlink(t)
	delete(s.core.d.taxa, id)
	return nil
}

func (s *MemStore) MoveSubtree(_ context.Context, oldPrefix, newPrefix string) (int64, error) {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	var n int64
	for id, v := range s.core.d.taxa {
		if !inSubtree(v.Ancestry, oldPrefix) {
			continue
		}
		v.Ancestry = newPrefix + v.Ancestry[len(oldPrefix):]
		s.core.d.taxa[id] = v
		n++
	}
	return n, nil
}

func (s *MemStore) PushIconic(
	_ context.Context,
	t *schema.Taxon,
	oldID, newID *int64,
) (int64, error) {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	prefix := SubtreePrefix(t)
	var n int64
	for id, v := range s.core.d.taxa {
		if !inSubtree(v.Ancestry, prefix) {
			continue
		}
		if v.IconicTaxonID != nil && !sameID(v.IconicTaxonID, oldID) {
			continue
		}
		v.IconicTaxonID = copyID(newID)
		s.core.d.taxa[id] = v
		n++
	}
	return n, nil
}

func (s *MemStore) UpdateListedTaxa(_ context.Context, t *schema.Taxon) (int64, error) {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	ids := make(map[int64]bool)
	for _, id := range s.core.d.subtree(t.ID) {
		ids[id] = true
	}
	var n int64
	for id, v := range s.core.d.listed {
		if !ids[v.TaxonID] {
			continue
		}
		tx := s.core.d.taxa[v.TaxonID]
		v.TaxonAncestorIDs = Path(&tx).Child(tx.ID).Join(",")
		s.core.d.listed[id] = v
		n++
	}
	return n, nil
}

func (s *MemStore) TaxonNames(_ context.Context, taxonID int64) ([]schema.TaxonName, error) {
	s.core.mu.RLock()
	defer s.core.mu.RUnlock()
	var res []schema.TaxonName
	for _, v := range s.core.d.names {
		if v.TaxonID == taxonID {
			res = append(res, v)
		}
	}
	slices.SortFunc(res, func(a, b schema.TaxonName) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return res, nil
}

func (s *MemStore) SaveTaxonName(_ context.Context, n *schema.TaxonName) error {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	now := time.Now()
	if n.ID == 0 {
		n.ID = s.core.d.nextID()
		n.CreatedAt = now
	}
	n.UpdatedAt = now
	s.core.d.names[n.ID] = *n
	return nil
}

func (s *MemStore) DeleteTaxonName(_ context.Context, id int64) error {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	delete(s.core.d.names, id)
	return nil
}

func (s *MemStore) RepointReferences(
	_ context.Context,
	ref schema.Reference,
	fromID, toID int64,
) (int64, error) {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	d := s.core.d
	var n int64
	switch ref.Table {
	case "taxon_names":
		for id, v := range d.names {
			if v.TaxonID == fromID {
				v.TaxonID = toID
				d.names[id] = v
				n++
			}
		}
	case "observations":
		for id, v := range d.observations {
			if v.TaxonID != nil && *v.TaxonID == fromID {
				v.TaxonID = &toID
				d.observations[id] = v
				n++
			}
		}
	case "listed_taxa":
		for id, v := range d.listed {
			if v.TaxonID == fromID {
				v.TaxonID = toID
				d.listed[id] = v
				n++
			}
		}
	default:
		for row, taxonID := range d.refs[ref] {
			if taxonID == fromID {
				d.refs[ref][row] = toID
				n++
			}
		}
	}
	return n, nil
}

func (s *MemStore) IconicTaxa(_ context.Context) ([]schema.Taxon, error) {
	s.core.mu.RLock()
	defer s.core.mu.RUnlock()
	var res []schema.Taxon
	for _, v := range s.core.d.taxa {
		if v.IsIconic {
			res = append(res, v)
		}
	}
	return res, nil
}

func (s *MemStore) DuplicateGroups(_ context.Context) ([][]int64, error) {
	s.core.mu.RLock()
	defer s.core.mu.RUnlock()
	type key struct {
		name   string
		parent int64
	}
	groups := make(map[key][]int64)
	for _, v := range s.core.d.taxa {
		k := key{name: v.Name}
		if v.ParentID != nil {
			k.parent = *v.ParentID
		}
		groups[k] = append(groups[k], v.ID)
	}
	var res [][]int64
	for _, ids := range groups {
		if len(ids) < 2 {
			continue
		}
		slices.Sort(ids)
		res = append(res, ids)
	}
	slices.SortFunc(res, func(a, b []int64) int {
		return cmp.Compare(a[0], b[0])
	})
	return res, nil
}

func (s *MemStore) ReconcileObservations(_ context.Context, t *schema.Taxon) (int64, error) {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	iconic := make(map[int64]*int64)
	for _, id := range s.core.d.subtree(t.ID) {
		iconic[id] = s.core.d.taxa[id].IconicTaxonID
	}
	var n int64
	for id, v := range s.core.d.observations {
		if v.TaxonID == nil {
			continue
		}
		val, ok := iconic[*v.TaxonID]
		if !ok || sameID(v.IconicTaxonID, val) {
			continue
		}
		v.IconicTaxonID = copyID(val)
		s.core.d.observations[id] = v
		n++
	}
	return n, nil
}

// AddObservation adds an observation of a taxon and returns its ID.
func (s *MemStore) AddObservation(taxonID int64, iconicID *int64) int64 {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	id := s.core.d.nextID()
	s.core.d.observations[id] = schema.Observation{
		ID:            id,
		TaxonID:       &taxonID,
		IconicTaxonID: copyID(iconicID),
	}
	return id
}

// Observation returns an observation by ID.
func (s *MemStore) Observation(id int64) (schema.Observation, bool) {
	s.core.mu.RLock()
	defer s.core.mu.RUnlock()
	res, ok := s.core.d.observations[id]
	return res, ok
}

// AddListedTaxon puts a taxon on a list and returns the record ID.
func (s *MemStore) AddListedTaxon(listID, taxonID int64) int64 {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	id := s.core.d.nextID()
	t := s.core.d.taxa[taxonID]
	s.core.d.listed[id] = schema.ListedTaxon{
		ID:               id,
		ListID:           listID,
		TaxonID:          taxonID,
		TaxonAncestorIDs: Path(&t).Child(taxonID).Join(","),
	}
	return id
}

// ListedTaxon returns a listed taxon by ID.
func (s *MemStore) ListedTaxon(id int64) (schema.ListedTaxon, bool) {
	s.core.mu.RLock()
	defer s.core.mu.RUnlock()
	res, ok := s.core.d.listed[id]
	return res, ok
}

// AddReference records a row of another table pointing to a taxon.
func (s *MemStore) AddReference(ref schema.Reference, taxonID int64) int64 {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	id := s.core.d.nextID()
	if s.core.d.refs[ref] == nil {
		s.core.d.refs[ref] = make(map[int64]int64)
	}
	s.core.d.refs[ref][id] = taxonID
	return id
}

// CountReferences returns the number of records of every kind that point
// to a taxon.
func (s *MemStore) CountReferences(taxonID int64) int {
	s.core.mu.RLock()
	defer s.core.mu.RUnlock()
	d := s.core.d
	var res int
	for _, v := range d.names {
		if v.TaxonID == taxonID {
			res++
		}
	}
	for _, v := range d.observations {
		if (v.TaxonID != nil && *v.TaxonID == taxonID) ||
			(v.IconicTaxonID != nil && *v.IconicTaxonID == taxonID) {
			res++
		}
	}
	for _, v := range d.listed {
		if v.TaxonID == taxonID {
			res++
		}
	}
	for _, rows := range d.refs {
		for _, v := range rows {
			if v == taxonID {
				res++
			}
		}
	}
	for _, v := range d.taxa {
		if (v.ParentID != nil && *v.ParentID == taxonID) ||
			(v.IconicTaxonID != nil && *v.IconicTaxonID == taxonID) {
			res++
		}
	}
	return res
}

// All returns all taxa ordered by ID.
func (s *MemStore) All() []schema.Taxon {
	s.core.mu.RLock()
	defer s.core.mu.RUnlock()
	res := slices.Collect(maps.Values(s.core.d.taxa))
	slices.SortFunc(res, func(a, b schema.Taxon) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return res
}

// detach makes sure stored taxa do not share pointers with callers.
func detach(t schema.Taxon) schema.Taxon {
	t.ParentID = copyID(t.ParentID)
	t.IconicTaxonID = copyID(t.IconicTaxonID)
	if t.RankLevel != nil {
		lvl := *t.RankLevel
		t.RankLevel = &lvl
	}
	return t
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	res := *id
	return &res
}
