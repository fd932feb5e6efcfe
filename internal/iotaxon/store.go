// Package iotaxon implements taxon.Store on PostgreSQL with GORM.
// Subtree updates run as single SQL statements over the
// materialized ancestry path.
package iotaxon

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/gnames/gntree/pkg/db"
	"github.com/gnames/gntree/pkg/schema"
	"github.com/gnames/gntree/pkg/taxon"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type store struct {
	db   *gorm.DB
	inTx bool
}

// New creates a taxon.Store that shares the connection pool of
// the operator.
func New(op db.Operator) (taxon.Store, error) {
	gdb, err := op.GORM()
	if err != nil {
		return nil, err
	}
	return NewFromGORM(gdb), nil
}

// NewFromGORM creates a taxon.Store on top of a GORM session.
func NewFromGORM(gdb *gorm.DB) taxon.Store {
	return &store{db: gdb}
}

func (s *store) q(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *store) InTx(ctx context.Context, fn func(tx taxon.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.q(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&store{db: tx, inTx: true})
	})
}

func (s *store) Taxon(ctx context.Context, id int64) (*schema.Taxon, error) {
	var res schema.Taxon
	err := s.q(ctx).First(&res, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, taxon.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// LockTaxa locks rows in the order of IDs, so that concurrent
// mutations touching the same taxa do not deadlock.
func (s *store) LockTaxa(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	ids = slices.Clone(ids)
	slices.Sort(ids)
	var locked []int64
	return s.q(ctx).Model(&schema.Taxon{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id").
		Pluck("id", &locked).Error
}

func (s *store) Taxa(ctx context.Context, ids []int64) ([]schema.Taxon, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var res []schema.Taxon
	err := s.q(ctx).Where("id IN ?", ids).Find(&res).Error
	return res, err
}

func (s *store) Children(ctx context.Context, id int64) ([]schema.Taxon, error) {
	var res []schema.Taxon
	err := s.q(ctx).Where("parent_id = ?", id).
		Order("name, id").Find(&res).Error
	return res, err
}

func (s *store) Descendants(
	ctx context.Context,
	t *schema.Taxon,
) ([]schema.Taxon, error) {
	var res []schema.Taxon
	err := subtree(s.q(ctx), taxon.SubtreePrefix(t)).
		Order("id").Find(&res).Error
	return res, err
}

// subtree limits a query to taxa with the ancestry prefix.
func subtree(q *gorm.DB, prefix string) *gorm.DB {
	return q.Where("(ancestry = ? OR ancestry LIKE ?)", prefix, prefix+"/%")
}

func (s *store) NameExists(
	ctx context.Context,
	name string,
	parentID *int64,
	exceptID int64,
) (bool, error) {
	q := s.q(ctx).Model(&schema.Taxon{}).
		Where("name = ? AND id <> ?", name, exceptID)
	if parentID == nil {
		q = q.Where("parent_id IS NULL")
	} else {
		q = q.Where("parent_id = ?", *parentID)
	}
	var count int64
	err := q.Count(&count).Error
	return count > 0, err
}

func (s *store) ChildByName(
	ctx context.Context,
	parentID *int64,
	name string,
) (*schema.Taxon, error) {
	q := s.q(ctx).Where("name = ?", name)
	if parentID == nil {
		q = q.Where("parent_id IS NULL")
	} else {
		q = q.Where("parent_id = ?", *parentID)
	}
	var res schema.Taxon
	err := q.Order("id").First(&res).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, taxon.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *store) Insert(ctx context.Context, t *schema.Taxon) error {
	t.ID = 0
	t.LockVersion = 0
	return s.q(ctx).Create(t).Error
}

func (s *store) Update(ctx context.Context, t *schema.Taxon) error {
	version := t.LockVersion
	t.LockVersion++
	res := s.q(ctx).Model(t).
		Where("lock_version = ?", version).
		Select("*").Omit("id", "created_at").
		Updates(t)
	if res.Error != nil {
		t.LockVersion = version
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	t.LockVersion = version
	var count int64
	err := s.q(ctx).Model(&schema.Taxon{}).
		Where("id = ?", t.ID).Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return taxon.ErrNotFound
	}
	return taxon.ErrStale
}

func (s *store) SetSummary(ctx context.Context, id int64, summary string) error {
	res := s.q(ctx).Model(&schema.Taxon{}).Where("id = ?", id).
		UpdateColumn("wikipedia_summary", summary)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return taxon.ErrNotFound
	}
	return nil
}

func (s *store) Delete(ctx context.Context, id int64) error {
	res := s.q(ctx).Delete(&schema.Taxon{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return taxon.ErrNotFound
	}
	return nil
}

func (s *store) MoveSubtree(
	ctx context.Context,
	oldPrefix, newPrefix string,
) (int64, error) {
	res := s.q(ctx).Exec(`
		UPDATE taxa
		SET ancestry = ? || substr(ancestry, ?), updated_at = now()
		WHERE ancestry = ? OR ancestry LIKE ?`,
		newPrefix, len(oldPrefix)+1, oldPrefix, oldPrefix+"/%")
	return res.RowsAffected, res.Error
}

func (s *store) PushIconic(
	ctx context.Context,
	t *schema.Taxon,
	oldID, newID *int64,
) (int64, error) {
	q := subtree(s.q(ctx).Model(&schema.Taxon{}), taxon.SubtreePrefix(t))
	if oldID == nil {
		q = q.Where("iconic_taxon_id IS NULL")
	} else {
		q = q.Where("(iconic_taxon_id IS NULL OR iconic_taxon_id = ?)", *oldID)
	}
	res := q.UpdateColumn("iconic_taxon_id", newID)
	return res.RowsAffected, res.Error
}

func (s *store) UpdateListedTaxa(
	ctx context.Context,
	t *schema.Taxon,
) (int64, error) {
	prefix := taxon.SubtreePrefix(t)
	res := s.q(ctx).Exec(`
		UPDATE listed_taxa lt
		SET taxon_ancestor_ids = CASE
			WHEN coalesce(t.ancestry, '') = '' THEN t.id::text
			ELSE replace(t.ancestry, '/', ',') || ',' || t.id::text
		END
		FROM taxa t
		WHERE lt.taxon_id = t.id
			AND (t.id = ? OR t.ancestry = ? OR t.ancestry LIKE ?)`,
		t.ID, prefix, prefix+"/%")
	return res.RowsAffected, res.Error
}

func (s *store) TaxonNames(
	ctx context.Context,
	taxonID int64,
) ([]schema.TaxonName, error) {
	var res []schema.TaxonName
	err := s.q(ctx).Where("taxon_id = ?", taxonID).
		Order("id").Find(&res).Error
	return res, err
}

func (s *store) SaveTaxonName(ctx context.Context, n *schema.TaxonName) error {
	if n.ID == 0 {
		return s.q(ctx).Create(n).Error
	}
	return s.q(ctx).Save(n).Error
}

func (s *store) DeleteTaxonName(ctx context.Context, id int64) error {
	return s.q(ctx).Delete(&schema.TaxonName{}, id).Error
}

func (s *store) RepointReferences(
	ctx context.Context,
	ref schema.Reference,
	fromID, toID int64,
) (int64, error) {
	if !slices.Contains(schema.TaxonReferences(), ref) {
		return 0, UnknownReferenceError(ref)
	}
	res := s.q(ctx).Table(ref.Table).
		Where(clause.Eq{Column: clause.Column{Name: ref.Column}, Value: fromID}).
		UpdateColumn(ref.Column, toID)
	return res.RowsAffected, res.Error
}

func (s *store) IconicTaxa(ctx context.Context) ([]schema.Taxon, error) {
	var res []schema.Taxon
	err := s.q(ctx).Where("is_iconic").Order("id").Find(&res).Error
	return res, err
}

func (s *store) DuplicateGroups(ctx context.Context) ([][]int64, error) {
	var rows []string
	err := s.q(ctx).Raw(`
		SELECT string_agg(id::text, ',' ORDER BY id)
		FROM taxa
		GROUP BY name, parent_id
		HAVING count(*) > 1
		ORDER BY min(id)`).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	res := make([][]int64, 0, len(rows))
	for _, row := range rows {
		ids, err := parseIDs(row)
		if err != nil {
			return nil, err
		}
		res = append(res, ids)
	}
	return res, nil
}

func parseIDs(s string) ([]int64, error) {
	parts := strings.Split(s, ",")
	res := make([]int64, len(parts))
	for i, v := range parts {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad id %q in group %q: %w", v, s, err)
		}
		res[i] = id
	}
	return res, nil
}

func (s *store) ReconcileObservations(
	ctx context.Context,
	t *schema.Taxon,
) (int64, error) {
	prefix := taxon.SubtreePrefix(t)
	res := s.q(ctx).Exec(`
		UPDATE observations o
		SET iconic_taxon_id = t.iconic_taxon_id, updated_at = now()
		FROM taxa t
		WHERE o.taxon_id = t.id
			AND (t.id = ? OR t.ancestry = ? OR t.ancestry LIKE ?)
			AND o.iconic_taxon_id IS DISTINCT FROM t.iconic_taxon_id`,
		t.ID, prefix, prefix+"/%")
	return res.RowsAffected, res.Error
}
