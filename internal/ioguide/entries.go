package ioguide

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gnames/gntree/pkg/guide"
	"github.com/gnames/gntree/pkg/schema"
	"github.com/gnames/gntree/pkg/taxon"
	"gorm.io/gorm"
)

func (s *Service) ImportTaxa(
	ctx context.Context,
	id int64,
	opts guide.ImportOptions,
) (*guide.ImportResult, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	start, err := s.maxPosition(s.q(ctx), id)
	if err != nil {
		return nil, err
	}

	url := strings.TrimSpace(opts.CollectionURL)
	if url != "" {
		if !s.isCollection(url) {
			verr := &taxon.ValidationError{}
			verr.Add("collection_url", "is not a supported collection")
			return nil, verr
		}
		coll, err := s.collections.Collection(ctx, url)
		if err != nil {
			return nil, err
		}
		res := s.importItems(s.q(ctx), id, start, coll.Items)
		slog.Info("Collection imported", "guide", id, "url", url,
			"saved", res.Saved, "failed", res.Failed)
		return &res, nil
	}

	if opts.TaxonID == nil {
		verr := &taxon.ValidationError{}
		verr.Add("taxon_id", "or collection_url must be given")
		return nil, verr
	}

	taxa, err := s.engine.Descendants(ctx, *opts.TaxonID)
	if err != nil {
		return nil, err
	}
	names, err := s.displayNames(ctx, taxa)
	if err != nil {
		return nil, err
	}

	var res guide.ImportResult
	db := s.q(ctx)
	for i, t := range taxa {
		e := schema.GuideTaxon{
			GuideID:     id,
			TaxonID:     &t.ID,
			Name:        t.Name,
			DisplayName: names[t.ID],
			Position:    start + i + 1,
		}
		if e.DisplayName == "" {
			e.DisplayName = t.Name
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			return tx.Create(&e).Error
		})
		res.Add(t.Name, err)
	}
	slog.Info("Taxa imported", "guide", id, "taxon", *opts.TaxonID,
		"saved", res.Saved, "failed", res.Failed)
	return &res, nil
}

func (s *Service) AddEntry(
	ctx context.Context,
	id int64,
	e guide.Entry,
) (*schema.GuideTaxon, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}

	verr := &taxon.ValidationError{}
	name := strings.TrimSpace(e.Name)
	if e.TaxonID != nil {
		t, err := s.engine.Get(ctx, *e.TaxonID)
		switch {
		case taxon.IsNotFound(err):
			verr.Add("taxon_id", "does not exist")
		case err != nil:
			return nil, err
		case name == "":
			name = t.Name
		}
	}
	if name == "" && !verr.Has("taxon_id") {
		verr.Add("name", "can't be blank")
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}

	res := schema.GuideTaxon{
		GuideID:     id,
		TaxonID:     e.TaxonID,
		Name:        name,
		DisplayName: e.DisplayName,
		Description: e.Description,
		Photos:      numberPhotos(e.Photos),
	}
	err := s.q(ctx).Transaction(func(tx *gorm.DB) error {
		pos, err := s.maxPosition(tx, id)
		if err != nil {
			return err
		}
		res.Position = pos + 1
		return tx.Create(&res).Error
	})
	if err != nil {
		return nil, StoreError("add guide entry", err)
	}
	return &res, nil
}

// importItems saves collection items starting after the given position.
// Every item runs in its own savepoint, a failed item does not stop the
// rest.
func (s *Service) importItems(
	db *gorm.DB,
	guideID int64,
	start int,
	items []guide.CollectionItem,
) guide.ImportResult {
	var res guide.ImportResult
	for i, v := range items {
		e := schema.GuideTaxon{
			GuideID:          guideID,
			Name:             strings.TrimSpace(v.Name),
			DisplayName:      strings.TrimSpace(v.Title),
			Description:      v.Annotation,
			SourceIdentifier: v.ObjectID,
			Position:         start + i + 1,
			Photos:           numberPhotos(v.Photos),
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if e.Name == "" && e.DisplayName == "" {
				return errors.New("item has no name")
			}
			id, err := taxonByName(tx, e.Name)
			if err != nil {
				return err
			}
			e.TaxonID = id
			return tx.Create(&e).Error
		})
		res.Add(fmt.Sprintf("%s (%s)", e.Name, v.ObjectID), err)
	}
	return res
}

func (s *Service) maxPosition(db *gorm.DB, guideID int64) (int, error) {
	var res int
	err := db.Model(&schema.GuideTaxon{}).
		Where("guide_id = ?", guideID).
		Select("coalesce(max(position), 0)").
		Scan(&res).Error
	if err != nil {
		return 0, StoreError("read guide positions", err)
	}
	return res, nil
}

// displayNames picks the first valid common name of every taxon.
func (s *Service) displayNames(
	ctx context.Context,
	taxa []schema.Taxon,
) (map[int64]string, error) {
	res := make(map[int64]string)
	if len(taxa) == 0 {
		return res, nil
	}
	ids := make([]int64, len(taxa))
	for i := range taxa {
		ids[i] = taxa[i].ID
	}

	var names []schema.TaxonName
	err := s.q(ctx).
		Where("taxon_id IN ? AND lexicon <> ? AND is_valid",
			ids, schema.LexiconScientific).
		Order("taxon_id, id").
		Find(&names).Error
	if err != nil {
		return nil, StoreError("load taxon names", err)
	}
	for _, v := range names {
		if _, ok := res[v.TaxonID]; !ok {
			res[v.TaxonID] = v.Name
		}
	}
	return res, nil
}

func taxonByName(db *gorm.DB, name string) (*int64, error) {
	if name == "" {
		return nil, nil
	}
	var ids []int64
	err := db.Model(&schema.Taxon{}).
		Where("name = ?", name).
		Order("id").Limit(1).
		Pluck("id", &ids).Error
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	return &ids[0], nil
}

func numberPhotos(photos []schema.GuidePhoto) []schema.GuidePhoto {
	res := make([]schema.GuidePhoto, len(photos))
	for i, v := range photos {
		v.ID = 0
		v.GuideTaxonID = 0
		if v.Kind == "" {
			v.Kind = schema.PhotoKind
		}
		if v.Position == 0 {
			v.Position = i + 1
		}
		res[i] = v
	}
	return res
}
