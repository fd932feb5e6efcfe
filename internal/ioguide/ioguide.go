// Package ioguide implements guide.Service on PostgreSQL with GORM.
package ioguide

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gnames/gntree/pkg/guide"
	"github.com/gnames/gntree/pkg/jobs"
	"github.com/gnames/gntree/pkg/schema"
	"github.com/gnames/gntree/pkg/taxon"
	"gorm.io/gorm"
)

// Service manages guides stored in PostgreSQL.
type Service struct {
	db          *gorm.DB
	engine      *taxon.Engine
	queue       jobs.Enqueuer
	collections guide.CollectionSource
	builder     guide.Builder
	attachments guide.AttachmentStore
}

var _ guide.Service = (*Service)(nil)

// Option configures Service.
type Option func(*Service)

// OptCollections sets the source of external collections.
func OptCollections(c guide.CollectionSource) Option {
	return func(s *Service) {
		s.collections = c
	}
}

// OptBundles sets the builder and the storage of guide bundles.
func OptBundles(b guide.Builder, a guide.AttachmentStore) Option {
	return func(s *Service) {
		s.builder = b
		s.attachments = a
	}
}

// New creates a guide Service. Queue may be nil, then bundles are only
// generated on demand.
func New(
	gdb *gorm.DB,
	engine *taxon.Engine,
	queue jobs.Enqueuer,
	opts ...Option,
) *Service {
	res := &Service{db: gdb, engine: engine, queue: queue}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

func (s *Service) q(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *Service) Create(ctx context.Context, d guide.Draft) (*schema.Guide, error) {
	g := &schema.Guide{
		Title:        strings.TrimSpace(d.Title),
		Description:  d.Description,
		SourceURL:    strings.TrimSpace(d.SourceURL),
		IconURL:      d.IconURL,
		Downloadable: d.Downloadable,
		PublishedAt:  d.PublishedAt,
		TaxonID:      d.TaxonID,
	}

	var coll *guide.Collection
	if s.isCollection(g.SourceURL) {
		var err error
		coll, err = s.collections.Collection(ctx, g.SourceURL)
		if err != nil {
			slog.Warn("Cannot read collection", "url", g.SourceURL, "error", err)
			coll = nil
		}
	}
	if coll != nil {
		setDefaults(g, coll)
	}

	if err := guide.ValidateTitle(g.Title); err != nil {
		return nil, err
	}

	err := s.q(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("GuideTaxa").Create(g).Error; err != nil {
			return err
		}
		if coll != nil {
			res := s.importItems(tx, g.ID, 0, coll.Items)
			slog.Info("Collection imported", "guide", g.ID,
				"saved", res.Saved, "failed", res.Failed)
		}
		return nil
	})
	if err != nil {
		return nil, StoreError("create guide", err)
	}

	if g.Downloadable {
		s.enqueueBundle(ctx, g.ID)
	}
	return s.Get(ctx, g.ID)
}

// setDefaults fills empty fields of a guide from its collection.
func setDefaults(g *schema.Guide, c *guide.Collection) {
	if g.Title == "" {
		g.Title = strings.TrimSpace(c.Title)
	}
	if g.Description == "" {
		g.Description = c.Description
	}
	if g.IconURL == "" {
		g.IconURL = strings.TrimSpace(c.LogoURL)
	}
}

func (s *Service) isCollection(url string) bool {
	return url != "" && s.collections != nil && s.collections.IsCollectionURL(url)
}

func (s *Service) Get(ctx context.Context, id int64) (*schema.Guide, error) {
	var g schema.Guide
	err := s.q(ctx).
		Preload("GuideTaxa", func(db *gorm.DB) *gorm.DB {
			return db.Order("position, id")
		}).
		Preload("GuideTaxa.Photos", func(db *gorm.DB) *gorm.DB {
			return db.Order("position, id")
		}).
		First(&g, id).Error
	if err != nil {
		return nil, s.loadError(id, err)
	}
	return &g, nil
}

func (s *Service) load(ctx context.Context, id int64) (*schema.Guide, error) {
	var g schema.Guide
	if err := s.q(ctx).First(&g, id).Error; err != nil {
		return nil, s.loadError(id, err)
	}
	return &g, nil
}

func (s *Service) loadError(id int64, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFoundError(id)
	}
	return StoreError("load guide", err)
}

func (s *Service) Update(
	ctx context.Context,
	id int64,
	c guide.Changes,
) (*schema.Guide, error) {
	g, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *g

	if c.Title != nil {
		g.Title = strings.TrimSpace(*c.Title)
	}
	if c.Description != nil {
		g.Description = *c.Description
	}
	if c.IconURL != nil {
		g.IconURL = *c.IconURL
	}
	if c.Downloadable != nil {
		g.Downloadable = *c.Downloadable
	}
	if c.PublishedAt != nil {
		g.PublishedAt = c.PublishedAt
	}
	if c.Unpublish {
		g.PublishedAt = nil
	}

	if err = guide.ValidateTitle(g.Title); err != nil {
		return nil, err
	}

	err = s.q(ctx).Model(g).
		Select("title", "description", "icon_url", "downloadable",
			"published_at").
		Updates(g).Error
	if err != nil {
		return nil, StoreError("update guide", err)
	}

	switch guide.BundleActionFor(&before, g) {
	case guide.BundleGenerate:
		s.enqueueBundle(ctx, id)
	case guide.BundleDiscard:
		s.cancelBundle(ctx, id)
		if err = s.discardBundle(ctx, g); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	g, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	err = s.q(ctx).Transaction(func(tx *gorm.DB) error {
		entries := tx.Model(&schema.GuideTaxon{}).
			Select("id").Where("guide_id = ?", id)
		err := tx.Where("guide_taxon_id IN (?)", entries).
			Delete(&schema.GuidePhoto{}).Error
		if err != nil {
			return err
		}
		err = tx.Where("guide_id = ?", id).
			Delete(&schema.GuideTaxon{}).Error
		if err != nil {
			return err
		}
		return tx.Delete(&schema.Guide{}, id).Error
	})
	if err != nil {
		return StoreError("delete guide", err)
	}

	s.cancelBundle(ctx, id)
	if g.NgzPath != "" && s.attachments != nil {
		if err = s.attachments.Delete(ctx, g.NgzPath); err != nil {
			slog.Warn("Cannot delete bundle", "guide", id, "error", err)
		}
	}
	slog.Info("Guide deleted", "guide", id)
	return nil
}

func (s *Service) SetTaxon(ctx context.Context, id int64) (*int64, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}

	var ancestries []string
	err := s.q(ctx).Table("guide_taxa AS gt").
		Joins("JOIN taxa AS t ON t.id = gt.taxon_id").
		Where("gt.guide_id = ?", id).
		Distinct().
		Pluck("t.ancestry", &ancestries).Error
	if err != nil {
		return nil, StoreError("load guide taxa", err)
	}

	taxonID, err := guide.ConsensusTaxon(ancestries)
	if err != nil {
		return nil, StoreError("find consensus taxon", err)
	}

	err = s.q(ctx).Model(&schema.Guide{}).Where("id = ?", id).
		Update("taxon_id", taxonID).Error
	if err != nil {
		return nil, StoreError("update guide", err)
	}
	return taxonID, nil
}

func (s *Service) ReorderByTaxonomy(ctx context.Context, id int64) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}

	var entries []schema.GuideTaxon
	err := s.q(ctx).Where("guide_id = ?", id).
		Order("position, id").Find(&entries).Error
	if err != nil {
		return StoreError("load guide taxa", err)
	}

	var ids []int64
	for _, v := range entries {
		if v.TaxonID != nil {
			ids = append(ids, *v.TaxonID)
		}
	}
	var taxa []schema.Taxon
	if len(ids) > 0 {
		if err = s.q(ctx).Where("id IN ?", ids).Find(&taxa).Error; err != nil {
			return StoreError("load taxa", err)
		}
	}
	byID := make(map[int64]schema.Taxon, len(taxa))
	for _, v := range taxa {
		byID[v.ID] = v
	}

	old := make(map[int64]int, len(entries))
	for _, v := range entries {
		old[v.ID] = v.Position
	}
	ordered := guide.OrderEntries(entries, byID)

	err = s.q(ctx).Transaction(func(tx *gorm.DB) error {
		for _, v := range ordered {
			if old[v.ID] == v.Position {
				continue
			}
			err := tx.Model(&schema.GuideTaxon{}).Where("id = ?", v.ID).
				UpdateColumn("position", v.Position).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return StoreError("reorder guide taxa", err)
	}
	return nil
}

func (s *Service) GenerateBundle(ctx context.Context, id int64) (*schema.Guide, error) {
	if s.builder == nil || s.attachments == nil {
		return nil, BundleError(id, errors.New("bundle storage is not configured"))
	}
	g, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !g.Downloadable {
		slog.Info("Guide is not downloadable, bundle skipped", "guide", id)
		return g, nil
	}

	archive, workDir, err := s.builder.Build(ctx, g)
	if workDir != "" {
		defer os.RemoveAll(workDir)
	}
	if err != nil {
		return nil, err
	}

	att, err := s.attachments.Put(ctx, guide.BundleKey(id), archive)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	err = s.q(ctx).Model(&schema.Guide{}).Where("id = ?", id).
		Updates(map[string]any{
			"ngz_path":         att.Key,
			"ngz_file_size":    att.Size,
			"ngz_content_type": att.ContentType,
			"ngz_updated_at":   now,
		}).Error
	if err != nil {
		return nil, StoreError("save bundle", err)
	}
	return s.Get(ctx, id)
}

// Handler returns a job handler that generates bundles.
func (s *Service) Handler() jobs.Handler {
	return jobs.NewHandler(jobs.GuideBundle,
		func(ctx context.Context, id int64) error {
			_, err := s.GenerateBundle(ctx, id)
			if IsNotFound(err) {
				return nil
			}
			return err
		})
}

func (s *Service) discardBundle(ctx context.Context, g *schema.Guide) error {
	if g.NgzPath == "" {
		return nil
	}
	if s.attachments != nil {
		if err := s.attachments.Delete(ctx, g.NgzPath); err != nil {
			slog.Warn("Cannot delete bundle", "guide", g.ID, "error", err)
		}
	}
	err := s.q(ctx).Model(&schema.Guide{}).Where("id = ?", g.ID).
		Updates(map[string]any{
			"ngz_path":         "",
			"ngz_file_size":    0,
			"ngz_content_type": "",
			"ngz_updated_at":   nil,
		}).Error
	if err != nil {
		return StoreError("discard bundle", err)
	}
	return nil
}

func (s *Service) enqueueBundle(ctx context.Context, id int64) {
	if s.queue == nil {
		return
	}
	if _, err := s.queue.Enqueue(ctx, jobs.GuideBundle, id); err != nil {
		slog.Warn("Cannot enqueue bundle job", "guide", id, "error", err)
	}
}

func (s *Service) cancelBundle(ctx context.Context, id int64) {
	if s.queue == nil {
		return
	}
	if _, err := s.queue.Cancel(ctx, jobs.GuideBundle, id); err != nil {
		slog.Warn("Cannot cancel bundle jobs", "guide", id, "error", err)
	}
}
