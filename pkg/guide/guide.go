// Package guide describes curated field guides: their service contract,
// collaborators and rules that do not depend on storage.
package guide

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gnames/gntree/pkg/schema"
)

// Service manages guides and their entries.
type Service interface {
	// Create saves a new guide. If SourceURL points to an external
	// collection, missing title, description and icon are taken from it
	// and its items become entries.
	Create(ctx context.Context, d Draft) (*schema.Guide, error)

	// Get returns a guide with entries ordered by position.
	Get(ctx context.Context, id int64) (*schema.Guide, error)

	// Update changes a guide. Changes of bundle-relevant fields schedule
	// or cancel bundle generation.
	Update(ctx context.Context, id int64, c Changes) (*schema.Guide, error)

	// Delete removes a guide, its entries and its bundle.
	Delete(ctx context.Context, id int64) error

	// SetTaxon stores the consensus taxon of guide entries.
	SetTaxon(ctx context.Context, id int64) (*int64, error)

	// ReorderByTaxonomy renumbers entries following the tree of taxa.
	ReorderByTaxonomy(ctx context.Context, id int64) error

	// ImportTaxa adds entries from a subtree of taxa or an external
	// collection.
	ImportTaxa(ctx context.Context, id int64, opts ImportOptions) (*ImportResult, error)

	// AddEntry adds an entry with its photos to the end of a guide.
	AddEntry(ctx context.Context, id int64, e Entry) (*schema.GuideTaxon, error)

	// GenerateBundle builds and stores the downloadable bundle of a guide.
	GenerateBundle(ctx context.Context, id int64) (*schema.Guide, error)
}

// Draft holds fields of a new guide.
type Draft struct {
	Title        string
	Description  string
	SourceURL    string
	IconURL      string
	Downloadable bool
	PublishedAt  *time.Time
	TaxonID      *int64
}

// Changes holds fields to update, nil fields stay as they are.
type Changes struct {
	Title        *string
	Description  *string
	IconURL      *string
	Downloadable *bool
	PublishedAt  *time.Time
	Unpublish    bool
}

// Entry is a manually added guide entry.
type Entry struct {
	TaxonID     *int64
	Name        string
	DisplayName string
	Description string
	Photos      []schema.GuidePhoto
}

// ImportOptions selects where entries come from. CollectionURL wins when
// both are set.
type ImportOptions struct {
	TaxonID       *int64
	CollectionURL string
}

// ImportResult counts entries of an import.
type ImportResult struct {
	Saved  int      `json:"saved"`
	Failed int      `json:"failed"`
	Errors []string `json:"errors,omitempty"`
}

// Add counts the outcome of saving one entry.
func (r *ImportResult) Add(label string, err error) {
	if err == nil {
		r.Saved++
		return
	}
	r.Failed++
	r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", label, err))
	slog.Warn("Cannot save guide entry", "entry", label, "error", err)
}

// Collection is an external list of taxa that can seed a guide.
type Collection struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	LogoURL     string           `json:"logoUrl"`
	Items       []CollectionItem `json:"items"`
}

// CollectionItem is a member of an external collection.
type CollectionItem struct {
	// Name is the scientific name of the item.
	Name string `json:"name"`

	// Title is a display name of the item.
	Title string `json:"title"`

	// Annotation is a curator's note, it becomes the entry description.
	Annotation string `json:"annotation"`

	// ObjectID identifies the item in the external service.
	ObjectID string `json:"objectId"`

	// Photos are media of the item.
	Photos []schema.GuidePhoto `json:"photos,omitempty"`
}

// CollectionSource reads external collections.
type CollectionSource interface {
	// IsCollectionURL checks if the URL points to a supported collection.
	IsCollectionURL(url string) bool

	// Collection fetches a collection with its taxa items.
	Collection(ctx context.Context, url string) (*Collection, error)
}

// Builder assembles a bundle archive of a guide and returns the path of
// the archive and the work directory to clean up.
type Builder interface {
	Build(ctx context.Context, g *schema.Guide) (archive, workDir string, err error)
}

// Attachment describes a stored file.
type Attachment struct {
	Key         string
	Size        int64
	ContentType string
}

// AttachmentStore keeps bundle files.
type AttachmentStore interface {
	Put(ctx context.Context, key, path string) (*Attachment, error)
	Delete(ctx context.Context, key string) error
}
