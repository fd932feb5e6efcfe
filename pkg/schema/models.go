// Package schema provides database schema models for gntree.
// Models keep field names of the original taxa and guides store.
package schema

import (
	"time"
)

// Taxon is a node of the taxonomic tree.
type Taxon struct {
	// ID is the primary key of the taxon.
	ID int64 `gorm:"primaryKey" json:"id"`

	// Name is the capitalized scientific name without rank words.
	Name string `gorm:"type:varchar(255);not null;index" json:"name"`

	// Rank is a normalized rank, empty when unranked.
	Rank string `gorm:"type:varchar(50)" json:"rank,omitempty"`

	// RankLevel is a numeric weight of the rank, null for unknown ranks.
	RankLevel *int `json:"rankLevel,omitempty"`

	// ParentID points to the immediate parent, null for roots.
	ParentID *int64 `gorm:"index" json:"parentId,omitempty"`

	// Ancestry is the materialized path of ancestor IDs ("1/2/3"),
	// empty for roots.
	Ancestry string `gorm:"type:varchar(1024);index" json:"ancestry"`

	// IconicTaxonID is the nearest self-or-ancestor flagged as iconic.
	IconicTaxonID *int64 `gorm:"index" json:"iconicTaxonId,omitempty"`

	// IsIconic marks taxa used as coarse display categories.
	IsIconic bool `gorm:"not null;default:false" json:"isIconic"`

	// WikipediaTitle overrides the name in summary lookups.
	WikipediaTitle string `gorm:"type:varchar(255)" json:"wikipediaTitle,omitempty"`

	// WikipediaSummary is a short description or a YYYY-MM-DD date of the
	// last failed lookup.
	WikipediaSummary string `gorm:"type:text" json:"wikipediaSummary,omitempty"`

	// ObservationsCount is a denormalized count of observations.
	ObservationsCount int `gorm:"not null;default:0" json:"observationsCount"`

	// LockVersion increases on every update, stale updates are rejected.
	LockVersion int `gorm:"not null;default:0" json:"lockVersion"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName returns the table of taxa.
func (Taxon) TableName() string { return "taxa" }

// TaxonName is a name attached to a taxon.
type TaxonName struct {
	ID      int64  `gorm:"primaryKey" json:"id"`
	TaxonID int64  `gorm:"not null;index" json:"taxonId"`
	Name    string `gorm:"type:varchar(255);not null" json:"name"`

	// NameUUID is UUID v5 of the name generated by gnuuid.
	NameUUID string `gorm:"type:uuid;index" json:"nameUuid"`

	// Lexicon is "scientific" for scientific names or a language of a
	// vernacular name.
	Lexicon string `gorm:"type:varchar(50);not null" json:"lexicon"`

	IsValid bool `gorm:"not null;default:true" json:"isValid"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LexiconScientific is the lexicon of scientific names.
const LexiconScientific = "scientific"

// Guide is a curated field guide.
type Guide struct {
	ID          int64  `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"type:varchar(255);not null" json:"title"`
	Description string `gorm:"type:text" json:"description,omitempty"`

	// TaxonID is the consensus taxon of the entries.
	TaxonID *int64 `gorm:"index" json:"taxonId,omitempty"`

	// SourceURL points to an external collection the guide was seeded from.
	SourceURL string `gorm:"type:varchar(512)" json:"sourceUrl,omitempty"`

	IconURL      string     `gorm:"type:varchar(512)" json:"iconUrl,omitempty"`
	Downloadable bool       `gorm:"not null;default:false" json:"downloadable"`
	PublishedAt  *time.Time `json:"publishedAt,omitempty"`

	// NgzPath is the key of the stored bundle.
	NgzPath        string     `gorm:"type:varchar(512)" json:"ngzPath,omitempty"`
	NgzFileSize    int64      `json:"ngzFileSize,omitempty"`
	NgzContentType string     `gorm:"type:varchar(100)" json:"ngzContentType,omitempty"`
	NgzUpdatedAt   *time.Time `json:"ngzUpdatedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	GuideTaxa []GuideTaxon `gorm:"constraint:OnDelete:CASCADE" json:"guideTaxa,omitempty"`
}

// GuideTaxon is an entry of a guide.
type GuideTaxon struct {
	ID          int64  `gorm:"primaryKey" json:"id"`
	GuideID     int64  `gorm:"not null;index" json:"guideId"`
	TaxonID     *int64 `gorm:"index" json:"taxonId,omitempty"`
	Name        string `gorm:"type:varchar(255)" json:"name"`
	DisplayName string `gorm:"type:varchar(255)" json:"displayName,omitempty"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	Position    int    `gorm:"not null;default:0" json:"position"`

	// SourceIdentifier is the ID of the item in an external collection.
	SourceIdentifier string `gorm:"type:varchar(255)" json:"sourceIdentifier,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Photos []GuidePhoto `gorm:"constraint:OnDelete:CASCADE" json:"photos,omitempty"`
}

// TableName returns the table of guide entries.
func (GuideTaxon) TableName() string { return "guide_taxa" }

// Kinds of guide media.
const (
	PhotoKind = "photo"
	RangeKind = "range"
)

// GuidePhoto is a media asset of a guide entry.
type GuidePhoto struct {
	ID           int64  `gorm:"primaryKey" json:"id"`
	GuideTaxonID int64  `gorm:"not null;index" json:"guideTaxonId"`
	Kind         string `gorm:"type:varchar(20);not null;default:photo" json:"kind"`
	ThumbURL     string `gorm:"type:varchar(512)" json:"thumbUrl,omitempty"`
	SmallURL     string `gorm:"type:varchar(512)" json:"smallUrl,omitempty"`
	MediumURL    string `gorm:"type:varchar(512)" json:"mediumUrl,omitempty"`
	Attribution  string `gorm:"type:varchar(512)" json:"attribution,omitempty"`
	Position     int    `gorm:"not null;default:0" json:"position"`
}

// Observation is a record of an organism.
type Observation struct {
	ID            int64  `gorm:"primaryKey"`
	TaxonID       *int64 `gorm:"index"`
	IconicTaxonID *int64 `gorm:"index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Identification is an opinion about the taxon of an observation.
type Identification struct {
	ID            int64 `gorm:"primaryKey"`
	ObservationID int64 `gorm:"not null;index"`
	TaxonID       int64 `gorm:"not null;index"`
	CreatedAt     time.Time
}

// ListedTaxon is a taxon on a checklist.
type ListedTaxon struct {
	ID      int64 `gorm:"primaryKey"`
	ListID  int64 `gorm:"not null;index"`
	TaxonID int64 `gorm:"not null;index"`

	// TaxonAncestorIDs is a comma separated list of ancestor IDs and the
	// taxon ID.
	TaxonAncestorIDs string `gorm:"type:varchar(1024)"`
}

// TableName returns the table of listed taxa.
func (ListedTaxon) TableName() string { return "listed_taxa" }

// Job statuses.
const (
	JobQueued    = "queued"
	JobRunning   = "running"
	JobSucceeded = "succeeded"
	JobFailed    = "failed"

	// JobDead is a failed job that will not run again: its attempts are
	// used up or a newer pending job of the same entity replaced it.
	JobDead = "dead"
)

// Job is a background task.
type Job struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	JobType     string `gorm:"type:varchar(50);not null;index:idx_jobs_identity"`
	EntityID    int64  `gorm:"not null;index:idx_jobs_identity"`
	Status      string `gorm:"type:varchar(20);not null;index"`
	Attempts    int    `gorm:"not null;default:0"`
	LastError   string `gorm:"type:text"`
	LastErrorAt *time.Time
	LockedAt    *time.Time
	HeartbeatAt *time.Time
	RunAt       time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsPending is true for jobs that are waiting to run: queued jobs and
// failed jobs with attempts left.
func (j *Job) IsPending() bool {
	return j.Status == JobQueued || j.Status == JobFailed
}
