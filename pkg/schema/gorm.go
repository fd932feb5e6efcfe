package schema

import (
	"gorm.io/gorm"
)

// AllModels returns all schema models for GORM AutoMigrate.
func AllModels() []any {
	return []any{
		&Taxon{},
		&TaxonName{},
		&Guide{},
		&GuideTaxon{},
		&GuidePhoto{},
		&Observation{},
		&Identification{},
		&ListedTaxon{},
		&Job{},
	}
}

// Migrate runs GORM AutoMigrate to create or update schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}

// Reference is a column that points to a taxon.
type Reference struct {
	Table  string
	Column string
}

// TaxonReferences lists every column that holds a taxon ID of a dependent
// record. Merging taxa repoints all of them.
func TaxonReferences() []Reference {
	return []Reference{
		{Table: "observations", Column: "taxon_id"},
		{Table: "identifications", Column: "taxon_id"},
		{Table: "listed_taxa", Column: "taxon_id"},
		{Table: "guide_taxa", Column: "taxon_id"},
		{Table: "guides", Column: "taxon_id"},
		{Table: "taxon_names", Column: "taxon_id"},
	}
}
