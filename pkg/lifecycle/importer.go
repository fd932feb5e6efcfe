package lifecycle

import (
	"context"

	"github.com/gnames/gntree/pkg/config"
)

// Importer loads a tree of taxa from an SFGA archive. The archive is set
// by cfg.Import.Source, names are parsed with cfg.Import.Code.
//
// Import is additive: taxa that already exist under the same parent are
// reused, so running it twice does not duplicate the tree. A record that
// cannot be saved is logged and skipped together with its subtree.
type Importer interface {
	Import(ctx context.Context, cfg *config.Config) (*ImportResult, error)
}

// ImportResult counts records of an import.
type ImportResult struct {
	// Created is the number of new taxa.
	Created int `json:"created"`

	// Existing is the number of taxa found in the tree already.
	Existing int `json:"existing"`

	// Failed is the number of taxa that could not be saved.
	Failed int `json:"failed"`

	// Skipped is the number of taxa under failed or missing parents.
	Skipped int `json:"skipped"`

	// Vernaculars is the number of saved vernacular names.
	Vernaculars int `json:"vernaculars"`
}
