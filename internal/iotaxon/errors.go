package iotaxon

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/gnames/gntree/pkg/errcode"
	"github.com/gnames/gntree/pkg/schema"
)

// UnknownReferenceError is returned when a reference column is not
// registered as pointing to taxa.
func UnknownReferenceError(ref schema.Reference) error {
	msg := "Column <em>%s.%s</em> is not a registered taxon reference"

	return &gn.Error{
		Code: errcode.TaxonStoreError,
		Msg:  msg,
		Vars: []any{ref.Table, ref.Column},
		Err: fmt.Errorf("unknown taxon reference %s.%s",
			ref.Table, ref.Column),
	}
}
