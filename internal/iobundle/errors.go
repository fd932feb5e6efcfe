package iobundle

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/gnames/gntree/pkg/errcode"
)

// WorkDirError is returned when the work directory of a bundle cannot
// be created.
func WorkDirError(dir string, err error) error {
	msg := "Cannot create bundle directory <em>%s</em>"

	return &gn.Error{
		Code: errcode.BundleWorkDirError,
		Msg:  msg,
		Vars: []any{dir},
		Err:  fmt.Errorf("mkdir %s: %w", dir, err),
	}
}

// DocumentError is returned when the XML document of a guide cannot be
// written.
func DocumentError(guideID int64, err error) error {
	msg := "Cannot write bundle document of guide <em>%d</em>"

	return &gn.Error{
		Code: errcode.BundleDocumentError,
		Msg:  msg,
		Vars: []any{guideID},
		Err:  fmt.Errorf("write document of guide %d: %w", guideID, err),
	}
}

// ArchiveError is returned when the bundle archive cannot be packed.
func ArchiveError(path string, err error) error {
	msg := "Cannot pack bundle <em>%s</em>"

	return &gn.Error{
		Code: errcode.BundleArchiveError,
		Msg:  msg,
		Vars: []any{path},
		Err:  fmt.Errorf("zip %s: %w", path, err),
	}
}
