package iosfga

import (
	"errors"
	"fmt"

	"github.com/gnames/gn"
	"github.com/gnames/gntree/pkg/errcode"
)

// ErrNoSource is wrapped by SourceError.
var ErrNoSource = errors.New("SFGA source is not set")

// SourceError is returned when import has no archive to read.
func SourceError() error {
	msg := "Set SFGA archive with <em>--source</em> flag"
	return &gn.Error{
		Code: errcode.ImportSFGAFetchError,
		Msg:  msg,
		Err:  ErrNoSource,
	}
}

// CacheError is returned when the cache directory cannot be prepared.
func CacheError(dir string, err error) error {
	msg := "Cannot prepare cache directory <em>%s</em>"
	return &gn.Error{
		Code: errcode.CreateDirError,
		Msg:  msg,
		Vars: []any{dir},
		Err:  fmt.Errorf("cache %s: %w", dir, err),
	}
}

// FetchError is returned when an archive cannot be downloaded or
// extracted.
func FetchError(source string, err error) error {
	msg := "Cannot fetch SFGA archive <em>%s</em>"
	return &gn.Error{
		Code: errcode.ImportSFGAFetchError,
		Msg:  msg,
		Vars: []any{source},
		Err:  fmt.Errorf("fetch %s: %w", source, err),
	}
}

// OpenError is returned when an SFGA database cannot be opened.
func OpenError(path string, err error) error {
	msg := "Cannot open SFGA database <em>%s</em>"
	return &gn.Error{
		Code: errcode.ImportSFGAReadError,
		Msg:  msg,
		Vars: []any{path},
		Err:  fmt.Errorf("open %s: %w", path, err),
	}
}

// ReadError is returned when an SFGA table cannot be read.
func ReadError(table string, err error) error {
	msg := "Cannot read SFGA table <em>%s</em>"
	return &gn.Error{
		Code: errcode.ImportSFGAReadError,
		Msg:  msg,
		Vars: []any{table},
		Err:  fmt.Errorf("read %s: %w", table, err),
	}
}
