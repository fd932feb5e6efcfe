package iocollection

import (
	"errors"
	"fmt"

	"github.com/gnames/gn"
	"github.com/gnames/gntree/pkg/errcode"
)

var (
	// ErrURL is wrapped by URLError.
	ErrURL = errors.New("not a collection URL")

	// ErrInvalidJSON is wrapped by InvalidResponseError.
	ErrInvalidJSON = errors.New("invalid JSON")
)

// URLError is returned when a URL has no collection ID.
func URLError(url string) error {
	msg := "Cannot find collection ID in <em>%s</em>"
	return &gn.Error{
		Code: errcode.CollectionURLError,
		Msg:  msg,
		Vars: []any{url},
		Err:  fmt.Errorf("collection %s: %w", url, ErrURL),
	}
}

// InvalidResponseError is returned when a collection cannot be parsed.
func InvalidResponseError(url string) error {
	msg := "Cannot read collection <em>%s</em>"
	return &gn.Error{
		Code: errcode.ServiceResponseError,
		Msg:  msg,
		Vars: []any{url},
		Err:  fmt.Errorf("collection %s: %w", url, ErrInvalidJSON),
	}
}
