package ioguide

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/gnames/gn"
	"github.com/gnames/gntree/pkg/errcode"
)

// ErrNotFound is wrapped by NotFoundError.
var ErrNotFound = errors.New("guide not found")

// NotFoundError is returned when a guide does not exist.
func NotFoundError(id int64) error {
	msg := "Guide <em>%d</em> not found"
	vars := []any{id}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.GuideNotFoundError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: guide %d: %w", fn, id, ErrNotFound),
	}
}

// StoreError is returned when guides cannot be read or saved.
func StoreError(op string, err error) error {
	msg := "Cannot %s"
	vars := []any{op}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.GuideStoreError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: cannot %s: %w", fn, op, err),
	}
}

// BundleError is returned when a bundle cannot be generated.
func BundleError(id int64, err error) error {
	msg := "Cannot generate bundle of guide <em>%d</em>"
	return &gn.Error{
		Code: errcode.BundleStoreError,
		Msg:  msg,
		Vars: []any{id},
		Err:  fmt.Errorf("bundle of guide %d: %w", id, err),
	}
}

// IsNotFound checks if err means a missing guide.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var gnErr *gn.Error
	return errors.As(err, &gnErr) && gnErr.Code == errcode.GuideNotFoundError
}
