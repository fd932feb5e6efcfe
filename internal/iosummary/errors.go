package iosummary

import (
	"errors"
	"fmt"

	"github.com/gnames/gn"
	"github.com/gnames/gntree/pkg/errcode"
)

// ErrInvalidJSON is wrapped by InvalidResponseError.
var ErrInvalidJSON = errors.New("invalid JSON")

// InvalidResponseError is returned when a response cannot be parsed.
func InvalidResponseError(title string) error {
	msg := "Cannot read summary of <em>%s</em>"
	return &gn.Error{
		Code: errcode.ServiceResponseError,
		Msg:  msg,
		Vars: []any{title},
		Err:  fmt.Errorf("summary of %s: %w", title, ErrInvalidJSON),
	}
}
