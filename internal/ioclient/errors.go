package ioclient

import (
	"errors"
	"fmt"

	"github.com/gnames/gn"
	"github.com/gnames/gntree/pkg/errcode"
)

// ErrStatus is wrapped by ResponseError.
var ErrStatus = errors.New("unexpected response status")

// RequestError is returned when a request cannot be sent or read.
func RequestError(url string, err error) error {
	msg := "Request to <em>%s</em> failed"
	return &gn.Error{
		Code: errcode.ServiceRequestError,
		Msg:  msg,
		Vars: []any{url},
		Err:  fmt.Errorf("request %s: %w", url, err),
	}
}

// ResponseError is returned when a service answers with a non-OK status.
func ResponseError(url string, status int) error {
	msg := "Service <em>%s</em> returned status %d"
	return &gn.Error{
		Code: errcode.ServiceResponseError,
		Msg:  msg,
		Vars: []any{url, status},
		Err:  fmt.Errorf("request %s: status %d: %w", url, status, ErrStatus),
	}
}
