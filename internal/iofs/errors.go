package iofs

import (
	"fmt"
	"runtime"

	"github.com/gnames/gn"
	"github.com/gnames/gntree/pkg/errcode"
)

// fsError records the calling function, so logs show where a file
// operation of the bootstrap failed.
func fsError(code gn.ErrorCode, msg, path, op string, err error) error {
	pc, _, _, _ := runtime.Caller(2)
	return &gn.Error{
		Code: code,
		Msg:  msg,
		Vars: []any{path},
		Err: fmt.Errorf("from %s: cannot %s %s: %w",
			runtime.FuncForPC(pc).Name(), op, path, err),
	}
}

// CreateDirError is returned when a gntree directory cannot be made.
func CreateDirError(dir string, err error) error {
	return fsError(errcode.CreateDirError,
		"Cannot create directory <em>%s</em>", dir, "create", err)
}

// CopyFileError is returned when the default config.yaml cannot be
// written.
func CopyFileError(file string, err error) error {
	return fsError(errcode.CopyFileError,
		"Cannot write default config to <em>%s</em>", file, "write", err)
}

// ReadFileError is returned when config.yaml cannot be read or decoded.
func ReadFileError(path string, err error) error {
	return fsError(errcode.ReadFileError,
		"Cannot read config <em>%s</em>", path, "read", err)
}
