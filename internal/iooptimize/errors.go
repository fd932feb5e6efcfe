package iooptimize

import (
	"errors"
	"fmt"

	"github.com/gnames/gn"
	"github.com/gnames/gntree/pkg/errcode"
)

// ErrNotConnected is wrapped by NotConnectedError.
var ErrNotConnected = errors.New("database is not connected")

// NotConnectedError is returned when optimization starts without a
// connection.
func NotConnectedError() error {
	return &gn.Error{
		Code: errcode.DBNotConnectedError,
		Msg:  "Database is not connected",
		Err:  ErrNotConnected,
	}
}

// OrphanRemovalError is returned when orphaned records cannot be fixed.
func OrphanRemovalError(table, column string, err error) error {
	msg := "Cannot fix orphaned records of <em>%s.%s</em>"
	return &gn.Error{
		Code: errcode.OptimizerOrphanRemovalError,
		Msg:  msg,
		Vars: []any{table, column},
		Err:  fmt.Errorf("orphans %s.%s: %w", table, column, err),
	}
}

// VacuumError is returned when VACUUM ANALYZE fails.
func VacuumError(err error) error {
	return &gn.Error{
		Code: errcode.OptimizerVacuumError,
		Msg:  "Cannot update database statistics",
		Err:  fmt.Errorf("vacuum analyze: %w", err),
	}
}
