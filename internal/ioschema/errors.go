package ioschema

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/gnames/gntree/pkg/errcode"
)

// NotConnectedError is returned when the schema is changed before the
// operator is connected.
func NotConnectedError() error {
	return &gn.Error{
		Code: errcode.DBNotConnectedError,
		Msg:  "Schema operation attempted without database connection",
		Err:  fmt.Errorf("not connected to database"),
	}
}

// GORMConnectionError is returned when GORM cannot use the connection
// pool.
func GORMConnectionError(err error) error {
	return &gn.Error{
		Code: errcode.SchemaGORMConnectionError,
		Msg:  "Cannot open GORM session on the database",
		Err:  fmt.Errorf("failed to connect with GORM: %w", err),
	}
}

// CreateSchemaError is returned when AutoMigrate fails on an empty
// database.
func CreateSchemaError(err error) error {
	msg := `Cannot create tables of taxa, guides and jobs

<em>How to fix:</em>
  1. Check that the database user has CREATE permission
  2. Drop leftovers with <em>gntree create --force</em>`

	return &gn.Error{
		Code: errcode.SchemaCreateError,
		Msg:  msg,
		Err:  fmt.Errorf("failed to create schema: %w", err),
	}
}

// MigrateSchemaError is returned when AutoMigrate fails on an existing
// schema.
func MigrateSchemaError(err error) error {
	msg := `Cannot migrate database schema

<em>How to fix:</em>
  1. Check that the database user has ALTER permission
  2. Back up taxa and guides, then run <em>gntree create --force</em>`

	return &gn.Error{
		Code: errcode.SchemaMigrateError,
		Msg:  msg,
		Err:  fmt.Errorf("failed to migrate schema: %w", err),
	}
}

// CollationError is returned when a name column cannot get "C" collation.
func CollationError(table, column string, err error) error {
	return &gn.Error{
		Code: errcode.SchemaCollationError,
		Msg:  "Cannot set collation on <em>%s.%s</em>",
		Vars: []any{table, column},
		Err: fmt.Errorf("failed to set collation on %s.%s: %w",
			table, column, err),
	}
}

// IndexError is returned when an ancestry or jobs index cannot be
// created.
func IndexError(name string, err error) error {
	return &gn.Error{
		Code: errcode.SchemaIndexError,
		Msg:  "Cannot create index <em>%s</em>",
		Vars: []any{name},
		Err:  fmt.Errorf("failed to create index %s: %w", name, err),
	}
}
