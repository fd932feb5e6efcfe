package ioschema

import (
	"errors"
	"strings"
	"testing"

	"github.com/gnames/gn"
	"github.com/gnames/gntree/pkg/errcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameColumnSQL(t *testing.T) {
	c := nameColumn{"taxon_names", "name", 255}
	assert.Equal(t,
		`ALTER TABLE taxon_names ALTER COLUMN name TYPE VARCHAR(255) COLLATE "C"`,
		c.sql())
}

func TestIndexes(t *testing.T) {
	for _, v := range indexes {
		assert.Contains(t, v.sql, v.name)
		assert.True(t, strings.Contains(v.sql, "IF NOT EXISTS"), v.name)
	}
}

func TestJobsOpenIndex(t *testing.T) {
	var open string
	for _, v := range indexes {
		if v.name == "idx_jobs_open" {
			open = v.sql
		}
	}
	require.NotEmpty(t, open)
	assert.Contains(t, open, "UNIQUE")
	assert.Contains(t, open, "status IN ('queued', 'failed')")

	require.NotEmpty(t, indexFixups)
	assert.Contains(t, indexFixups[0].sql, "DROP INDEX IF EXISTS idx_jobs_pending")
	assert.Contains(t, indexFixups[1].sql, "status = 'dead'")
}

func TestErrors(t *testing.T) {
	orig := errors.New("permission denied")
	tests := []struct {
		msg  string
		err  error
		code gn.ErrorCode
		vars []any
	}{
		{"gorm", GORMConnectionError(orig), errcode.SchemaGORMConnectionError, nil},
		{"create", CreateSchemaError(orig), errcode.SchemaCreateError, nil},
		{"migrate", MigrateSchemaError(orig), errcode.SchemaMigrateError, nil},
		{"collation", CollationError("taxa", "name", orig),
			errcode.SchemaCollationError, []any{"taxa", "name"}},
		{"index", IndexError("idx_jobs_open", orig),
			errcode.SchemaIndexError, []any{"idx_jobs_open"}},
	}

	for _, v := range tests {
		t.Run(v.msg, func(t *testing.T) {
			gnErr, ok := v.err.(*gn.Error)
			require.True(t, ok)
			assert.Equal(t, v.code, gnErr.Code)
			assert.NotEmpty(t, gnErr.Msg)
			assert.Equal(t, v.vars, gnErr.Vars)
			assert.ErrorIs(t, gnErr.Err, orig)
		})
	}

	gnErr, ok := NotConnectedError().(*gn.Error)
	require.True(t, ok)
	assert.Equal(t, errcode.DBNotConnectedError, gnErr.Code)
}
