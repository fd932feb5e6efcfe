package iodb_test

import (
	"context"
	"testing"

	"github.com/gnames/gntree/internal/iodb"
	"github.com/gnames/gntree/internal/iotesting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests need PostgreSQL. Credentials come from
// GNTREE_DATABASE_* variables or defaults, the database name is always
// gntree_test. Run with -short to skip them.

func TestNotConnected(t *testing.T) {
	ctx := context.Background()
	op := iodb.NewPgxOperator()
	assert.Nil(t, op.Pool())

	_, err := op.HasTables(ctx)
	assert.Error(t, err)
	_, err = op.TableExists(ctx, "taxa")
	assert.Error(t, err)
	assert.Error(t, op.DropAllTables(ctx))
	assert.NoError(t, op.Close())
}

func TestConnectInvalidHost(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	cfg := iotesting.GetTestDatabaseConfig()
	cfg.Host = "invalid-host-that-does-not-exist"
	assert.Error(t, iodb.NewPgxOperator().Connect(context.Background(), cfg))
}

func TestTables(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()
	op := iodb.NewPgxOperator()
	require.NoError(t, op.Connect(ctx, iotesting.GetTestDatabaseConfig()))
	defer op.Close()

	gdb, err := op.GORM()
	require.NoError(t, err)
	again, err := op.GORM()
	require.NoError(t, err)
	assert.Same(t, gdb, again, "one GORM session per operator")

	for _, v := range []string{"drop_taxa", "Drop Guides"} {
		_, err = op.Pool().Exec(ctx,
			`CREATE TABLE IF NOT EXISTS "`+v+`" (id SERIAL PRIMARY KEY)`)
		require.NoError(t, err)
	}

	exists, err := op.TableExists(ctx, "drop_taxa")
	require.NoError(t, err)
	assert.True(t, exists)
	has, err := op.HasTables(ctx)
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, op.DropAllTables(ctx))
	has, err = op.HasTables(ctx)
	require.NoError(t, err)
	assert.False(t, has)
	require.NoError(t, op.DropAllTables(ctx), "empty schema")
}
