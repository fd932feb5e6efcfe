package ioschema_test

import (
	"context"
	"testing"

	"github.com/gnames/gntree/internal/iodb"
	"github.com/gnames/gntree/internal/ioschema"
	"github.com/gnames/gntree/internal/iotesting"
	"github.com/gnames/gntree/pkg/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager(t *testing.T) {
	op := iodb.NewPgxOperator()
	var mgr lifecycle.SchemaManager = ioschema.NewManager(op)
	require.NotNil(t, mgr)

	err := mgr.Create(context.Background(), iotesting.GetTestConfig())
	assert.Error(t, err, "not connected")
}

func TestManagerCreate(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()
	cfg := iotesting.GetTestConfig()
	op := iotesting.ConnectTestDB(t)

	mgr := ioschema.NewManager(op)
	require.NoError(t, mgr.Create(ctx, cfg))
	require.NoError(t, mgr.Migrate(ctx, cfg), "migration is idempotent")

	for _, table := range []string{"taxa", "taxon_names", "guides", "jobs"} {
		exists, err := op.TableExists(ctx, table)
		require.NoError(t, err)
		assert.True(t, exists, table)
	}

	var collation string
	err := op.Pool().QueryRow(ctx, `SELECT collation_name
		FROM information_schema.columns
		WHERE table_name = 'taxa' AND column_name = 'name'`).Scan(&collation)
	require.NoError(t, err)
	assert.Equal(t, "C", collation)
}
