// Package iotesting connects integration tests to the gntree_test
// database.
package iotesting

import (
	"context"
	"os"
	"strconv"
	"testing"

	"github.com/gnames/gntree/internal/iodb"
	"github.com/gnames/gntree/internal/ioschema"
	"github.com/gnames/gntree/pkg/config"
	"github.com/gnames/gntree/pkg/db"
	"github.com/stretchr/testify/require"
)

// TestDatabaseName is the only database integration tests touch.
const TestDatabaseName = "gntree_test"

// GetTestConfig returns defaults with GNTREE_DATABASE_* credentials from
// the environment and the database name forced to TestDatabaseName.
func GetTestConfig() *config.Config {
	cfg := config.New()

	var opts []config.Option
	if s := os.Getenv("GNTREE_DATABASE_HOST"); s != "" {
		opts = append(opts, config.OptDatabaseHost(s))
	}
	if s := os.Getenv("GNTREE_DATABASE_PORT"); s != "" {
		if port, err := strconv.Atoi(s); err == nil {
			opts = append(opts, config.OptDatabasePort(port))
		}
	}
	if s := os.Getenv("GNTREE_DATABASE_USER"); s != "" {
		opts = append(opts, config.OptDatabaseUser(s))
	}
	if s := os.Getenv("GNTREE_DATABASE_PASSWORD"); s != "" {
		opts = append(opts, config.OptDatabasePassword(s))
	}
	opts = append(opts, config.OptDatabaseDatabase(TestDatabaseName))
	cfg.Update(opts)

	return cfg
}

// GetTestDatabaseConfig returns only the database configuration for tests.
func GetTestDatabaseConfig() *config.DatabaseConfig {
	cfg := GetTestConfig()
	return &cfg.Database
}

// ConnectTestDB connects to the test database, brings the schema up to
// date and empties all gntree tables. The connection is closed when the
// test finishes.
func ConnectTestDB(t *testing.T) db.Operator {
	t.Helper()
	ctx := context.Background()

	op := iodb.NewPgxOperator()
	err := op.Connect(ctx, GetTestDatabaseConfig())
	require.NoError(t, err)
	t.Cleanup(func() { op.Close() })

	err = ioschema.NewManager(op).Migrate(ctx, GetTestConfig())
	require.NoError(t, err)

	_, err = op.Pool().Exec(ctx, `TRUNCATE taxa, taxon_names, guides,
		guide_taxa, guide_photos, observations, identifications,
		listed_taxa, jobs RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	return op
}
