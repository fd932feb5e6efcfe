package cmd

import (
	"testing"

	"github.com/gnames/gntree/internal/iofs"
	"github.com/stretchr/testify/require"
)

// setupConfig writes the default config file under home.
func setupConfig(t *testing.T, home string) {
	t.Helper()
	require.NoError(t, iofs.EnsureDirs(home))
	require.NoError(t, iofs.EnsureConfigFile(home))
}
