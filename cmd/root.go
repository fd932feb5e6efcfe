/*
Copyright © 2025 Dmitry Mozzherin <dmozzherin@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/gnames/gn"
	"github.com/gnames/gntree/internal/iofs"
	"github.com/gnames/gntree/internal/iologger"
	gntree "github.com/gnames/gntree/pkg"
	"github.com/gnames/gntree/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	homeDir string
	opts    []config.Option
	cfg     *config.Config
)

// getRootCmd returns the root command with all subcommands attached.
func getRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Version: fmt.Sprintf("version: %s\nbuild:   %s", gntree.Version, gntree.Build),
		Use:     "gntree",
		Short:   "GNtree keeps a tree of taxa and field guides built on it",
		Long: `GNtree maintains a tree of biological taxa in PostgreSQL.

It normalizes ranks, keeps ancestry paths and iconic taxa consistent
when taxa are created, moved or merged, finds the consensus taxon of a
field guide and packages guides into downloadable bundles.

Configuration precedence (highest to lowest):
  1. CLI flags
  2. Environment variables (GNTREE_*)
  3. Config file (~/.config/gntree/config.yaml)
  4. Built-in defaults

Nested settings use underscores in environment variables, for example
database.host becomes GNTREE_DATABASE_HOST.`,
		PersistentPreRunE: bootstrap,
		SilenceErrors:     true,
		SilenceUsage:      true,
	}

	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.Flags().BoolP("version", "V", false, "version for gntree")

	rootCmd.AddCommand(
		getCreateCmd(),
		getMigrateCmd(),
		getOptimizeCmd(),
		getRankCmd(),
		getTaxonCmd(),
		getGuideCmd(),
		getWorkerCmd(),
	)
	return rootCmd
}

func bootstrap(cmd *cobra.Command, _ []string) error {
	var err error
	homeDir, err = os.UserHomeDir()
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	if err = iofs.EnsureDirs(homeDir); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	// defaults until the config file is read
	defaultLog := config.LogConfig{
		Format:      "json",
		Level:       "info",
		Destination: "file",
	}
	appendLog := isLongRunning(cmd)
	if err = iologger.Init(config.LogDir(homeDir), defaultLog, appendLog); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	if err = iofs.EnsureConfigFile(homeDir); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	var cfgViper *config.Config
	if cfgViper, err = initConfig(homeDir); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	cfg = config.New()
	opts = cfgViper.ToOptions()
	cfg.Update(opts)
	cfg.Update([]config.Option{config.OptHomeDir(homeDir)})

	logDir := config.LogDir(cfg.HomeDir)
	if err = iologger.Init(logDir, cfg.Log, true); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	slog.Info("Configuration loaded",
		"command", cmd.CommandPath(),
		"config_file", config.ConfigFilePath(homeDir),
	)
	return nil
}

// isLongRunning reports commands that keep appending to the log file.
func isLongRunning(cmd *cobra.Command) bool {
	return cmd.Name() == "worker"
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := getRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func initConfig(home string) (*config.Config, error) {
	var err error
	cfgPath := config.ConfigFilePath(home)
	v := viper.New()
	v.SetConfigFile(cfgPath)

	initEnvVars(v)

	if err = v.ReadInConfig(); err != nil {
		return nil, iofs.ReadFileError(cfgPath, err)
	}

	var res config.Config
	if err = v.Unmarshal(&res); err != nil {
		return nil, iofs.ReadFileError(cfgPath, err)
	}

	return &res, nil
}

// envKeys are settings that can be overridden by GNTREE_* variables.
// They match the fields of config.ToOptions().
var envKeys = []string{
	"database.host",
	"database.port",
	"database.user",
	"database.password",
	"database.database",
	"database.ssl_mode",
	"database.batch_size",

	"log.level",
	"log.format",
	"log.destination",

	"bundle.storage",
	"bundle.dir",
	"bundle.s3_bucket",
	"bundle.s3_region",
	"bundle.s3_prefix",
	"bundle.fetch_concurrency",
	"bundle.fetch_timeout",

	"services.wikipedia_url",
	"services.collection_url",
	"services.timeout",
	"services.requests_per_second",
	"services.summary_cool_down",

	"worker.concurrency",
	"worker.poll_interval",
	"worker.max_attempts",
	"worker.retry_delay",
	"worker.stale_running",
	"worker.duplicates_schedule",
	"worker.duplicates_passes",
	"worker.iconic_ttl",
	"worker.metrics_addr",

	"jobs_number",
}

const envPrefix = "GNTREE"

func initEnvVars(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, k := range envKeys {
		v.BindEnv(k, envName(k))
	}
	v.AutomaticEnv()
}

// envName converts a config key to its environment variable name:
// "database.ssl_mode" becomes "GNTREE_DATABASE_SSL_MODE".
func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
