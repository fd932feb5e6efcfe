// Package config holds settings of gntree. It does no I/O; invalid
// values are reported through gn.Warn and ignored, so a Config made by
// New and changed only by options is always usable.
//
// Values come, from weakest to strongest, from defaults, config.yaml,
// GNTREE_* environment variables and command flags. Environment names
// follow yaml keys, for example GNTREE_DATABASE_HOST or
// GNTREE_WORKER_DUPLICATES_SCHEDULE.
//
// Everything except HomeDir and Import is persistent: it is written to
// config.yaml and returned by ToOptions. HomeDir is found at startup,
// Import is set by flags of the import command.
package config

import (
	"runtime"
	"time"
)

// Config represents the complete gntree configuration.
type Config struct {
	// Database contains PostgreSQL connection settings.
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`

	// Log contains settings of application logs.
	Log LogConfig `mapstructure:"log" yaml:"log"`

	// Bundle contains settings of guide bundle (ngz) generation and
	// storage.
	Bundle BundleConfig `mapstructure:"bundle" yaml:"bundle"`

	// Services contains settings for external summary and collection
	// services.
	Services ServicesConfig `mapstructure:"services" yaml:"services"`

	// Worker contains settings of the background jobs worker.
	Worker WorkerConfig `mapstructure:"worker" yaml:"worker"`

	// Import contains settings specific to the taxon import command.
	Import ImportConfig `mapstructure:"import" yaml:"import"`

	// JobsNumber sizes import workers and parser pools, it defaults to
	// the number of CPUs.
	JobsNumber int `mapstructure:"jobs_number" yaml:"jobs_number"`

	// HomeDir is the root of config, cache and log directories.
	HomeDir string
}

// DatabaseConfig locates the PostgreSQL database of taxa and guides.
type DatabaseConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	Database string `mapstructure:"database" yaml:"database"`

	// SSLMode is disable, require, verify-ca or verify-full.
	SSLMode string `mapstructure:"ssl_mode" yaml:"ssl_mode"`

	// BatchSize defines the number of records inserted per batch during
	// taxonomic import.
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size"`
}

// LogConfig sets format (json, text), level (debug, info, warn, error)
// and destination (file, stderr, stdout) of logs.
type LogConfig struct {
	Format      string `mapstructure:"format" yaml:"format"`
	Level       string `mapstructure:"level" yaml:"level"`
	Destination string `mapstructure:"destination" yaml:"destination"`
}

// BundleConfig describes how guide bundles are built and where they are
// stored.
type BundleConfig struct {
	// Storage is either "file" (local directory) or "s3".
	Storage string `mapstructure:"storage" yaml:"storage"`

	// Dir is the local directory for bundles when Storage is "file".
	// Empty value means <cache dir>/bundles.
	Dir string `mapstructure:"dir" yaml:"dir"`

	// S3Bucket is the bucket for bundles when Storage is "s3".
	S3Bucket string `mapstructure:"s3_bucket" yaml:"s3_bucket"`

	// S3Region is the AWS region of the bucket.
	S3Region string `mapstructure:"s3_region" yaml:"s3_region"`

	// S3Prefix is prepended to the keys of stored bundles.
	S3Prefix string `mapstructure:"s3_prefix" yaml:"s3_prefix"`

	// FetchConcurrency limits simultaneous asset downloads of one guide
	// entry.
	FetchConcurrency int `mapstructure:"fetch_concurrency" yaml:"fetch_concurrency"`

	// FetchTimeout limits the duration of one asset download.
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" yaml:"fetch_timeout"`
}

// ServicesConfig contains settings of external services.
type ServicesConfig struct {
	// WikipediaURL is the MediaWiki API endpoint used for taxon summaries.
	WikipediaURL string `mapstructure:"wikipedia_url" yaml:"wikipedia_url"`

	// CollectionURL is the base URL of the collections API.
	CollectionURL string `mapstructure:"collection_url" yaml:"collection_url"`

	// Timeout limits one request to an external service.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// RequestsPerSecond paces requests to external services.
	RequestsPerSecond int `mapstructure:"requests_per_second" yaml:"requests_per_second"`

	// SummaryCoolDown is the time during which an empty or failed summary
	// lookup is not repeated.
	SummaryCoolDown time.Duration `mapstructure:"summary_cool_down" yaml:"summary_cool_down"`
}

// WorkerConfig contains settings of the background jobs worker.
type WorkerConfig struct {
	// Concurrency is the number of goroutines processing jobs.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`

	// PollInterval is the pause between attempts to claim a job.
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`

	// MaxAttempts is the number of runs of a failing job.
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts"`

	// RetryDelay is the pause before a failed job runs again.
	RetryDelay time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`

	// StaleRunning is the time after which a running job without heartbeat
	// is claimed again.
	StaleRunning time.Duration `mapstructure:"stale_running" yaml:"stale_running"`

	// DuplicatesSchedule is a cron expression for the duplicate taxa sweep.
	// Empty value disables the sweep.
	DuplicatesSchedule string `mapstructure:"duplicates_schedule" yaml:"duplicates_schedule"`

	// DuplicatesPasses limits passes of one duplicates sweep. A pass merges
	// duplicates that the previous pass created by moving children.
	DuplicatesPasses int `mapstructure:"duplicates_passes" yaml:"duplicates_passes"`

	// IconicTTL is how long iconic taxa stay cached before a reload.
	IconicTTL time.Duration `mapstructure:"iconic_ttl" yaml:"iconic_ttl"`

	// MetricsAddr is the address of the prometheus metrics endpoint.
	// Empty value disables the endpoint.
	MetricsAddr string `mapstructure:"metrics_addr" yaml:"metrics_addr"`
}

// ImportConfig contains settings specific to the taxon import command.
type ImportConfig struct {
	// Source is a path or URL to an SFGA archive.
	Source string `mapstructure:"source" yaml:"source"`

	// Code is the nomenclatural code used to parse names,
	// "botanical" or "zoological".
	Code string `mapstructure:"code" yaml:"code"`
}

// New creates a Config with sensible default values.
// The returned config is always valid and ready to use.
// Default values can be overridden using Option functions via Update().
func New() *Config {
	res := &Config{
		Database: DatabaseConfig{
			Host:      "localhost",
			Port:      5432,
			User:      "postgres",
			Password:  "postgres",
			Database:  "gntree",
			SSLMode:   "disable",
			BatchSize: 5_000,
		},
		Log: LogConfig{
			Format: "json",
			Level:  "info",
			// for now file is rewritten every time the log starts
			Destination: "file",
		},
		Bundle: BundleConfig{
			Storage:          "file",
			S3Region:         "us-east-1",
			S3Prefix:         "guides",
			FetchConcurrency: 4,
			FetchTimeout:     30 * time.Second,
		},
		Services: ServicesConfig{
			WikipediaURL:      "https://en.wikipedia.org/w/api.php",
			CollectionURL:     "https://eol.org/api/collections/1.0",
			Timeout:           30 * time.Second,
			RequestsPerSecond: 2,
			SummaryCoolDown:   7 * 24 * time.Hour,
		},
		Worker: WorkerConfig{
			Concurrency:        4,
			PollInterval:       time.Second,
			MaxAttempts:        5,
			RetryDelay:         30 * time.Second,
			StaleRunning:       30 * time.Minute,
			DuplicatesSchedule: "@daily",
			DuplicatesPasses:   5,
			IconicTTL:          10 * time.Minute,
		},
		Import: ImportConfig{
			Code: "botanical",
		},
		JobsNumber: runtime.NumCPU(), // Default to number of CPU threads
	}

	return res
}
