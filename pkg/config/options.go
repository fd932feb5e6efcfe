package config

import (
	"strings"
	"time"
)

// Option modifies a Config. Invalid values are reported with a warning
// and ignored.
type Option func(*Config)

func setString(name, s string, field func(*Config) *string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString(name, s) {
			*field(c) = s
		}
	}
}

// setEnum lowercases s and accepts only values listed in enums.
func setEnum(name, s string, field func(*Config) *string) Option {
	s = strings.ToLower(strings.TrimSpace(s))
	return func(c *Config) {
		if isValidEnum(name, s) {
			*field(c) = s
		}
	}
}

func setPositive[T int | time.Duration](
	name string,
	v T,
	field func(*Config) *T,
) Option {
	return func(c *Config) {
		if isPositive(name, v) {
			*field(c) = v
		}
	}
}

// OptDatabaseHost sets the PostgreSQL host.
func OptDatabaseHost(s string) Option {
	return setString("Database Host", s,
		func(c *Config) *string { return &c.Database.Host })
}

// OptDatabasePort sets the PostgreSQL port.
func OptDatabasePort(i int) Option {
	return setPositive("Database Port", i,
		func(c *Config) *int { return &c.Database.Port })
}

func OptDatabaseUser(s string) Option {
	return setString("Database User", s,
		func(c *Config) *string { return &c.Database.User })
}

func OptDatabasePassword(s string) Option {
	return setString("Database Password", s,
		func(c *Config) *string { return &c.Database.Password })
}

// OptDatabaseDatabase sets the name of the gntree database.
func OptDatabaseDatabase(s string) Option {
	return setString("Database Name", s,
		func(c *Config) *string { return &c.Database.Database })
}

// OptDatabaseSSLMode accepts disable, require, verify-ca and verify-full.
func OptDatabaseSSLMode(s string) Option {
	return setEnum("Database.SSLMode", s,
		func(c *Config) *string { return &c.Database.SSLMode })
}

// OptDatabaseBatchSize sets how many rows are saved in one statement.
func OptDatabaseBatchSize(i int) Option {
	return setPositive("Batch Size", i,
		func(c *Config) *int { return &c.Database.BatchSize })
}

// OptLogLevel accepts debug, info, warn and error.
func OptLogLevel(s string) Option {
	return setEnum("Log.Level", s,
		func(c *Config) *string { return &c.Log.Level })
}

// OptLogFormat accepts json and text.
func OptLogFormat(s string) Option {
	return setEnum("Log.Format", s,
		func(c *Config) *string { return &c.Log.Format })
}

// OptLogDestination accepts file, stderr and stdout.
func OptLogDestination(s string) Option {
	return setEnum("Log.Destination", s,
		func(c *Config) *string { return &c.Log.Destination })
}

// OptBundleStorage selects where guide bundles are kept: file or s3.
func OptBundleStorage(s string) Option {
	return setEnum("Bundle.Storage", s,
		func(c *Config) *string { return &c.Bundle.Storage })
}

// OptBundleDir sets the local directory of guide bundles.
func OptBundleDir(s string) Option {
	return setString("Bundle Dir", s,
		func(c *Config) *string { return &c.Bundle.Dir })
}

func OptBundleS3Bucket(s string) Option {
	return setString("Bundle S3 Bucket", s,
		func(c *Config) *string { return &c.Bundle.S3Bucket })
}

func OptBundleS3Region(s string) Option {
	return setString("Bundle S3 Region", s,
		func(c *Config) *string { return &c.Bundle.S3Region })
}

// OptBundleS3Prefix sets the key prefix of stored bundles, without
// leading or trailing slashes.
func OptBundleS3Prefix(s string) Option {
	return setString("Bundle S3 Prefix", strings.Trim(strings.TrimSpace(s), "/"),
		func(c *Config) *string { return &c.Bundle.S3Prefix })
}

// OptBundleFetchConcurrency limits simultaneous asset downloads of an
// entry.
func OptBundleFetchConcurrency(i int) Option {
	return setPositive("Bundle Fetch Concurrency", i,
		func(c *Config) *int { return &c.Bundle.FetchConcurrency })
}

// OptBundleFetchTimeout limits one asset download.
func OptBundleFetchTimeout(d time.Duration) Option {
	return setPositive("Bundle Fetch Timeout", d,
		func(c *Config) *time.Duration { return &c.Bundle.FetchTimeout })
}

// OptServicesWikipediaURL sets the MediaWiki API endpoint.
func OptServicesWikipediaURL(s string) Option {
	return setString("Wikipedia URL", s,
		func(c *Config) *string { return &c.Services.WikipediaURL })
}

// OptServicesCollectionURL sets the base URL of the collections API.
func OptServicesCollectionURL(s string) Option {
	return setString("Collection URL", strings.TrimRight(strings.TrimSpace(s), "/"),
		func(c *Config) *string { return &c.Services.CollectionURL })
}

func OptServicesTimeout(d time.Duration) Option {
	return setPositive("Services Timeout", d,
		func(c *Config) *time.Duration { return &c.Services.Timeout })
}

// OptServicesRequestsPerSecond sets the pace of requests shared by all
// external services.
func OptServicesRequestsPerSecond(i int) Option {
	return setPositive("Requests Per Second", i,
		func(c *Config) *int { return &c.Services.RequestsPerSecond })
}

// OptServicesSummaryCoolDown sets how long a failed summary lookup is
// not repeated.
func OptServicesSummaryCoolDown(d time.Duration) Option {
	return setPositive("Summary Cool Down", d,
		func(c *Config) *time.Duration { return &c.Services.SummaryCoolDown })
}

// OptWorkerConcurrency sets the number of goroutines running jobs.
func OptWorkerConcurrency(i int) Option {
	return setPositive("Worker Concurrency", i,
		func(c *Config) *int { return &c.Worker.Concurrency })
}

func OptWorkerPollInterval(d time.Duration) Option {
	return setPositive("Worker Poll Interval", d,
		func(c *Config) *time.Duration { return &c.Worker.PollInterval })
}

// OptWorkerMaxAttempts sets how many times a failing job runs.
func OptWorkerMaxAttempts(i int) Option {
	return setPositive("Worker Max Attempts", i,
		func(c *Config) *int { return &c.Worker.MaxAttempts })
}

func OptWorkerRetryDelay(d time.Duration) Option {
	return setPositive("Worker Retry Delay", d,
		func(c *Config) *time.Duration { return &c.Worker.RetryDelay })
}

// OptWorkerStaleRunning sets when a running job without heartbeat is
// claimed again.
func OptWorkerStaleRunning(d time.Duration) Option {
	return setPositive("Worker Stale Running", d,
		func(c *Config) *time.Duration { return &c.Worker.StaleRunning })
}

// OptWorkerDuplicatesSchedule sets the cron expression of the duplicates
// sweep. The value "off" disables the sweep.
func OptWorkerDuplicatesSchedule(s string) Option {
	if strings.TrimSpace(s) == "off" {
		return func(c *Config) { c.Worker.DuplicatesSchedule = "" }
	}
	return setString("Duplicates Schedule", s,
		func(c *Config) *string { return &c.Worker.DuplicatesSchedule })
}

// OptWorkerDuplicatesPasses sets the maximum passes of a duplicates sweep.
func OptWorkerDuplicatesPasses(i int) Option {
	return setPositive("Duplicates Passes", i,
		func(c *Config) *int { return &c.Worker.DuplicatesPasses })
}

func OptWorkerIconicTTL(d time.Duration) Option {
	return setPositive("Iconic TTL", d,
		func(c *Config) *time.Duration { return &c.Worker.IconicTTL })
}

// OptWorkerMetricsAddr sets the listen address of the metrics endpoint.
func OptWorkerMetricsAddr(s string) Option {
	return setString("Metrics Address", s,
		func(c *Config) *string { return &c.Worker.MetricsAddr })
}

// OptImportSource sets the path or URL of an SFGA archive. It is set per
// run and is not saved to config.yaml.
func OptImportSource(s string) Option {
	return setString("Import Source", s,
		func(c *Config) *string { return &c.Import.Source })
}

// OptImportCode sets the nomenclatural code used to parse imported
// names: botanical or zoological. It is set per run.
func OptImportCode(s string) Option {
	return setEnum("Import.Code", s,
		func(c *Config) *string { return &c.Import.Code })
}

// OptJobsNumber sets the number of parallel workers of imports and
// parser pools.
func OptJobsNumber(i int) Option {
	return setPositive("Jobs Number", i,
		func(c *Config) *int { return &c.JobsNumber })
}

// OptHomeDir sets the directory under which config, cache and logs
// live. It comes from os.UserHomeDir at startup.
func OptHomeDir(s string) Option {
	return setString("Home Directory", s,
		func(c *Config) *string { return &c.HomeDir })
}
