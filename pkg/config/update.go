package config

import (
	"slices"
	"strings"
	"time"

	"github.com/gnames/gn"
)

// Update applies options in order. Options with invalid values warn and
// leave the Config unchanged.
func (c *Config) Update(opts []Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// ToOptions returns options that recreate persistent fields of the
// Config, the ones stored in config.yaml. HomeDir and Import are set per
// run and are left out.
func (c *Config) ToOptions() []Option {
	var res []Option
	add := func(o Option) { res = append(res, o) }

	db := c.Database
	addSet(add, db.Host, OptDatabaseHost)
	addSet(add, db.Port, OptDatabasePort)
	addSet(add, db.User, OptDatabaseUser)
	addSet(add, db.Password, OptDatabasePassword)
	addSet(add, db.Database, OptDatabaseDatabase)
	addSet(add, db.SSLMode, OptDatabaseSSLMode)
	addSet(add, db.BatchSize, OptDatabaseBatchSize)

	addSet(add, c.Log.Format, OptLogFormat)
	addSet(add, c.Log.Level, OptLogLevel)
	addSet(add, c.Log.Destination, OptLogDestination)

	b := c.Bundle
	addSet(add, b.Storage, OptBundleStorage)
	addSet(add, b.Dir, OptBundleDir)
	addSet(add, b.S3Bucket, OptBundleS3Bucket)
	addSet(add, b.S3Region, OptBundleS3Region)
	addSet(add, b.S3Prefix, OptBundleS3Prefix)
	addSet(add, b.FetchConcurrency, OptBundleFetchConcurrency)
	addSet(add, b.FetchTimeout, OptBundleFetchTimeout)

	sv := c.Services
	addSet(add, sv.WikipediaURL, OptServicesWikipediaURL)
	addSet(add, sv.CollectionURL, OptServicesCollectionURL)
	addSet(add, sv.Timeout, OptServicesTimeout)
	addSet(add, sv.RequestsPerSecond, OptServicesRequestsPerSecond)
	addSet(add, sv.SummaryCoolDown, OptServicesSummaryCoolDown)

	w := c.Worker
	addSet(add, w.Concurrency, OptWorkerConcurrency)
	addSet(add, w.PollInterval, OptWorkerPollInterval)
	addSet(add, w.MaxAttempts, OptWorkerMaxAttempts)
	addSet(add, w.RetryDelay, OptWorkerRetryDelay)
	addSet(add, w.StaleRunning, OptWorkerStaleRunning)
	addSet(add, w.DuplicatesSchedule, OptWorkerDuplicatesSchedule)
	addSet(add, w.DuplicatesPasses, OptWorkerDuplicatesPasses)
	addSet(add, w.IconicTTL, OptWorkerIconicTTL)
	addSet(add, w.MetricsAddr, OptWorkerMetricsAddr)

	addSet(add, c.JobsNumber, OptJobsNumber)
	return res
}

// addSet adds an option for v unless v is the zero value.
func addSet[T comparable](add func(Option), v T, opt func(T) Option) {
	var zero T
	if v != zero {
		add(opt(v))
	}
}

func isValidString(name, s string) bool {
	if s == "" {
		gn.Warn("<em>%s</em> cannot be empty, ignoring", name)
		return false
	}
	return true
}

func isPositive[T int | time.Duration](name string, v T) bool {
	if v <= 0 {
		gn.Warn("<em>%s</em> must be positive, ignoring %v", name, v)
		return false
	}
	return true
}

// enums lists allowed values of fields with a fixed set of choices.
var enums = map[string][]string{
	"Database.SSLMode": {"disable", "require", "verify-ca", "verify-full"},
	"Log.Level":        {"debug", "info", "warn", "error"},
	"Log.Format":       {"json", "text"},
	"Log.Destination":  {"file", "stderr", "stdout"},
	"Bundle.Storage":   {"file", "s3"},
	"Import.Code":      {"botanical", "zoological"},
}

func isValidEnum(name, val string) bool {
	vals := enums[name]
	if slices.Contains(vals, val) {
		return true
	}
	gn.Warn("<em>%s</em> cannot be '%s', ignoring. Use one of: %s",
		name, val, strings.Join(vals, ", "))
	return false
}
