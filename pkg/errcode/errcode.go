package errcode

import (
	"github.com/gnames/gn"
)

const (
	UnknownError gn.ErrorCode = iota

	// File System errors
	CreateDirError
	CopyFileError
	ReadFileError

	// Logging errors
	CreateLogFileError

	// Database errors
	DBConnectionError
	DBTableCheckError
	DBNotConnectedError
	DBTableExistsCheckError
	DBQueryTablesError
	DBScanTableError
	DBDropTableError
	DBEmptyDatabaseError

	// Schema errors
	SchemaGORMConnectionError
	SchemaCreateError
	SchemaMigrateError
	SchemaCollationError
	SchemaIndexError

	// Taxon errors
	TaxonNotFoundError
	TaxonValidationError
	TaxonStaleError
	TaxonSameMergeError
	TaxonStoreError

	// Guide errors
	GuideNotFoundError
	GuideValidationError
	GuideStoreError

	// Bundle errors
	BundleWorkDirError
	BundleDocumentError
	BundleArchiveError
	BundleStoreError

	// Job errors
	JobEnqueueError
	JobClaimError
	JobHandlerError
	JobScheduleError

	// External service errors
	ServiceRequestError
	ServiceResponseError
	CollectionURLError
	StorageError

	// Optimizer errors
	OptimizerOrphanRemovalError
	OptimizerVacuumError

	// Import errors
	ImportSFGAFetchError
	ImportSFGAReadError
	ImportTaxaError
)
