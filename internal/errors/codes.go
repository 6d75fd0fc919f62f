// Package errors provides structured error handling for ragkit.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Retrieval errors (query-time)
//   - 3XX: Index and corpus errors (ingestion-time)
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryRetrieval indicates query-time retrieval errors.
	CategoryRetrieval Category = "RETRIEVAL"
	// CategoryIndex indicates ingestion and index persistence errors.
	CategoryIndex Category = "INDEX"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"
	ErrCodeThresholdRange = "ERR_103_THRESHOLD_RANGE"

	// Retrieval errors (200-299)
	ErrCodeRetrievalUnavailable = "ERR_201_RETRIEVAL_UNAVAILABLE"
	ErrCodeEmbeddingFailed      = "ERR_202_EMBEDDING_FAILED"
	ErrCodeSearchFailed         = "ERR_203_SEARCH_FAILED"

	// Index errors (300-399)
	ErrCodeIndexFailed       = "ERR_301_INDEX_FAILED"
	ErrCodeCorruptIndex      = "ERR_302_CORRUPT_INDEX"
	ErrCodeDimensionMismatch = "ERR_303_DIMENSION_MISMATCH"
	ErrCodeChunkingFailed    = "ERR_304_CHUNKING_FAILED"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryRetrieval
	case '3':
		return CategoryIndex
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeCorruptIndex:
		return SeverityFatal
	case ErrCodeSearchFailed:
		// A failed lexical leg degrades to vector-only.
		return SeverityWarning
	default:
		return SeverityError
	}
}

// retryableFromCode marks transient collaborator failures. The core
// never retries itself; the flag tells callers a later attempt may
// succeed without operator intervention.
func retryableFromCode(code string) bool {
	switch code {
	case ErrCodeEmbeddingFailed, ErrCodeSearchFailed:
		return true
	default:
		return false
	}
}
