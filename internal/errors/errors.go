// Package errors provides structured error types for the Seismetry system.
// All errors include a category, code, message, and retryable flag for
// consistent error handling across components.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by system component.
type ErrorCategory string

const (
	ErrCategoryValidation ErrorCategory = "VALIDATION"
	ErrCategoryParse      ErrorCategory = "PARSE"
	ErrCategoryCorrelate  ErrorCategory = "CORRELATE"
	ErrCategoryStorage    ErrorCategory = "STORAGE"
	ErrCategoryCatalog    ErrorCategory = "CATALOG"
	ErrCategoryReport     ErrorCategory = "REPORT"
	ErrCategoryInternal   ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Validation codes
	CodeMissingDataset   = "MISSING_DATASET"
	CodeInvalidThreshold = "INVALID_THRESHOLD"
	CodeInvalidConfig    = "INVALID_CONFIG"

	// Parse codes
	CodeMissingColumn = "MISSING_COLUMN"
	CodeBadField      = "BAD_FIELD"
	CodeBadHoleName   = "BAD_HOLE_NAME"
	CodeBadHeader     = "BAD_HEADER"
	CodeMalformedRow  = "MALFORMED_ROW"

	// Correlate codes
	CodeDimensionMismatch = "DIMENSION_MISMATCH"

	// Storage codes
	CodeUploadFailed   = "UPLOAD_FAILED"
	CodeDownloadFailed = "DOWNLOAD_FAILED"
	CodeObjectNotFound = "OBJECT_NOT_FOUND"

	// Catalog codes
	CodeWriteConflict = "WRITE_CONFLICT"
	CodeRunNotFound   = "RUN_NOT_FOUND"

	// Report codes
	CodeRenderFailed = "RENDER_FAILED"
	CodeExportFailed = "EXPORT_FAILED"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// SeismetryError is the structured error type used throughout the system.
type SeismetryError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *SeismetryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *SeismetryError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *SeismetryError) Is(target error) bool {
	var t *SeismetryError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new SeismetryError.
func New(category ErrorCategory, code, message string) *SeismetryError {
	return &SeismetryError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new SeismetryError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *SeismetryError {
	return &SeismetryError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *SeismetryError) WithDetails(details map[string]interface{}) *SeismetryError {
	cp := *e
	cp.Details = details
	return &cp
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var se *SeismetryError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}

// IsParseError reports whether the error chain contains a parse-category
// error. Upload handlers use this to map failures to client errors.
func IsParseError(err error) bool {
	return GetCategory(err) == ErrCategoryParse
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a SeismetryError.
func GetCategory(err error) ErrorCategory {
	var se *SeismetryError
	if errors.As(err, &se) {
		return se.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a SeismetryError.
func GetCode(err error) string {
	var se *SeismetryError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// isRetryable determines if an error code is retryable.
func isRetryable(category ErrorCategory, code string) bool {
	switch {
	case category == ErrCategoryStorage && code == CodeUploadFailed:
		return true
	case category == ErrCategoryStorage && code == CodeDownloadFailed:
		return true
	case category == ErrCategoryCatalog && code == CodeWriteConflict:
		return true
	default:
		return false
	}
}

// Convenience constructors for common errors.

func NewValidationError(code, message string) *SeismetryError {
	return New(ErrCategoryValidation, code, message)
}

func NewParseError(code, message string) *SeismetryError {
	return New(ErrCategoryParse, code, message)
}

func NewCorrelateError(code, message string) *SeismetryError {
	return New(ErrCategoryCorrelate, code, message)
}

func NewStorageError(code, message string, cause error) *SeismetryError {
	return Wrap(ErrCategoryStorage, code, message, cause)
}

func NewCatalogError(code, message string, cause error) *SeismetryError {
	return Wrap(ErrCategoryCatalog, code, message, cause)
}

func NewReportError(code, message string, cause error) *SeismetryError {
	return Wrap(ErrCategoryReport, code, message, cause)
}

func NewInternalError(message string, cause error) *SeismetryError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
