package pipeline

import (
	"errors"
	"fmt"
)

// AppError carries a stable code alongside the human-readable message, the
// shape callers can switch on without string matching.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

func NewAppError(code, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// Terminal errors. Everything else degrades locally and surfaces as
// ValidationIssues in the returned ledger.
var (
	// ErrSchemaResolution wraps a schema.ResolutionError: without a schema
	// no record can be aligned, so the run aborts.
	ErrSchemaResolution = errors.New("schema resolution failed")

	// ErrTotalExtraction marks a run where every chunk degraded and zero
	// usable records were recovered.
	ErrTotalExtraction = errors.New("total extraction failure")

	// ErrNoPages is returned for an empty input document.
	ErrNoPages = errors.New("no pages supplied")
)
