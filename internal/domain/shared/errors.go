// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")
	ErrImmutable       = errors.New("entity is immutable")

	// Aggregation errors
	ErrAggregation = errors.New("aggregation over empty input")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrUpload             = errors.New("blob upload failed")
	ErrCapture            = errors.New("media capture failed")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "evaluation", "media", "points"
	Op      string // Operation that failed, e.g., "Record", "CommitPhoto"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// ValidationError is a pre-submit, client-detectable error. MissingField names
// the first field that failed validation; validation is fail-fast, so a single
// field is always enough.
type ValidationError struct {
	MissingField string
	Reason       string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("validation error: %s: %s", e.MissingField, e.Reason)
	}
	return fmt.Sprintf("validation error: missing or invalid field %q", e.MissingField)
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return errors.Is(target, ErrValidation)
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{MissingField: field, Reason: reason}
}

// Student domain errors
var (
	ErrStudentNotFound  = NewDomainError("student", "Find", ErrNotFound, "student not found")
	ErrUnknownLevel     = NewDomainError("student", "Validate", ErrInvalidInput, "unknown proficiency level")
	ErrInvalidStudentID = NewDomainError("student", "Validate", ErrInvalidID, "invalid student ID")
)

// Evaluation domain errors
var (
	ErrEvaluationNotFound = NewDomainError("evaluation", "Find", ErrNotFound, "evaluation not found")
	ErrEmptyRatings       = NewDomainError("evaluation", "Average", ErrAggregation, "ratings map is empty")
	ErrRecordImmutable    = NewDomainError("evaluation", "Update", ErrImmutable, "evaluation records cannot be modified after creation")
)

// Media domain errors
var (
	ErrStagedRefNotFound = NewDomainError("media", "Commit", ErrNotFound, "staged media reference not found")
	ErrUploadFailed      = NewDomainError("media", "CommitPhoto", ErrUpload, "failed to upload photo to blob storage")
	ErrCaptureCancelled  = NewDomainError("media", "Stage", ErrCapture, "capture cancelled by user")
)

// Points domain errors
var (
	ErrNegativeBalance = NewDomainError("points", "Apply", ErrNegativeValue, "points balance cannot go negative")
	ErrAccrualFailed   = NewDomainError("points", "Accrue", ErrExternalService, "points accrual failed")
)

// External service errors
var (
	ErrBlobStoreUnavailable = NewDomainError("blobstore", "Request", ErrServiceUnavailable, "blob store is unavailable")
	ErrBlobStoreTimeout     = NewDomainError("blobstore", "Request", ErrTimeout, "blob store request timeout")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrUpload)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}
