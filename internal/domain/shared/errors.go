// Package shared contains the error taxonomy used by every domain package.
// This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base error kinds for errors.Is() checks.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation
	ErrValidation      = errors.New("validation error")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrValueOutOfRange = errors.New("value out of range")

	// Storage and infrastructure
	ErrStorageUnavailable     = errors.New("storage unavailable")
	ErrTimeout                = errors.New("operation timeout")
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g. "progress", "ranking", "catalog"
	Op      string // operation that failed
	Kind    error  // base kind for errors.Is()
	Message string
	Err     error // underlying cause, optional
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error, falling back to the kind.
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is matches both the kind and the wrapped cause.
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

// InvalidInput builds a validation error for op.
func InvalidInput(domain, op, message string) *DomainError {
	return NewDomainError(domain, op, ErrInvalidInput, message)
}

// StorageUnavailable wraps a store failure for op.
func StorageUnavailable(domain, op string, err error) *DomainError {
	return WrapError(domain, op, ErrStorageUnavailable, "progress store unavailable", err)
}

// Catalog errors
var (
	ErrUnknownTier       = NewDomainError("catalog", "ParseTier", ErrInvalidInput, "unknown difficulty tier")
	ErrDuplicateScenario = NewDomainError("catalog", "New", ErrInvalidInput, "duplicate scenario id")
	ErrScenarioNotFound  = NewDomainError("catalog", "Lookup", ErrNotFound, "scenario not found")
)

// Progress errors
var (
	ErrEmptyUserID     = NewDomainError("progress", "Validate", ErrInvalidInput, "user id is required")
	ErrEmptyScenarioID = NewDomainError("progress", "Validate", ErrInvalidInput, "scenario id is required")
	ErrTierMismatch    = NewDomainError("progress", "Validate", ErrInvalidInput, "difficulty does not match the scenario catalog")
)

// Ranking errors
var (
	ErrInvalidLimit = NewDomainError("ranking", "Validate", ErrValueOutOfRange, "limit must be between 1 and 100")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsStorageUnavailable checks if the store could not serve the operation.
func IsStorageUnavailable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentModification)
}
