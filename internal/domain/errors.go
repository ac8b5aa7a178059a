package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced at the analysis boundary. Input defects
// inside the pipeline are recovered locally (skipped with counts) and
// never reach this level.
var (
	// ErrUnsupportedDrug is returned when no primary metabolizing
	// gene is on file for a requested drug.
	ErrUnsupportedDrug = errors.New("drug is not supported")

	// ErrEmptyInput is returned when a wholly unparseable or empty
	// variant input is rejected at the boundary.
	ErrEmptyInput = errors.New("no parseable variant records in input")

	// ErrCatalogInvalid wraps configuration defects detected at
	// catalog load. These fail fast, never per-request.
	ErrCatalogInvalid = errors.New("rule catalog invalid")
)

// ValidationError represents an input validation failure with enough
// context for an audit trail.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// CatalogError wraps a catalog validation defect with the offending
// section for fail-fast reporting at load time.
type CatalogError struct {
	Section string
	Err     error
}

// Error implements the error interface.
func (e *CatalogError) Error() string {
	return fmt.Sprintf("catalog section %q: %v", e.Section, e.Err)
}

// Unwrap exposes the underlying defect and the ErrCatalogInvalid
// sentinel for errors.Is checks.
func (e *CatalogError) Unwrap() error {
	return e.Err
}

// Is matches ErrCatalogInvalid so callers can classify load failures.
func (e *CatalogError) Is(target error) bool {
	return target == ErrCatalogInvalid
}

// NewCatalogError creates a CatalogError for a section.
func NewCatalogError(section string, err error) *CatalogError {
	return &CatalogError{Section: section, Err: err}
}
