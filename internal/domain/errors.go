package domain

import (
	"errors"
	"fmt"
)

// Base error types (sentinel errors).
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrParse               = errors.New("parse error")
	ErrMalformedIdentifier = errors.New("malformed identifier")
	ErrUnavailable         = errors.New("service unavailable")
	ErrExport              = errors.New("export failed")
)

// Specific errors.
var (
	ErrLayerNotFound      = fmt.Errorf("data layer: %w", ErrNotFound)
	ErrLayerTypeNotFound  = fmt.Errorf("layer type: %w", ErrNotFound)
	ErrMapNotFound        = fmt.Errorf("map template: %w", ErrNotFound)
	ErrBasemapNotFound    = fmt.Errorf("basemap: %w", ErrNotFound)
	ErrExportNotFound     = fmt.Errorf("export: %w", ErrNotFound)
	ErrInvalidCoordinate  = fmt.Errorf("coordinate: %w", ErrInvalidInput)
	ErrBackendUnavailable = fmt.Errorf("search backend: %w", ErrUnavailable)
)

// ValidationError represents a detailed validation error.
type ValidationError struct {
	Field      string      // Field that failed validation
	Value      interface{} // The invalid value
	Constraint string      // The constraint that was violated
	Message    string      // Human-readable message
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s (value: %v, constraint: %s)",
		e.Field, e.Message, e.Value, e.Constraint)
}

// Unwrap returns the underlying error type.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// ParseError is returned when a geometry payload cannot be decoded.
type ParseError struct {
	Input  string // Offending payload (possibly truncated)
	Reason string // What was wrong with it
	Err    error  // Underlying decoder error, if any
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse error: %s: %v (input: %q)", e.Reason, e.Err, truncate(e.Input, 64))
	}
	return fmt.Sprintf("parse error: %s (input: %q)", e.Reason, truncate(e.Input, 64))
}

// Unwrap returns the parse sentinel so callers can match with errors.Is.
func (e *ParseError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrParse, e.Err}
	}
	return []error{ErrParse}
}

// MalformedIdentifierError is returned when a record identifier does not
// follow the <prefix>_<entityId>_<type> convention.
type MalformedIdentifierError struct {
	Identifier string
}

// Error implements the error interface.
func (e *MalformedIdentifierError) Error() string {
	return fmt.Sprintf("malformed identifier %q: expected <prefix>_<entityId>_<type>", e.Identifier)
}

// Unwrap returns the underlying error type.
func (e *MalformedIdentifierError) Unwrap() error {
	return ErrMalformedIdentifier
}

// NotFoundError reports a configuration record that was explicitly requested
// by id but does not exist.
type NotFoundError struct {
	Kind string // layer, layer type, map, basemap
	ID   string
	Err  error // Specific sentinel (ErrLayerNotFound, ...)
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// Unwrap returns the specific not-found sentinel.
func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// ExportError represents a failure while writing an export to its sink.
type ExportError struct {
	Key string // Object key / file name
	Err error  // Underlying sink error
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	return fmt.Sprintf("export to %s failed: %v", e.Key, e.Err)
}

// Unwrap returns both the export sentinel and the sink error.
func (e *ExportError) Unwrap() []error {
	return []error{ErrExport, e.Err}
}

// BackendError represents a failed call to the search backend.
type BackendError struct {
	Operation string // query, faceted_query, field_values
	Err       error  // Underlying error
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	return fmt.Sprintf("search backend error during %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *BackendError) Unwrap() error {
	return e.Err
}

// StorageError represents an error during sink operations.
type StorageError struct {
	Operation string // Operation that failed (write, open, exists)
	Key       string // Object key
	Err       error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage error during %s for %s: %v",
			e.Operation, e.Key, e.Err)
	}
	return fmt.Sprintf("storage error during %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string // Configuration field
	Message string // Error message
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error for %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying error type.
func (e *ConfigError) Unwrap() error {
	return ErrInvalidInput
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
