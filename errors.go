package relic

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for common operations.
var (
	// ErrNotFound is returned when a requested entity does not exist and
	// the operation's contract signals absence as an error rather than an
	// empty result.
	ErrNotFound = errors.New("relic: entity not found")

	// ErrConfiguration is returned when an operation is invoked in a
	// configuration that does not support it. It is fatal and
	// non-recoverable; the caller must avoid it by construction.
	ErrConfiguration = errors.New("relic: unsupported configuration")

	// ErrInvalidPagination is returned when a pagination request carries
	// a page or per-page value below one.
	ErrInvalidPagination = errors.New("relic: page and per_page must be >= 1")
)

// NotFoundError represents an error when an entity is not found.
type NotFoundError struct {
	label string
	id    any // Optional: the ID that was searched for
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.id != nil {
		return fmt.Sprintf("relic: %s not found (id=%v)", e.label, e.id)
	}
	return fmt.Sprintf("relic: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(notFoundErr, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the entity label.
func (e *NotFoundError) Label() string {
	return e.label
}

// NewNotFoundError returns a new NotFoundError for the given entity type.
func NewNotFoundError(label string) *NotFoundError {
	return &NotFoundError{label: label}
}

// NewNotFoundErrorWithID returns a new NotFoundError with the ID that was searched for.
func NewNotFoundErrorWithID(label string, id any) *NotFoundError {
	return &NotFoundError{label: label, id: id}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// QueryError represents a statement the driver rejected or failed.
// It wraps the underlying driver error.
type QueryError struct {
	Query string
	Err   error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	return fmt.Sprintf("relic: query %q: %v", e.Query, e.Err)
}

// Unwrap returns the underlying driver error.
func (e *QueryError) Unwrap() error { return e.Err }

// IsQuery returns true if the error is a QueryError.
func IsQuery(err error) bool {
	if err == nil {
		return false
	}
	var e *QueryError
	return errors.As(err, &e)
}

// DecodeError represents a row whose shape or types do not match the
// model contract.
type DecodeError struct {
	Table  string
	Column string
	Err    error
}

// Error returns the error string.
func (e *DecodeError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("relic: decode %s.%s: %v", e.Table, e.Column, e.Err)
	}
	return fmt.Sprintf("relic: decode %s: %v", e.Table, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error { return e.Err }

// IsDecode returns true if the error is a DecodeError.
func IsDecode(err error) bool {
	if err == nil {
		return false
	}
	var e *DecodeError
	return errors.As(err, &e)
}

// ConnectionError represents a driver that cannot be reached or opened.
type ConnectionError struct {
	Dialect string
	Err     error
}

// Error returns the error string.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("relic: connect %s: %v", e.Dialect, e.Err)
}

// Unwrap returns the underlying driver error.
func (e *ConnectionError) Unwrap() error { return e.Err }

// IsConnection returns true if the error is a ConnectionError.
func IsConnection(err error) bool {
	if err == nil {
		return false
	}
	var e *ConnectionError
	return errors.As(err, &e)
}

// MigrationError represents a failed migration operation: a malformed
// tracking timestamp, an unreadable migration source file, or a failed
// migration statement.
type MigrationError struct {
	Name string
	Err  error
}

// Error returns the error string.
func (e *MigrationError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("relic: migration %s: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("relic: migration: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *MigrationError) Unwrap() error { return e.Err }

// IsMigration returns true if the error is a MigrationError.
func IsMigration(err error) bool {
	if err == nil {
		return false
	}
	var e *MigrationError
	return errors.As(err, &e)
}
