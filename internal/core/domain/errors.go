package domain

import (
	"errors"
	"fmt"
)

// DomainError is a brainsync error with a structured error code.
type DomainError struct {
	Code    string // Error code (e.g., "BR-WRITE-5001")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// Wrap wraps an error with this domain error as the cause.
// A nil cause returns nil so call sites can wrap unconditionally.
func (e *DomainError) Wrap(cause error) error {
	if cause == nil {
		return nil
	}
	return e.WithCause(cause)
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true // Only check if it's a DomainError
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Connection errors (CONN)

var (
	// ErrConnection indicates the document store could not be reached at startup.
	ErrConnection = NewDomainError("BR-CONN-5030", "document store connection failed")

	// ErrClosed indicates the adapter or gateway has already been closed.
	ErrClosed = NewDomainError("BR-CONN-5031", "document store closed")
)

// Query and write errors (QUERY, WRITE)

var (
	// ErrQuery indicates a read against the document store failed.
	ErrQuery = NewDomainError("BR-QUERY-5000", "document store query failed")

	// ErrWrite indicates an upsert or append failed.
	ErrWrite = NewDomainError("BR-WRITE-5001", "document store write failed")
)

// Data errors (DATA)

var (
	// ErrInvalidType indicates a record type that cannot be used for the operation.
	ErrInvalidType = NewDomainError("BR-DATA-4000", "invalid record type")

	// ErrInvalidValue indicates a value outside the JSON value domain.
	ErrInvalidValue = NewDomainError("BR-DATA-4001", "invalid record value")

	// ErrInvalidKey indicates an empty record key.
	ErrInvalidKey = NewDomainError("BR-DATA-4002", "invalid record key")
)
