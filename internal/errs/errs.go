// Package errs defines the error taxonomy shared across the ingestion core.
//
// Four kinds cross the pipeline boundary: validation, unauthorized, not-found
// and storage. Transports map kinds to their status codes; the core only ever
// wraps and matches with errors.Is.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for boundary mapping.
type Kind int

const (
	// KindValidation marks malformed or missing input.
	KindValidation Kind = iota + 1
	// KindUnauthorized marks a missing or invalid credential where one is required.
	KindUnauthorized
	// KindNotFound marks a subject or resource that does not exist.
	KindNotFound
	// KindStorage marks a durable-store failure, fatal for the current request.
	KindStorage
)

// Sentinels for errors.Is matching.
var (
	ErrValidation   = &Error{kind: KindValidation, msg: "invalid input"}
	ErrUnauthorized = &Error{kind: KindUnauthorized, msg: "unauthorized"}
	ErrNotFound     = &Error{kind: KindNotFound, msg: "not found"}
	ErrStorage      = &Error{kind: KindStorage, msg: "storage failure"}
)

// Error carries a kind, a message, and an optional cause.
type Error struct {
	kind  Kind
	msg   string
	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

// Unwrap exposes the cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.cause }

// Is matches any error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.kind == e.kind
}

// Kind returns the error classification.
func (e *Error) Kind() Kind { return e.kind }

// Validation creates a validation error.
func Validation(format string, args ...interface{}) error {
	return &Error{kind: KindValidation, msg: fmt.Sprintf(format, args...)}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(format string, args ...interface{}) error {
	return &Error{kind: KindUnauthorized, msg: fmt.Sprintf(format, args...)}
}

// NotFound creates a not-found error.
func NotFound(format string, args ...interface{}) error {
	return &Error{kind: KindNotFound, msg: fmt.Sprintf(format, args...)}
}

// Storage wraps a durable-store failure.
func Storage(cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{kind: KindStorage, msg: "storage failure", cause: cause}
}

// KindOf extracts the kind from an error chain, or 0 when untyped.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return 0
}
