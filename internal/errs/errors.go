// Package errs provides the unified error type used across all of pgscope.
//
// Every subsystem (database, catalog, scope generation, filestore, …) wraps
// its native errors into *errs.Error before returning them to callers.
// Callers use the Is* predicates to handle errors without importing
// driver-specific packages.
//
// Usage:
//
//	// In a driver — wrap native errors:
//	return errs.Wrap(errs.ErrKindTimeout, "query timed out", pgErr)
//
//	// At a call site — check error kind:
//	if errs.IsMissingArgument(err) {
//	    keys := errs.MissingKeys(err)
//	    ...
//	}
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// ErrKind categorises an error without exposing subsystem-specific codes.
// All backends map their native errors to one of these kinds, giving
// callers a single consistent API.
type ErrKind int

const (
	ErrKindUnknown            ErrKind = iota
	ErrKindNotFound                   // no rows, no object, no bucket
	ErrKindConnectionFailed           // cannot reach the backend
	ErrKindTimeout                    // context deadline / cancellation
	ErrKindQueryFailed                // SQL or storage operation error
	ErrKindInvalidInput               // bad arguments from the caller
	ErrKindPermissionDenied           // access denied / auth failure
	ErrKindUnsupportedBackend         // connection is not a PostgreSQL backend
	ErrKindMissingArgument            // scope invoked without all required keys
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindQueryFailed:
		return "query_failed"
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindPermissionDenied:
		return "permission_denied"
	case ErrKindUnsupportedBackend:
		return "unsupported_backend"
	case ErrKindMissingArgument:
		return "missing_argument"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all pgscope subsystems.
// Drivers and generators produce it; callers inspect it via the Is*
// predicates below.
type Error struct {
	Kind    ErrKind
	Message string
	Keys    []string // missing argument keys, set only for ErrKindMissingArgument
	Cause   error    // original driver-level error, preserved for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// UnsupportedBackend reports that the supplied connection speaks the wrong
// database dialect. Raised once, at analyzer construction, never retried.
func UnsupportedBackend(got string) *Error {
	return &Error{
		Kind:    ErrKindUnsupportedBackend,
		Message: fmt.Sprintf("backend %q is not supported, pgscope requires postgres", got),
	}
}

// MissingArgument reports that a composite scope was invoked without all of
// its required keys. Every absent key is listed, not just the first.
func MissingArgument(keys []string) *Error {
	return &Error{
		Kind:    ErrKindMissingArgument,
		Message: fmt.Sprintf("missing required keys: %s", strings.Join(keys, ", ")),
		Keys:    keys,
	}
}

// --- Predicates ---

// IsNotFound reports whether err represents a "not found" result
// (no rows, missing object, unknown table/bucket, …).
func IsNotFound(err error) bool {
	return kindOf(err) == ErrKindNotFound
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return kindOf(err) == ErrKindTimeout
}

// IsConnectionFailed reports whether err is a connectivity or auth failure.
func IsConnectionFailed(err error) bool {
	return kindOf(err) == ErrKindConnectionFailed
}

// IsQueryFailed reports whether err is a backend operation failure
// (SQL execution error, storage I/O error, …).
func IsQueryFailed(err error) bool {
	return kindOf(err) == ErrKindQueryFailed
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return kindOf(err) == ErrKindInvalidInput
}

// IsPermissionDenied reports whether err is an access control failure.
func IsPermissionDenied(err error) bool {
	return kindOf(err) == ErrKindPermissionDenied
}

// IsUnsupportedBackend reports whether err is the fatal wrong-backend
// precondition failure raised at analyzer construction.
func IsUnsupportedBackend(err error) bool {
	return kindOf(err) == ErrKindUnsupportedBackend
}

// IsMissingArgument reports whether err is a missing-keys contract violation
// from invoking a composite scope.
func IsMissingArgument(err error) bool {
	return kindOf(err) == ErrKindMissingArgument
}

// MissingKeys returns the absent key names carried by a missing-argument
// error, or nil when err is not one.
func MissingKeys(err error) []string {
	var e *Error
	if errors.As(err, &e) && e.Kind == ErrKindMissingArgument {
		return e.Keys
	}
	return nil
}

// kindOf extracts the ErrKind from any error in the chain.
func kindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
