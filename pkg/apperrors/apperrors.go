// Package apperrors classifies errors by propagation policy rather than by
// type name, per the engine's error handling design: transient upstream
// failures are retried at job granularity, validation failures are rejected
// to the caller without creating work, and not-found is a valid result for
// some lookups and an error for others depending on the call site.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error by how its caller should react to it.
type Kind int

const (
	// KindTransient covers upstream 5xx/timeout/network errors, DB
	// deadlocks, and cache network errors. Retried at job granularity.
	KindTransient Kind = iota
	// KindValidation covers rejected input, e.g. a malformed wallet
	// address at enqueue time. No job is created.
	KindValidation
	// KindNotFound covers "unknown to the indexer" / "no row" results
	// that are not failures in themselves.
	KindNotFound
	// KindFatal covers programmer errors and assertion failures that
	// should crash the worker process rather than be retried.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind so callers can branch with
// errors.As instead of string matching or sentinel comparison.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an *Error of the given kind with no wrapped cause.
func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an *Error of the given kind wrapping cause. Returns nil if
// cause is nil, mirroring utils.Wrap.
func Wrap(kind Kind, cause error, message string) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Transient is shorthand for Wrap(KindTransient, ...).
func Transient(cause error, message string) error { return Wrap(KindTransient, cause, message) }

// Validation is shorthand for New(KindValidation, ...).
func Validation(message string) error { return New(KindValidation, message) }

// NotFound is shorthand for New(KindNotFound, ...).
func NotFound(message string) error { return New(KindNotFound, message) }

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

// IsTransient reports whether err should be retried at job granularity.
func IsTransient(err error) bool { return Is(err, KindTransient) }

// IsNotFound reports whether err represents a valid "not found" outcome.
func IsNotFound(err error) bool { return Is(err, KindNotFound) }
