// Package corerr defines the seven-category error taxonomy shared across the
// indexing, retrieval, and diff pipelines.
package corerr

import "errors"

// Category classifies an Error by how the caller should react to it.
type Category string

const (
	// NotFound: referenced path absent (read/diff target).
	NotFound Category = "not_found"
	// InvalidInput: malformed diff, oversize file, malformed config.
	InvalidInput Category = "invalid_input"
	// ParseError: syntactic failure in chunking or in the validator.
	ParseError Category = "parse_error"
	// Transient: embedding/LLM rate-limit, connection reset, external tool timeout. Retryable.
	Transient Category = "transient"
	// Unavailable: optional component (type-checker, linter, summarizer LLM) not present.
	Unavailable Category = "unavailable"
	// Conflict: diff no longer applies cleanly (line numbers moved).
	Conflict Category = "conflict"
	// Internal: invariant violation. Never swallowed silently.
	Internal Category = "internal"
)

// Error is a typed error carrying a Category alongside the usual message and
// wrapped cause, so callers can branch on category with errors.As instead of
// string-matching or exception-style catch-alls.
type Error struct {
	Category Category
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Category, so
// errors.Is(err, corerr.New(corerr.NotFound, "")) works as a category check.
func (e *Error) Is(target error) bool {
	var o *Error
	if errors.As(target, &o) {
		return e.Category == o.Category
	}
	return false
}

// New constructs an Error with no wrapped cause.
func New(category Category, message string) *Error {
	return &Error{Category: category, Message: message}
}

// Wrap constructs an Error that wraps cause.
func Wrap(category Category, message string, cause error) *Error {
	return &Error{Category: category, Message: message, Cause: cause}
}

// Is reports whether err (or anything it wraps) is a corerr.Error in category.
func Is(err error, category Category) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Category == category
}

// IsTransient is shorthand for Is(err, Transient), used by the embedding and
// LLM retry wrappers.
func IsTransient(err error) bool { return Is(err, Transient) }

// IsUnavailable is shorthand for Is(err, Unavailable), used for optional
// component degradation (type-checkers, linters, the summarizer LLM).
func IsUnavailable(err error) bool { return Is(err, Unavailable) }
