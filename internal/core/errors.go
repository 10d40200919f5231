// Package core holds the domain model of the ledger: entry kinds, money
// parsing, the error taxonomy, and the aggregation engine.
package core

import (
	"errors"
	"fmt"
)

// ErrKind tags an operation failure so call sites can match on the class of
// error instead of inspecting a boolean success flag.
type ErrKind uint8

const (
	ErrUnauthenticated ErrKind = iota + 1
	ErrValidation
	ErrNotFound
	ErrOwnershipMismatch
	ErrStore
)

func (k ErrKind) String() string {
	switch k {
	case ErrUnauthenticated:
		return "unauthenticated"
	case ErrValidation:
		return "validation"
	case ErrNotFound:
		return "not_found"
	case ErrOwnershipMismatch:
		return "ownership_mismatch"
	case ErrStore:
		return "store_failure"
	default:
		return "unknown"
	}
}

// Error is the tagged failure every ledger operation returns. No raw store
// error escapes an operation boundary without being wrapped in one.
type Error struct {
	Kind    ErrKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Unauthenticated reports a missing or unresolvable session. Terminal and
// non-retryable, distinct from data errors.
func Unauthenticated() *Error {
	return &Error{Kind: ErrUnauthenticated, Message: "user not authenticated"}
}

func Validationf(format string, args ...any) *Error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationErr wraps a domain sentinel (ErrEmptyTitle, ErrInvalidAmount, ...)
// keeping it reachable through errors.Is.
func ValidationErr(err error) *Error {
	return &Error{Kind: ErrValidation, Message: err.Error(), Err: err}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func OwnershipMismatchf(format string, args ...any) *Error {
	return &Error{Kind: ErrOwnershipMismatch, Message: fmt.Sprintf(format, args...)}
}

func StoreFailure(err error) *Error {
	return &Error{Kind: ErrStore, Message: "store operation failed", Err: err}
}

// KindOf extracts the failure kind from an error chain; ErrStore when the
// error carries no tag.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrStore
}
