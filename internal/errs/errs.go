// Package errs defines the error taxonomy shared by the adherence engine.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for propagation and HTTP mapping.
type Kind int

const (
	// KindValidation marks malformed input. No partial mutation occurred.
	KindValidation Kind = iota
	// KindNotFound marks a missing entity, or one owned by another user.
	// Ownership failures are reported identically to absence.
	KindNotFound
	// KindConflict marks a uniqueness violation. Materialization recovers
	// from it locally by treating the row as already existing.
	KindConflict
	// KindTransient marks a storage or network failure worth retrying.
	KindTransient
	// KindConfiguration marks missing credentials or settings. Notification
	// dispatch degrades to a no-op count instead of failing the batch.
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindTransient:
		return "transient"
	case KindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// Error is a classified error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a classified error.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf creates a classified error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a kind and message. Returns nil if err is nil.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind of err, defaulting to KindTransient for
// unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransient
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return is(err, KindValidation) }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return is(err, KindNotFound) }

// IsConflict reports whether err is a uniqueness conflict.
func IsConflict(err error) bool { return is(err, KindConflict) }

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool { return is(err, KindConfiguration) }

func is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
