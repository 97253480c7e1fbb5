package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")

	ErrUnsupportedFormat    = errors.New("unsupported format")
	ErrSizeExceeded         = errors.New("file size exceeded")
	ErrParseFailure         = errors.New("parse failure")
	ErrInsufficientData     = errors.New("insufficient data")
	ErrInconsistentMutation = errors.New("inconsistent mutation")
	ErrTimeout              = errors.New("timeout")
	ErrInvalidBands         = errors.New("invalid band boundaries")
)

// Kind is the user-visible failure category surfaced to callers.
type Kind string

const (
	KindParseFailure         Kind = "parse-failure"
	KindLowConfidence        Kind = "low-confidence-extraction"
	KindValidationRange      Kind = "validation-range-failure"
	KindInsufficientData     Kind = "insufficient-data"
	KindInconsistentMutation Kind = "inconsistent-mutation"
	KindForecastUnreliable   Kind = "forecast-unreliable"
	KindUnsupportedFormat    Kind = "unsupported-format"
	KindSizeExceeded         Kind = "size-exceeded"
	KindNotFound             Kind = "not-found"
	KindInvalidArgument      Kind = "invalid-argument"
	KindInternal             Kind = "internal"
)

type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Reason != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	case e.Reason != "":
		return e.Reason
	case e.Err != nil:
		return e.Err.Error()
	case e.Kind != "":
		return string(e.Kind)
	}
	return "engine error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

// Inconsistent wraps ErrInconsistentMutation with a caller-facing reason.
func Inconsistent(format string, args ...any) *Error {
	return &Error{Kind: KindInconsistentMutation, Reason: fmt.Sprintf(format, args...), Err: ErrInconsistentMutation}
}

// KindOf classifies any error into its user-visible kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Kind != "" {
		return e.Kind
	}
	switch {
	case errors.Is(err, ErrUnsupportedFormat):
		return KindUnsupportedFormat
	case errors.Is(err, ErrSizeExceeded):
		return KindSizeExceeded
	case errors.Is(err, ErrParseFailure), errors.Is(err, ErrTimeout):
		return KindParseFailure
	case errors.Is(err, ErrInsufficientData):
		return KindInsufficientData
	case errors.Is(err, ErrInconsistentMutation):
		return KindInconsistentMutation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	}
	return KindInternal
}

// Reason returns the caller-facing reason for err.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Reason != "" {
		return e.Reason
	}
	return err.Error()
}
