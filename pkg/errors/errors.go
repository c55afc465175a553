// Package errors defines the error taxonomy shared by services and handlers.
//
// Services declare sentinel *Error values with a Kind and a stable numeric
// code; handlers translate the Kind into an HTTP status. Wrapping a sentinel
// keeps errors.Is working against the sentinel while preserving the cause.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport mapping and retry decisions.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindTransient:
		return "transient"
	default:
		return "internal"
	}
}

// Error is a classified, client-presentable error.
type Error struct {
	Kind    Kind
	Code    int
	Message string
	// Status overrides the HTTP status derived from Kind when non-zero.
	Status int
	Err    error
}

// New declares a sentinel error.
func New(kind Kind, code int, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// WithStatus returns a copy that is rendered with the given HTTP status.
func (e *Error) WithStatus(status int) *Error {
	cp := *e
	cp.Status = status
	return &cp
}

// Wrap attaches a cause to a copy of the sentinel.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

// Withf returns a copy carrying a more specific message.
func (e *Error) Withf(format string, args ...any) *Error {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any copy derived from the same sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Code == e.Code
}

// HTTPStatus returns the status the error is rendered with.
func (e *Error) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindTransient:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the client may safely resubmit the request.
func (e *Error) Retryable() bool { return e.Kind == KindTransient }

// As extracts the first *Error in the chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of the first *Error in the chain, or KindInternal.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// Validation builds an ad hoc validation error with a field-specific message.
func Validation(message string) *Error {
	return ErrValidation.Withf("%s", message)
}

var (
	// ErrValidation generic malformed input
	ErrValidation = New(KindValidation, 10001, "invalid request parameters")
	// ErrOptimisticLock the row changed since it was read
	ErrOptimisticLock = New(KindConflict, 10009, "record was modified by another request, refresh and retry")
	// ErrInternal unexpected failure; never carries details to clients outside development
	ErrInternal = New(KindInternal, 50000, "internal server error")
)
