package apperrors

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Kind classifies a failure so the API layer can pick a status code
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindValidation
	KindAuthorisation
	KindIllegalState
	KindExternalSystem
)

// String returns the kind as an upper-case error code
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NOT_FOUND"
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindAuthorisation:
		return "UNAUTHORISED"
	case KindIllegalState:
		return "ILLEGAL_STATE"
	case KindExternalSystem:
		return "EXTERNAL_SYSTEM_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}

// StatusCode returns the HTTP status used when rendering the kind
func (k Kind) StatusCode() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthorisation:
		return http.StatusForbidden
	case KindIllegalState:
		return http.StatusConflict
	case KindExternalSystem:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure carrying a user-facing message
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: cause}
}

// NotFound reports an unknown project, event, mapping or document
func NotFound(format string, args ...interface{}) *Error {
	return newError(KindNotFound, nil, format, args...)
}

// Validation reports bad caller input
func Validation(format string, args ...interface{}) *Error {
	return newError(KindValidation, nil, format, args...)
}

// Authorisation reports a caller whose identity cannot be resolved or trusted
func Authorisation(format string, args ...interface{}) *Error {
	return newError(KindAuthorisation, nil, format, args...)
}

// IllegalState reports an operation not permitted in the current lifecycle state
func IllegalState(format string, args ...interface{}) *Error {
	return newError(KindIllegalState, nil, format, args...)
}

// External reports a failure of the remote platform or another collaborator
func External(cause error, format string, args ...interface{}) *Error {
	return newError(KindExternalSystem, cause, format, args...)
}

// Internal wraps an unexpected failure
func Internal(cause error, format string, args ...interface{}) *Error {
	return newError(KindInternal, cause, format, args...)
}

// KindOf returns the kind of the first *Error in the chain, or KindInternal
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
