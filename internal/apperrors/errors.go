// Package apperrors defines the error kinds handlers translate into HTTP
// responses. Every failure leaves the API as {"message": ..., "error": code},
// with the code omitted for not-found.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindValidation
	KindConflict
	KindUnauthorized
	KindRateLimited
	KindSession
	KindStore
)

// Code returns the machine readable code sent in the "error" field
func (k Kind) Code() string {
	switch k {
	case KindNotFound:
		return ""
	case KindValidation:
		return "VALIDATION_FAILED"
	case KindConflict:
		return "CONFLICT"
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindRateLimited:
		return "TOO_MANY_REQUESTS"
	case KindSession:
		return "SESSION_ERROR"
	case KindStore:
		return "STORE_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}

// Status returns the HTTP status code for the kind
func (k Kind) Status() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is an application error with a kind, a client-facing message and an
// optional internal cause that is only ever logged.
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

// Unwrap returns the underlying cause error
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an error of the given kind
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind around a cause
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// NotFound creates a not-found error
func NotFound(message string) *Error { return New(KindNotFound, message) }

// Validation creates a validation error
func Validation(message string, cause error) *Error { return Wrap(KindValidation, message, cause) }

// Conflict creates a conflict error
func Conflict(message string) *Error { return New(KindConflict, message) }

// Unauthorized creates an unauthorized error
func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }

// Store wraps a data store failure
func Store(message string, cause error) *Error { return Wrap(KindStore, message, cause) }

// Session wraps a session store failure
func Session(message string, cause error) *Error { return Wrap(KindSession, message, cause) }

// KindOf reports the kind of err, or KindInternal when err is not an *Error
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

// Payload is the uniform JSON error body
type Payload struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// NewPayload builds the response body for kind with a client-facing message
func NewPayload(kind Kind, message string) Payload {
	return Payload{Message: message, Error: kind.Code()}
}
