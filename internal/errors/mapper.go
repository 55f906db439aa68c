// internal/errors/mapper.go
package errors

import (
	"context"
	"errors"
	"net/http"

	"gorm.io/gorm"
)

// Kind classifies a service failure. Transports map kinds to their own codes.
type Kind string

const (
	KindValidation    Kind = "VALIDATION"
	KindAuthorization Kind = "AUTHORIZATION"
	KindNotFound      Kind = "NOT_FOUND"
	KindConflict      Kind = "CONFLICT"
	KindPersistence   Kind = "PERSISTENCE"
)

// Error is the single error type returned by the service layer.
// Message is safe to show to clients. Err is the cause and is only logged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// InvalidArgument creates a validation error.
// Use this in service layer for bad input validation.
func InvalidArgument(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Unauthorized creates an authorization error.
func Unauthorized(msg string) error {
	return &Error{Kind: KindAuthorization, Message: msg}
}

func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// AlreadyExists creates a conflict error.
func AlreadyExists(msg string) error {
	return &Error{Kind: KindConflict, Message: msg}
}

// Internal wraps a storage failure. msg is what the client sees.
func Internal(msg string, cause error) error {
	return &Error{Kind: KindPersistence, Message: msg, Err: cause}
}

// Map converts repo/infra errors into service errors.
// Keeps service layer clean by centralizing error mapping.
func Map(err error) error {
	if err == nil {
		return nil
	}

	var svc *Error
	if errors.As(err, &svc) {
		return svc
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &Error{Kind: KindNotFound, Message: "record not found", Err: err}

	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &Error{Kind: KindConflict, Message: "record already exists", Err: err}

	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindPersistence, Message: "request timed out", Err: err}

	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindPersistence, Message: "request was canceled", Err: err}

	default:
		// cause stays in Err for logs, never in Message
		return &Error{Kind: KindPersistence, Message: "Server error", Err: err}
	}
}

// KindOf reports the kind of err, treating unknown errors as persistence failures.
func KindOf(err error) Kind {
	var svc *Error
	if errors.As(err, &svc) {
		return svc.Kind
	}
	return KindPersistence
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// PublicMessage returns the client-facing text for err.
func PublicMessage(err error) string {
	var svc *Error
	if errors.As(err, &svc) {
		return svc.Message
	}
	return "Server error"
}

// HTTPStatus maps err to a response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
