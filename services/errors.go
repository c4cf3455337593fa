package services

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ErrorKind tags every business failure so handlers can map it to a status
// code without string matching.
type ErrorKind string

const (
	KindNotFound          ErrorKind = "not_found"
	KindUnauthenticated   ErrorKind = "unauthenticated"
	KindForbidden         ErrorKind = "forbidden"
	KindInvalidState      ErrorKind = "invalid_state"
	KindUnsupportedSource ErrorKind = "unsupported_source"
	KindDuplicate         ErrorKind = "duplicate"
	KindSelfDealing       ErrorKind = "self_dealing"
	KindValidation        ErrorKind = "validation_failed"
	KindUnknown           ErrorKind = "unknown"
)

// AppError is the one error type services return to handlers. Guard and
// validation failures carry no cause; Unknown wraps the collaborator error so
// it can be logged with its origin.
type AppError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// StatusCode maps the kind to an HTTP status.
func (e *AppError) StatusCode() int {
	switch e.Kind {
	case KindNotFound:
		return fiber.StatusNotFound
	case KindUnauthenticated:
		return fiber.StatusUnauthorized
	case KindForbidden, KindSelfDealing:
		return fiber.StatusForbidden
	case KindInvalidState, KindDuplicate:
		return fiber.StatusConflict
	case KindUnsupportedSource:
		return fiber.StatusUnprocessableEntity
	case KindValidation:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func NotFound(msg string) *AppError        { return &AppError{Kind: KindNotFound, Message: msg} }
func Unauthenticated(msg string) *AppError { return &AppError{Kind: KindUnauthenticated, Message: msg} }
func Forbidden(msg string) *AppError       { return &AppError{Kind: KindForbidden, Message: msg} }
func InvalidState(msg string) *AppError    { return &AppError{Kind: KindInvalidState, Message: msg} }
func UnsupportedSource(msg string) *AppError {
	return &AppError{Kind: KindUnsupportedSource, Message: msg}
}
func Duplicate(msg string) *AppError   { return &AppError{Kind: KindDuplicate, Message: msg} }
func SelfDealing(msg string) *AppError { return &AppError{Kind: KindSelfDealing, Message: msg} }
func Invalid(msg string) *AppError     { return &AppError{Kind: KindValidation, Message: msg} }

// Unknown wraps an unexpected collaborator failure. Never constructed for
// guard/validation outcomes.
func Unknown(msg string, cause error) *AppError {
	return &AppError{Kind: KindUnknown, Message: msg, Cause: cause}
}

// AsAppError extracts the typed error, defaulting anything untagged to
// Unknown so callers always get a definitive kind.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Unknown("unexpected error", err)
}

// KindOf is a test/debug convenience.
func KindOf(err error) ErrorKind {
	return AsAppError(err).Kind
}
