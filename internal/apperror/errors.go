// Package apperror provides the error type handlers return to the Echo
// error handler. An AppError carries the HTTP status to answer with and a
// message that is safe to put on the page.
//
// NEVER show raw backend, Redis, or database errors to the browser. Wrap
// them with NewBadGateway or NewInternal; the cause is kept for the log.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is the base error type for all domain errors.
type AppError struct {
	// Code is the HTTP status code.
	Code int

	// Type classifies the error in logs (e.g. "backend_unavailable").
	Type string

	// Message is shown to the user.
	Message string

	// Internal holds the underlying cause. Logged, never rendered.
	Internal error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Internal
}

func newError(code int, typ, message string, internal error) *AppError {
	return &AppError{Code: code, Type: typ, Message: message, Internal: internal}
}

// --- Client errors ---

// NewBadRequest is a 400 for requests that cannot be understood at all.
func NewBadRequest(message string) *AppError {
	return newError(http.StatusBadRequest, "bad_request", message, nil)
}

// NewUnauthorized is a 401. The error handler turns it into a trip to the
// login page, so the message is only seen on re-rendered forms.
func NewUnauthorized(message string) *AppError {
	return newError(http.StatusUnauthorized, "unauthorized", message, nil)
}

// TypeSessionRejected marks a 401 for a token the backend refused, as
// opposed to a browser that never logged in.
const TypeSessionRejected = "session_rejected"

// NewSessionRejected is a 401 for a token the KidsTube backend no longer
// accepts.
func NewSessionRejected(message string) *AppError {
	return newError(http.StatusUnauthorized, TypeSessionRejected, message, nil)
}

// NewNotFound is a 404.
func NewNotFound(message string) *AppError {
	return newError(http.StatusNotFound, "not_found", message, nil)
}

// NewConflict is a 409, e.g. registering an email that already has an
// account.
func NewConflict(message string) *AppError {
	return newError(http.StatusConflict, "conflict", message, nil)
}

// NewValidation is a 422 for form input that failed validation.
func NewValidation(message string) *AppError {
	return newError(http.StatusUnprocessableEntity, "validation_error", message, nil)
}

// --- Server errors ---

// NewBadGateway is a 502 for a KidsTube backend that failed or could not
// be reached.
func NewBadGateway(err error) *AppError {
	return newError(http.StatusBadGateway, "backend_unavailable",
		"The KidsTube service is not responding. Please try again.", err)
}

// NewInternal is a 500 with a generic message.
func NewInternal(err error) *AppError {
	return newError(http.StatusInternalServerError, "internal_error",
		"An unexpected error occurred. Please try again.", err)
}

var errMissingContext = errors.New("missing required context")

// NewMissingContext is a 500 for a handler reached without what its
// middleware should have set (browser session, gate claims).
func NewMissingContext() *AppError {
	return NewInternal(errMissingContext)
}

// --- Inspection ---

// SafeMessage returns the message of an AppError anywhere in err's chain,
// or a generic one.
func SafeMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "an unexpected error occurred"
}

// IsSessionRejected reports whether err carries a NewSessionRejected error.
func IsSessionRejected(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == TypeSessionRejected
}

// IsCode reports whether err is an AppError carrying the given HTTP code.
func IsCode(err error, code int) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
