// Package errors provides structured errors that map to HTTP responses.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType is the category of an error. It selects the HTTP status, the log
// level and the metric label.
type ErrorType string

const (
	TypeValidation  ErrorType = "validation"  // 400
	TypeNotFound    ErrorType = "not_found"   // 404
	TypeConflict    ErrorType = "conflict"    // 409
	TypeInternal    ErrorType = "internal"    // 500
	TypeExternal    ErrorType = "external"    // 502
	TypeUnavailable ErrorType = "unavailable" // 503
)

// Error is a structured error with type, message and context.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the status code for the error type.
func (e *Error) HTTPStatus() int {
	switch e.Type {
	case TypeValidation:
		return http.StatusBadRequest
	case TypeNotFound:
		return http.StatusNotFound
	case TypeConflict:
		return http.StatusConflict
	case TypeExternal:
		return http.StatusBadGateway
	case TypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func newError(t ErrorType, message string, cause error) *Error {
	return &Error{Type: t, Message: message, Cause: cause, Context: make(map[string]any)}
}

func ValidationError(message string) *Error {
	return newError(TypeValidation, message, nil)
}

// InvalidInput is a validation error that keeps the rejected cause, typically
// a sentinel the caller can still match with errors.Is.
func InvalidInput(cause error) *Error {
	return newError(TypeValidation, cause.Error(), cause)
}

func NotFoundError(message string) *Error {
	return newError(TypeNotFound, message, nil)
}

func ConflictError(message string) *Error {
	return newError(TypeConflict, message, nil)
}

func InternalError(message string, cause error) *Error {
	return newError(TypeInternal, message, cause)
}

func ExternalError(message string, cause error) *Error {
	return newError(TypeExternal, message, cause)
}

func UnavailableError(message string, cause error) *Error {
	return newError(TypeUnavailable, message, cause)
}

// WithContext adds a context field (chainable).
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// ErrorResponse is the JSON body sent to clients.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Type    ErrorType      `json:"type"`
	Context map[string]any `json:"context,omitempty"`
}

func (e *Error) ToResponse() ErrorResponse {
	return ErrorResponse{
		Error:   e.Message,
		Type:    e.Type,
		Context: e.Context,
	}
}

// AsStructuredError returns err as *Error. Anything that is not one already is
// wrapped as an internal error so its message never reaches the client.
func AsStructuredError(err error) *Error {
	if err == nil {
		return nil
	}

	var structuredErr *Error
	if errors.As(err, &structuredErr) {
		return structuredErr
	}

	return InternalError("internal server error", err)
}
