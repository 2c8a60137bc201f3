package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// Middleware converts errors returned by handlers into JSON responses and
// counts them by type in errorsTotal. echo.HTTPErrors (routing, body limits,
// rate limiting) are counted and passed on to echo's own handler.
func Middleware(errorsTotal *prometheus.CounterVec) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				errorsTotal.WithLabelValues(string(WrapHTTPError(httpErr).Type)).Inc()
				return err
			}

			structuredErr := AsStructuredError(err)
			errorsTotal.WithLabelValues(string(structuredErr.Type)).Inc()
			logError(c, structuredErr)

			if err := c.JSON(structuredErr.HTTPStatus(), structuredErr.ToResponse()); err != nil {
				return fmt.Errorf("failed to write error response: %w", err)
			}
			return nil
		}
	}
}

// logError logs with the request context so the correlation id is attached.
func logError(c echo.Context, err *Error) {
	ctx := c.Request().Context()
	attrs := []any{
		"error_type", err.Type,
		"message", err.Message,
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"status", err.HTTPStatus(),
	}
	for k, v := range err.Context {
		attrs = append(attrs, k, v)
	}
	if err.Cause != nil {
		attrs = append(attrs, "cause", err.Cause)
	}

	switch err.Type {
	case TypeValidation:
		slog.InfoContext(ctx, "Validation error", attrs...)
	case TypeNotFound:
		slog.InfoContext(ctx, "Not found", attrs...)
	case TypeConflict:
		slog.WarnContext(ctx, "Conflict", attrs...)
	case TypeUnavailable:
		slog.WarnContext(ctx, "Service unavailable", attrs...)
	case TypeExternal:
		slog.ErrorContext(ctx, "External service error", attrs...)
	default:
		slog.ErrorContext(ctx, "Internal error", attrs...)
	}
}

// WrapHTTPError maps an echo.HTTPError onto the structured error types.
func WrapHTTPError(httpErr *echo.HTTPError) *Error {
	message := http.StatusText(httpErr.Code)
	if msg, ok := httpErr.Message.(string); ok {
		message = msg
	}

	var errType ErrorType
	switch httpErr.Code {
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusRequestEntityTooLarge:
		errType = TypeValidation
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		errType = TypeNotFound
	case http.StatusConflict:
		errType = TypeConflict
	case http.StatusBadGateway:
		errType = TypeExternal
	case http.StatusServiceUnavailable, http.StatusTooManyRequests:
		errType = TypeUnavailable
	default:
		errType = TypeInternal
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   httpErr.Internal,
		Context: make(map[string]any),
	}
}
