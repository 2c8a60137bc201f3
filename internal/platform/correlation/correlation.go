// Package correlation carries a per-request id through contexts and into log
// records.
package correlation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// HeaderName is read from incoming requests and echoed on responses.
const HeaderName = "X-Correlation-ID"

const maxIDLength = 64

type contextKey struct{}

func NewID() string {
	return uuid.NewString()
}

// Accept returns id when it is safe to put into logs and headers, and a fresh
// id otherwise.
func Accept(id string) string {
	if id == "" || len(id) > maxIDLength {
		return NewID()
	}
	for _, r := range id {
		if !isIDRune(r) {
			return NewID()
		}
	}
	return id
}

func isIDRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_' || r == '.'
}

func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// ID extracts the correlation id from ctx.
func ID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok && id != ""
}

// Handler wraps a slog.Handler and adds "correlation_id" when the record's
// context carries one.
type Handler struct {
	inner slog.Handler
}

func NewHandler(inner slog.Handler) *Handler {
	return &Handler{inner: inner}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := ID(ctx); ok {
		r.AddAttrs(slog.String("correlation_id", id))
	}
	if err := h.inner.Handle(ctx, r); err != nil {
		return fmt.Errorf("correlation handler: %w", err)
	}
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{inner: h.inner.WithAttrs(attrs)}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{inner: h.inner.WithGroup(name)}
}
