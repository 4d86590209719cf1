// Package logging builds the structured logger every command and
// long-running worker in this module shares, and a context helper for
// attaching per-call attributes to it.
package logging

import (
	"context"
	"io"
	"log/slog"
)

type ctxKey struct{}

// Logger builds a slog.Logger that writes JSON records to w. addSource
// includes the call site of each log line, which is useful in development
// but noisy once a scanner session is running unattended.
func Logger(w io.Writer, addSource bool, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: addSource,
		Level:     level,
	})
	return slog.New(&ctxHandler{Handler: handler})
}

// ctxHandler merges attributes stashed by AppendCtx into every record
// emitted through a context carrying them.
type ctxHandler struct {
	slog.Handler
}

func (h *ctxHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs, ok := ctx.Value(ctxKey{}).([]slog.Attr); ok {
		r.AddAttrs(attrs...)
	}
	return h.Handler.Handle(ctx, r)
}

// AppendCtx returns a context that carries additional attributes to be
// merged into every log record emitted through it, stacking on top of any
// attributes already attached by an outer call.
func AppendCtx(ctx context.Context, attrs ...slog.Attr) context.Context {
	if existing, ok := ctx.Value(ctxKey{}).([]slog.Attr); ok {
		attrs = append(append([]slog.Attr{}, existing...), attrs...)
	}
	return context.WithValue(ctx, ctxKey{}, attrs)
}
