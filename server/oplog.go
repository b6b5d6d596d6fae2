package server

import (
	"context"
	"log/slog"
)

type opIDKey struct{}

// ContextWithOpID returns ctx carrying the operation id of one request.
func ContextWithOpID(ctx context.Context, id uint64) context.Context {
	return context.WithValue(ctx, opIDKey{}, id)
}

// OpIDFromContext returns the operation id of ctx, or zero.
func OpIDFromContext(ctx context.Context) uint64 {
	id, _ := ctx.Value(opIDKey{}).(uint64)
	return id
}

// opIDHandler adds op_id to every record logged with a request context.
type opIDHandler struct {
	slog.Handler
}

func (h opIDHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := OpIDFromContext(ctx); id != 0 {
		r.AddAttrs(slog.Uint64("op_id", id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h opIDHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return opIDHandler{h.Handler.WithAttrs(attrs)}
}

func (h opIDHandler) WithGroup(name string) slog.Handler {
	return opIDHandler{h.Handler.WithGroup(name)}
}

// WithOpIDHandler wraps a logger's handler to extract op_id from context.
func WithOpIDHandler(logger *slog.Logger) *slog.Logger {
	return slog.New(opIDHandler{logger.Handler()})
}
