package logging

import (
	"context"
	"log/slog"
)

// ComponentKey is the attribute that selects a component level.
const ComponentKey = "component"

// componentHandler drops records below the level configured for the
// component the handler was derived for.
type componentHandler struct {
	next      slog.Handler
	spec      *Spec
	component string
}

// NewComponentHandler wraps next so that records are filtered by the
// per-component levels in spec.
func NewComponentHandler(next slog.Handler, spec *Spec) slog.Handler {
	return &componentHandler{next: next, spec: spec}
}

func (h *componentHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.spec.LevelFor(h.component).Slog()
}

func (h *componentHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.Enabled(ctx, r.Level) {
		return nil
	}
	return h.next.Handle(ctx, r)
}

// WithAttrs keeps the last component attribute seen for filtering.
func (h *componentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	component := h.component
	for _, a := range attrs {
		if a.Key == ComponentKey {
			component = a.Value.String()
		}
	}
	return &componentHandler{next: h.next.WithAttrs(attrs), spec: h.spec, component: component}
}

func (h *componentHandler) WithGroup(name string) slog.Handler {
	return &componentHandler{next: h.next.WithGroup(name), spec: h.spec, component: h.component}
}
