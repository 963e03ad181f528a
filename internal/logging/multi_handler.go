package logging

import (
	"context"
	"log/slog"
	"slices"
	"sync/atomic"
)

// MultiHandler fans out log records to multiple handlers.
type MultiHandler struct {
	handlers []slog.Handler
}

// NewMultiHandler creates a handler that writes to all provided handlers.
func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: handlers}
}

// Enabled implements slog.Handler.
func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle implements slog.Handler.
func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			_ = h.Handle(ctx, r.Clone())
		}
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &MultiHandler{handlers: handlers}
}

// WithGroup implements slog.Handler.
func (m *MultiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &MultiHandler{handlers: handlers}
}

// swapHandler forwards to a module's current output chain. Initialize
// replaces the chain in place, so a *slog.Logger taken before it (the
// chip and platform loggers are created while flags are parsed) still
// reaches the ring buffer and the journal afterwards.
type swapHandler struct {
	current *atomic.Pointer[slog.Handler]
	derive  []func(slog.Handler) slog.Handler
}

func newSwapHandler(h slog.Handler) *swapHandler {
	s := &swapHandler{current: &atomic.Pointer[slog.Handler]{}}
	s.swap(h)
	return s
}

func (s *swapHandler) swap(h slog.Handler) {
	s.current.Store(&h)
}

func (s *swapHandler) resolve() slog.Handler {
	h := *s.current.Load()
	for _, fn := range s.derive {
		h = fn(h)
	}
	return h
}

// Enabled implements slog.Handler.
func (s *swapHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return s.resolve().Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (s *swapHandler) Handle(ctx context.Context, r slog.Record) error {
	return s.resolve().Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (s *swapHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return s.with(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

// WithGroup implements slog.Handler.
func (s *swapHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return s
	}
	return s.with(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (s *swapHandler) with(fn func(slog.Handler) slog.Handler) *swapHandler {
	return &swapHandler{current: s.current, derive: append(slices.Clip(s.derive), fn)}
}
