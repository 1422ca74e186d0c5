package logger

import (
	"context"
	"log/slog"
	"strings"
)

// SlogHandler is a slog.Handler that writes through a Logger, so packages
// that log with slog share the binary's format, level and default tags.
type SlogHandler struct {
	logger *Logger
	attrs  map[string]interface{}
	group  string
}

// NewSlogHandler returns a handler backed by l.
func NewSlogHandler(l *Logger) *SlogHandler {
	if l == nil {
		l = GetDefaultLogger()
	}
	return &SlogHandler{logger: l}
}

// NewSlogLogger is shorthand for slog.New(NewSlogHandler(l)).
func NewSlogLogger(l *Logger) *slog.Logger {
	return slog.New(NewSlogHandler(l))
}

// Enabled reports whether the underlying logger emits level.
func (h *SlogHandler) Enabled(_ context.Context, level slog.Level) bool {
	h.logger.mu.Lock()
	defer h.logger.mu.Unlock()
	return fromSlogLevel(level) >= h.logger.level
}

// Handle writes one record.
func (h *SlogHandler) Handle(_ context.Context, r slog.Record) error {
	fields := make(map[string]interface{}, len(h.attrs)+r.NumAttrs())
	for k, v := range h.attrs {
		fields[k] = v
	}
	r.Attrs(func(a slog.Attr) bool {
		h.addAttr(fields, h.group, a)
		return true
	})
	// Handle <- slog.Logger.log <- slog.Logger.Info <- call site
	h.logger.write(fromSlogLevel(r.Level), r.Message, 4, fields)
	return nil
}

// WithAttrs returns a handler that adds attrs to every record.
func (h *SlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := h.clone()
	for _, a := range attrs {
		h.addAttr(next.attrs, h.group, a)
	}
	return next
}

// WithGroup returns a handler that prefixes attribute keys with name.
func (h *SlogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	next.group = joinKey(h.group, name)
	return next
}

func (h *SlogHandler) clone() *SlogHandler {
	attrs := make(map[string]interface{}, len(h.attrs))
	for k, v := range h.attrs {
		attrs[k] = v
	}
	return &SlogHandler{logger: h.logger, attrs: attrs, group: h.group}
}

func (h *SlogHandler) addAttr(fields map[string]interface{}, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			h.addAttr(fields, joinKey(prefix, a.Key), ga)
		}
		return
	}
	fields[joinKey(prefix, a.Key)] = a.Value.Any()
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	if key == "" {
		return prefix
	}
	return strings.Join([]string{prefix, key}, ".")
}

func fromSlogLevel(level slog.Level) LogLevel {
	switch {
	case level >= slog.LevelError:
		return ERROR
	case level >= slog.LevelWarn:
		return WARN
	case level >= slog.LevelInfo:
		return INFO
	default:
		return DEBUG
	}
}
