package log

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"
)

// DefaultMaxValueRunes is the length cap applied to string attribute
// values. Extracted page content routinely runs to kilobytes; a log line
// only needs enough of it to identify the page.
const DefaultMaxValueRunes = 256

// MaskValue is the string used to replace credentials found in URLs.
const MaskValue = "***"

// truncationMarker is appended to values cut at the length cap.
const truncationMarker = "... (truncated)"

// CleanHandler wraps an slog.Handler to keep log output displayable.
// It intercepts log records, truncates oversized string values, and masks
// userinfo in URL-valued attributes before passing them to the underlying
// handler.
//
// Design decision: We use a handler wrapper rather than a custom logger
// because:
//  1. It integrates seamlessly with standard slog APIs
//  2. It works with any underlying handler (text, JSON, etc.)
//  3. Components keep accepting a plain *slog.Logger
type CleanHandler struct {
	// handler is the underlying slog handler that receives cleaned records.
	handler slog.Handler

	// maxValueRunes caps the rune length of string attribute values.
	// Zero or less disables truncation.
	maxValueRunes int
}

// CleanHandlerOption configures a CleanHandler.
type CleanHandlerOption func(*CleanHandler)

// WithMaxValueRunes overrides the string value length cap.
// A cap of zero or less disables truncation.
func WithMaxValueRunes(n int) CleanHandlerOption {
	return func(h *CleanHandler) {
		h.maxValueRunes = n
	}
}

// NewCleanHandler creates a new CleanHandler wrapping the given handler.
// All log attributes will be cleaned before being passed to the underlying handler.
// If handler is nil, the returned CleanHandler will use slog.Default().Handler().
func NewCleanHandler(handler slog.Handler, opts ...CleanHandlerOption) *CleanHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}

	h := &CleanHandler{
		handler:       handler,
		maxValueRunes: DefaultMaxValueRunes,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Enabled reports whether the handler handles records at the given level.
// It delegates to the underlying handler.
func (h *CleanHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle cleans the record's attributes and passes it to the underlying handler.
func (h *CleanHandler) Handle(ctx context.Context, r slog.Record) error {
	cleaned := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	r.Attrs(func(a slog.Attr) bool {
		cleaned.AddAttrs(h.cleanAttr(a))
		return true
	})

	return h.handler.Handle(ctx, cleaned)
}

// WithAttrs returns a new handler with the given attributes added.
// Attributes are cleaned before being added.
func (h *CleanHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cleanedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		cleanedAttrs[i] = h.cleanAttr(a)
	}
	return &CleanHandler{handler: h.handler.WithAttrs(cleanedAttrs), maxValueRunes: h.maxValueRunes}
}

// WithGroup returns a new handler with the given group name.
func (h *CleanHandler) WithGroup(name string) slog.Handler {
	return &CleanHandler{handler: h.handler.WithGroup(name), maxValueRunes: h.maxValueRunes}
}

// cleanAttr cleans a single attribute, recursively handling groups.
func (h *CleanHandler) cleanAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		cleanedAttrs := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			cleanedAttrs[i] = h.cleanAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(cleanedAttrs...)}
	}

	if a.Value.Kind() != slog.KindString {
		return a
	}

	value := redactURLUserinfo(a.Value.String())
	value = truncateValue(value, h.maxValueRunes)

	return slog.String(a.Key, value)
}

// redactURLUserinfo masks credentials in URL-shaped values. Non-URL values
// pass through unchanged.
func redactURLUserinfo(s string) string {
	// Only values with both markers can carry a userinfo component.
	if !strings.Contains(s, "://") || !strings.Contains(s, "@") {
		return s
	}

	u, err := url.Parse(s)
	if err != nil || u.User == nil {
		return s
	}

	u.User = url.User(MaskValue)
	return u.String()
}

// truncateValue cuts a string at maxRunes and appends the truncation marker.
func truncateValue(s string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}

	runes := []rune(s)
	return string(runes[:maxRunes]) + truncationMarker
}

// NewLogger creates a new slog.Logger with clean handling.
// The logger truncates oversized values and masks URL credentials in all
// log output.
//
// Parameters:
//   - w: The io.Writer to write log output to (typically os.Stderr)
//   - verbose: If true, sets log level to Debug; otherwise Warn
//
// Returns a *slog.Logger that can be used with slog.SetDefault() or passed
// to components that accept *slog.Logger.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	textHandler := slog.NewTextHandler(w, opts)
	cleanHandler := NewCleanHandler(textHandler)

	return slog.New(cleanHandler)
}

// NewJSONLogger creates a new slog.Logger with clean handling that outputs
// JSON format. Useful for structured log aggregation.
//
// Parameters:
//   - w: The io.Writer to write log output to
//   - verbose: If true, sets log level to Debug; otherwise Warn
//
// Returns a *slog.Logger configured for JSON output with cleaning.
func NewJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	jsonHandler := slog.NewJSONHandler(w, opts)
	cleanHandler := NewCleanHandler(jsonHandler)

	return slog.New(cleanHandler)
}
