// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

// Package logging provides structured logging with OpenTelemetry trace context.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel/trace"
)

// Supported output formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// CodeInvalidOption is returned for an unknown format or level.
const CodeInvalidOption = "LOGGING_INVALID_OPTION"

// redacted replaces the value of any attribute whose key looks like a secret.
const redacted = "[REDACTED]"

var secretKeys = []string{"password", "token", "cookie", "secret"}

// traceHandler wraps a slog.Handler to add service and trace context.
type traceHandler struct {
	handler slog.Handler
	service string
	version string
}

// Handle adds service, version and trace context to the log record.
func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(
		slog.String("service", h.service),
		slog.String("version", h.version),
	)

	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.HasTraceID() {
		r.AddAttrs(slog.String("trace_id", spanCtx.TraceID().String()))
	}
	if spanCtx.HasSpanID() {
		r.AddAttrs(slog.String("span_id", spanCtx.SpanID().String()))
	}

	//nolint:wrapcheck // Handler interface requires unwrapped error passthrough
	return h.handler.Handle(ctx, r)
}

// Enabled returns true if the level is enabled.
func (h *traceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// WithAttrs returns a new handler with the given attributes.
func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{
		handler: h.handler.WithAttrs(attrs),
		service: h.service,
		version: h.version,
	}
}

// WithGroup returns a new handler with the given group.
func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{
		handler: h.handler.WithGroup(name),
		service: h.service,
		version: h.version,
	}
}

// redactSecrets is a slog ReplaceAttr hook.
func redactSecrets(_ []string, a slog.Attr) slog.Attr {
	key := strings.ToLower(a.Key)
	for _, s := range secretKeys {
		if strings.Contains(key, s) {
			return slog.String(a.Key, redacted)
		}
	}
	return a
}

// ValidateFormat rejects formats other than json and text. Empty means json.
func ValidateFormat(format string) error {
	switch format {
	case "", FormatJSON, FormatText:
		return nil
	default:
		return oops.Code(CodeInvalidOption).
			With("format", format).
			Errorf("unknown log format %q (want json or text)", format)
	}
}

// ParseLevel parses debug, info, warn or error. Empty means info.
func ParseLevel(level string) (slog.Level, error) {
	if level == "" {
		return slog.LevelInfo, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return 0, oops.Code(CodeInvalidOption).With("level", level).Wrap(err)
	}
	return l, nil
}

// Options configures New.
type Options struct {
	Service string
	Version string
	// Format is "json" (default) or "text".
	Format string
	Level  slog.Level
	// Writer defaults to os.Stderr.
	Writer io.Writer
}

// New creates a configured slog.Logger. Attributes whose key names a secret
// (password, token, cookie) are redacted.
func New(opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	hopts := &slog.HandlerOptions{
		Level:       opts.Level,
		ReplaceAttr: redactSecrets,
	}

	var baseHandler slog.Handler
	if opts.Format == FormatText {
		baseHandler = slog.NewTextHandler(w, hopts)
	} else {
		baseHandler = slog.NewJSONHandler(w, hopts)
	}

	return slog.New(&traceHandler{
		handler: baseHandler,
		service: opts.Service,
		version: opts.Version,
	})
}

// Setup creates a debug-level logger.
// format: "json" or "text" (defaults to "json" if empty)
// If w is nil, writes to os.Stderr.
func Setup(service, version, format string, w io.Writer) *slog.Logger {
	return New(Options{
		Service: service,
		Version: version,
		Format:  format,
		Level:   slog.LevelDebug,
		Writer:  w,
	})
}

// SetDefault sets up and configures the default logger.
func SetDefault(opts Options) *slog.Logger {
	logger := New(opts)
	slog.SetDefault(logger)
	return logger
}
