// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

package errutil

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs an error with structured context if it's an oops error.
// For oops errors, it extracts and logs the message, code, and context.
// For standard errors, it logs the error string.
func LogError(logger *slog.Logger, msg string, err error) {
	LogErrorLevel(logger, slog.LevelError, msg, err)
}

// LogErrorLevel is LogError at an explicit level. Expected failures such as
// rejected credentials are logged at Warn.
func LogErrorLevel(logger *slog.Logger, level slog.Level, msg string, err error) {
	if oopsErr, ok := oops.AsOops(err); ok {
		attrs := []any{
			"error", oopsErr.Error(),
		}
		if code := oopsErr.Code(); code != nil {
			attrs = append(attrs, "code", code)
		}
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			attrs = append(attrs, "context", ctx)
		}
		logger.Log(context.Background(), level, msg, attrs...)
	} else {
		logger.Log(context.Background(), level, msg, "error", err)
	}
}

// CodeOf returns the oops code of err as a string, or "" when err carries none.
func CodeOf(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := oopsErr.Code().(string)
	return code
}

// HasCode reports whether err carries the given oops code.
func HasCode(err error, code string) bool {
	return code != "" && CodeOf(err) == code
}
