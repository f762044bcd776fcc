// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package logger

import (
	"context"
)

// WithContext returns a new context carrying logger.
func WithContext(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, contextKey, logger)
}

// FromContext retrieves the logger from the context. If no logger is found the null logger is returned,
// so callers never have to check for nil.
func FromContext(ctx context.Context) Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(contextKey).(Logger); ok {
			return logger
		}
	}

	return nullLogger
}

type contextKeyType struct{}

var contextKey = contextKeyType{}
