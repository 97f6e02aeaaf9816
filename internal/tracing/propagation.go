package tracing

import (
	"context"

	"github.com/rs/zerolog"
)

// PropagateToLogger adds tracing context to a zerolog logger
func PropagateToLogger(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	tc := FromContext(ctx)

	lc := logger.With()
	if tc.TraceID != "" {
		lc = lc.Str("trace_id", tc.TraceID)
	}
	if tc.RequestID != "" {
		lc = lc.Str("request_id", tc.RequestID)
	}
	if tc.SessionKey != "" {
		lc = lc.Str("session_key", tc.SessionKey)
	}
	if tc.Platform != "" {
		lc = lc.Str("platform", tc.Platform)
	}
	if tc.UserID != "" {
		lc = lc.Str("user_id", tc.UserID)
	}

	return lc.Logger()
}

// LoggerFromContext creates a logger with tracing context from the given context
func LoggerFromContext(ctx context.Context, baseLogger zerolog.Logger) zerolog.Logger {
	return PropagateToLogger(ctx, baseLogger)
}

// MergeContext copies tracing values from source that target does not have yet
func MergeContext(target, source context.Context) context.Context {
	tc := FromContext(source)
	current := FromContext(target)

	if current.TraceID == "" && tc.TraceID != "" {
		target = WithTraceID(target, tc.TraceID)
	}
	if current.RequestID == "" && tc.RequestID != "" {
		target = WithRequestID(target, tc.RequestID)
	}
	if current.SessionKey == "" && tc.SessionKey != "" {
		target = WithSessionKey(target, tc.SessionKey)
	}
	if current.Platform == "" && tc.Platform != "" {
		target = WithPlatform(target, tc.Platform)
	}
	if current.UserID == "" && tc.UserID != "" {
		target = WithUserID(target, tc.UserID)
	}

	return target
}

// CloneContext creates a new background context with the same tracing information
func CloneContext(ctx context.Context) context.Context {
	return NewContext(context.Background(), FromContext(ctx))
}
