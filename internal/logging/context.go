package logging

import (
	"context"
	"log/slog"
	"strings"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldProjectID identifies the backend project an operation targets.
	FieldProjectID = "project_id"
	// FieldBlock is the storyboard block folder (intro, chapter_2, break_1, close).
	FieldBlock = "block"
	// FieldRequestID correlates one user-triggered operation across REST and SSE calls.
	FieldRequestID = "request_id"
	// FieldEventType classifies warnings for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to try next.
	FieldErrorHint = "error_hint"
)

type contextKey int

const (
	projectIDKey contextKey = iota
	blockKey
	requestIDKey
)

// WithProjectID annotates ctx with the project identifier.
func WithProjectID(ctx context.Context, projectID string) context.Context {
	return context.WithValue(ctx, projectIDKey, strings.TrimSpace(projectID))
}

// WithBlock annotates ctx with a storyboard block folder.
func WithBlock(ctx context.Context, folder string) context.Context {
	return context.WithValue(ctx, blockKey, strings.TrimSpace(folder))
}

// WithRequestID annotates ctx with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, strings.TrimSpace(id))
}

// RequestIDFromContext returns the correlation identifier, if any.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, requestIDKey)
}

func stringValue(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(key).(string)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	fields := make([]slog.Attr, 0, 3)
	if id, ok := stringValue(ctx, projectIDKey); ok {
		fields = append(fields, slog.String(FieldProjectID, id))
	}
	if folder, ok := stringValue(ctx, blockKey); ok {
		fields = append(fields, slog.String(FieldBlock, folder))
	}
	if rid, ok := stringValue(ctx, requestIDKey); ok {
		fields = append(fields, slog.String(FieldRequestID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
