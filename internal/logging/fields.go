package logging

import (
	"context"
	"log/slog"
	"strings"
)

const (
	// FieldComponent names the subsystem emitting the line.
	FieldComponent = "component"
	// FieldEventType classifies the event for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to check next.
	FieldErrorHint = "error_hint"
	// FieldImpact states the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldCorrelationID carries the poll cycle identifier.
	FieldCorrelationID = "correlation_id"
	// FieldVODID carries the Twitch VOD identifier.
	FieldVODID = "vod_id"
	// FieldFile carries a recording file path.
	FieldFile = "file"
)

type contextKey int

const (
	cycleIDKey contextKey = iota
	vodIDKey
)

// WithCycleID returns a context tagged with the poll cycle identifier.
func WithCycleID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, cycleIDKey, strings.TrimSpace(id))
}

// CycleIDFromContext returns the poll cycle identifier, if any.
func CycleIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(cycleIDKey).(string)
	return id, ok && id != ""
}

// WithVODID returns a context tagged with the VOD being processed.
func WithVODID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, vodIDKey, strings.TrimSpace(id))
}

// VODIDFromContext returns the VOD identifier, if any.
func VODIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(vodIDKey).(string)
	return id, ok && id != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	fields := make([]slog.Attr, 0, 2)
	if id, ok := CycleIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, id))
	}
	if id, ok := VODIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldVODID, id))
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
	return slog.New(logger.Handler().WithAttrs(fields))
}
