package services

import "context"

type contextKey string

const (
	runIDKey     contextKey = "run_id"
	commandKey   contextKey = "command"
	captureIDKey contextKey = "capture_id"
)

// WithRunID annotates context with the ledger run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithCommand annotates context with the CLI command driving the run.
func WithCommand(ctx context.Context, command string) context.Context {
	if command == "" {
		return ctx
	}
	return context.WithValue(ctx, commandKey, command)
}

// CommandFromContext returns the command name if present.
func CommandFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(commandKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithCaptureID annotates context with the capture currently being processed.
func WithCaptureID(ctx context.Context, captureID string) context.Context {
	if captureID == "" {
		return ctx
	}
	return context.WithValue(ctx, captureIDKey, captureID)
}

// CaptureIDFromContext returns the capture id if present.
func CaptureIDFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(captureIDKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}
