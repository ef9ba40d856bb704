package services_test

import (
	"context"
	"testing"

	"annofuse/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-123")
	ctx = services.WithCommand(ctx, "merge")
	ctx = services.WithCaptureID(ctx, "2025050712000001")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-123" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if cmd, ok := services.CommandFromContext(ctx); !ok || cmd != "merge" {
		t.Fatalf("unexpected command: %v %v", cmd, ok)
	}
	if capture, ok := services.CaptureIDFromContext(ctx); !ok || capture != "2025050712000001" {
		t.Fatalf("unexpected capture id: %v %v", capture, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithCommand(ctx, "")
	ctx = services.WithCaptureID(ctx, "")
	if _, ok := services.CommandFromContext(ctx); ok {
		t.Fatal("expected no command value")
	}
	if _, ok := services.CaptureIDFromContext(ctx); ok {
		t.Fatal("expected no capture value")
	}
}
