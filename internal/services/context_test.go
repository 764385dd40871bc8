package services_test

import (
	"context"
	"testing"

	"airdesk/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithCallID(ctx, "call-42")
	ctx = services.WithFirmID(ctx, "firm-1")
	ctx = services.WithStage(ctx, "extract")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.CallIDFromContext(ctx); !ok || id != "call-42" {
		t.Fatalf("unexpected call id: %v %v", id, ok)
	}
	if id, ok := services.FirmIDFromContext(ctx); !ok || id != "firm-1" {
		t.Fatalf("unexpected firm id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "extract" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithCallID(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.CallIDFromContext(ctx); ok {
		t.Fatal("expected no call id")
	}
}
