package telemetry_test

import (
	"context"
	"testing"

	"github.com/flemzord/modgate/internal/telemetry"
)

func TestSetup_NoopWithoutEndpoint(t *testing.T) {
	t.Parallel()

	shutdown, err := telemetry.Setup(context.Background(), "", "test")
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("noop shutdown should not error: %v", err)
	}
}

func TestSetup_WithEndpoint(t *testing.T) {
	// Non-routable address: nothing is exported before shutdown.
	shutdown, err := telemetry.Setup(context.Background(), "http://192.0.2.1:4318", "test")
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestTracer_StartsSpans(t *testing.T) {
	t.Parallel()

	_, span := telemetry.Tracer("test").Start(context.Background(), "op")
	defer span.End()
	if span == nil {
		t.Fatal("nil span")
	}
}
