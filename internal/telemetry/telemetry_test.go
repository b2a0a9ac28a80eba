package telemetry_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/telemetry"
)

// providerOnce ensures we only create one Provider per test run to avoid
// duplicate Prometheus metric registration errors from promauto's global registry
var (
	testProvider *telemetry.Provider
	providerOnce sync.Once
)

func getTestProvider(t *testing.T) *telemetry.Provider {
	t.Helper()
	providerOnce.Do(func() {
		testProvider = telemetry.NewProvider()
	})
	return testProvider
}

func TestNewProvider(t *testing.T) {
	provider := getTestProvider(t)
	if provider == nil {
		t.Fatal("expected non-nil provider")
	}
	if provider.Tracer == nil {
		t.Error("expected non-nil tracer")
	}
	if provider.Metrics == nil {
		t.Error("expected non-nil metrics")
	}
}

func TestRecordScan(t *testing.T) {
	provider := getTestProvider(t)
	ctx := context.Background()

	// Should not panic
	provider.RecordScan(ctx, 250*time.Millisecond, 3, 3)
	provider.RecordScan(ctx, 10*time.Millisecond, 0, 0)
}

func TestRecordDispatch(t *testing.T) {
	provider := getTestProvider(t)
	ctx := context.Background()

	// Should not panic
	provider.RecordDispatch(ctx, "sent", 120*time.Millisecond)
	provider.RecordDispatch(ctx, "failed", 2*time.Second)
}

func TestRecordWebhookEvents(t *testing.T) {
	provider := getTestProvider(t)
	ctx := context.Background()

	provider.RecordWebhookEvent(ctx, "cart_updated")
	provider.RecordWebhookRejection(ctx, "invalid_signature")
}

func TestRecordAnalysis(t *testing.T) {
	provider := getTestProvider(t)
	ctx := context.Background()

	provider.RecordAnalysis(ctx, "chatgpt", true, time.Millisecond)
	provider.RecordAnalysis(ctx, "claude", false, time.Millisecond)
}

func TestGauges(t *testing.T) {
	provider := getTestProvider(t)

	provider.SetPendingTaskDepth(12)
	provider.IncrementDispatchRetries()
}

func TestHandler(t *testing.T) {
	provider := getTestProvider(t)
	if provider.Handler() == nil {
		t.Error("expected non-nil metrics handler")
	}
}

func TestStartSpan(t *testing.T) {
	provider := getTestProvider(t)

	ctx, span := provider.StartSpan(context.Background(), "test-span")
	if ctx == nil {
		t.Error("expected non-nil context")
	}
	if span == nil {
		t.Error("expected non-nil span")
	}
	span.End()
}
