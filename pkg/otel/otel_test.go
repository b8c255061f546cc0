package otel

import (
	"context"
	"strings"
	"testing"

	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.uber.org/zap"

	"billingengine/pkg/config"
)

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{0, "AlwaysOnSampler"},
		{1, "AlwaysOnSampler"},
		{1.5, "AlwaysOnSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		desc := Sampler(tt.ratio).Description()
		if !strings.HasPrefix(desc, "ParentBased{root:"+tt.want) {
			t.Errorf("Sampler(%v) = %s, want root %s", tt.ratio, desc, tt.want)
		}
	}
}

func TestResourceAttributes(t *testing.T) {
	attrs := resourceAttributes(config.OTelConfig{
		ServiceName: "billing-runner",
		Environment: "production",
	})
	got := map[string]string{}
	for _, kv := range attrs {
		got[string(kv.Key)] = kv.Value.AsString()
	}
	if got[string(semconv.ServiceNameKey)] != "billing-runner" ||
		got[string(semconv.ServiceNamespaceKey)] != ServiceNamespace ||
		got[string(semconv.DeploymentEnvironmentKey)] != "production" {
		t.Fatalf("attrs = %v", got)
	}
	if _, ok := got[string(semconv.ServiceVersionKey)]; ok {
		t.Fatal("empty version should be omitted")
	}
}

func TestInitDisabledKeepsNoopTracer(t *testing.T) {
	shutdown, err := Init(config.OTelConfig{Enabled: false}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	shutdown()

	_, span := StartSpan(context.Background(), "billing.dashboard")
	defer span.End()
	if span.SpanContext().IsValid() {
		t.Fatal("disabled tracing produced a recorded span")
	}
}
