package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitTracing_Disabled(t *testing.T) {
	tp, err := InitTracing(context.Background(), OTelConfig{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if tp != nil {
		t.Error("Expected nil provider when tracing is disabled")
	}
	if err := ShutdownTracing(context.Background(), nil, nil); err != nil {
		t.Errorf("Expected nil error for nil provider, got %v", err)
	}
}

func TestOTelConfig_Sampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{ratio: 0, want: "AlwaysOnSampler"},
		{ratio: 1, want: "AlwaysOnSampler"},
		{ratio: 0.5, want: "TraceIDRatioBased{0.5}"},
	}
	for _, tt := range tests {
		desc := OTelConfig{SampleRatio: tt.ratio}.sampler().Description()
		if !strings.Contains(desc, tt.want) {
			t.Errorf("sampler(%v) = %s, want it to contain %s", tt.ratio, desc, tt.want)
		}
	}
}

func TestShutdownTracing(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	if err := ShutdownTracing(context.Background(), tp, NewLogger(InfoLevel, &bytes.Buffer{})); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestEnrich_TraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	t.Run("no span", func(t *testing.T) {
		if Enrich(context.Background(), logger) != logger {
			t.Error("Expected logger unchanged without a span")
		}
	})

	t.Run("recording span", func(t *testing.T) {
		recorder := tracetest.NewSpanRecorder()
		tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
		defer tp.Shutdown(context.Background())

		ctx, span := tp.Tracer(TracerName).Start(context.Background(), "accountview.Build")
		defer span.End()

		buf.Reset()
		Enrich(ctx, logger).Info("traced")

		entry := logLine(t, &buf)
		if entry["trace_id"] != span.SpanContext().TraceID().String() {
			t.Errorf("Expected trace_id in log entry, got %v", entry)
		}
		if entry["span_id"] == nil {
			t.Error("Expected span_id in log entry")
		}
	})
}
