package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/neardup/pkg/observability"
)

// recordFiltered ends one span with attrs through the filter and returns the
// exported attributes.
func recordFiltered(t *testing.T, logger *slog.Logger, attrs ...attribute.KeyValue) map[string]any {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	filter := observability.NewAttributeFilter(sdktrace.NewSimpleSpanProcessor(exporter), logger)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(filter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	span.SetAttributes(attrs...)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	return spanAttrMap(spans[0])
}

func TestAttributeFilter_AllowsKnownKeys(t *testing.T) {
	t.Parallel()

	attrs := recordFiltered(t, nil,
		attribute.String("error.type", "timeout"),
		attribute.Int("lsh.stages", 30),
		attribute.Int("pipeline.workers", 4),
		attribute.String("neardup.new_attr", "val"),
	)

	assert.Equal(t, "timeout", attrs["error.type"])
	assert.Equal(t, int64(30), attrs["lsh.stages"])
	assert.Equal(t, int64(4), attrs["pipeline.workers"])
	assert.Equal(t, "val", attrs["neardup.new_attr"])
}

func TestAttributeFilter_BlocksContentAndPII(t *testing.T) {
	t.Parallel()

	attrs := recordFiltered(t, nil,
		attribute.String("user.email", "alice@example.com"),
		attribute.String("email", "bob@example.com"),
		attribute.String("document.text", "the quick brown fox"),
		attribute.String("input.record", `{"id":1}`),
		attribute.String("grouping.member", "1"),
		attribute.String("http.method", "GET"),
		attribute.String("error.type", "internal"),
	)

	for _, key := range []string{"user.email", "email", "document.text", "input.record", "grouping.member", "http.method"} {
		assert.NotContains(t, attrs, key)
	}

	assert.Equal(t, "internal", attrs["error.type"])
}

func TestAttributeFilter_WarnsInDevMode(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	recordFiltered(t, logger, attribute.String("user.secret", "val"))

	assert.Contains(t, buf.String(), "user.secret")
	assert.Contains(t, buf.String(), "blocked")
}

// spanAttrMap converts a span's attributes into a map for easy assertion.
func spanAttrMap(s tracetest.SpanStub) map[string]any {
	m := make(map[string]any, len(s.Attributes))
	for _, a := range s.Attributes {
		m[string(a.Key)] = a.Value.AsInterface()
	}

	return m
}
