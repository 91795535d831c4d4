package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSpansReachExporter(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	require.NoError(t, InitWithExporter("settlement-test", "0.0.1", exporter))

	ctx, span := StartSpan(context.Background(), "settlement.confirm_advance", map[string]string{"settlement_id": "s-1"})
	assert.NotEmpty(t, TraceID(ctx))
	EndSpan(span, errors.New("boom"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "settlement.confirm_advance", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
}

func TestEndSpanNil(t *testing.T) {
	EndSpan(nil, nil)
	assert.Empty(t, TraceID(context.Background()))
}
