package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewProviderDisabledIsNoop(t *testing.T) {
	tp, err := NewProvider(nil, Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	_, span := tp.Tracer(TracerName).Start(context.Background(), "noop")
	defer span.End()
	assert.False(t, span.SpanContext().IsValid())
}

func TestNewProviderRequiresEndpoint(t *testing.T) {
	_, err := NewProvider(nil, Config{Enabled: true, ExporterEndpoint: " "}, zap.NewNop())
	assert.Error(t, err)
}

func TestNormalizeProtocol(t *testing.T) {
	assert.Equal(t, "http", normalizeProtocol("HTTP/protobuf"))
	assert.Equal(t, "grpc", normalizeProtocol(""))
	assert.Equal(t, "grpc", normalizeProtocol("grpc"))
}

func TestSamplingRatio(t *testing.T) {
	assert.Equal(t, 1.0, samplingRatio(0))
	assert.Equal(t, 1.0, samplingRatio(3))
	assert.Equal(t, 0.25, samplingRatio(0.25))
}
