package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))

	_, span := otel.Tracer("test").Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
}

func TestWithDefaults(t *testing.T) {
	t.Setenv("VERSION", "")
	cfg := withDefaults(Config{Enabled: true})

	assert.Equal(t, DefaultEndpoint, cfg.Endpoint)
	assert.Equal(t, DefaultServiceName, cfg.ServiceName)
	assert.Equal(t, "1.0.0", cfg.ServiceVersion)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 30*time.Second, cfg.ExportInterval)

	cfg = withDefaults(Config{Endpoint: "collector:4317", ServiceName: "svc", Environment: "staging"})
	assert.Equal(t, "collector:4317", cfg.Endpoint)
	assert.Equal(t, "svc", cfg.ServiceName)
	assert.Equal(t, "staging", cfg.Environment)
}
