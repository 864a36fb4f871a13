package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"github.com/waftester/contractfuzz/pkg/config"
	"github.com/waftester/contractfuzz/pkg/defaults"
)

func TestDisabledProviderIsNoop(t *testing.T) {
	tp, shutdown, err := Provider(config.TracingConfig{})
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "case")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, shutdown(context.Background()))
}

func TestResourceNamesService(t *testing.T) {
	t.Parallel()

	attrs := newResource("").Set()
	v, ok := attrs.Value(attribute.Key("service.name"))
	require.True(t, ok)
	assert.Equal(t, defaults.ToolName, v.AsString())

	v, ok = newResource("petstore-fuzz").Set().Value(attribute.Key("service.name"))
	require.True(t, ok)
	assert.Equal(t, "petstore-fuzz", v.AsString())
}
