package tracing

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

func TestSafeAttributesDropsPayload(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/v1/nearby"),
		attribute.Float64("latitude", 48.85),
		attribute.String("sql", "SELECT 1"),
	)
	require.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
}

func TestSafeError(t *testing.T) {
	assert.Nil(t, SafeError(nil))
	err := fmt.Errorf("storage_unavailable: %w", errors.New("dial tcp 10.0.0.1:5432"))
	assert.EqualError(t, SafeError(err), "storage_unavailable")
}

func TestNewProviderDisabled(t *testing.T) {
	provider, err := NewProvider(nil, Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, provider)
	assert.Equal(t, 0.5, clampRatio(0.5))
	assert.Equal(t, 1.0, clampRatio(3))
}
