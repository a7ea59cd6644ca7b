package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("category", "geonames"),
		attribute.Float64("latitude", -22.27),
		attribute.String("outcome", "imported"),
	)
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("category"), attrs[0].Key)
	assert.Equal(t, attribute.Key("outcome"), attrs[1].Key)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordIngestRows(ctx, "geonames", "imported", 10)
	m.RecordIngestFile(ctx, "geonames", "completed")
	m.RecordProximityQuery(ctx, "ok", 3)
	m.RecordCacheLookup(ctx, "hit")
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	require.NoError(t, err)
	m.RecordIngestRows(context.Background(), "postal", "duplicate", 2)
}

func TestRecordIngestRowsAccumulates(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := New(Config{ServiceName: "geoatlas"}, provider)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordIngestRows(ctx, "geonames", "imported", 7)
	m.RecordIngestRows(ctx, "geonames", "imported", 3)
	m.RecordIngestRows(ctx, "geonames", "malformed", 0)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	var total int64
	for _, scope := range rm.ScopeMetrics {
		for _, md := range scope.Metrics {
			if md.Name != "geoatlas_ingest_rows_total" {
				continue
			}
			sum, ok := md.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			require.Len(t, sum.DataPoints, 1)
			total = sum.DataPoints[0].Value
		}
	}
	assert.EqualValues(t, 10, total)
}
