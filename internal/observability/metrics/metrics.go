package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	ingestRows      metric.Int64Counter
	ingestFiles     metric.Int64Counter
	proximityQuery  metric.Int64Counter
	queryCache      metric.Int64Counter
	proximityResult metric.Int64Histogram
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the ingestion and query instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "geoatlas"
	}
	meter := provider.Meter(name)

	ingestRows, err := meter.Int64Counter("geoatlas_ingest_rows_total",
		metric.WithDescription("Source rows by category and outcome."))
	if err != nil {
		return nil, err
	}
	ingestFiles, err := meter.Int64Counter("geoatlas_ingest_files_total",
		metric.WithDescription("Source files by category and ledger status."))
	if err != nil {
		return nil, err
	}
	proximityQuery, err := meter.Int64Counter("geoatlas_proximity_queries_total")
	if err != nil {
		return nil, err
	}
	queryCache, err := meter.Int64Counter("geoatlas_query_cache_total")
	if err != nil {
		return nil, err
	}
	proximityResult, err := meter.Int64Histogram("geoatlas_proximity_result_size",
		metric.WithExplicitBucketBoundaries(0, 1, 5, 10, 50, 100, 500, 1000))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		ingestRows:      ingestRows,
		ingestFiles:     ingestFiles,
		proximityQuery:  proximityQuery,
		queryCache:      queryCache,
		proximityResult: proximityResult,
	}, nil
}

// RecordIngestRows adds n rows for category under outcome (imported or a skip reason).
func (m *Metrics) RecordIngestRows(ctx context.Context, category, outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	attrs := FilterAttributes(
		attribute.String("category", strings.TrimSpace(category)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.ingestRows.Add(ctx, int64(n), metric.WithAttributes(attrs...))
}

// RecordIngestFile counts one processed source file.
func (m *Metrics) RecordIngestFile(ctx context.Context, category, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("category", strings.TrimSpace(category)),
		attribute.String("status", strings.TrimSpace(status)),
	)
	m.ingestFiles.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordProximityQuery counts a proximity query and, on success, its result size.
func (m *Metrics) RecordProximityQuery(ctx context.Context, status string, results int) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("status", strings.TrimSpace(status)))
	m.proximityQuery.Add(ctx, 1, metric.WithAttributes(attrs...))
	if status == "ok" {
		m.proximityResult.Record(ctx, int64(results))
	}
}

// RecordCacheLookup counts a result cache hit or miss.
func (m *Metrics) RecordCacheLookup(ctx context.Context, result string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("result", strings.TrimSpace(result)))
	m.queryCache.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"category":    {},
	"outcome":     {},
	"status":      {},
	"result":      {},
	"route":       {},
	"method":      {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
// Coordinates and names never become labels.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
