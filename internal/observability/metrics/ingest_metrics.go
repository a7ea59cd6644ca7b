package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	CommitReasonDeadlineExceeded     = "deadline_exceeded"
	CommitReasonDBLockTimeout        = "db_lock_timeout"
	CommitReasonSerializationFailure = "serialization_failure"
	CommitReasonUniqueViolation      = "unique_violation"
	CommitReasonUnknown              = "unknown"
)

const (
	LockScopeLocal = "local"
	LockScopeRedis = "redis"
)

// IngestMetrics captures chunk commit health for the ingestion pipeline.
// They are scraped from /metrics alongside the gorm pool metrics.
type IngestMetrics struct {
	chunkDuration  *prometheus.HistogramVec
	chunkRows      *prometheus.HistogramVec
	chunkFallbacks *prometheus.CounterVec
	lockWait       *prometheus.HistogramVec
}

var (
	ingestMetricsOnce sync.Once
	ingestMetrics     *IngestMetrics
)

// Ingest returns the singleton ingest metrics registry.
func Ingest() *IngestMetrics {
	return IngestWithConfig(Config{})
}

// IngestWithConfig returns the singleton ingest metrics registry using config labels.
func IngestWithConfig(cfg Config) *IngestMetrics {
	ingestMetricsOnce.Do(func() {
		ingestMetrics = newIngestMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return ingestMetrics
}

func newIngestMetrics(registerer prometheus.Registerer, cfg Config) *IngestMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "geoatlas"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	chunkDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "geoatlas_ingest_chunk_commit_seconds",
		Help:        "Chunk transaction latency by target table.",
		Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		ConstLabels: constLabels,
	}, []string{"table"})
	chunkRows := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "geoatlas_ingest_chunk_rows",
		Help:        "Rows written per committed chunk.",
		Buckets:     []float64{1, 10, 50, 100, 250, 500, 1000, 5000},
		ConstLabels: constLabels,
	}, []string{"table"})
	chunkFallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "geoatlas_ingest_chunk_fallbacks_total",
		Help:        "Chunks replayed row by row after a failed batch insert.",
		ConstLabels: constLabels,
	}, []string{"table", "reason"})
	lockWait := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "geoatlas_ingest_table_lock_wait_seconds",
		Help:        "Time spent waiting for the per-table write lock.",
		Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		ConstLabels: constLabels,
	}, []string{"table", "scope"})

	registerer.MustRegister(chunkDuration, chunkRows, chunkFallbacks, lockWait)

	return &IngestMetrics{
		chunkDuration:  chunkDuration,
		chunkRows:      chunkRows,
		chunkFallbacks: chunkFallbacks,
		lockWait:       lockWait,
	}
}

// ObserveChunkCommit records a committed chunk.
func (m *IngestMetrics) ObserveChunkCommit(table string, rows int, duration time.Duration) {
	if m == nil {
		return
	}
	m.chunkDuration.WithLabelValues(table).Observe(duration.Seconds())
	m.chunkRows.WithLabelValues(table).Observe(float64(rows))
}

// IncChunkFallback counts a chunk that fell back to row-by-row inserts.
func (m *IngestMetrics) IncChunkFallback(table string, err error) {
	if m == nil || err == nil {
		return
	}
	m.chunkFallbacks.WithLabelValues(table, ClassifyCommitReason(err)).Inc()
}

// ObserveLockWait records time spent acquiring a table lock.
func (m *IngestMetrics) ObserveLockWait(table, scope string, duration time.Duration) {
	if m == nil {
		return
	}
	if duration < 0 {
		duration = 0
	}
	m.lockWait.WithLabelValues(table, scope).Observe(duration.Seconds())
}

// ClassifyCommitReason maps a chunk failure to a low-cardinality reason.
func ClassifyCommitReason(err error) string {
	if err == nil {
		return CommitReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CommitReasonDeadlineExceeded
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return CommitReasonUniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03":
			return CommitReasonDBLockTimeout
		case "40001":
			return CommitReasonSerializationFailure
		case "23505":
			return CommitReasonUniqueViolation
		}
	}
	return CommitReasonUnknown
}
