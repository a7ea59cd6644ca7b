package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
)

func TestClassifyCommitReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: CommitReasonDeadlineExceeded},
		{name: "db_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: CommitReasonDBLockTimeout},
		{name: "serialization_failure", err: &pgconn.PgError{Code: "40001"}, want: CommitReasonSerializationFailure},
		{name: "unique_violation", err: gorm.ErrDuplicatedKey, want: CommitReasonUniqueViolation},
		{name: "unknown", err: errors.New("boom"), want: CommitReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyCommitReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestIngestMetricsRecords(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newIngestMetrics(registry, Config{ServiceName: "geoatlas", Environment: "test"})

	m.IncChunkFallback("geonames", errors.New("constraint"))
	m.IncChunkFallback("geonames", errors.New("constraint"))
	m.IncChunkFallback("geonames", nil)
	m.ObserveChunkCommit("geonames", 1000, 20*time.Millisecond)
	m.ObserveLockWait("postal_localities", LockScopeLocal, -time.Second)

	if got := testutil.ToFloat64(m.chunkFallbacks.WithLabelValues("geonames", CommitReasonUnknown)); got != 2 {
		t.Fatalf("expected 2 fallbacks, got %v", got)
	}
	if got := testutil.CollectAndCount(m.chunkDuration); got != 1 {
		t.Fatalf("expected 1 commit series, got %d", got)
	}
	if got := testutil.CollectAndCount(m.lockWait); got != 1 {
		t.Fatalf("expected 1 lock wait series, got %d", got)
	}
}

func TestNilIngestMetricsAreSafe(t *testing.T) {
	var m *IngestMetrics
	m.ObserveChunkCommit("geonames", 1, time.Second)
	m.IncChunkFallback("geonames", errors.New("x"))
	m.ObserveLockWait("geonames", LockScopeRedis, time.Second)
}
