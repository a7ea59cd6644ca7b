// Package lock serializes chunk commits into the same table.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/smallbiznis/geoatlas/internal/observability/metrics"
	"go.uber.org/zap"
)

const (
	keyPrefix        = "geoatlas:ingest:lock:"
	defaultTTL       = 30 * time.Second
	minRetryInterval = 10 * time.Millisecond
	maxRetryInterval = 500 * time.Millisecond
)

type remoteLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Extend(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, token string) error
}

// TableLocker hands out exclusive per-table commit locks. The in-process
// mutex is always taken; the redis lock is added when configured and kept
// alive until release, so commits may outlast the ttl.
type TableLocker struct {
	mu     sync.Mutex
	tables map[string]*sync.Mutex

	redis   remoteLocker
	ttl     time.Duration
	metrics *metrics.IngestMetrics
	log     *zap.Logger
}

func NewTableLocker(redis *RedisLocker, ttl time.Duration, m *metrics.IngestMetrics, log *zap.Logger) *TableLocker {
	var remote remoteLocker
	if redis != nil {
		remote = redis
	}
	return newTableLocker(remote, ttl, m, log)
}

func newTableLocker(redis remoteLocker, ttl time.Duration, m *metrics.IngestMetrics, log *zap.Logger) *TableLocker {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &TableLocker{
		tables:  make(map[string]*sync.Mutex),
		redis:   redis,
		ttl:     ttl,
		metrics: m,
		log:     log.Named("lock.table"),
	}
}

func (l *TableLocker) mutex(table string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.tables[table]
	if !ok {
		m = &sync.Mutex{}
		l.tables[table] = m
	}
	return m
}

// Lock blocks until table is free or ctx ends. The returned release must be
// called exactly once.
func (l *TableLocker) Lock(ctx context.Context, table string) (func(), error) {
	start := time.Now()
	m := l.mutex(table)

	acquired := make(chan struct{})
	go func() {
		m.Lock()
		close(acquired)
	}()
	select {
	case <-acquired:
	case <-ctx.Done():
		// Hand the mutex back once the waiter gets it.
		go func() {
			<-acquired
			m.Unlock()
		}()
		return nil, ctx.Err()
	}
	l.metrics.ObserveLockWait(table, metrics.LockScopeLocal, time.Since(start))

	if l.redis == nil {
		return m.Unlock, nil
	}

	redisStart := time.Now()
	key := keyPrefix + table
	token, err := l.acquireRedis(ctx, key)
	if err != nil {
		m.Unlock()
		return nil, err
	}
	l.metrics.ObserveLockWait(table, metrics.LockScopeRedis, time.Since(redisStart))
	stopKeepAlive := l.keepAlive(table, key, token)

	return func() {
		stopKeepAlive()
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := l.redis.Release(releaseCtx, key, token); err != nil {
			l.log.Warn("release redis lock failed", zap.String("table", table), zap.Error(err))
		}
		m.Unlock()
	}, nil
}

func (l *TableLocker) acquireRedis(ctx context.Context, key string) (string, error) {
	wait := minRetryInterval
	for {
		token, ok, err := l.redis.TryLock(ctx, key, l.ttl)
		if err != nil {
			return "", fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			return token, nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
		if wait *= 2; wait > maxRetryInterval {
			wait = maxRetryInterval
		}
	}
}

// keepAlive extends the redis lock every third of its ttl until stopped.
func (l *TableLocker) keepAlive(table, key, token string) func() {
	interval := l.ttl / 3
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
			}
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			ok, err := l.redis.Extend(ctx, key, token, l.ttl)
			cancel()
			switch {
			case err != nil:
				l.log.Warn("extend redis lock failed", zap.String("table", table), zap.Error(err))
			case !ok:
				l.log.Error("redis lock lost while held", zap.String("table", table))
				return
			}
		}
	}()
	return func() {
		close(stop)
		<-done
	}
}
