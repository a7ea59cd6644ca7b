package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTableLockerSerializesSameTable(t *testing.T) {
	l := NewTableLocker(nil, 0, nil, zap.NewNop())

	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Lock(context.Background(), "postal_localities")
			require.NoError(t, err)
			n := atomic.AddInt32(&active, 1)
			for {
				m := atomic.LoadInt32(&maxActive)
				if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			release()
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, maxActive)
}

func TestTableLockerIndependentTables(t *testing.T) {
	l := NewTableLocker(nil, 0, nil, zap.NewNop())

	releaseA, err := l.Lock(context.Background(), "geonames")
	require.NoError(t, err)
	defer releaseA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	releaseB, err := l.Lock(ctx, "heritage_sites")
	require.NoError(t, err)
	releaseB()
}

func TestTableLockerHonoursCancellation(t *testing.T) {
	l := NewTableLocker(nil, 0, nil, zap.NewNop())

	release, err := l.Lock(context.Background(), "geonames")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "geonames")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	release2, err := l.Lock(ctx2, "geonames")
	require.NoError(t, err)
	release2()
}

func TestRedisLockerNil(t *testing.T) {
	var l *RedisLocker
	_, _, err := l.TryLock(context.Background(), "k", time.Second)
	assert.ErrorIs(t, err, ErrLockNotConfigured)
	assert.NoError(t, l.Release(context.Background(), "k", "t"))
	assert.Nil(t, NewRedisLocker(nil))
}

// expiringRemote emulates a redis lock whose key expires unless extended.
type expiringRemote struct {
	mu       sync.Mutex
	token    string
	expires  time.Time
	extends  int
	loseNext bool
}

func (r *expiringRemote) TryLock(_ context.Context, _ string, ttl time.Duration) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.token != "" && time.Now().Before(r.expires) {
		return "", false, nil
	}
	r.token = time.Now().String()
	r.expires = time.Now().Add(ttl)
	return r.token, true, nil
}

func (r *expiringRemote) Extend(_ context.Context, _ string, token string, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loseNext {
		r.token = ""
		return false, nil
	}
	if token != r.token || time.Now().After(r.expires) {
		return false, nil
	}
	r.extends++
	r.expires = time.Now().Add(ttl)
	return true, nil
}

func (r *expiringRemote) Release(_ context.Context, _ string, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token == r.token {
		r.token = ""
	}
	return nil
}

func (r *expiringRemote) snapshot() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.extends, r.token != "" && time.Now().Before(r.expires)
}

func TestTableLockerKeepsRedisLockAlive(t *testing.T) {
	remote := &expiringRemote{}
	ttl := 60 * time.Millisecond
	l := newTableLocker(remote, ttl, nil, zap.NewNop())

	release, err := l.Lock(context.Background(), "geonames")
	require.NoError(t, err)

	time.Sleep(4 * ttl)
	extends, held := remote.snapshot()
	assert.True(t, held, "lock expired while held")
	assert.GreaterOrEqual(t, extends, 3)

	release()
	after, held := remote.snapshot()
	assert.False(t, held)
	time.Sleep(ttl)
	final, _ := remote.snapshot()
	assert.Equal(t, after, final, "extended after release")
}

func TestTableLockerStopsExtendingLostLock(t *testing.T) {
	remote := &expiringRemote{loseNext: true}
	ttl := 30 * time.Millisecond
	l := newTableLocker(remote, ttl, nil, zap.NewNop())

	release, err := l.Lock(context.Background(), "geonames")
	require.NoError(t, err)
	time.Sleep(3 * ttl)

	extends, held := remote.snapshot()
	assert.Zero(t, extends)
	assert.False(t, held)
	release()
}
