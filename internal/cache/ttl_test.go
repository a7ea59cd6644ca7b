package cache

import (
	"context"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/smallbiznis/geoatlas/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCacheExpiry(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	c := NewTTLCache[string, int](fake, 0)

	c.Set("a", 1, time.Minute)
	c.Set("ignored", 2, 0)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	_, ok = c.Get("ignored")
	assert.False(t, ok)

	fake.Advance(time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestTTLCacheBounded(t *testing.T) {
	fake := clock.NewFakeClock(time.Now())
	c := NewTTLCache[int, int](fake, 2)

	c.Set(1, 1, time.Second)
	c.Set(2, 2, time.Hour)
	fake.Advance(2 * time.Second)
	c.Set(3, 3, time.Hour)

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get(1)
	assert.False(t, ok, "expired entry is evicted first")
	_, ok = c.Get(3)
	assert.True(t, ok)

	c.Set(4, 4, time.Hour)
	assert.Equal(t, 2, c.Len())
	_, ok = c.Get(4)
	assert.True(t, ok)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory[[]string](nil, 0)

	_, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, "k", []string{"x"}, time.Minute))
	v, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"x"}, v)
}

func TestCodec(t *testing.T) {
	type payload struct {
		Names []string `json:"names"`
		Count int      `json:"count"`
	}
	in := payload{Names: []string{"Nouméa", "Dumbéa"}, Count: 2}

	raw, err := Encode(in)
	require.NoError(t, err)
	out, err := Decode[payload](raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = Decode[payload]([]byte("not snappy"))
	assert.Error(t, err)

	_, err = Decode[payload](snappy.Encode(nil, []byte("{")))
	assert.Error(t, err)
}

func TestNewRedisNilClient(t *testing.T) {
	assert.Nil(t, NewRedis[int](nil, ""))
}
