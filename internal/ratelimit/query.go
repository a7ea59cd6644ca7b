package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/geoatlas/internal/config"
)

const keyQueryClient = "geoatlas:ratelimit:query:%s"

// QueryLimiter throttles read API calls per client across replicas.
type QueryLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

// NewQueryLimiter returns nil when redis or the rate is not configured.
func NewQueryLimiter(cfg config.Config, client *redis.Client) *QueryLimiter {
	if client == nil || cfg.RateLimit.RPS <= 0 {
		return nil
	}
	burst := cfg.RateLimit.Burst
	if burst <= 0 {
		burst = int(cfg.RateLimit.RPS)
		if burst < 1 {
			burst = 1
		}
	}
	return &QueryLimiter{
		bucket: NewTokenBucket(client),
		rate:   cfg.RateLimit.RPS,
		burst:  burst,
	}
}

func (l *QueryLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *QueryLimiter) Allow(ctx context.Context, clientID string) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyQueryClient, strings.TrimSpace(clientID)), l.rate, l.burst)
}
