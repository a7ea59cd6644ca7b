package proximity

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/geoatlas/internal/cache"
	"github.com/smallbiznis/geoatlas/internal/clock"
	"github.com/smallbiznis/geoatlas/internal/config"
	"github.com/smallbiznis/geoatlas/internal/proximity/domain"
	"github.com/smallbiznis/geoatlas/internal/proximity/repository"
	"github.com/smallbiznis/geoatlas/internal/proximity/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("proximity.service",
	fx.Provide(repository.Provide),
	fx.Provide(provideResultCache),
	fx.Provide(service.NewService),
)

// provideResultCache prefers redis when configured so replicas share hits.
// A zero TTL disables caching.
func provideResultCache(cfg config.Config, client *redis.Client, log *zap.Logger) domain.ResultCache {
	if cfg.Proximity.CacheTTL <= 0 {
		log.Info("proximity cache disabled")
		return nil
	}
	if client != nil {
		return cache.NewRedis[domain.Response](client, cache.DefaultKeyPrefix)
	}
	return cache.NewMemory[domain.Response](clock.Real(), cache.DefaultMaxEntries)
}
