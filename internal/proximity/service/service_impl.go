package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/geoatlas/internal/config"
	"github.com/smallbiznis/geoatlas/internal/geo"
	"github.com/smallbiznis/geoatlas/internal/observability/logger"
	"github.com/smallbiznis/geoatlas/internal/observability/metrics"
	placedomain "github.com/smallbiznis/geoatlas/internal/place/domain"
	"github.com/smallbiznis/geoatlas/internal/proximity/domain"
	"github.com/smallbiznis/geoatlas/internal/schema"
	"github.com/smallbiznis/geoatlas/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 50
	MaxLimit     = 1000

	cacheKeyPrefix = "nearby"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Config  config.Config
	Repo    domain.Repository
	Cache   domain.ResultCache `optional:"true"`
	Metrics *metrics.Metrics   `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	repo         domain.Repository
	cache        domain.ResultCache
	cacheTTL     time.Duration
	metrics      *metrics.Metrics
	defaultLimit int
	maxLimit     int
}

func NewService(p Params) domain.Service {
	maxLimit := p.Config.Proximity.MaxLimit
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}
	defaultLimit := p.Config.Proximity.DefaultLimit
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("proximity.service"),
		repo:         p.Repo,
		cache:        p.Cache,
		cacheTTL:     p.Config.Proximity.CacheTTL,
		metrics:      p.Metrics,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

// Nearby returns geonames and heritage sites within the radius of the center.
func (s *Service) Nearby(ctx context.Context, req domain.Request) (domain.Response, error) {
	if err := req.Center.Validate(); err != nil {
		s.metrics.RecordProximityQuery(ctx, "invalid", 0)
		return domain.Response{}, fmt.Errorf("%w: %w", domain.ErrInvalidCenter, err)
	}
	limit, err := s.normalizeLimit(req.Limit)
	if err != nil {
		s.metrics.RecordProximityQuery(ctx, "invalid", 0)
		return domain.Response{}, err
	}

	resp := domain.Response{
		Center:   req.Center,
		RadiusKm: req.RadiusKm,
		Limit:    limit,
		Results:  []placedomain.POI{},
	}
	if math.IsNaN(req.RadiusKm) || req.RadiusKm < 0 {
		s.metrics.RecordProximityQuery(ctx, "ok", 0)
		return resp, nil
	}

	log := logger.WithContext(ctx, s.log)
	key, cacheable, err := s.cacheKey(ctx, req.Center, req.RadiusKm, limit)
	if err != nil {
		s.metrics.RecordProximityQuery(ctx, "error", 0)
		return domain.Response{}, err
	}
	if cacheable {
		cached, hit, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			log.Warn("proximity cache read failed", zap.Error(err))
			s.metrics.RecordCacheLookup(ctx, "error")
		case hit:
			s.metrics.RecordCacheLookup(ctx, "hit")
			s.metrics.RecordProximityQuery(ctx, "ok", len(cached.Results))
			cached.Cached = true
			return cached, nil
		default:
			s.metrics.RecordCacheLookup(ctx, "miss")
		}
	}

	results, err := s.search(ctx, req.Center, req.RadiusKm)
	if err != nil {
		s.metrics.RecordProximityQuery(ctx, "error", 0)
		return domain.Response{}, err
	}
	if len(results) > limit {
		results = results[:limit]
	}
	resp.Results = results

	if cacheable {
		if err := s.cache.Set(ctx, key, resp, s.cacheTTL); err != nil {
			log.Warn("proximity cache write failed", zap.Error(err))
		}
	}
	s.metrics.RecordProximityQuery(ctx, "ok", len(results))
	return resp, nil
}

func (s *Service) normalizeLimit(limit int) (int, error) {
	switch {
	case limit < 0:
		return 0, domain.ErrInvalidLimit
	case limit == 0:
		return s.defaultLimit, nil
	case limit > s.maxLimit:
		return s.maxLimit, nil
	}
	return limit, nil
}

func (s *Service) search(ctx context.Context, center geo.Coordinate, radiusKm float64) ([]placedomain.POI, error) {
	box := geo.BoundingBox(center, radiusKm)

	geonames, err := s.repo.Geonames(ctx, s.db, box)
	if err != nil {
		return nil, db.Classify(err)
	}
	heritage, err := s.repo.HeritageSites(ctx, s.db, box)
	if err != nil {
		return nil, db.Classify(err)
	}

	results := make([]placedomain.POI, 0, len(geonames)+len(heritage))
	keep := func(poi placedomain.POI) {
		d := geo.Haversine(center.Latitude, center.Longitude, poi.Latitude, poi.Longitude)
		if d > radiusKm {
			return
		}
		poi.DistanceKm = &d
		results = append(results, poi)
	}
	for _, g := range geonames {
		keep(g.POI())
	}
	for _, h := range heritage {
		keep(h.POI())
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if *a.DistanceKm != *b.DistanceKm {
			return *a.DistanceKm < *b.DistanceKm
		}
		if a.Category.Rank() != b.Category.Rank() {
			return a.Category.Rank() < b.Category.Rank()
		}
		return a.ID < b.ID
	})
	return results, nil
}

// cacheKey folds the generation of the searched tables into the key so any
// committed chunk or reset invalidates earlier entries.
func (s *Service) cacheKey(ctx context.Context, center geo.Coordinate, radiusKm float64, limit int) (string, bool, error) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return "", false, nil
	}
	generation, err := schema.CurrentGeneration(ctx, s.db, string(schema.TableGeonames), string(schema.TableHeritageSites))
	if err != nil {
		if errors.Is(err, db.ErrStorageUnavailable) {
			return "", false, err
		}
		logger.WithContext(ctx, s.log).Warn("cache generation lookup failed", zap.Error(err))
		return "", false, nil
	}
	key := strings.Join([]string{
		cacheKeyPrefix,
		strconv.FormatInt(generation, 10),
		strconv.FormatFloat(center.Latitude, 'g', -1, 64),
		strconv.FormatFloat(center.Longitude, 'g', -1, 64),
		strconv.FormatFloat(radiusKm, 'g', -1, 64),
		strconv.Itoa(limit),
	}, ":")
	return key, true, nil
}
