package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/smallbiznis/geoatlas/internal/config"
	"github.com/smallbiznis/geoatlas/internal/geo"
	placedomain "github.com/smallbiznis/geoatlas/internal/place/domain"
	"github.com/smallbiznis/geoatlas/internal/projection/domain"
	"github.com/smallbiznis/geoatlas/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultNearbyCitiesLimit = 10
	MaxNearbyCitiesLimit     = 100
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Config config.Config
	Codes  *config.FeatureCodesHolder
	Repo   domain.Repository
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	codes         *config.FeatureCodesHolder
	repo          domain.Repository
	minPopulation int64
}

func NewService(p Params) domain.Service {
	minPopulation := p.Config.MajorCityMinPopulation
	if minPopulation <= 0 {
		minPopulation = config.DefaultMajorCityMinPopulation
	}
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("projection.service"),
		codes:         p.Codes,
		repo:          p.Repo,
		minPopulation: minPopulation,
	}
}

// MajorTouristSites unions populated tourist-coded geonames with every
// heritage site. Heritage sites report population 0, so they sort last.
func (s *Service) MajorTouristSites(ctx context.Context, req domain.TouristSitesRequest) (domain.Response, error) {
	country, err := normalizeCountry(req.Country)
	if err != nil {
		return domain.Response{}, err
	}
	if req.Limit < 0 {
		return domain.Response{}, domain.ErrInvalidLimit
	}

	filter := domain.Filter{
		FeatureCodes:  s.codes.Get().TouristCodes,
		Country:       country,
		MinPopulation: 1,
		Limit:         req.Limit,
	}
	geonames, err := s.repo.PopulatedGeonames(ctx, s.db, filter)
	if err != nil {
		return domain.Response{}, db.Classify(err)
	}
	heritage, err := s.repo.HeritageSites(ctx, s.db, filter)
	if err != nil {
		return domain.Response{}, db.Classify(err)
	}

	results := make([]placedomain.POI, 0, len(geonames)+len(heritage))
	for _, g := range geonames {
		results = append(results, g.POI())
	}
	for _, h := range heritage {
		results = append(results, h.POI())
	}
	sortByPopulation(results)
	if req.Limit > 0 && len(results) > req.Limit {
		results = results[:req.Limit]
	}
	return domain.Response{Results: results}, nil
}

func (s *Service) MajorCities(ctx context.Context, req domain.CitiesRequest) (domain.Response, error) {
	country, err := normalizeCountry(req.Country)
	if err != nil {
		return domain.Response{}, err
	}
	if req.Limit < 0 {
		return domain.Response{}, domain.ErrInvalidLimit
	}

	codes := s.codes.Get()
	minPopulation := s.minPopulation
	if codes.MinPopulation > 0 {
		minPopulation = codes.MinPopulation
	}
	if req.MinPopulation != nil {
		if *req.MinPopulation < 0 {
			return domain.Response{}, domain.ErrInvalidMinPopulation
		}
		minPopulation = *req.MinPopulation
	}

	geonames, err := s.repo.PopulatedGeonames(ctx, s.db, domain.Filter{
		FeatureCodes:  codes.CityCodes,
		Country:       country,
		MinPopulation: minPopulation,
		Limit:         req.Limit,
	})
	if err != nil {
		return domain.Response{}, db.Classify(err)
	}

	results := make([]placedomain.POI, 0, len(geonames))
	for _, g := range geonames {
		results = append(results, g.POI())
	}
	return domain.Response{Results: results}, nil
}

// NearbyMajorCities ranks populated places within the radius by
// population*1000/(distance_km+1), so a large city a little further out
// outranks a hamlet next door. Ties fall back to distance, then id.
func (s *Service) NearbyMajorCities(ctx context.Context, req domain.NearbyCitiesRequest) (domain.Response, error) {
	if err := req.Center.Validate(); err != nil {
		return domain.Response{}, fmt.Errorf("%w: %w", domain.ErrInvalidCenter, err)
	}
	if math.IsNaN(req.RadiusKm) || math.IsInf(req.RadiusKm, 0) || req.RadiusKm < 0 {
		return domain.Response{}, domain.ErrInvalidRadius
	}
	limit := req.Limit
	switch {
	case limit < 0:
		return domain.Response{}, domain.ErrInvalidLimit
	case limit == 0:
		limit = DefaultNearbyCitiesLimit
	case limit > MaxNearbyCitiesLimit:
		limit = MaxNearbyCitiesLimit
	}

	box := geo.BoundingBox(req.Center, req.RadiusKm)
	places, err := s.repo.PopulatedPlacesInBox(ctx, s.db, box, placedomain.FeatureClassPopulated)
	if err != nil {
		return domain.Response{}, db.Classify(err)
	}

	type ranked struct {
		poi   placedomain.POI
		score float64
	}
	candidates := make([]ranked, 0, len(places))
	for _, g := range places {
		d := geo.Haversine(req.Center.Latitude, req.Center.Longitude, g.Latitude, g.Longitude)
		if d > req.RadiusKm {
			continue
		}
		poi := g.POI()
		poi.DistanceKm = &d
		candidates = append(candidates, ranked{poi: poi, score: float64(g.Population) * 1000 / (d + 1)})
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if *a.poi.DistanceKm != *b.poi.DistanceKm {
			return *a.poi.DistanceKm < *b.poi.DistanceKm
		}
		return a.poi.ID < b.poi.ID
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	results := make([]placedomain.POI, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, c.poi)
	}
	return domain.Response{Results: results}, nil
}

func sortByPopulation(results []placedomain.POI) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Population != b.Population {
			return a.Population > b.Population
		}
		if a.Category.Rank() != b.Category.Rank() {
			return a.Category.Rank() < b.Category.Rank()
		}
		return a.ID < b.ID
	})
}

func normalizeCountry(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	code, ok := placedomain.NormalizeCountry(raw)
	if !ok {
		return "", domain.ErrInvalidCountry
	}
	return code, nil
}
