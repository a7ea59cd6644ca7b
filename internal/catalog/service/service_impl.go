package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/geoatlas/internal/catalog/domain"
	placedomain "github.com/smallbiznis/geoatlas/internal/place/domain"
	"github.com/smallbiznis/geoatlas/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("catalog.service"),
		repo: p.Repo,
	}
}

func (s *Service) CulturalSites(ctx context.Context, req domain.CulturalSitesRequest) (domain.CulturalSitesResponse, error) {
	var country string
	if strings.TrimSpace(req.Country) != "" {
		code, ok := placedomain.NormalizeCountry(req.Country)
		if !ok {
			return domain.CulturalSitesResponse{}, domain.ErrInvalidCountry
		}
		country = code
	}

	limit := req.Limit
	switch {
	case limit < 0:
		return domain.CulturalSitesResponse{}, domain.ErrInvalidLimit
	case limit == 0:
		limit = defaultLimit
	case limit > maxLimit:
		limit = maxLimit
	}

	siteType := strings.ToLower(strings.TrimSpace(req.SiteType))
	items, err := s.repo.CulturalSites(ctx, s.db, country, siteType, limit)
	if err != nil {
		return domain.CulturalSitesResponse{}, db.Classify(err)
	}
	if items == nil {
		items = []placedomain.CulturalSite{}
	}
	return domain.CulturalSitesResponse{Results: items}, nil
}

// PostalLookup returns every place sharing the postal code, by place name.
func (s *Service) PostalLookup(ctx context.Context, req domain.PostalLookupRequest) (domain.PostalLookupResponse, error) {
	country, ok := placedomain.NormalizeCountry(req.Country)
	if !ok {
		return domain.PostalLookupResponse{}, domain.ErrInvalidCountry
	}
	code := strings.TrimSpace(req.PostalCode)
	if code == "" || len(code) > 20 {
		return domain.PostalLookupResponse{}, domain.ErrInvalidPostalCode
	}

	items, err := s.repo.PostalLocalities(ctx, s.db, country, code)
	if err != nil {
		return domain.PostalLookupResponse{}, db.Classify(err)
	}
	if items == nil {
		items = []placedomain.PostalLocality{}
	}
	return domain.PostalLookupResponse{Country: country, PostalCode: code, Results: items}, nil
}
