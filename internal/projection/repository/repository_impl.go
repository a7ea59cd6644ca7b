package repository

import (
	"context"

	"github.com/smallbiznis/geoatlas/internal/geo"
	placedomain "github.com/smallbiznis/geoatlas/internal/place/domain"
	"github.com/smallbiznis/geoatlas/internal/projection/domain"
	proximityrepository "github.com/smallbiznis/geoatlas/internal/proximity/repository"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) PopulatedGeonames(ctx context.Context, db *gorm.DB, f domain.Filter) ([]placedomain.Geoname, error) {
	var items []placedomain.Geoname
	query := db.WithContext(ctx).
		Scopes(filterScope(f)).
		Where("population >= ?", f.MinPopulation).
		Order("population desc").
		Order("id asc")
	if len(f.FeatureCodes) > 0 {
		query = query.Where("feature_code IN ?", f.FeatureCodes)
	}
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) HeritageSites(ctx context.Context, db *gorm.DB, f domain.Filter) ([]placedomain.HeritageSite, error) {
	var items []placedomain.HeritageSite
	err := db.WithContext(ctx).
		Scopes(filterScope(f)).
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) PopulatedPlacesInBox(ctx context.Context, db *gorm.DB, box geo.Box, featureClass string) ([]placedomain.Geoname, error) {
	var items []placedomain.Geoname
	err := db.WithContext(ctx).
		Scopes(proximityrepository.BoxScope(box)).
		Where("feature_class = ?", featureClass).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func filterScope(f domain.Filter) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if f.Country != "" {
			tx = tx.Where("country_code = ?", f.Country)
		}
		if f.Limit > 0 {
			tx = tx.Limit(f.Limit)
		}
		return tx
	}
}
