package repository

import (
	"context"

	"github.com/smallbiznis/geoatlas/internal/catalog/domain"
	placedomain "github.com/smallbiznis/geoatlas/internal/place/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) CulturalSites(ctx context.Context, db *gorm.DB, country, siteType string, limit int) ([]placedomain.CulturalSite, error) {
	var items []placedomain.CulturalSite
	query := db.WithContext(ctx).Model(&placedomain.CulturalSite{})
	if country != "" {
		query = query.Where("country_code = ?", country)
	}
	if siteType != "" {
		query = query.Where("site_type = ?", siteType)
	}
	err := query.
		Order("name asc").
		Order("id asc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) PostalLocalities(ctx context.Context, db *gorm.DB, country, postalCode string) ([]placedomain.PostalLocality, error) {
	var items []placedomain.PostalLocality
	err := db.WithContext(ctx).
		Where("country_code = ? AND postal_code = ?", country, postalCode).
		Order("place_name asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
