package repository

import (
	"context"

	"github.com/smallbiznis/geoatlas/internal/geo"
	placedomain "github.com/smallbiznis/geoatlas/internal/place/domain"
	"github.com/smallbiznis/geoatlas/internal/proximity/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Geonames(ctx context.Context, db *gorm.DB, box geo.Box) ([]placedomain.Geoname, error) {
	return withinBox[placedomain.Geoname](ctx, db, box)
}

func (r *repo) HeritageSites(ctx context.Context, db *gorm.DB, box geo.Box) ([]placedomain.HeritageSite, error) {
	return withinBox[placedomain.HeritageSite](ctx, db, box)
}

func withinBox[T any](ctx context.Context, db *gorm.DB, box geo.Box) ([]T, error) {
	var items []T
	err := db.WithContext(ctx).
		Scopes(BoxScope(box)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// BoxScope restricts latitude/longitude columns to box, splitting the
// longitude range when it crosses the antimeridian.
func BoxScope(box geo.Box) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		tx = tx.Where("latitude BETWEEN ? AND ?", box.MinLat, box.MaxLat)
		switch {
		case box.FullLongitude():
			return tx
		case box.WrapsLongitude():
			return tx.Where("(longitude >= ? OR longitude <= ?)", box.MinLon, box.MaxLon)
		default:
			return tx.Where("longitude BETWEEN ? AND ?", box.MinLon, box.MaxLon)
		}
	}
}
