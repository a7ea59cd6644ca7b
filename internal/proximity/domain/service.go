package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/geoatlas/internal/geo"
	placedomain "github.com/smallbiznis/geoatlas/internal/place/domain"
	"gorm.io/gorm"
)

var (
	ErrInvalidCenter = errors.New("invalid_center")
	ErrInvalidLimit  = errors.New("invalid_limit")
)

// Request asks for points within RadiusKm of Center. Limit 0 selects the
// configured default.
type Request struct {
	Center   geo.Coordinate `json:"center"`
	RadiusKm float64        `json:"radius_km"`
	Limit    int            `json:"limit"`
}

// Response lists results ordered by distance, category rank and id.
type Response struct {
	Center   geo.Coordinate    `json:"center"`
	RadiusKm float64           `json:"radius_km"`
	Limit    int               `json:"limit"`
	Results  []placedomain.POI `json:"results"`
	Cached   bool              `json:"cached"`
}

type Service interface {
	Nearby(ctx context.Context, req Request) (Response, error)
}

// Repository loads prefilter candidates inside a bounding box.
type Repository interface {
	Geonames(ctx context.Context, db *gorm.DB, box geo.Box) ([]placedomain.Geoname, error)
	HeritageSites(ctx context.Context, db *gorm.DB, box geo.Box) ([]placedomain.HeritageSite, error)
}

// ResultCache stores whole responses keyed by request and data generation.
type ResultCache interface {
	Get(ctx context.Context, key string) (Response, bool, error)
	Set(ctx context.Context, key string, value Response, ttl time.Duration) error
}
