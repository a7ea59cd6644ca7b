package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/geoatlas/internal/geo"
	placedomain "github.com/smallbiznis/geoatlas/internal/place/domain"
	"gorm.io/gorm"
)

var (
	ErrInvalidCountry       = errors.New("invalid_country")
	ErrInvalidLimit         = errors.New("invalid_limit")
	ErrInvalidMinPopulation = errors.New("invalid_min_population")
	ErrInvalidCenter        = errors.New("invalid_center")
	ErrInvalidRadius        = errors.New("invalid_radius")
)

// TouristSitesRequest filters MajorTouristSites. Empty Country and zero
// Limit mean no filter.
type TouristSitesRequest struct {
	Country string `json:"country,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

// CitiesRequest filters MajorCities. A nil MinPopulation uses the
// configured threshold.
type CitiesRequest struct {
	Country       string `json:"country,omitempty"`
	MinPopulation *int64 `json:"min_population,omitempty"`
	Limit         int    `json:"limit,omitempty"`
}

// NearbyCitiesRequest asks for the most significant populated places around
// Center. Limit 0 selects the default of ten.
type NearbyCitiesRequest struct {
	Center   geo.Coordinate `json:"center"`
	RadiusKm float64        `json:"radius_km"`
	Limit    int            `json:"limit,omitempty"`
}

type Response struct {
	Results []placedomain.POI `json:"results"`
}

type Service interface {
	MajorTouristSites(ctx context.Context, req TouristSitesRequest) (Response, error)
	MajorCities(ctx context.Context, req CitiesRequest) (Response, error)
	NearbyMajorCities(ctx context.Context, req NearbyCitiesRequest) (Response, error)
}

// Filter narrows projection scans. Zero values disable each condition.
type Filter struct {
	FeatureCodes  []string
	Country       string
	MinPopulation int64
	Limit         int
}

type Repository interface {
	// PopulatedGeonames returns geonames with a feature code in
	// FeatureCodes and population >= MinPopulation, ordered by population
	// desc then id.
	PopulatedGeonames(ctx context.Context, db *gorm.DB, f Filter) ([]placedomain.Geoname, error)
	HeritageSites(ctx context.Context, db *gorm.DB, f Filter) ([]placedomain.HeritageSite, error)
	// PopulatedPlacesInBox returns geonames of featureClass inside box.
	PopulatedPlacesInBox(ctx context.Context, db *gorm.DB, box geo.Box, featureClass string) ([]placedomain.Geoname, error)
}
