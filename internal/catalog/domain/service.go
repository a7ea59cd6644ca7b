package domain

import (
	"context"
	"errors"

	placedomain "github.com/smallbiznis/geoatlas/internal/place/domain"
	"gorm.io/gorm"
)

var (
	ErrInvalidCountry    = errors.New("invalid_country")
	ErrInvalidLimit      = errors.New("invalid_limit")
	ErrInvalidPostalCode = errors.New("invalid_postal_code")
)

type CulturalSitesRequest struct {
	Country  string `json:"country,omitempty"`
	SiteType string `json:"site_type,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

type PostalLookupRequest struct {
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
}

type CulturalSitesResponse struct {
	Results []placedomain.CulturalSite `json:"results"`
}

type PostalLookupResponse struct {
	Country    string                       `json:"country"`
	PostalCode string                       `json:"postal_code"`
	Results    []placedomain.PostalLocality `json:"results"`
}

type Service interface {
	CulturalSites(ctx context.Context, req CulturalSitesRequest) (CulturalSitesResponse, error)
	PostalLookup(ctx context.Context, req PostalLookupRequest) (PostalLookupResponse, error)
}

type Repository interface {
	CulturalSites(ctx context.Context, db *gorm.DB, country, siteType string, limit int) ([]placedomain.CulturalSite, error)
	PostalLocalities(ctx context.Context, db *gorm.DB, country, postalCode string) ([]placedomain.PostalLocality, error)
}
