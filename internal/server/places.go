package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/smallbiznis/geoatlas/internal/catalog/domain"
	"github.com/smallbiznis/geoatlas/internal/geo"
	obslogger "github.com/smallbiznis/geoatlas/internal/observability/logger"
	projectiondomain "github.com/smallbiznis/geoatlas/internal/projection/domain"
	proximitydomain "github.com/smallbiznis/geoatlas/internal/proximity/domain"
)

func (s *Server) Nearby(c *gin.Context) {
	lat, err := parseRequiredFloat(c.Query("lat"))
	if err != nil {
		AbortWithError(c, newValidationError("lat", "invalid_lat", "lat must be a finite number"))
		return
	}
	lon, err := parseRequiredFloat(c.Query("lon"))
	if err != nil {
		AbortWithError(c, newValidationError("lon", "invalid_lon", "lon must be a finite number"))
		return
	}
	radius, err := parseRequiredFloat(c.Query("radius_km"))
	if err != nil {
		AbortWithError(c, newValidationError("radius_km", "invalid_radius_km", "radius_km must be a finite number"))
		return
	}
	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be an integer"))
		return
	}

	resp, err := s.proximitySvc.Nearby(c.Request.Context(), proximitydomain.Request{
		Center:   geo.Coordinate{Latitude: lat, Longitude: lon},
		RadiusKm: radius,
		Limit:    limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set(obslogger.ResultCountKey, len(resp.Results))
	c.Set(obslogger.CacheHitKey, resp.Cached)
	c.JSON(http.StatusOK, resp)
}

func (s *Server) MajorCities(c *gin.Context) {
	minPopulation, err := parseOptionalInt64(c.Query("min_population"))
	if err != nil {
		AbortWithError(c, newValidationError("min_population", "invalid_min_population", "min_population must be an integer"))
		return
	}
	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be an integer"))
		return
	}

	resp, err := s.projectionSvc.MajorCities(c.Request.Context(), projectiondomain.CitiesRequest{
		Country:       c.Query("country"),
		MinPopulation: minPopulation,
		Limit:         limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set(obslogger.ResultCountKey, len(resp.Results))
	c.JSON(http.StatusOK, resp)
}

func (s *Server) NearbyMajorCities(c *gin.Context) {
	lat, err := parseRequiredFloat(c.Query("lat"))
	if err != nil {
		AbortWithError(c, newValidationError("lat", "invalid_lat", "lat must be a finite number"))
		return
	}
	lon, err := parseRequiredFloat(c.Query("lon"))
	if err != nil {
		AbortWithError(c, newValidationError("lon", "invalid_lon", "lon must be a finite number"))
		return
	}
	radius, err := parseRequiredFloat(c.Query("radius_km"))
	if err != nil {
		AbortWithError(c, newValidationError("radius_km", "invalid_radius_km", "radius_km must be a finite number"))
		return
	}
	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be an integer"))
		return
	}

	resp, err := s.projectionSvc.NearbyMajorCities(c.Request.Context(), projectiondomain.NearbyCitiesRequest{
		Center:   geo.Coordinate{Latitude: lat, Longitude: lon},
		RadiusKm: radius,
		Limit:    limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set(obslogger.ResultCountKey, len(resp.Results))
	c.JSON(http.StatusOK, resp)
}

func (s *Server) MajorTouristSites(c *gin.Context) {
	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be an integer"))
		return
	}

	resp, err := s.projectionSvc.MajorTouristSites(c.Request.Context(), projectiondomain.TouristSitesRequest{
		Country: c.Query("country"),
		Limit:   limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set(obslogger.ResultCountKey, len(resp.Results))
	c.JSON(http.StatusOK, resp)
}

func (s *Server) CulturalSites(c *gin.Context) {
	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be an integer"))
		return
	}

	resp, err := s.catalogSvc.CulturalSites(c.Request.Context(), catalogdomain.CulturalSitesRequest{
		Country:  c.Query("country"),
		SiteType: c.Query("site_type"),
		Limit:    limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set(obslogger.ResultCountKey, len(resp.Results))
	c.JSON(http.StatusOK, resp)
}

func (s *Server) PostalLookup(c *gin.Context) {
	resp, err := s.catalogSvc.PostalLookup(c.Request.Context(), catalogdomain.PostalLookupRequest{
		Country:    c.Param("country"),
		PostalCode: c.Param("code"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set(obslogger.ResultCountKey, len(resp.Results))
	c.JSON(http.StatusOK, resp)
}
