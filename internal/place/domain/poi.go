package domain

import (
	"strings"

	"github.com/bwmarrin/snowflake"
)

// POI is the flat record every read path returns, tagged by origin category.
type POI struct {
	Category           Category     `json:"category"`
	ID                 snowflake.ID `json:"id"`
	SourceID           int64        `json:"source_id,omitempty"`
	Name               string       `json:"name"`
	ASCIIName          string       `json:"ascii_name,omitempty"`
	Latitude           float64      `json:"latitude"`
	Longitude          float64      `json:"longitude"`
	CountryCode        string       `json:"country_code"`
	FeatureClass       string       `json:"feature_class,omitempty"`
	FeatureCode        string       `json:"feature_code,omitempty"`
	FeatureDescription string       `json:"feature_description,omitempty"`
	CityType           string       `json:"city_type,omitempty"`
	Population         int64        `json:"population"`
	DistanceKm         *float64     `json:"distance_km,omitempty"`
}

// POI labels populated places (class P) with their city type.
func (g Geoname) POI() POI {
	poi := POI{
		Category:           CategoryGeonames,
		ID:                 g.ID,
		SourceID:           g.SourceID,
		Name:               g.Name,
		ASCIIName:          g.ASCIIName,
		Latitude:           g.Latitude,
		Longitude:          g.Longitude,
		CountryCode:        g.CountryCode,
		FeatureClass:       g.FeatureClass,
		FeatureCode:        g.FeatureCode,
		FeatureDescription: DescribeFeature(g.FeatureClass, g.FeatureCode),
		Population:         g.Population,
	}
	if strings.EqualFold(g.FeatureClass, FeatureClassPopulated) {
		poi.CityType = CityType(g.FeatureCode)
	}
	return poi
}

// POI reports heritage sites with population 0.
func (h HeritageSite) POI() POI {
	return POI{
		Category:           CategoryHeritage,
		ID:                 h.ID,
		SourceID:           h.SourceID,
		Name:               h.Name,
		ASCIIName:          h.ASCIIName,
		Latitude:           h.Latitude,
		Longitude:          h.Longitude,
		CountryCode:        h.CountryCode,
		FeatureClass:       h.FeatureClass,
		FeatureCode:        h.FeatureCode,
		FeatureDescription: DescribeFeature(h.FeatureClass, h.FeatureCode),
	}
}

func (c CulturalSite) POI() POI {
	return POI{
		Category:           CategoryCultural,
		ID:                 c.ID,
		SourceID:           c.SourceID,
		Name:               c.Name,
		ASCIIName:          c.ASCIIName,
		Latitude:           c.Latitude,
		Longitude:          c.Longitude,
		CountryCode:        c.CountryCode,
		FeatureClass:       c.FeatureClass,
		FeatureCode:        c.FeatureCode,
		FeatureDescription: DescribeFeature(c.FeatureClass, c.FeatureCode),
		Population:         c.Population,
	}
}

func (p PostalLocality) POI() POI {
	return POI{
		Category:    CategoryPostal,
		ID:          p.ID,
		Name:        p.PlaceName,
		Latitude:    p.Latitude,
		Longitude:   p.Longitude,
		CountryCode: p.CountryCode,
	}
}
