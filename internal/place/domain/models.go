// Package domain contains persistence models for every point category.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// SpatialPoint is the column set shared by all point categories.
type SpatialPoint struct {
	ID               snowflake.ID                `gorm:"primaryKey;autoIncrement:false" json:"id"`
	SourceID         int64                       `gorm:"not null;default:0;index" json:"source_id"`
	Name             string                      `gorm:"type:varchar(200);not null" json:"name"`
	ASCIIName        string                      `gorm:"column:ascii_name;type:varchar(200);not null" json:"ascii_name"`
	AlternateNames   datatypes.JSONSlice[string] `json:"alternate_names,omitempty"`
	Latitude         float64                     `gorm:"not null;index" json:"latitude"`
	Longitude        float64                     `gorm:"not null;index" json:"longitude"`
	CountryCode      string                      `gorm:"type:char(2);not null;index" json:"country_code"`
	Admin1Code       *string                     `gorm:"type:varchar(20)" json:"admin1_code,omitempty"`
	Admin2Code       *string                     `gorm:"type:varchar(20)" json:"admin2_code,omitempty"`
	Elevation        *int                        `json:"elevation,omitempty"`
	Timezone         *string                     `gorm:"type:varchar(40)" json:"timezone,omitempty"`
	ModificationDate *time.Time                  `gorm:"type:date" json:"modification_date,omitempty"`
	CreatedAt        time.Time                   `gorm:"not null" json:"created_at"`
}

// Geoname is a settlement or feature point.
type Geoname struct {
	SpatialPoint
	FeatureClass string `gorm:"type:char(1);not null;index:idx_geonames_feature,priority:1" json:"feature_class"`
	FeatureCode  string `gorm:"type:varchar(10);not null;index:idx_geonames_feature,priority:2" json:"feature_code"`
	Population   int64  `gorm:"not null;default:0" json:"population"`
}

func (Geoname) TableName() string { return "geonames" }

// HeritageSite is a curated site of global significance. Lodging never lands here.
type HeritageSite struct {
	SpatialPoint
	FeatureClass string  `gorm:"type:char(1);not null" json:"feature_class"`
	FeatureCode  string  `gorm:"type:varchar(10);not null" json:"feature_code"`
	Category     string  `gorm:"type:varchar(50);not null;default:'heritage'" json:"category"`
	Description  *string `gorm:"type:text" json:"description,omitempty"`
}

func (HeritageSite) TableName() string { return "heritage_sites" }

// CulturalSite is a monument, museum, temple or archaeological site.
type CulturalSite struct {
	SpatialPoint
	FeatureClass string `gorm:"type:char(1);not null;index:idx_cultural_sites_feature,priority:1" json:"feature_class"`
	FeatureCode  string `gorm:"type:varchar(10);not null;index:idx_cultural_sites_feature,priority:2" json:"feature_code"`
	Population   int64  `gorm:"not null;default:0" json:"population"`
	SiteType     string `gorm:"type:varchar(50);not null;index" json:"site_type"`
}

func (CulturalSite) TableName() string { return "cultural_sites" }

// PostalLocality is a postal code centroid. (country, postal code, place name)
// is unique; a postal code may map to several place names.
type PostalLocality struct {
	ID          snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	CountryCode string       `gorm:"type:char(2);not null;uniqueIndex:ux_postal_localities_key,priority:1" json:"country_code"`
	PostalCode  string       `gorm:"type:varchar(20);not null;uniqueIndex:ux_postal_localities_key,priority:2" json:"postal_code"`
	PlaceName   string       `gorm:"type:varchar(180);not null;uniqueIndex:ux_postal_localities_key,priority:3" json:"place_name"`
	Admin1Name  *string      `gorm:"type:varchar(100)" json:"admin1_name,omitempty"`
	Admin1Code  *string      `gorm:"type:varchar(20)" json:"admin1_code,omitempty"`
	Admin2Name  *string      `gorm:"type:varchar(100)" json:"admin2_name,omitempty"`
	Admin2Code  *string      `gorm:"type:varchar(20)" json:"admin2_code,omitempty"`
	Admin3Name  *string      `gorm:"type:varchar(100)" json:"admin3_name,omitempty"`
	Admin3Code  *string      `gorm:"type:varchar(20)" json:"admin3_code,omitempty"`
	Latitude    float64      `gorm:"not null;index:idx_postal_localities_coords,priority:1" json:"latitude"`
	Longitude   float64      `gorm:"not null;index:idx_postal_localities_coords,priority:2" json:"longitude"`
	Accuracy    int          `gorm:"not null;default:1" json:"accuracy"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
}

func (PostalLocality) TableName() string { return "postal_localities" }
