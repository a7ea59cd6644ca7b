package domain

import (
	"errors"
	"strings"
)

// Category tags the table a point came from.
type Category string

const (
	CategoryGeonames Category = "geonames"
	CategoryHeritage Category = "heritage"
	CategoryCultural Category = "cultural"
	CategoryPostal   Category = "postal"
)

var ErrUnknownCategory = errors.New("unknown_category")

// Categories lists every category in rank order; the order doubles as the
// tiebreak when two points sit at the same distance or population.
var Categories = []Category{CategoryGeonames, CategoryHeritage, CategoryCultural, CategoryPostal}

// ParseCategory accepts a category name case-insensitively.
func ParseCategory(raw string) (Category, error) {
	value := Category(strings.ToLower(strings.TrimSpace(raw)))
	for _, c := range Categories {
		if c == value {
			return c, nil
		}
	}
	return "", ErrUnknownCategory
}

// Rank is the position of c in Categories.
func (c Category) Rank() int {
	for i, known := range Categories {
		if known == c {
			return i
		}
	}
	return len(Categories)
}

// Table returns the table backing the category.
func (c Category) Table() string {
	switch c {
	case CategoryGeonames:
		return Geoname{}.TableName()
	case CategoryHeritage:
		return HeritageSite{}.TableName()
	case CategoryCultural:
		return CulturalSite{}.TableName()
	case CategoryPostal:
		return PostalLocality{}.TableName()
	default:
		return ""
	}
}

func (c Category) String() string { return string(c) }
