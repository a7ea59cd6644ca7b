package geo

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidCoordinate = errors.New("invalid_coordinate")

// Coordinate is a latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// InRange reports whether lat and lon fall inside the global bounds.
func InRange(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Validate returns ErrInvalidCoordinate when c lies outside the global bounds.
func (c Coordinate) Validate() error {
	if !InRange(c.Latitude, c.Longitude) {
		return fmt.Errorf("%w: lat=%v lon=%v", ErrInvalidCoordinate, c.Latitude, c.Longitude)
	}
	return nil
}
