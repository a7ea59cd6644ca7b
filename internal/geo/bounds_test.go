package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoundingBoxContainsEverythingInRadius(t *testing.T) {
	centers := []Coordinate{
		{0, 0},
		{-22.2697, 166.4381},
		{51.5074, -0.1278},
		{-33.8688, 151.2093},
	}
	radii := []float64{0, 1, 25, 300}
	bearings := 36

	for _, center := range centers {
		for _, radius := range radii {
			box := BoundingBox(center, radius)
			assert.True(t, box.Contains(center.Latitude, center.Longitude), "center %v r=%v", center, radius)

			for i := 0; i < bearings; i++ {
				p := destination(center, radius*0.999, float64(i)*360/float64(bearings))
				assert.True(t, box.Contains(p.Latitude, p.Longitude), "point %v center %v r=%v", p, center, radius)
			}
		}
	}
}

func TestBoundingBoxAntimeridian(t *testing.T) {
	center := Coordinate{Latitude: -16.5, Longitude: 179.9}
	box := BoundingBox(center, 50)

	assert.True(t, box.WrapsLongitude())
	assert.True(t, box.Contains(-16.5, -179.8))
	assert.True(t, box.Contains(-16.5, 179.7))
	assert.False(t, box.Contains(-16.5, 0))
}

func TestBoundingBoxPole(t *testing.T) {
	box := BoundingBox(Coordinate{Latitude: 89.9, Longitude: 10}, 50)

	assert.True(t, box.FullLongitude())
	assert.Equal(t, 90.0, box.MaxLat)
	assert.True(t, box.Contains(89.8, -170))
}

func TestBoundingBoxHugeRadius(t *testing.T) {
	box := BoundingBox(Coordinate{Latitude: 10, Longitude: 10}, 25000)

	assert.Equal(t, Box{MinLat: -90, MaxLat: 90, MinLon: -180, MaxLon: 180}, box)
}

// destination walks distanceKm from start along the given bearing.
func destination(start Coordinate, distanceKm, bearingDeg float64) Coordinate {
	lat1 := toRadians(start.Latitude)
	lon1 := toRadians(start.Longitude)
	brng := toRadians(bearingDeg)
	d := distanceKm / EarthRadiusKm

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) + math.Cos(lat1)*math.Sin(d)*math.Cos(brng))
	lon2 := lon1 + math.Atan2(math.Sin(brng)*math.Sin(d)*math.Cos(lat1), math.Cos(d)-math.Sin(lat1)*math.Sin(lat2))
	lon := lon2 * 180 / math.Pi
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return Coordinate{Latitude: lat2 * 180 / math.Pi, Longitude: lon}
}
