package geo

import (
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// boxPadding widens every prefilter box so that points sitting exactly on
// the radius survive the degree/radian round trip.
const boxPadding = 1e-6

// Box is a latitude/longitude rectangle in degrees. When MinLon > MaxLon the
// box crosses the antimeridian.
type Box struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// WrapsLongitude reports whether the box crosses the antimeridian.
func (b Box) WrapsLongitude() bool {
	return b.MinLon > b.MaxLon
}

// FullLongitude reports whether the box spans every meridian.
func (b Box) FullLongitude() bool {
	return b.MinLon <= -180 && b.MaxLon >= 180
}

// Contains reports whether the point lies inside the box.
func (b Box) Contains(lat, lon float64) bool {
	if lat < b.MinLat || lat > b.MaxLat {
		return false
	}
	if b.WrapsLongitude() {
		return lon >= b.MinLon || lon <= b.MaxLon
	}
	return lon >= b.MinLon && lon <= b.MaxLon
}

// BoundingBox returns a conservative box around every point within radiusKm
// of center. It is only a prefilter; callers still apply Haversine.
func BoundingBox(center Coordinate, radiusKm float64) Box {
	if radiusKm < 0 || math.IsNaN(radiusKm) {
		radiusKm = 0
	}
	angle := s1.Angle(radiusKm / EarthRadiusKm)
	if angle >= s1.Angle(math.Pi) {
		return Box{MinLat: -90, MaxLat: 90, MinLon: -180, MaxLon: 180}
	}

	ll := s2.LatLngFromDegrees(center.Latitude, center.Longitude)
	rect := s2.CapFromCenterAngle(s2.PointFromLatLng(ll), angle).RectBound()

	box := Box{
		MinLat: math.Max(-90, s1.Angle(rect.Lat.Lo).Degrees()-boxPadding),
		MaxLat: math.Min(90, s1.Angle(rect.Lat.Hi).Degrees()+boxPadding),
	}
	if rect.Lng.IsFull() {
		box.MinLon, box.MaxLon = -180, 180
		return box
	}

	box.MinLon = s1.Angle(rect.Lng.Lo).Degrees() - boxPadding
	box.MaxLon = s1.Angle(rect.Lng.Hi).Degrees() + boxPadding
	if box.MinLon < -180 {
		box.MinLon += 360
	}
	if box.MaxLon > 180 {
		box.MaxLon -= 360
	}
	// Padding can push a nearly full interval past itself.
	if !rect.Lng.IsInverted() && box.WrapsLongitude() {
		box.MinLon, box.MaxLon = -180, 180
	}
	return box
}
