package geo

import (
	"fmt"
	"math"
)

// EarthRadiusMeters is the mean Earth radius used by DistanceMeters
const EarthRadiusMeters = 6371000.0

// Coordinate is a WGS84 position in decimal degrees
type Coordinate struct {
	Latitude  float64 `json:"lat" yaml:"lat"`
	Longitude float64 `json:"lng" yaml:"lng"`
}

// Validate checks that the coordinate is finite and inside the valid ranges
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) || math.IsInf(c.Latitude, 0) || math.IsInf(c.Longitude, 0) {
		return fmt.Errorf("coordinate must be finite")
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude: must be between -90 and 90")
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude: must be between -180 and 180")
	}
	return nil
}

// String formats the coordinate the way the dashboards display it
func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}

// DistanceMeters returns the haversine great-circle distance between a and b.
// The result is never negative and is 0 when a == b.
func DistanceMeters(a, b Coordinate) float64 {
	dLat := toRad(b.Latitude - a.Latitude)
	dLng := toRad(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Latitude))*math.Cos(toRad(b.Latitude))*math.Sin(dLng/2)*math.Sin(dLng/2)

	// rounding can push h a hair outside [0, 1] for antipodal points
	h = math.Min(math.Max(h, 0), 1)

	return 2 * EarthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
