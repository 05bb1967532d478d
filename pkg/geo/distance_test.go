package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMeters_SamePoint(t *testing.T) {
	points := []Coordinate{
		{Latitude: 0, Longitude: 0},
		{Latitude: 17.3688, Longitude: 78.4765},
		{Latitude: -89.9, Longitude: 179.9},
		{Latitude: 90, Longitude: -180},
	}

	for _, p := range points {
		assert.Equal(t, 0.0, DistanceMeters(p, p), "distance from %s to itself", p)
	}
}

func TestDistanceMeters_Symmetric(t *testing.T) {
	pairs := [][2]Coordinate{
		{{Latitude: 0, Longitude: 0}, {Latitude: 0, Longitude: 1}},
		{{Latitude: 17.3688, Longitude: 78.4765}, {Latitude: 17.4150, Longitude: 78.5180}},
		{{Latitude: -33.86, Longitude: 151.21}, {Latitude: 51.50, Longitude: -0.12}},
		{{Latitude: 10, Longitude: 179.5}, {Latitude: 10, Longitude: -179.5}},
	}

	for _, p := range pairs {
		ab := DistanceMeters(p[0], p[1])
		ba := DistanceMeters(p[1], p[0])
		assert.InDelta(t, ab, ba, 1e-6)
		assert.GreaterOrEqual(t, ab, 0.0)
	}
}

func TestDistanceMeters_KnownValues(t *testing.T) {
	// one degree of longitude on the equator
	d := DistanceMeters(Coordinate{0, 0}, Coordinate{0, 1})
	assert.InDelta(t, 111195.0, d, 1.0)

	d = DistanceMeters(Coordinate{0, 0.9}, Coordinate{0, 1})
	assert.InDelta(t, 11119.5, d, 1.0)

	d = DistanceMeters(Coordinate{0, 0.9}, Coordinate{0, 2})
	assert.InDelta(t, 122314.5, d, 5.0)

	// antipodal points are half the circumference apart
	d = DistanceMeters(Coordinate{0, 0}, Coordinate{0, 180})
	assert.InDelta(t, math.Pi*EarthRadiusMeters, d, 1.0)
}

func TestCoordinate_Validate(t *testing.T) {
	tests := []struct {
		name    string
		coord   Coordinate
		wantErr bool
	}{
		{"origin", Coordinate{0, 0}, false},
		{"bounds", Coordinate{90, -180}, false},
		{"latitude too high", Coordinate{90.1, 0}, true},
		{"latitude too low", Coordinate{-91, 0}, true},
		{"longitude too high", Coordinate{0, 180.5}, true},
		{"NaN", Coordinate{math.NaN(), 0}, true},
		{"Inf", Coordinate{0, math.Inf(1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.coord.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
