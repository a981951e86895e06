package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMeters(t *testing.T) {
	tests := []struct {
		name       string
		lat1, lon1 float64
		lat2, lon2 float64
		minM       float64
		maxM       float64
	}{
		{
			name: "same point returns zero",
			lat1: 40.7128, lon1: -74.0060,
			lat2: 40.7128, lon2: -74.0060,
			minM: 0.0, maxM: 0.001,
		},
		{
			name: "one degree of latitude is about 111 km",
			lat1: 40.0, lon1: -74.0,
			lat2: 41.0, lon2: -74.0,
			minM: 110000, maxM: 112500,
		},
		{
			name: "New York to Philadelphia",
			lat1: 40.7128, lon1: -74.0060,
			lat2: 39.9526, lon2: -75.1652,
			minM: 125000, maxM: 135000,
		},
		{
			name: "hundred meter step north",
			lat1: 40.7128, lon1: -74.0060,
			lat2: 40.7137, lon2: -74.0060,
			minM: 90, maxM: 110,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DistanceMeters(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.GreaterOrEqual(t, d, tt.minM)
			assert.LessOrEqual(t, d, tt.maxM)
		})
	}
}

func TestDistanceMeters_Symmetric(t *testing.T) {
	d1 := DistanceMeters(40.7128, -74.0060, 39.9526, -75.1652)
	d2 := DistanceMeters(39.9526, -75.1652, 40.7128, -74.0060)
	assert.InDelta(t, d1, d2, 0.0001)
}

func TestBearing(t *testing.T) {
	tests := []struct {
		name       string
		lat1, lon1 float64
		lat2, lon2 float64
		expected   float64
		delta      float64
	}{
		{"due north", 40.0, -74.0, 41.0, -74.0, 0.0, 0.5},
		{"due south", 41.0, -74.0, 40.0, -74.0, 180.0, 0.5},
		{"due east on equator", 0.0, 0.0, 0.0, 1.0, 90.0, 0.5},
		{"due west on equator", 0.0, 1.0, 0.0, 0.0, 270.0, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Bearing(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.InDelta(t, tt.expected, b, tt.delta)
			assert.GreaterOrEqual(t, b, 0.0)
			assert.Less(t, b, 360.0)
		})
	}
}

func TestDecimalPlaces(t *testing.T) {
	tests := []struct {
		name     string
		coord    float64
		expected int
	}{
		{"integer coordinate", 40.0, 0},
		{"two decimals", 40.71, 2},
		{"four decimals", 40.7128, 4},
		{"six decimals", 40.712801, 6},
		{"negative coordinate", -74.006, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DecimalPlaces(tt.coord))
		})
	}
}
