package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackforce/fieldguard/internal/location"
)

func start(lat, lng float64) location.Point {
	return location.Point{Latitude: lat, Longitude: lng}
}

func TestOptimizePicksNearestFirst(t *testing.T) {
	waypoints := []Waypoint{
		{ID: "far", Latitude: 7.0, Longitude: 3.3792},
		{ID: "near", Latitude: 6.53, Longitude: 3.3792},
		{ID: "mid", Latitude: 6.7, Longitude: 3.3792},
	}

	plan := Optimize(start(6.5244, 3.3792), waypoints, 700)

	// All on one meridian north of start: nearest-neighbor visits in
	// ascending latitude
	assert.Equal(t, []int{1, 2, 0}, plan.Order)
}

func TestOptimizeIsDeterministic(t *testing.T) {
	waypoints := []Waypoint{
		{ID: "a", Latitude: 6.60, Longitude: 3.38},
		{ID: "b", Latitude: 6.55, Longitude: 3.42},
		{ID: "c", Latitude: 6.48, Longitude: 3.35},
		{ID: "d", Latitude: 6.52, Longitude: 3.40},
	}

	first := Optimize(start(6.5244, 3.3792), waypoints, 700)
	for i := 0; i < 10; i++ {
		again := Optimize(start(6.5244, 3.3792), waypoints, 700)
		assert.Equal(t, first.Order, again.Order)
		assert.Equal(t, first.TotalDistanceKm, again.TotalDistanceKm)
	}
}

func TestOptimizeTieBreaksByListOrder(t *testing.T) {
	// Two waypoints equidistant from the start: the first in list order wins
	waypoints := []Waypoint{
		{ID: "north", Latitude: 6.5344, Longitude: 3.3792},
		{ID: "south", Latitude: 6.5144, Longitude: 3.3792},
	}

	plan := Optimize(start(6.5244, 3.3792), waypoints, 700)

	assert.Equal(t, 0, plan.Order[0])
}

func TestOptimizeVisitsEveryWaypointOnce(t *testing.T) {
	waypoints := []Waypoint{
		{ID: "a", Latitude: 6.60, Longitude: 3.38},
		{ID: "b", Latitude: 6.55, Longitude: 3.42},
		{ID: "c", Latitude: 6.48, Longitude: 3.35},
		{ID: "d", Latitude: 6.52, Longitude: 3.40},
		{ID: "e", Latitude: 6.58, Longitude: 3.36},
	}

	plan := Optimize(start(6.5244, 3.3792), waypoints, 700)

	require.Len(t, plan.Order, len(waypoints))
	seen := make(map[int]bool)
	for _, idx := range plan.Order {
		assert.False(t, seen[idx], "waypoint %d visited twice", idx)
		seen[idx] = true
	}
}

func TestOptimizeEstimates(t *testing.T) {
	// Single waypoint about 11.1 km due north
	waypoints := []Waypoint{{ID: "a", Latitude: 6.6244, Longitude: 3.3792}}

	plan := Optimize(start(6.5244, 3.3792), waypoints, 700)

	assert.InDelta(t, 11.12, plan.TotalDistanceKm, 0.1)
	assert.InDelta(t, plan.TotalDistanceKm*2, plan.EstimatedMinutes, 0.0001)
	assert.InDelta(t, plan.TotalDistanceKm*0.1, plan.FuelLiters, 0.0001)
	assert.InDelta(t, plan.FuelLiters*700, plan.FuelCost, 0.0001)
}

func TestOptimizeEmptyWaypoints(t *testing.T) {
	plan := Optimize(start(6.5244, 3.3792), nil, 700)

	assert.Empty(t, plan.Order)
	assert.Zero(t, plan.TotalDistanceKm)
	assert.Zero(t, plan.FuelCost)
}
