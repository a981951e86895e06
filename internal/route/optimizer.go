// Package route plans waypoint visiting order for field agents. This is a
// greedy nearest-neighbor heuristic, not optimal TSP; determinism matters
// more than optimality here.
package route

import (
	"github.com/trackforce/fieldguard/internal/geo"
	"github.com/trackforce/fieldguard/internal/location"
)

const (
	// minutesPerKm assumes urban travel at roughly 30 km/h
	minutesPerKm = 2.0
	// litersPerKm is the fixed fuel-consumption assumption
	litersPerKm = 0.1
)

// Waypoint is a stop the agent must visit
type Waypoint struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Plan is the computed visiting order with travel estimates
type Plan struct {
	Order            []int   `json:"order"` // indices into the input waypoint list
	TotalDistanceKm  float64 `json:"total_distance_km"`
	EstimatedMinutes float64 `json:"estimated_minutes"`
	FuelLiters       float64 `json:"fuel_liters"`
	FuelCost         float64 `json:"fuel_cost"`
}

// Optimize orders waypoints by repeatedly picking the unvisited waypoint
// nearest to the current position, starting from start. Ties keep the first
// waypoint encountered in list order, so the result is deterministic for a
// fixed input ordering.
func Optimize(start location.Point, waypoints []Waypoint, fuelPricePerLiter float64) Plan {
	order := make([]int, 0, len(waypoints))
	visited := make([]bool, len(waypoints))

	curLat, curLng := start.Latitude, start.Longitude
	totalMeters := 0.0

	for len(order) < len(waypoints) {
		nearest := -1
		nearestDist := 0.0

		for i, w := range waypoints {
			if visited[i] {
				continue
			}
			d := geo.DistanceMeters(curLat, curLng, w.Latitude, w.Longitude)
			// Strict less-than keeps the first encountered on ties
			if nearest == -1 || d < nearestDist {
				nearest = i
				nearestDist = d
			}
		}

		visited[nearest] = true
		order = append(order, nearest)
		totalMeters += nearestDist
		curLat, curLng = waypoints[nearest].Latitude, waypoints[nearest].Longitude
	}

	totalKm := totalMeters / 1000.0
	liters := totalKm * litersPerKm

	return Plan{
		Order:            order,
		TotalDistanceKm:  totalKm,
		EstimatedMinutes: totalKm * minutesPerKm,
		FuelLiters:       liters,
		FuelCost:         liters * fuelPricePerLiter,
	}
}
