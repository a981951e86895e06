package location

import (
	"time"

	"github.com/trackforce/fieldguard/internal/geo"
)

// GeofenceType classifies a monitored area
type GeofenceType string

const (
	GeofenceCustomer   GeofenceType = "customer"
	GeofenceWarehouse  GeofenceType = "warehouse"
	GeofenceOffice     GeofenceType = "office"
	GeofenceRestricted GeofenceType = "restricted"
)

// Geofence is a named circular area registered by the host app
type Geofence struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Latitude     float64      `json:"latitude"`
	Longitude    float64      `json:"longitude"`
	RadiusMeters float64      `json:"radius_meters"`
	Type         GeofenceType `json:"type"`
}

// Contains reports whether a fix falls inside the area
func (g Geofence) Contains(p Point) bool {
	d := geo.DistanceMeters(p.Latitude, p.Longitude, g.Latitude, g.Longitude)
	return d <= g.RadiusMeters
}

// TransitionKind is a geofence boundary crossing direction
type TransitionKind string

const (
	TransitionEnter TransitionKind = "enter"
	TransitionExit  TransitionKind = "exit"
)

// Transition is emitted at most once per actual crossing
type Transition struct {
	GeofenceID   string         `json:"geofence_id"`
	GeofenceName string         `json:"geofence_name"`
	GeofenceType GeofenceType   `json:"geofence_type"`
	Kind         TransitionKind `json:"kind"`
	Point        Point          `json:"point"`
	Timestamp    time.Time      `json:"timestamp"`
}

// Persisted membership states
const (
	statusInside  = "inside"
	statusOutside = "outside"
)
