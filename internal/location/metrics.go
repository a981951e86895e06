package location

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	suspiciousMovementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldguard_suspicious_movements_total",
			Help: "Suspicious movement findings by type and risk level",
		},
		[]string{"type", "risk_level"},
	)

	geofenceTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldguard_geofence_transitions_total",
			Help: "Geofence boundary crossings by area type and direction",
		},
		[]string{"geofence_type", "kind"},
	)

	fixesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fieldguard_location_fixes_total",
			Help: "GPS fixes accepted into the location history",
		},
	)
)
