package fraud

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldguard_fraud_checks_total",
			Help: "Fraud checks by activity type and resulting risk level",
		},
		[]string{"activity_type", "risk_level"},
	)

	flagsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldguard_fraud_flags_total",
			Help: "Fraud flags raised by type and severity",
		},
		[]string{"type", "severity"},
	)

	degradedChecksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fieldguard_fraud_degraded_checks_total",
			Help: "Checks that degraded to a no-opinion result after an internal error",
		},
	)
)
