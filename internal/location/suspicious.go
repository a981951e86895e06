package location

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trackforce/fieldguard/internal/geo"
)

// MovementType classifies a suspicious-movement finding
type MovementType string

const (
	ImpossibleSpeed MovementType = "impossible_speed"
	Teleportation   MovementType = "teleportation"
	GPSSpoofing     MovementType = "gps_spoofing"
	// LocationJumping fires when the exact coordinate pair repeats in
	// history. The upstream product calls this "clustering"; it is kept
	// distinct from teleportation.
	LocationJumping MovementType = "location_jumping"
)

// Risk levels attached to suspicious movements
const (
	RiskMedium   = "medium"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

// Detection thresholds
const (
	impossibleSpeedMS = 55.56 // 200 km/h
	highSpeedMS       = 33.33 // 120 km/h

	teleportDistanceMeters = 1000.0
	teleportWindow         = 60 * time.Second
	teleportAccuracyMeters = 100.0

	spoofAccuracyMeters   = 1.0 // too precise to be a real receiver
	movingSpeedMS         = 1.0
	minCoordinateDecimals = 4

	// clusterRepeatLimit is the occurrence count (including the new fix)
	// above which exact coordinate repetition is flagged. Known
	// false-positive risk with legitimate rounding; do not tighten or
	// loosen without product sign-off.
	clusterRepeatLimit = 5
)

// MovementEvidence is the typed evidence payload for a finding
type MovementEvidence struct {
	SpeedMS              float64 `json:"speed_ms,omitempty"`
	DistanceMeters       float64 `json:"distance_meters,omitempty"`
	ElapsedSeconds       float64 `json:"elapsed_seconds,omitempty"`
	AccuracyMeters       float64 `json:"accuracy_meters,omitempty"`
	ReportedSpeedMissing bool    `json:"reported_speed_missing,omitempty"`
	DecimalPlaces        int     `json:"decimal_places,omitempty"`
	Occurrences          int     `json:"occurrences,omitempty"`
}

// SuspiciousMovement is one append-only finding, never mutated
type SuspiciousMovement struct {
	ID          uuid.UUID        `json:"id"`
	Type        MovementType     `json:"type"`
	Timestamp   time.Time        `json:"timestamp"`
	Description string           `json:"description"`
	RiskLevel   string           `json:"risk_level"`
	Confidence  float64          `json:"confidence"`
	Evidence    MovementEvidence `json:"evidence"`
}

// DetectSuspicious evaluates a new fix against the immediately preceding one
// plus the full history (for repetition). The history is expected to already
// contain curr.
func DetectSuspicious(prev, curr Point, history *History) []SuspiciousMovement {
	var findings []SuspiciousMovement

	elapsed := curr.Timestamp.Sub(prev.Timestamp).Seconds()
	distance := geo.DistanceMeters(prev.Latitude, prev.Longitude, curr.Latitude, curr.Longitude)

	var speed float64
	if elapsed > 0 {
		speed = distance / elapsed
	}

	if m, ok := checkSpeed(curr, speed, distance, elapsed); ok {
		findings = append(findings, m)
	}
	if m, ok := checkTeleportation(curr, distance, elapsed); ok {
		findings = append(findings, m)
	}
	if m, ok := checkSpoofing(curr, speed); ok {
		findings = append(findings, m)
	}
	if history != nil {
		if m, ok := checkRepetition(curr, history); ok {
			findings = append(findings, m)
		}
	}

	return findings
}

func checkSpeed(curr Point, speed, distance, elapsed float64) (SuspiciousMovement, bool) {
	if elapsed <= 0 || speed <= highSpeedMS {
		return SuspiciousMovement{}, false
	}

	m := SuspiciousMovement{
		ID:        uuid.New(),
		Type:      ImpossibleSpeed,
		Timestamp: curr.Timestamp,
		Evidence: MovementEvidence{
			SpeedMS:        speed,
			DistanceMeters: distance,
			ElapsedSeconds: elapsed,
		},
	}

	if speed > impossibleSpeedMS {
		m.RiskLevel = RiskCritical
		m.Confidence = 0.95
		m.Description = fmt.Sprintf("movement at %.0f km/h exceeds 200 km/h", speed*3.6)
	} else {
		m.RiskLevel = RiskHigh
		m.Confidence = 0.8
		m.Description = fmt.Sprintf("movement at %.0f km/h is implausibly fast", speed*3.6)
	}

	return m, true
}

func checkTeleportation(curr Point, distance, elapsed float64) (SuspiciousMovement, bool) {
	if distance <= teleportDistanceMeters ||
		elapsed >= teleportWindow.Seconds() ||
		curr.Accuracy <= teleportAccuracyMeters {
		return SuspiciousMovement{}, false
	}

	return SuspiciousMovement{
		ID:          uuid.New(),
		Type:        Teleportation,
		Timestamp:   curr.Timestamp,
		RiskLevel:   RiskHigh,
		Confidence:  0.85,
		Description: fmt.Sprintf("jumped %.0f m in %.0f s with %.0f m accuracy", distance, elapsed, curr.Accuracy),
		Evidence: MovementEvidence{
			DistanceMeters: distance,
			ElapsedSeconds: elapsed,
			AccuracyMeters: curr.Accuracy,
		},
	}, true
}

func checkSpoofing(curr Point, computedSpeed float64) (SuspiciousMovement, bool) {
	var reasons []string
	evidence := MovementEvidence{AccuracyMeters: curr.Accuracy, SpeedMS: computedSpeed}

	if curr.Accuracy > 0 && curr.Accuracy < spoofAccuracyMeters {
		reasons = append(reasons, fmt.Sprintf("accuracy %.2f m is too precise for a real receiver", curr.Accuracy))
	}
	if computedSpeed > movingSpeedMS && curr.Speed == nil {
		reasons = append(reasons, "device is moving but the receiver reports no speed")
		evidence.ReportedSpeedMissing = true
	}
	latDecimals := geo.DecimalPlaces(curr.Latitude)
	lngDecimals := geo.DecimalPlaces(curr.Longitude)
	if latDecimals < minCoordinateDecimals || lngDecimals < minCoordinateDecimals {
		reasons = append(reasons, "coordinate precision below 4 decimal digits")
		evidence.DecimalPlaces = latDecimals
		if lngDecimals < latDecimals {
			evidence.DecimalPlaces = lngDecimals
		}
	}

	if len(reasons) == 0 {
		return SuspiciousMovement{}, false
	}

	return SuspiciousMovement{
		ID:          uuid.New(),
		Type:        GPSSpoofing,
		Timestamp:   curr.Timestamp,
		RiskLevel:   RiskHigh,
		Confidence:  0.8,
		Description: strings.Join(reasons, "; "),
		Evidence:    evidence,
	}, true
}

func checkRepetition(curr Point, history *History) (SuspiciousMovement, bool) {
	occurrences := history.CountExact(curr.Latitude, curr.Longitude)
	if occurrences <= clusterRepeatLimit {
		return SuspiciousMovement{}, false
	}

	return SuspiciousMovement{
		ID:          uuid.New(),
		Type:        LocationJumping,
		Timestamp:   curr.Timestamp,
		RiskLevel:   RiskMedium,
		Confidence:  0.7,
		Description: fmt.Sprintf("exact coordinate recorded %d times", occurrences),
		Evidence:    MovementEvidence{Occurrences: occurrences},
	}, true
}
