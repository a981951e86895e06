// Package fraud turns raw telemetry into an actionable risk verdict for
// each field activity.
package fraud

import (
	"time"

	"github.com/google/uuid"

	"github.com/trackforce/fieldguard/internal/behavior"
	"github.com/trackforce/fieldguard/internal/location"
)

// Severity grades a single fraud flag
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Weight returns the severity's contribution to the risk score
func (s Severity) Weight() float64 {
	switch s {
	case SeverityCritical:
		return 100
	case SeverityHigh:
		return 50
	case SeverityMedium:
		return 25
	default:
		return 10
	}
}

// FlagType identifies which detector produced a flag
type FlagType string

const (
	FlagLocation FlagType = "location"
	FlagTime     FlagType = "time"
	FlagDevice   FlagType = "device"
	FlagBehavior FlagType = "behavior"
	FlagPattern  FlagType = "pattern"
)

// RiskLevel is the verdict band for an overall check
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// LevelForScore maps a risk score to its level. Pure and monotonic; the
// boundaries are exactly 30, 60 and 80.
func LevelForScore(score float64) RiskLevel {
	switch {
	case score >= 80:
		return RiskCritical
	case score >= 60:
		return RiskHigh
	case score >= 30:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Evidence is the typed payload attached to a flag. Each detector has a
// concrete evidence shape instead of an open map.
type Evidence interface {
	evidence()
}

// LocationEvidence backs location flags
type LocationEvidence struct {
	AccuracyMeters float64                      `json:"accuracy_meters,omitempty"`
	Movement       *location.SuspiciousMovement `json:"movement,omitempty"`
}

// TimeEvidence backs time flags
type TimeEvidence struct {
	Hour         int                    `json:"hour"`
	Weekday      string                 `json:"weekday"`
	WorkingHours *behavior.WorkingHours `json:"working_hours,omitempty"`
}

// DeviceEvidence backs device flags
type DeviceEvidence struct {
	CurrentDeviceID  string `json:"current_device_id,omitempty"`
	PreviousDeviceID string `json:"previous_device_id,omitempty"`
	IsPhysicalDevice bool   `json:"is_physical_device"`
	MotionSensors    int    `json:"motion_sensors"`
}

// BehaviorEvidence backs behavior flags
type BehaviorEvidence struct {
	AverageMagnitude float64 `json:"average_magnitude,omitempty"`
	SampleCount      int     `json:"sample_count,omitempty"`
	ActivityCount    int     `json:"activity_count,omitempty"`
	WindowMinutes    int     `json:"window_minutes,omitempty"`
}

// PatternEvidence backs pattern flags
type PatternEvidence struct {
	SimilarCount  int `json:"similar_count"`
	WindowMinutes int `json:"window_minutes"`
}

func (LocationEvidence) evidence() {}
func (TimeEvidence) evidence()     {}
func (DeviceEvidence) evidence()   {}
func (BehaviorEvidence) evidence() {}
func (PatternEvidence) evidence()  {}

// Flag is one piece of fraud evidence. Produced fresh per check; only the
// aggregate result is persisted.
type Flag struct {
	Type        FlagType `json:"type"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Confidence  float64  `json:"confidence"` // [0,1]
	Evidence    Evidence `json:"evidence,omitempty"`
}

// ActivityType is the field activity being vetted
type ActivityType string

const (
	ActivityVisitStart   ActivityType = "visit_start"
	ActivityVisitEnd     ActivityType = "visit_end"
	ActivityPhotoCapture ActivityType = "photo_capture"
	ActivitySale         ActivityType = "sale"
	ActivitySurvey       ActivityType = "survey"
)

// CheckInput is supplied by the host before it commits a field activity
type CheckInput struct {
	AgentID           string            `json:"agent_id"`
	ActivityType      ActivityType      `json:"activity_type"`
	Location          *location.Point   `json:"location,omitempty"`
	Timestamp         time.Time         `json:"timestamp"`
	PreviousLocations []location.Point  `json:"previous_locations,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// CheckResult is the verdict for one activity event. One audit entry per
// evaluated event, append-only.
type CheckResult struct {
	ID              uuid.UUID    `json:"id"`
	AgentID         string       `json:"agent_id"`
	ActivityType    ActivityType `json:"activity_type"`
	RiskLevel       RiskLevel    `json:"risk_level"`
	RiskScore       float64      `json:"risk_score"` // [0,100]
	Flags           []Flag       `json:"flags"`
	Reason          string       `json:"reason"`
	Recommendations []string     `json:"recommendations"`
	AutoActions     []string     `json:"auto_actions"`
	CheckedAt       time.Time    `json:"checked_at"`
}

// Score aggregates flags into a confidence-weighted average severity on a
// 0-100 scale. Zero flags score zero.
func Score(flags []Flag) float64 {
	if len(flags) == 0 {
		return 0
	}

	var weighted, total float64
	for _, f := range flags {
		w := f.Severity.Weight()
		weighted += w * clamp01(f.Confidence)
		total += w
	}

	score := 100 * weighted / total
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
