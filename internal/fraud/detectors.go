package fraud

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/trackforce/fieldguard/internal/behavior"
	"github.com/trackforce/fieldguard/internal/device"
	"github.com/trackforce/fieldguard/internal/location"
	"github.com/trackforce/fieldguard/internal/sensors"
)

// Accuracy thresholds for the location detector
const (
	poorAccuracyMeters  = 100.0
	spoofAccuracyMeters = 1.0
)

// Conservative working-hours window used when no baseline exists: only
// extreme-hour activity flags, so absence of a baseline never flags normal
// daytime work.
var fallbackWorkingHours = behavior.WorkingHours{Start: 6, End: 22}

// checkEnv carries the evidence gathered once per check and shared by all
// detectors.
type checkEnv struct {
	pattern      *behavior.Pattern
	movement     sensors.Movement
	fingerprint  *device.Fingerprint
	lastKnown    *device.Fingerprint
	rapidCount   int // prior activities by this agent in the rapid window
	similarCount int // prior near-identical activities in the similar window
	rapidWindow  time.Duration
	similar      time.Duration
	rapidLimit   int
	similarLimit int
}

// detector inspects one evidence stream and returns zero or more flags
type detector func(in CheckInput, env *checkEnv) []Flag

// detectLocation applies accuracy bands plus the suspicious-movement rules
// over the supplied location trail.
func detectLocation(in CheckInput, _ *checkEnv) []Flag {
	if in.Location == nil {
		return nil
	}

	var flags []Flag
	loc := *in.Location

	if loc.Accuracy > poorAccuracyMeters {
		flags = append(flags, Flag{
			Type:        FlagLocation,
			Severity:    SeverityMedium,
			Description: fmt.Sprintf("poor GPS accuracy (%.0f m)", loc.Accuracy),
			Confidence:  0.6,
			Evidence:    LocationEvidence{AccuracyMeters: loc.Accuracy},
		})
	}
	if loc.Accuracy > 0 && loc.Accuracy < spoofAccuracyMeters {
		flags = append(flags, Flag{
			Type:        FlagLocation,
			Severity:    SeverityHigh,
			Description: fmt.Sprintf("GPS accuracy %.2f m is unrealistically precise, spoofing suspected", loc.Accuracy),
			Confidence:  0.8,
			Evidence:    LocationEvidence{AccuracyMeters: loc.Accuracy},
		})
	}

	trail := append(append([]location.Point{}, in.PreviousLocations...), loc)
	for i := 1; i < len(trail); i++ {
		for _, m := range location.DetectSuspicious(trail[i-1], trail[i], nil) {
			movement := m
			flags = append(flags, Flag{
				Type:        FlagLocation,
				Severity:    severityForMovement(m),
				Description: m.Description,
				Confidence:  m.Confidence,
				Evidence:    LocationEvidence{Movement: &movement},
			})
		}
	}

	return flags
}

func severityForMovement(m location.SuspiciousMovement) Severity {
	switch m.RiskLevel {
	case location.RiskCritical:
		return SeverityCritical
	case location.RiskHigh:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

// detectTime flags activity outside the agent's typical working hours and
// weekend activity.
func detectTime(in CheckInput, env *checkEnv) []Flag {
	var flags []Flag

	hours := fallbackWorkingHours
	var baselineHours *behavior.WorkingHours
	if env.pattern != nil {
		hours = env.pattern.WorkingHours
		baselineHours = &env.pattern.WorkingHours
	}

	hour := in.Timestamp.Hour()
	if hour < hours.Start || hour > hours.End {
		severity := SeverityMedium
		confidence := 0.7
		if hour < 6 || hour > 22 {
			severity = SeverityHigh
			confidence = 0.85
		}
		flags = append(flags, Flag{
			Type:     FlagTime,
			Severity: severity,
			Description: fmt.Sprintf("activity at %02d:00 outside typical working hours (%02d:00-%02d:00)",
				hour, hours.Start, hours.End),
			Confidence: confidence,
			Evidence:   TimeEvidence{Hour: hour, Weekday: in.Timestamp.Weekday().String(), WorkingHours: baselineHours},
		})
	}

	if wd := in.Timestamp.Weekday(); wd == time.Saturday || wd == time.Sunday {
		flags = append(flags, Flag{
			Type:        FlagTime,
			Severity:    SeverityMedium,
			Description: fmt.Sprintf("activity on a %s", wd),
			Confidence:  0.6,
			Evidence:    TimeEvidence{Hour: hour, Weekday: wd.String()},
		})
	}

	return flags
}

// detectDevice flags device swaps and tamper indicators
func detectDevice(_ CheckInput, env *checkEnv) []Flag {
	if env.fingerprint == nil {
		return nil
	}

	var flags []Flag
	fp := *env.fingerprint

	if device.IdentityChanged(fp, env.lastKnown) {
		flags = append(flags, Flag{
			Type:        FlagDevice,
			Severity:    SeverityCritical,
			Description: "device identity changed since last run",
			Confidence:  0.9,
			Evidence: DeviceEvidence{
				CurrentDeviceID:  fp.DeviceID,
				PreviousDeviceID: env.lastKnown.DeviceID,
				IsPhysicalDevice: fp.IsPhysicalDevice,
			},
		})
	}

	if device.TamperSuspected(fp) {
		flags = append(flags, Flag{
			Type:        FlagDevice,
			Severity:    SeverityHigh,
			Description: "device tampering suspected: emulator or missing motion sensors",
			Confidence:  0.85,
			Evidence: DeviceEvidence{
				CurrentDeviceID:  fp.DeviceID,
				IsPhysicalDevice: fp.IsPhysicalDevice,
				MotionSensors:    motionSensorCount(fp.AvailableSensors),
			},
		})
	}

	return flags
}

func motionSensorCount(available []string) int {
	count := 0
	for _, s := range available {
		switch s {
		case "accelerometer", "gyroscope", "magnetometer":
			count++
		}
	}
	return count
}

// detectBehavior flags a stationary device right before a visit start and
// abnormal activity volume.
func detectBehavior(in CheckInput, env *checkEnv) []Flag {
	var flags []Flag

	if in.ActivityType == ActivityVisitStart &&
		env.movement.Samples > 0 && env.movement.IsStationary {
		flags = append(flags, Flag{
			Type:        FlagBehavior,
			Severity:    SeverityMedium,
			Description: "device stationary before visit start, no physical approach detected",
			Confidence:  0.7,
			Evidence: BehaviorEvidence{
				AverageMagnitude: env.movement.AverageMagnitude,
				SampleCount:      env.movement.Samples,
			},
		})
	}

	if env.rapidCount > env.rapidLimit {
		flags = append(flags, Flag{
			Type:     FlagBehavior,
			Severity: SeverityHigh,
			Description: fmt.Sprintf("%d activities in the last %d minutes",
				env.rapidCount, int(env.rapidWindow.Minutes())),
			Confidence: 0.85,
			Evidence: BehaviorEvidence{
				ActivityCount: env.rapidCount,
				WindowMinutes: int(env.rapidWindow.Minutes()),
			},
		})
	}

	return flags
}

// detectPattern flags bursts of near-identical activities
func detectPattern(_ CheckInput, env *checkEnv) []Flag {
	if env.similarCount <= env.similarLimit {
		return nil
	}

	return []Flag{{
		Type:     FlagPattern,
		Severity: SeverityMedium,
		Description: fmt.Sprintf("%d highly similar activities within %d minutes",
			env.similarCount, int(env.similar.Minutes())),
		Confidence: 0.75,
		Evidence: PatternEvidence{
			SimilarCount:  env.similarCount,
			WindowMinutes: int(env.similar.Minutes()),
		},
	}}
}

// metadataDigest canonicalizes metadata for similarity comparison
func metadataDigest(metadata map[string]string) string {
	if len(metadata) == 0 {
		return ""
	}
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(metadata[k])
		b.WriteByte(';')
	}
	return b.String()
}
