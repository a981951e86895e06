package location

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func movementOfType(findings []SuspiciousMovement, mt MovementType) (SuspiciousMovement, bool) {
	for _, m := range findings {
		if m.Type == mt {
			return m, true
		}
	}
	return SuspiciousMovement{}, false
}

func TestDetectSuspicious_ImpossibleSpeedCritical(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	// 10 km in 60 s is about 600 km/h
	prev := Point{Latitude: 6.5244, Longitude: 3.3792, Accuracy: 10, Timestamp: base, Speed: floatPtr(80)}
	curr := Point{Latitude: 6.6144, Longitude: 3.3792, Accuracy: 10, Timestamp: base.Add(60 * time.Second), Speed: floatPtr(80)}

	findings := DetectSuspicious(prev, curr, nil)

	m, ok := movementOfType(findings, ImpossibleSpeed)
	require.True(t, ok, "expected an impossible-speed finding")
	assert.Equal(t, RiskCritical, m.RiskLevel)
	assert.InDelta(t, 0.95, m.Confidence, 0.0001)
	assert.Greater(t, m.Evidence.SpeedMS, 55.56)
}

func TestDetectSuspicious_HighSpeedBand(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	// About 2.5 km in 60 s is roughly 150 km/h: above 120, below 200
	prev := Point{Latitude: 6.5244, Longitude: 3.3792, Accuracy: 10, Timestamp: base, Speed: floatPtr(40)}
	curr := Point{Latitude: 6.5469, Longitude: 3.3792, Accuracy: 10, Timestamp: base.Add(60 * time.Second), Speed: floatPtr(40)}

	findings := DetectSuspicious(prev, curr, nil)

	m, ok := movementOfType(findings, ImpossibleSpeed)
	require.True(t, ok)
	assert.Equal(t, RiskHigh, m.RiskLevel)
	assert.InDelta(t, 0.8, m.Confidence, 0.0001)
}

func TestDetectSuspicious_PlausibleSpeedNoFinding(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	// About 500 m in 60 s is 30 km/h
	prev := Point{Latitude: 6.5244, Longitude: 3.3792, Accuracy: 10, Timestamp: base, Speed: floatPtr(8)}
	curr := Point{Latitude: 6.5289, Longitude: 3.3792, Accuracy: 10, Timestamp: base.Add(60 * time.Second), Speed: floatPtr(8)}

	findings := DetectSuspicious(prev, curr, nil)

	_, ok := movementOfType(findings, ImpossibleSpeed)
	assert.False(t, ok)
}

func TestDetectSuspicious_Teleportation(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	// More than 1 km in under 60 s with worse than 100 m accuracy
	prev := Point{Latitude: 6.5244, Longitude: 3.3792, Accuracy: 10, Timestamp: base, Speed: floatPtr(50)}
	curr := Point{Latitude: 6.5424, Longitude: 3.3792, Accuracy: 150, Timestamp: base.Add(30 * time.Second), Speed: floatPtr(50)}

	findings := DetectSuspicious(prev, curr, nil)

	m, ok := movementOfType(findings, Teleportation)
	require.True(t, ok)
	assert.Equal(t, RiskHigh, m.RiskLevel)
	assert.Greater(t, m.Evidence.DistanceMeters, 1000.0)
	assert.Equal(t, 150.0, m.Evidence.AccuracyMeters)
}

func TestDetectSuspicious_NoTeleportationWithGoodAccuracy(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	prev := Point{Latitude: 6.5244, Longitude: 3.3792, Accuracy: 10, Timestamp: base, Speed: floatPtr(50)}
	curr := Point{Latitude: 6.5424, Longitude: 3.3792, Accuracy: 20, Timestamp: base.Add(30 * time.Second), Speed: floatPtr(50)}

	findings := DetectSuspicious(prev, curr, nil)

	_, ok := movementOfType(findings, Teleportation)
	assert.False(t, ok)
}

func TestDetectSuspicious_SpoofingTooPrecise(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	prev := Point{Latitude: 6.5244, Longitude: 3.3792, Accuracy: 0.5, Timestamp: base}
	curr := Point{Latitude: 6.5244, Longitude: 3.3792, Accuracy: 0.5, Timestamp: base.Add(30 * time.Second)}

	findings := DetectSuspicious(prev, curr, nil)

	m, ok := movementOfType(findings, GPSSpoofing)
	require.True(t, ok)
	assert.Equal(t, RiskHigh, m.RiskLevel)
	assert.Contains(t, m.Description, "too precise")
}

func TestDetectSuspicious_SpoofingMovingWithoutReportedSpeed(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	// About 300 m in 60 s = 5 m/s computed, but the receiver reports no speed
	prev := Point{Latitude: 6.5244, Longitude: 3.3792, Accuracy: 10, Timestamp: base}
	curr := Point{Latitude: 6.5271, Longitude: 3.3792, Accuracy: 10, Timestamp: base.Add(60 * time.Second)}

	findings := DetectSuspicious(prev, curr, nil)

	m, ok := movementOfType(findings, GPSSpoofing)
	require.True(t, ok)
	assert.True(t, m.Evidence.ReportedSpeedMissing)
}

func TestDetectSuspicious_SpoofingLowCoordinatePrecision(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	prev := Point{Latitude: 6.52, Longitude: 3.37, Accuracy: 10, Timestamp: base}
	curr := Point{Latitude: 6.52, Longitude: 3.37, Accuracy: 10, Timestamp: base.Add(30 * time.Second)}

	findings := DetectSuspicious(prev, curr, nil)

	m, ok := movementOfType(findings, GPSSpoofing)
	require.True(t, ok)
	assert.Contains(t, m.Description, "precision")
	assert.Less(t, m.Evidence.DecimalPlaces, 4)
}

func TestDetectSuspicious_CleanFixNoSpoofing(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	prev := Point{Latitude: 6.5244, Longitude: 3.3792, Accuracy: 12, Timestamp: base, Speed: floatPtr(4)}
	curr := Point{Latitude: 6.5248, Longitude: 3.3795, Accuracy: 12, Timestamp: base.Add(30 * time.Second), Speed: floatPtr(4)}

	findings := DetectSuspicious(prev, curr, nil)
	assert.Empty(t, findings)
}

func TestDetectSuspicious_LocationRepetition(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	h := NewHistory(100)

	// Same exact coordinate six times in history (limit is more than five)
	for i := 0; i < 6; i++ {
		require.NoError(t, h.Append(fixAt(6.5244, 3.3792, base.Add(time.Duration(i)*time.Minute))))
	}

	prev := fixAt(6.5244, 3.3792, base.Add(4*time.Minute))
	curr := fixAt(6.5244, 3.3792, base.Add(5*time.Minute))

	findings := DetectSuspicious(prev, curr, h)

	m, ok := movementOfType(findings, LocationJumping)
	require.True(t, ok)
	assert.Equal(t, RiskMedium, m.RiskLevel)
	assert.Equal(t, 6, m.Evidence.Occurrences)
}

func TestDetectSuspicious_RepetitionBelowLimitNoFinding(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	h := NewHistory(100)

	for i := 0; i < 4; i++ {
		require.NoError(t, h.Append(fixAt(6.5244, 3.3792, base.Add(time.Duration(i)*time.Minute))))
	}

	prev := fixAt(6.5244, 3.3792, base.Add(2*time.Minute))
	curr := fixAt(6.5244, 3.3792, base.Add(3*time.Minute))

	findings := DetectSuspicious(prev, curr, h)

	_, ok := movementOfType(findings, LocationJumping)
	assert.False(t, ok)
}
