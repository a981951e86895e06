package location

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixAt(lat, lng float64, ts time.Time) Point {
	return Point{Latitude: lat, Longitude: lng, Accuracy: 10, Timestamp: ts}
}

func TestHistoryEvictsFIFOAtCapacity(t *testing.T) {
	h := NewHistory(1000)
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 1500; i++ {
		err := h.Append(fixAt(6.5244+float64(i)*0.0001, 3.3792, base.Add(time.Duration(i)*time.Second)))
		require.NoError(t, err)
	}

	assert.Equal(t, 1000, h.Len())

	points := h.Points()
	require.Len(t, points, 1000)

	// The earliest 500 must be gone: the oldest surviving point is #500
	assert.Equal(t, base.Add(500*time.Second), points[0].Timestamp)
	assert.Equal(t, base.Add(1499*time.Second), points[999].Timestamp)
}

func TestHistoryRejectsOutOfOrderFix(t *testing.T) {
	h := NewHistory(10)
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, h.Append(fixAt(6.5244, 3.3792, base)))
	err := h.Append(fixAt(6.5245, 3.3792, base.Add(-time.Minute)))

	assert.ErrorIs(t, err, ErrOutOfOrder)
	assert.Equal(t, 1, h.Len())
}

func TestHistoryAllowsEqualTimestamps(t *testing.T) {
	h := NewHistory(10)
	ts := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, h.Append(fixAt(6.5244, 3.3792, ts)))
	require.NoError(t, h.Append(fixAt(6.5244, 3.3792, ts)))

	assert.Equal(t, 2, h.Len())
}

func TestHistoryPointsAreTimeOrdered(t *testing.T) {
	h := NewHistory(50)
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 120; i++ {
		require.NoError(t, h.Append(fixAt(6.5244, 3.3792, base.Add(time.Duration(i)*time.Second))))
	}

	points := h.Points()
	for i := 1; i < len(points); i++ {
		assert.False(t, points[i].Timestamp.Before(points[i-1].Timestamp),
			"history must stay in timestamp order after wraparound")
	}
}

func TestHistoryLast(t *testing.T) {
	h := NewHistory(10)

	_, ok := h.Last()
	assert.False(t, ok)

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, h.Append(fixAt(6.5244, 3.3792, base)))
	require.NoError(t, h.Append(fixAt(6.5250, 3.3799, base.Add(time.Minute))))

	last, ok := h.Last()
	require.True(t, ok)
	assert.Equal(t, 6.5250, last.Latitude)
}

func TestHistoryCountExact(t *testing.T) {
	h := NewHistory(10)
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		require.NoError(t, h.Append(fixAt(6.5244, 3.3792, base.Add(time.Duration(i)*time.Second))))
	}
	require.NoError(t, h.Append(fixAt(6.5245, 3.3792, base.Add(5*time.Second))))

	assert.Equal(t, 4, h.CountExact(6.5244, 3.3792))
	assert.Equal(t, 1, h.CountExact(6.5245, 3.3792))
	assert.Equal(t, 0, h.CountExact(7.0, 3.0))
}
