package location

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trackforce/fieldguard/pkg/alerthub"
	"github.com/trackforce/fieldguard/pkg/storage"
)

func newTestTracker(t *testing.T) (*Tracker, *ChannelSource, *storage.MemoryStore) {
	t.Helper()
	src := NewChannelSource()
	store := storage.NewMemoryStore()
	tracker := NewTracker(src, store, 100, nil, zap.NewNop())
	return tracker, src, store
}

func TestCurrentLocationAppendsToHistory(t *testing.T) {
	tracker, src, _ := newTestTracker(t)
	ctx := context.Background()

	src.Push(fixAt(6.5244, 3.3792, time.Now()))

	p, err := tracker.CurrentLocation(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6.5244, p.Latitude)
	assert.Equal(t, 1, tracker.History().Len())
}

func TestCurrentLocationUnavailableLeavesHistoryUntouched(t *testing.T) {
	tracker, _, _ := newTestTracker(t)

	_, err := tracker.CurrentLocation(context.Background())

	assert.ErrorIs(t, err, ErrLocationUnavailable)
	assert.Equal(t, 0, tracker.History().Len())
}

func TestGeofenceEnterFiresOncePerCrossing(t *testing.T) {
	tracker, src, store := newTestTracker(t)
	ctx := context.Background()

	tracker.AddGeofence(ctx, Geofence{
		ID: "gf-1", Name: "Ikeja depot", Type: GeofenceWarehouse,
		Latitude: 6.5244, Longitude: 3.3792, RadiusMeters: 200,
	})

	var transitions []Transition
	tracker.OnTransition(func(tr Transition) { transitions = append(transitions, tr) })

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	inside := fixAt(6.5244, 3.3792, base)

	// Feed the same inside fix twice: exactly one ENTER
	src.Push(inside)
	_, err := tracker.CurrentLocation(ctx)
	require.NoError(t, err)

	insideAgain := fixAt(6.5244, 3.3792, base.Add(time.Minute))
	src.Push(insideAgain)
	_, err = tracker.CurrentLocation(ctx)
	require.NoError(t, err)

	require.Len(t, transitions, 1)
	assert.Equal(t, TransitionEnter, transitions[0].Kind)
	assert.Equal(t, "gf-1", transitions[0].GeofenceID)

	status, err := store.Get(ctx, storage.GeofenceStatusKey("gf-1"))
	require.NoError(t, err)
	assert.Equal(t, "inside", string(status))
}

func TestGeofenceExitAfterEnter(t *testing.T) {
	tracker, src, _ := newTestTracker(t)
	ctx := context.Background()

	tracker.AddGeofence(ctx, Geofence{
		ID: "gf-1", Name: "Ikeja depot", Type: GeofenceWarehouse,
		Latitude: 6.5244, Longitude: 3.3792, RadiusMeters: 200,
	})

	var transitions []Transition
	tracker.OnTransition(func(tr Transition) { transitions = append(transitions, tr) })

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	src.Push(fixAt(6.5244, 3.3792, base))
	_, err := tracker.CurrentLocation(ctx)
	require.NoError(t, err)

	// Roughly 1.1 km north, well outside the 200 m radius
	src.Push(fixAt(6.5344, 3.3792, base.Add(10*time.Minute)))
	_, err = tracker.CurrentLocation(ctx)
	require.NoError(t, err)

	require.Len(t, transitions, 2)
	assert.Equal(t, TransitionEnter, transitions[0].Kind)
	assert.Equal(t, TransitionExit, transitions[1].Kind)
}

func TestGeofencesRestoredFromStore(t *testing.T) {
	tracker, _, store := newTestTracker(t)
	ctx := context.Background()

	tracker.AddGeofence(ctx, Geofence{ID: "gf-1", Name: "Ikeja depot", RadiusMeters: 200})

	restored := NewTracker(NewChannelSource(), store, 100, nil, zap.NewNop())
	fences := restored.Geofences()
	require.Len(t, fences, 1)
	assert.Equal(t, "gf-1", fences[0].ID)
}

func TestRemoveGeofenceClearsStatus(t *testing.T) {
	tracker, src, store := newTestTracker(t)
	ctx := context.Background()

	tracker.AddGeofence(ctx, Geofence{
		ID: "gf-1", Name: "Ikeja depot",
		Latitude: 6.5244, Longitude: 3.3792, RadiusMeters: 200,
	})

	src.Push(fixAt(6.5244, 3.3792, time.Now()))
	_, err := tracker.CurrentLocation(ctx)
	require.NoError(t, err)

	tracker.RemoveGeofence(ctx, "gf-1")

	assert.Empty(t, tracker.Geofences())
	_, err = store.Get(ctx, storage.GeofenceStatusKey("gf-1"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStartTrackingConsumesPushedFixes(t *testing.T) {
	tracker, src, _ := newTestTracker(t)
	ctx := context.Background()

	require.NoError(t, tracker.StartTracking(ctx, Options{}))
	defer tracker.StopTracking()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	src.Push(fixAt(6.5244, 3.3792, base))
	src.Push(fixAt(6.5248, 3.3795, base.Add(30*time.Second)))

	require.Eventually(t, func() bool {
		return tracker.History().Len() == 2
	}, time.Second, 10*time.Millisecond)
}

func TestStopTrackingIsIdempotent(t *testing.T) {
	tracker, _, _ := newTestTracker(t)

	require.NoError(t, tracker.StartTracking(context.Background(), Options{}))

	tracker.StopTracking()
	tracker.StopTracking() // second call must be a no-op
}

func TestStartTrackingTwiceIsNoOp(t *testing.T) {
	tracker, _, _ := newTestTracker(t)
	ctx := context.Background()

	require.NoError(t, tracker.StartTracking(ctx, Options{}))
	require.NoError(t, tracker.StartTracking(ctx, Options{}))

	tracker.StopTracking()
}

func TestHighRiskMovementNotifiesAlertHook(t *testing.T) {
	src := NewChannelSource()
	store := storage.NewMemoryStore()

	var alerts []alerthub.Alert
	notifier := alerthub.NotifierFunc(func(a alerthub.Alert) { alerts = append(alerts, a) })

	tracker := NewTracker(src, store, 100, notifier, zap.NewNop())
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	speed := 80.0
	src.Push(Point{Latitude: 6.5244, Longitude: 3.3792, Accuracy: 10, Timestamp: base, Speed: &speed})
	_, err := tracker.CurrentLocation(ctx)
	require.NoError(t, err)

	// 10 km in 60 s: impossible speed, Critical
	src.Push(Point{Latitude: 6.6144, Longitude: 3.3792, Accuracy: 10, Timestamp: base.Add(time.Minute), Speed: &speed})
	_, err = tracker.CurrentLocation(ctx)
	require.NoError(t, err)

	require.NotEmpty(t, alerts)
	assert.Equal(t, RiskCritical, alerts[0].Severity)

	movements := tracker.Movements()
	require.NotEmpty(t, movements)
	assert.Equal(t, ImpossibleSpeed, movements[0].Type)
}
