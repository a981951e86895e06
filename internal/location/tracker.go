package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/trackforce/fieldguard/pkg/alerthub"
	"github.com/trackforce/fieldguard/pkg/storage"
)

// securityIssuesCapacity bounds the persisted suspicious-movement log
const securityIssuesCapacity = 1000

// Tracker owns the location history, registered geofences, and the
// suspicious-movement log. Fix handling runs on a single consumer goroutine,
// so handlers never overlap.
type Tracker struct {
	src      Source
	history  *History
	store    storage.Store
	notifier alerthub.Notifier
	log      *zap.Logger

	mu           sync.Mutex
	geofences    map[string]Geofence
	inside       map[string]bool
	movements    []SuspiciousMovement
	onTransition func(Transition)

	tracking bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewTracker creates a tracker and restores persisted geofences. notifier
// may be nil when the host registers no alert hook.
func NewTracker(src Source, store storage.Store, historyCapacity int, notifier alerthub.Notifier, log *zap.Logger) *Tracker {
	t := &Tracker{
		src:       src,
		history:   NewHistory(historyCapacity),
		store:     store,
		notifier:  notifier,
		log:       log,
		geofences: make(map[string]Geofence),
		inside:    make(map[string]bool),
	}
	t.restore()
	return t
}

// History returns a read-only view of the location history
func (t *Tracker) History() *History { return t.history }

// OnTransition registers the geofence transition callback. Must be set
// before StartTracking.
func (t *Tracker) OnTransition(fn func(Transition)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onTransition = fn
}

// CurrentLocation acquires a single fix and records it. A failed fix has no
// side effects on history.
func (t *Tracker) CurrentLocation(ctx context.Context) (Point, error) {
	p, err := t.src.Current(ctx)
	if err != nil {
		return Point{}, fmt.Errorf("acquire fix: %w", err)
	}

	t.handleFix(ctx, p)
	return p, nil
}

// StartTracking begins the continuous stream. Returns ErrPermissionDenied
// unwrapped from the source when the platform permission is missing.
func (t *Tracker) StartTracking(ctx context.Context, opts Options) error {
	t.mu.Lock()
	if t.tracking {
		t.mu.Unlock()
		return nil
	}

	streamCtx, cancel := context.WithCancel(ctx)
	fixes, err := t.src.Watch(streamCtx, opts)
	if err != nil {
		cancel()
		t.mu.Unlock()
		return fmt.Errorf("start tracking: %w", err)
	}

	t.tracking = true
	t.cancel = cancel
	t.done = make(chan struct{})
	done := t.done
	t.mu.Unlock()

	go func() {
		defer close(done)
		for p := range fixes {
			t.handleFix(streamCtx, p)
		}
	}()

	t.log.Info("location tracking started",
		zap.Duration("min_interval", opts.MinInterval),
		zap.Float64("min_distance_m", opts.MinDistance))
	return nil
}

// StopTracking releases the stream. Idempotent and safe to call at any
// time, including during an in-flight fix.
func (t *Tracker) StopTracking() {
	t.mu.Lock()
	if !t.tracking {
		t.mu.Unlock()
		return
	}
	t.tracking = false
	cancel := t.cancel
	done := t.done
	t.cancel = nil
	t.done = nil
	t.mu.Unlock()

	cancel()
	<-done
	t.log.Info("location tracking stopped")
}

// AddGeofence registers an area and persists the registered set
func (t *Tracker) AddGeofence(ctx context.Context, g Geofence) {
	t.mu.Lock()
	t.geofences[g.ID] = g
	t.mu.Unlock()

	t.persistGeofences(ctx)
}

// RemoveGeofence unregisters an area and clears its membership state
func (t *Tracker) RemoveGeofence(ctx context.Context, id string) {
	t.mu.Lock()
	delete(t.geofences, id)
	delete(t.inside, id)
	t.mu.Unlock()

	t.persistGeofences(ctx)
	if err := t.store.Delete(ctx, storage.GeofenceStatusKey(id)); err != nil {
		t.log.Warn("failed to clear geofence status", zap.String("geofence_id", id), zap.Error(err))
	}
}

// Geofences returns the registered areas
func (t *Tracker) Geofences() []Geofence {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Geofence, 0, len(t.geofences))
	for _, g := range t.geofences {
		out = append(out, g)
	}
	return out
}

// Movements returns a copy of the suspicious-movement log
func (t *Tracker) Movements() []SuspiciousMovement {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]SuspiciousMovement, len(t.movements))
	copy(out, t.movements)
	return out
}

// handleFix is the single-consumer fix pipeline: append, detect, evaluate
// geofences, persist.
func (t *Tracker) handleFix(ctx context.Context, p Point) {
	prev, hadPrev := t.history.Last()

	if err := t.history.Append(p); err != nil {
		t.log.Warn("rejected out-of-order fix",
			zap.Time("fix_time", p.Timestamp),
			zap.Error(err))
		return
	}
	fixesTotal.Inc()

	if hadPrev {
		findings := DetectSuspicious(prev, p, t.history)
		if len(findings) > 0 {
			t.recordMovements(ctx, findings)
		}
	}

	t.evaluateGeofences(ctx, p)
	t.persistHistory(ctx)
}

func (t *Tracker) recordMovements(ctx context.Context, findings []SuspiciousMovement) {
	t.mu.Lock()
	t.movements = append(t.movements, findings...)
	if overflow := len(t.movements) - securityIssuesCapacity; overflow > 0 {
		t.movements = t.movements[overflow:]
	}
	snapshot := make([]SuspiciousMovement, len(t.movements))
	copy(snapshot, t.movements)
	t.mu.Unlock()

	for _, m := range findings {
		suspiciousMovementsTotal.WithLabelValues(string(m.Type), m.RiskLevel).Inc()
		t.log.Warn("suspicious movement detected",
			zap.String("type", string(m.Type)),
			zap.String("risk_level", m.RiskLevel),
			zap.String("description", m.Description))

		if t.notifier != nil && (m.RiskLevel == RiskHigh || m.RiskLevel == RiskCritical) {
			t.notifier.Notify(alerthub.Alert{
				Title:       "Suspicious movement detected",
				Description: m.Description,
				Severity:    m.RiskLevel,
				Timestamp:   m.Timestamp,
			})
		}
	}

	if data, err := json.Marshal(snapshot); err == nil {
		if err := t.store.Set(ctx, storage.KeySecurityIssues, data); err != nil {
			t.log.Warn("failed to persist security issues, continuing in-memory", zap.Error(err))
		}
	}
}

func (t *Tracker) evaluateGeofences(ctx context.Context, p Point) {
	t.mu.Lock()
	fences := make([]Geofence, 0, len(t.geofences))
	for _, g := range t.geofences {
		fences = append(fences, g)
	}
	t.mu.Unlock()

	for _, g := range fences {
		nowInside := g.Contains(p)
		wasInside := t.membership(ctx, g.ID)

		if nowInside == wasInside {
			continue
		}

		t.mu.Lock()
		t.inside[g.ID] = nowInside
		callback := t.onTransition
		t.mu.Unlock()

		status := statusOutside
		kind := TransitionExit
		if nowInside {
			status = statusInside
			kind = TransitionEnter
		}
		if err := t.store.Set(ctx, storage.GeofenceStatusKey(g.ID), []byte(status)); err != nil {
			t.log.Warn("failed to persist geofence status",
				zap.String("geofence_id", g.ID), zap.Error(err))
		}

		geofenceTransitionsTotal.WithLabelValues(string(g.Type), string(kind)).Inc()
		t.log.Info("geofence transition",
			zap.String("geofence", g.Name),
			zap.String("kind", string(kind)))

		if callback != nil {
			callback(Transition{
				GeofenceID:   g.ID,
				GeofenceName: g.Name,
				GeofenceType: g.Type,
				Kind:         kind,
				Point:        p,
				Timestamp:    p.Timestamp,
			})
		}
	}
}

// membership returns the last known inside/outside state, consulting the
// persisted status on first sight. Unknown areas default to outside so the
// first inside fix emits a single ENTER.
func (t *Tracker) membership(ctx context.Context, geofenceID string) bool {
	t.mu.Lock()
	state, known := t.inside[geofenceID]
	t.mu.Unlock()
	if known {
		return state
	}

	inside := false
	if data, err := t.store.Get(ctx, storage.GeofenceStatusKey(geofenceID)); err == nil {
		inside = string(data) == statusInside
	} else if !errors.Is(err, storage.ErrNotFound) {
		t.log.Warn("failed to load geofence status",
			zap.String("geofence_id", geofenceID), zap.Error(err))
	}

	t.mu.Lock()
	t.inside[geofenceID] = inside
	t.mu.Unlock()
	return inside
}

func (t *Tracker) persistGeofences(ctx context.Context) {
	data, err := json.Marshal(t.Geofences())
	if err != nil {
		return
	}
	if err := t.store.Set(ctx, storage.KeyGeofences, data); err != nil {
		t.log.Warn("failed to persist geofences, continuing in-memory", zap.Error(err))
	}
}

func (t *Tracker) persistHistory(ctx context.Context) {
	data, err := json.Marshal(t.history.Points())
	if err != nil {
		return
	}
	if err := t.store.Set(ctx, storage.KeyLocationHistory, data); err != nil {
		t.log.Warn("failed to persist location history, continuing in-memory", zap.Error(err))
	}
}

func (t *Tracker) restore() {
	ctx := context.Background()

	if data, err := t.store.Get(ctx, storage.KeyGeofences); err == nil {
		var fences []Geofence
		if err := json.Unmarshal(data, &fences); err == nil {
			for _, g := range fences {
				t.geofences[g.ID] = g
			}
		}
	}

	if data, err := t.store.Get(ctx, storage.KeySecurityIssues); err == nil {
		var movements []SuspiciousMovement
		if err := json.Unmarshal(data, &movements); err == nil {
			t.movements = movements
		}
	}
}
