package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a key has no value
var ErrNotFound = errors.New("storage: key not found")

// Store is the local key-value persistence contract supplied by the host.
// The engine only requires get/set/delete semantics; there is no cross-key
// transactionality.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}

// Well-known engine keys
const (
	KeyDeviceFingerprint = "deviceFingerprint"
	KeyFraudLogs         = "fraudLogs"
	KeySecurityIssues    = "securityIssues"
	KeyLocationHistory   = "locationHistory"
	KeyGeofences         = "geofences"
)

// BehaviorPatternKey returns the per-agent baseline key
func BehaviorPatternKey(agentID string) string {
	return fmt.Sprintf("behaviorPattern_%s", agentID)
}

// GeofenceStatusKey returns the per-geofence membership state key
func GeofenceStatusKey(geofenceID string) string {
	return fmt.Sprintf("geofence_%s_status", geofenceID)
}
