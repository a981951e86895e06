// Package location acquires GPS fixes, maintains a bounded location history,
// detects suspicious movement, and evaluates geofence transitions.
package location

import (
	"errors"
	"sync"
	"time"
)

// Sentinel errors surfaced to the host
var (
	// ErrLocationUnavailable means fix acquisition failed; history is untouched
	ErrLocationUnavailable = errors.New("location: fix unavailable")
	// ErrPermissionDenied means the platform location permission is missing
	ErrPermissionDenied = errors.New("location: permission denied")
	// ErrOutOfOrder means a fix is older than the newest history entry
	ErrOutOfOrder = errors.New("location: fix older than history tail")
)

// DefaultHistoryCapacity bounds the location history
const DefaultHistoryCapacity = 1000

// Point is a single GPS fix. Immutable once recorded.
type Point struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"` // meters
	Timestamp time.Time `json:"timestamp"`
	Speed     *float64  `json:"speed,omitempty"`   // m/s, as reported by the receiver
	Heading   *float64  `json:"heading,omitempty"` // degrees
}

// History is a fixed-capacity, time-ordered circular buffer of fixes.
// Oldest entries are evicted FIFO on overflow. Owned exclusively by the
// Tracker; other components get copy-out snapshots.
type History struct {
	mu    sync.RWMutex
	buf   []Point
	head  int
	count int
}

// NewHistory creates a history with the given capacity (0 uses the default)
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{buf: make([]Point, capacity)}
}

// Append records a fix. Fixes older than the newest entry are rejected so
// the history never holds points out of timestamp order.
func (h *History) Append(p Point) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count > 0 {
		last := h.buf[h.index(h.count-1)]
		if p.Timestamp.Before(last.Timestamp) {
			return ErrOutOfOrder
		}
	}

	h.buf[h.head] = p
	h.head = (h.head + 1) % len(h.buf)
	if h.count < len(h.buf) {
		h.count++
	}
	return nil
}

// index maps a logical position (0 = oldest) to a buffer slot.
// Callers hold the lock.
func (h *History) index(pos int) int {
	start := h.head - h.count
	return ((start+pos)%len(h.buf) + len(h.buf)) % len(h.buf)
}

// Len returns the number of recorded fixes
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Capacity returns the fixed buffer capacity
func (h *History) Capacity() int {
	return len(h.buf)
}

// Last returns the most recent fix
func (h *History) Last() (Point, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.count == 0 {
		return Point{}, false
	}
	return h.buf[h.index(h.count-1)], true
}

// Points returns a copy of all fixes, oldest first
func (h *History) Points() []Point {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Point, h.count)
	for i := 0; i < h.count; i++ {
		out[i] = h.buf[h.index(i)]
	}
	return out
}

// CountExact returns how many recorded fixes share the exact coordinate pair
func (h *History) CountExact(latitude, longitude float64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for i := 0; i < h.count; i++ {
		p := h.buf[h.index(i)]
		if p.Latitude == latitude && p.Longitude == longitude {
			count++
		}
	}
	return count
}
