// Package sensors samples motion sensors into bounded ring buffers and
// summarizes recent movement for the fraud detectors.
package sensors

import (
	"math"
	"sync"
	"time"
)

// Kind identifies a motion sensor stream
type Kind string

const (
	Accelerometer Kind = "accelerometer"
	Gyroscope     Kind = "gyroscope"
	Magnetometer  Kind = "magnetometer"
)

const (
	// BufferCapacity bounds each per-sensor ring buffer
	BufferCapacity = 100

	// DefaultMovementWindow is how many trailing accelerometer samples feed
	// the movement summary
	DefaultMovementWindow = 10

	// stationaryThreshold is the average magnitude (device-g units) below
	// which the device is considered stationary
	stationaryThreshold = 1.2
)

// Sample is a single axis-triplet reading
type Sample struct {
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Z         float64   `json:"z"`
	Timestamp time.Time `json:"timestamp"`
}

// Magnitude returns the Euclidean magnitude of the triplet
func (s Sample) Magnitude() float64 {
	return math.Sqrt(s.X*s.X + s.Y*s.Y + s.Z*s.Z)
}

// Movement summarizes recent accelerometer activity. Samples == 0 means the
// device reported no sensor data; downstream treats that as absence of
// evidence, not as a flag.
type Movement struct {
	IsStationary     bool    `json:"is_stationary"`
	AverageMagnitude float64 `json:"average_magnitude"`
	Samples          int     `json:"samples"`
}

// ring is a fixed-capacity circular buffer of samples. Oldest entries are
// overwritten once the buffer is full.
type ring struct {
	buf   [BufferCapacity]Sample
	head  int
	count int
}

func (r *ring) push(s Sample) {
	r.buf[r.head] = s
	r.head = (r.head + 1) % BufferCapacity
	if r.count < BufferCapacity {
		r.count++
	}
}

// last returns up to n most recent samples, oldest first
func (r *ring) last(n int) []Sample {
	if n > r.count {
		n = r.count
	}
	out := make([]Sample, 0, n)
	start := r.head - n
	for i := 0; i < n; i++ {
		idx := ((start + i) % BufferCapacity + BufferCapacity) % BufferCapacity
		out = append(out, r.buf[idx])
	}
	return out
}

func (r *ring) len() int { return r.count }

// Monitor owns the per-sensor ring buffers. Platform callbacks arrive
// asynchronously, so all access is mutex-guarded.
type Monitor struct {
	mu    sync.Mutex
	rings map[Kind]*ring
}

// NewMonitor creates a monitor with empty buffers
func NewMonitor() *Monitor {
	return &Monitor{rings: make(map[Kind]*ring)}
}

// Record appends a sample to the sensor's ring buffer
func (m *Monitor) Record(kind Kind, sample Sample) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rings[kind]
	if !ok {
		r = &ring{}
		m.rings[kind] = r
	}
	r.push(sample)
}

// Len returns the number of buffered samples for a sensor
func (m *Monitor) Len(kind Kind) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.rings[kind]; ok {
		return r.len()
	}
	return 0
}

// RecentMovement computes the mean magnitude of the last window accelerometer
// samples. A window of 0 uses the default.
func (m *Monitor) RecentMovement(window int) Movement {
	if window <= 0 {
		window = DefaultMovementWindow
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rings[Accelerometer]
	if !ok || r.len() == 0 {
		return Movement{}
	}

	samples := r.last(window)
	var total float64
	for _, s := range samples {
		total += s.Magnitude()
	}
	avg := total / float64(len(samples))

	return Movement{
		IsStationary:     avg < stationaryThreshold,
		AverageMagnitude: avg,
		Samples:          len(samples),
	}
}
