package location

import (
	"context"
	"sync"
	"time"
)

// AccuracyTier is the requested platform positioning quality
type AccuracyTier string

const (
	AccuracyHigh     AccuracyTier = "high"
	AccuracyBalanced AccuracyTier = "balanced"
	AccuracyLow      AccuracyTier = "low"
)

// Options tunes continuous tracking. The tier and throttles are forwarded to
// the platform provider; push-fed sources deliver what the host sends.
type Options struct {
	Accuracy    AccuracyTier
	MinInterval time.Duration
	MinDistance float64 // meters
}

// Source is the platform GPS provider. The host supplies a real
// implementation; the daemon uses a ChannelSource fed over the loopback API.
type Source interface {
	// Current acquires a single high-accuracy fix
	Current(ctx context.Context) (Point, error)
	// Watch begins a continuous stream of fixes. The channel closes when
	// the context is cancelled.
	Watch(ctx context.Context, opts Options) (<-chan Point, error)
}

// ChannelSource is a Source fed by pushed fixes. Pushes never block the
// caller; the consumer loop drains the buffer.
type ChannelSource struct {
	mu      sync.Mutex
	latest  *Point
	fixes   chan Point
	watched bool
}

// NewChannelSource creates a push-fed source
func NewChannelSource() *ChannelSource {
	return &ChannelSource{fixes: make(chan Point, 32)}
}

// Push delivers a fix from the platform event source. Returns false when the
// buffer is full and the fix was dropped.
func (s *ChannelSource) Push(p Point) bool {
	s.mu.Lock()
	latest := p
	s.latest = &latest
	s.mu.Unlock()

	select {
	case s.fixes <- p:
		return true
	default:
		return false
	}
}

// Current returns the most recently pushed fix
func (s *ChannelSource) Current(_ context.Context) (Point, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.latest == nil {
		return Point{}, ErrLocationUnavailable
	}
	return *s.latest, nil
}

// Watch returns the push channel. Interval/distance throttling is the
// platform's concern; a push source delivers what the host sends.
func (s *ChannelSource) Watch(ctx context.Context, _ Options) (<-chan Point, error) {
	out := make(chan Point)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case p := <-s.fixes:
				select {
				case out <- p:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
