// Package device builds a static snapshot of device identity and detects
// device swaps and tamper indicators.
package device

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/trackforce/fieldguard/pkg/storage"
)

// Motion sensors expected on a physical handset. Fewer than two available
// suggests sensor-spoofing tooling or an emulator.
const minMotionSensors = 2

// Fingerprint is a static snapshot of device identity and capabilities
type Fingerprint struct {
	DeviceID         string    `json:"device_id"`
	Name             string    `json:"name"`
	OS               string    `json:"os"`
	OSVersion        string    `json:"os_version"`
	Brand            string    `json:"brand"`
	Model            string    `json:"model"`
	IsPhysicalDevice bool      `json:"is_physical_device"`
	AvailableSensors []string  `json:"available_sensors"`
	ScreenWidth      int       `json:"screen_width"`
	ScreenHeight     int       `json:"screen_height"`
	Timezone         string    `json:"timezone"`
	Locale           string    `json:"locale"`
	CollectedAt      time.Time `json:"collected_at"`
}

// ErrNoFingerprint is returned by a PushProber before the host has
// submitted a platform snapshot.
var ErrNoFingerprint = errors.New("device: no fingerprint submitted")

// Prober supplies the raw platform snapshot. The host app provides the real
// implementation; tests supply fakes.
type Prober interface {
	Probe(ctx context.Context) (Fingerprint, error)
}

// ProberFunc adapts a function to the Prober interface
type ProberFunc func(ctx context.Context) (Fingerprint, error)

// Probe implements Prober
func (f ProberFunc) Probe(ctx context.Context) (Fingerprint, error) { return f(ctx) }

// PushProber is a Prober fed by the host over the daemon API. Only the host
// can read platform identifiers, so it submits the snapshot instead of the
// engine probing for it.
type PushProber struct {
	mu sync.Mutex
	fp *Fingerprint
}

// NewPushProber creates an empty push-fed prober
func NewPushProber() *PushProber { return &PushProber{} }

// Set stores the snapshot submitted by the host
func (p *PushProber) Set(fp Fingerprint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fp = &fp
}

// Probe implements Prober
func (p *PushProber) Probe(_ context.Context) (Fingerprint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.fp == nil {
		return Fingerprint{}, ErrNoFingerprint
	}
	return *p.fp, nil
}

// Collector collects fingerprints at startup and persists the last-known
// snapshot so the next run can detect a device swap.
type Collector struct {
	prober Prober
	store  storage.Store
	log    *zap.Logger

	current *Fingerprint
	last    *Fingerprint
}

// NewCollector creates a collector
func NewCollector(prober Prober, store storage.Store, log *zap.Logger) *Collector {
	return &Collector{prober: prober, store: store, log: log}
}

// Collect probes the platform, loads the previously persisted fingerprint,
// and persists the fresh one as the new last-known snapshot. A storage
// failure is logged and the engine continues with in-memory state only.
func (c *Collector) Collect(ctx context.Context) (Fingerprint, error) {
	fp, err := c.prober.Probe(ctx)
	if err != nil {
		return Fingerprint{}, err
	}
	fp.CollectedAt = time.Now()

	c.last = c.loadLast(ctx)
	c.current = &fp

	data, err := json.Marshal(fp)
	if err == nil {
		err = c.store.Set(ctx, storage.KeyDeviceFingerprint, data)
	}
	if err != nil {
		c.log.Warn("failed to persist device fingerprint, continuing in-memory",
			zap.Error(err))
	}

	return fp, nil
}

// Current returns the fingerprint collected at startup, or nil
func (c *Collector) Current() *Fingerprint { return c.current }

// Last returns the fingerprint persisted by the previous run, or nil
func (c *Collector) Last() *Fingerprint { return c.last }

func (c *Collector) loadLast(ctx context.Context) *Fingerprint {
	data, err := c.store.Get(ctx, storage.KeyDeviceFingerprint)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.log.Warn("failed to load last device fingerprint", zap.Error(err))
		}
		return nil
	}

	var fp Fingerprint
	if err := json.Unmarshal(data, &fp); err != nil {
		c.log.Warn("discarding corrupt persisted fingerprint", zap.Error(err))
		return nil
	}
	return &fp
}

// IdentityChanged reports whether the device identity differs from the
// last persisted snapshot. A change is a Critical device-swap condition.
func IdentityChanged(current Fingerprint, last *Fingerprint) bool {
	if last == nil {
		return false
	}
	return current.DeviceID != last.DeviceID
}

// TamperSuspected reports emulator use or missing motion sensors
func TamperSuspected(fp Fingerprint) bool {
	if !fp.IsPhysicalDevice {
		return true
	}
	return countMotionSensors(fp.AvailableSensors) < minMotionSensors
}

func countMotionSensors(available []string) int {
	motion := map[string]bool{
		"accelerometer": true,
		"gyroscope":     true,
		"magnetometer":  true,
	}
	count := 0
	for _, s := range available {
		if motion[s] {
			count++
		}
	}
	return count
}
