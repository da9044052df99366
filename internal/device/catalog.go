// Package device keeps the live list of physical controllers.
package device

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/soar/GameControllerRemap/internal/event"
	"github.com/soar/GameControllerRemap/internal/gamepad"
	"github.com/soar/GameControllerRemap/internal/input"
	"go.uber.org/zap"
)

// Catalog merges the results of every provider and reports devices that
// appear or disappear between scans.
type Catalog struct {
	providers []input.Provider
	interval  time.Duration
	logger    *zap.Logger

	// scanMu serializes scans; the snapshot has a single writer.
	scanMu   sync.Mutex
	snapshot atomic.Pointer[[]gamepad.ControllerDevice]

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	connected    event.Feed[gamepad.ControllerDevice]
	disconnected event.Feed[gamepad.ControllerDevice]
}

func NewCatalog(providers []input.Provider, interval time.Duration, logger *zap.Logger) *Catalog {
	c := &Catalog{
		providers: providers,
		interval:  interval,
		logger:    logger,
	}
	empty := []gamepad.ControllerDevice{}
	c.snapshot.Store(&empty)
	return c
}

// Connected fires once for every device a scan adds.
func (c *Catalog) Connected() *event.Feed[gamepad.ControllerDevice] {
	return &c.connected
}

// Disconnected fires once for every device a scan removes.
func (c *Catalog) Disconnected() *event.Feed[gamepad.ControllerDevice] {
	return &c.disconnected
}

// Initialize waits for every provider that reports readiness, then runs one
// synchronous scan. When ctx is done the wait ends and the scan still runs.
func (c *Catalog) Initialize(ctx context.Context) {
	for _, p := range c.providers {
		r, ok := p.(input.Readier)
		if !ok {
			continue
		}
		select {
		case <-r.Ready():
		case <-ctx.Done():
			c.logger.Warn("Provider not ready for initial scan", zap.String("provider", p.Name()))
		}
	}
	c.Scan()
}

// Scan queries every provider and applies the difference to the catalog.
func (c *Catalog) Scan() {
	c.scanMu.Lock()
	defer c.scanMu.Unlock()

	var found []gamepad.ControllerDevice
	for _, p := range c.providers {
		found = append(found, c.detect(p)...)
	}

	previous := *c.snapshot.Load()
	prevByID := make(map[string]gamepad.ControllerDevice, len(previous))
	for _, d := range previous {
		prevByID[d.InstanceID] = d
	}

	current := make([]gamepad.ControllerDevice, 0, len(found))
	seen := make(map[string]bool, len(found))
	var added []gamepad.ControllerDevice
	for _, d := range found {
		if seen[d.InstanceID] {
			c.logger.Debug("Duplicate device id in scan", zap.String("device", d.InstanceID))
			continue
		}
		seen[d.InstanceID] = true

		if old, ok := prevByID[d.InstanceID]; ok {
			old.Connected = d.Connected
			old.BatteryLevel = d.BatteryLevel
			current = append(current, old)
			continue
		}
		current = append(current, d)
		added = append(added, d)
	}

	var removed []gamepad.ControllerDevice
	for _, d := range previous {
		if !seen[d.InstanceID] {
			removed = append(removed, d)
		}
	}

	c.snapshot.Store(&current)

	for _, d := range removed {
		d.Connected = false
		c.logger.Info("Controller disconnected", zap.String("device", d.InstanceID), zap.String("name", d.Name))
		c.disconnected.Publish(d.Clone())
	}
	for _, d := range added {
		c.logger.Info("Controller connected",
			zap.String("device", d.InstanceID),
			zap.String("name", d.Name),
			zap.Stringer("type", d.Type),
			zap.Stringer("backend", d.Backend))
		c.connected.Publish(d.Clone())
	}
}

// detect isolates one provider. A panic contributes no devices.
func (c *Catalog) detect(p input.Provider) (devices []gamepad.ControllerDevice) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("Provider failed",
				zap.String("backend", p.Name()),
				zap.Error(fmt.Errorf("%w: %v", input.ErrEnumeration, r)))
			devices = nil
		}
	}()
	return p.DetectDevices()
}

// Start scans immediately and then every interval until Stop or ctx ends.
// It does nothing when monitoring is already running.
func (c *Catalog) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	c.running = true
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.loop(ctx, c.done)

	c.logger.Info("Device monitoring started", zap.Duration("interval", c.interval))
}

func (c *Catalog) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Scan()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Scan()
		}
	}
}

// Stop cancels the repeating scan and waits for it to exit. It is safe to
// call when monitoring is not running.
func (c *Catalog) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	cancel()
	<-done
	c.logger.Info("Device monitoring stopped")
}

// Monitoring reports whether the repeating scan is active.
func (c *Catalog) Monitoring() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Devices returns a copy of the current device list.
func (c *Catalog) Devices() []gamepad.ControllerDevice {
	snap := *c.snapshot.Load()
	out := make([]gamepad.ControllerDevice, len(snap))
	for i, d := range snap {
		out[i] = d.Clone()
	}
	return out
}

// Device looks a device up by instance id.
func (c *Catalog) Device(id string) (gamepad.ControllerDevice, bool) {
	for _, d := range *c.snapshot.Load() {
		if d.InstanceID == id {
			return d.Clone(), true
		}
	}
	return gamepad.ControllerDevice{}, false
}

// SetProfileName records the profile assigned to a device. The name
// survives later scans.
func (c *Catalog) SetProfileName(id, name string) bool {
	c.scanMu.Lock()
	defer c.scanMu.Unlock()

	snap := *c.snapshot.Load()
	next := make([]gamepad.ControllerDevice, len(snap))
	copy(next, snap)
	for i := range next {
		if next[i].InstanceID == id {
			next[i].ProfileName = name
			c.snapshot.Store(&next)
			return true
		}
	}
	return false
}
