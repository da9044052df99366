// Package remap binds physical controllers to virtual ones through a
// mapping profile.
package remap

import (
	"sort"
	"sync"

	"github.com/soar/GameControllerRemap/internal/event"
	"github.com/soar/GameControllerRemap/internal/gamepad"
	"github.com/soar/GameControllerRemap/internal/mapping"
	"github.com/soar/GameControllerRemap/internal/output"
	"github.com/soar/GameControllerRemap/internal/poll"
	"github.com/soar/GameControllerRemap/internal/profile"
	"go.uber.org/zap"
)

// VirtualTarget is the controller type every binding emulates.
const VirtualTarget = gamepad.TypeXboxOne

// Poller is the part of the polling supervisor the orchestrator drives.
type Poller interface {
	Start(dev gamepad.ControllerDevice)
	Stop(id string)
}

type binding struct {
	device  gamepad.ControllerDevice
	profile *profile.GameProfile
}

// Binding describes one active remap.
type Binding struct {
	Device  gamepad.ControllerDevice `json:"device"`
	Profile *profile.GameProfile     `json:"profile,omitempty"`
}

// Orchestrator owns the device id to virtual target bindings. Start and
// Stop for the same id must not run concurrently.
type Orchestrator struct {
	poller Poller
	engine *mapping.Engine
	sink   *output.Sink
	logger *zap.Logger

	mu       sync.RWMutex
	bindings map[string]*binding

	unsubscribe func()
}

// New subscribes the orchestrator to feed for the lifetime of the process.
func New(poller Poller, feed *event.Feed[poll.StateChanged], engine *mapping.Engine, sink *output.Sink, logger *zap.Logger) *Orchestrator {
	o := &Orchestrator{
		poller:   poller,
		engine:   engine,
		sink:     sink,
		logger:   logger,
		bindings: make(map[string]*binding),
	}
	o.unsubscribe = feed.Subscribe(o.onState)
	return o
}

// Start binds dev to a new virtual target. It returns nil without side
// effects when dev is already bound. When the target cannot be created
// the error is returned and polling is not started. Callers serialize
// Start and Stop per device id.
func (o *Orchestrator) Start(dev gamepad.ControllerDevice, p *profile.GameProfile) error {
	if o.IsRemapping(dev.InstanceID) {
		return nil
	}

	if err := o.sink.Create(dev.InstanceID, VirtualTarget); err != nil {
		o.logger.Warn("Remapping not started", zap.String("device", dev.InstanceID), zap.Error(err))
		return err
	}

	b := &binding{device: dev.Clone()}
	if p != nil {
		cp := p.Clone()
		b.profile = &cp
		o.engine.LoadProfile(dev.InstanceID, cp)
	}

	o.mu.Lock()
	o.bindings[dev.InstanceID] = b
	o.mu.Unlock()

	o.poller.Start(dev)

	fields := []zap.Field{zap.String("device", dev.InstanceID)}
	if p != nil {
		fields = append(fields, zap.String("profile", p.Name))
	}
	o.logger.Info("Remapping started", fields...)
	return nil
}

// Stop removes the binding for id. It does nothing when id is not bound.
func (o *Orchestrator) Stop(id string) {
	o.mu.Lock()
	_, ok := o.bindings[id]
	delete(o.bindings, id)
	o.mu.Unlock()

	if !ok {
		return
	}

	o.poller.Stop(id)
	o.engine.ClearProfile(id)
	o.sink.Destroy(id)
	o.logger.Info("Remapping stopped", zap.String("device", id))
}

// StopAll removes every binding.
func (o *Orchestrator) StopAll() {
	for _, id := range o.Active() {
		o.Stop(id)
	}
}

// SetProfile swaps the profile of a bound device. A nil profile returns
// the device to passthrough. Unbound ids are ignored.
func (o *Orchestrator) SetProfile(id string, p *profile.GameProfile) {
	o.mu.Lock()
	b, ok := o.bindings[id]
	if ok {
		if p != nil {
			cp := p.Clone()
			b.profile = &cp
		} else {
			b.profile = nil
		}
	}
	o.mu.Unlock()

	if !ok {
		return
	}
	if p == nil {
		o.engine.ClearProfile(id)
		return
	}
	o.engine.LoadProfile(id, *p)
}

// IsRemapping reports whether id is bound.
func (o *Orchestrator) IsRemapping(id string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.bindings[id]
	return ok
}

// Active returns the bound device ids in sorted order.
func (o *Orchestrator) Active() []string {
	o.mu.RLock()
	ids := make([]string, 0, len(o.bindings))
	for id := range o.bindings {
		ids = append(ids, id)
	}
	o.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Binding returns a copy of the binding for id.
func (o *Orchestrator) Binding(id string) (Binding, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	b, ok := o.bindings[id]
	if !ok {
		return Binding{}, false
	}
	out := Binding{Device: b.device.Clone()}
	if b.profile != nil {
		cp := b.profile.Clone()
		out.Profile = &cp
	}
	return out, true
}

// Close stops every binding and detaches from the state feed.
func (o *Orchestrator) Close() {
	o.unsubscribe()
	o.StopAll()
}

// onState forwards one sample. Samples for unbound ids are late emissions
// from a stopped loop and are dropped.
func (o *Orchestrator) onState(ev poll.StateChanged) {
	if !o.IsRemapping(ev.DeviceID) {
		return
	}
	o.sink.Update(ev.DeviceID, o.engine.Transform(ev.DeviceID, ev.State))
}
