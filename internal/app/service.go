// Package app exposes the remapping core to the websocket, REST and tray
// front ends.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/soar/GameControllerRemap/internal/config"
	"github.com/soar/GameControllerRemap/internal/device"
	"github.com/soar/GameControllerRemap/internal/gamepad"
	"github.com/soar/GameControllerRemap/internal/input"
	"github.com/soar/GameControllerRemap/internal/poll"
	"github.com/soar/GameControllerRemap/internal/profile"
	"github.com/soar/GameControllerRemap/internal/remap"
	"go.uber.org/zap"
)

// Effects drives controller light bars and rumble motors.
type Effects interface {
	SetLED(dev gamepad.ControllerDevice, r, g, b byte) error
	SetVibration(dev gamepad.ControllerDevice, left, right uint8) error
	TestVibration(dev gamepad.ControllerDevice) error
}

// Options bundles the components a Service drives.
type Options struct {
	Catalog    *device.Catalog
	Poller     *poll.Supervisor
	Remapper   *remap.Orchestrator
	Profiles   *profile.Store
	Effects    Effects
	Config     *config.Config
	ConfigPath string
}

type Service struct {
	catalog  *device.Catalog
	poller   *poll.Supervisor
	remapper *remap.Orchestrator
	profiles *profile.Store
	effects  Effects
	logger   *zap.Logger

	// ctx bounds the catalog scan loop restarted by SetMonitoring.
	ctx context.Context

	cfgMu   sync.Mutex
	cfg     config.Config
	cfgPath string

	watchMu  sync.Mutex
	watchers map[string]int

	// remapMu serializes start, stop and profile switches.
	remapMu sync.Mutex
}

func New(ctx context.Context, opts Options, logger *zap.Logger) *Service {
	s := &Service{
		catalog:  opts.Catalog,
		poller:   opts.Poller,
		remapper: opts.Remapper,
		profiles: opts.Profiles,
		effects:  opts.Effects,
		logger:   logger,
		ctx:      ctx,
		cfgPath:  opts.ConfigPath,
		watchers: make(map[string]int),
	}
	if opts.Config != nil {
		s.cfg = *opts.Config
	}
	return s
}

func (s *Service) Devices() []gamepad.ControllerDevice {
	return s.catalog.Devices()
}

func (s *Service) Device(id string) (gamepad.ControllerDevice, bool) {
	return s.catalog.Device(id)
}

func (s *Service) lookup(id string) (gamepad.ControllerDevice, error) {
	dev, ok := s.catalog.Device(id)
	if !ok {
		return gamepad.ControllerDevice{}, fmt.Errorf("%w: %s", ErrUnknownDevice, id)
	}
	return dev, nil
}

// Active returns the ids of the devices being remapped.
func (s *Service) Active() []string {
	return s.remapper.Active()
}

func (s *Service) CurrentState(id string) (gamepad.ButtonState, bool) {
	return s.poller.CurrentState(id)
}

// resolveProfile returns nil for an empty reference.
func (s *Service) resolveProfile(ref string) (*profile.GameProfile, error) {
	if ref == "" {
		return nil, nil
	}
	p, err := s.profiles.Find(ref)
	if err != nil {
		return nil, fmt.Errorf("profile %q: %w", ref, err)
	}
	return &p, nil
}

// StartRemap binds a device to a virtual controller, optionally through the
// profile named by profileRef (an id or a name).
func (s *Service) StartRemap(id, profileRef string) error {
	s.remapMu.Lock()
	defer s.remapMu.Unlock()

	dev, err := s.lookup(id)
	if err != nil {
		return err
	}
	p, err := s.resolveProfile(profileRef)
	if err != nil {
		return err
	}
	if err := s.remapper.Start(dev, p); err != nil {
		return err
	}
	s.applyProfile(dev, p)
	return nil
}

// StopRemap unbinds a device. Polling continues while a consumer watches it.
func (s *Service) StopRemap(id string) error {
	s.remapMu.Lock()
	defer s.remapMu.Unlock()

	b, ok := s.remapper.Binding(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRemapping, id)
	}
	s.remapper.Stop(id)
	s.catalog.SetProfileName(id, gamepad.DefaultProfileName)

	s.watchMu.Lock()
	watched := s.watchers[id] > 0
	s.watchMu.Unlock()
	if watched {
		s.poller.Start(b.Device)
	}
	return nil
}

// SetProfile switches the profile of a device being remapped. An empty
// reference returns it to passthrough.
func (s *Service) SetProfile(id, profileRef string) error {
	s.remapMu.Lock()
	defer s.remapMu.Unlock()

	if !s.remapper.IsRemapping(id) {
		return fmt.Errorf("%w: %s", ErrNotRemapping, id)
	}
	p, err := s.resolveProfile(profileRef)
	if err != nil {
		return err
	}
	s.remapper.SetProfile(id, p)
	if dev, ok := s.catalog.Device(id); ok {
		s.applyProfile(dev, p)
	}
	return nil
}

func (s *Service) applyProfile(dev gamepad.ControllerDevice, p *profile.GameProfile) {
	name := gamepad.DefaultProfileName
	if p != nil {
		name = p.Name
	}
	s.catalog.SetProfileName(dev.InstanceID, name)

	if p == nil || p.LEDColor == "" || !input.SupportsLED(dev) {
		return
	}
	r, g, b, err := input.ParseColor(p.LEDColor)
	if err == nil {
		err = s.effects.SetLED(dev, r, g, b)
	}
	if err != nil {
		s.logger.Debug("Profile light bar not applied",
			zap.String("device", dev.InstanceID),
			zap.String("profile", p.Name),
			zap.Error(err))
	}
}

func (s *Service) SetLED(id, color string) error {
	dev, err := s.lookup(id)
	if err != nil {
		return err
	}
	r, g, b, err := input.ParseColor(color)
	if err != nil {
		return err
	}
	return s.effects.SetLED(dev, r, g, b)
}

func (s *Service) SetVibration(id string, left, right uint8) error {
	dev, err := s.lookup(id)
	if err != nil {
		return err
	}
	return s.effects.SetVibration(dev, left, right)
}

func (s *Service) TestVibration(id string) error {
	dev, err := s.lookup(id)
	if err != nil {
		return err
	}
	return s.effects.TestVibration(dev)
}

// Watch keeps a device polled so consumers receive its state. Calls are
// counted; each must be paired with Unwatch.
func (s *Service) Watch(id string) error {
	dev, err := s.lookup(id)
	if err != nil {
		return err
	}
	s.watchMu.Lock()
	s.watchers[id]++
	s.watchMu.Unlock()
	s.poller.Start(dev)
	return nil
}

// Unwatch releases one Watch. Polling stops with the last watcher unless
// the device is being remapped.
func (s *Service) Unwatch(id string) {
	s.watchMu.Lock()
	n := s.watchers[id]
	if n == 0 {
		s.watchMu.Unlock()
		return
	}
	if n == 1 {
		delete(s.watchers, id)
	} else {
		s.watchers[id] = n - 1
	}
	s.watchMu.Unlock()

	if n == 1 && !s.remapper.IsRemapping(id) {
		s.poller.Stop(id)
	}
}

func (s *Service) Profiles() ([]profile.GameProfile, error) {
	return s.profiles.Load()
}

// SaveProfile stores p, assigning an id when it has none.
func (s *Service) SaveProfile(p profile.GameProfile) (profile.GameProfile, error) {
	if p.ID == "" {
		fresh := profile.New(p.Name, p.GameName)
		p.ID = fresh.ID
		if p.ButtonMappings == nil {
			p.ButtonMappings = fresh.ButtonMappings
		}
	}
	return s.profiles.Save(p)
}

func (s *Service) DeleteProfile(id string) error {
	return s.profiles.Delete(id)
}

func (s *Service) Settings() config.AppSettings {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	return s.cfg.Settings
}

// UpdateSettings validates and persists a new settings record. Nothing
// changes when validation or the write fails.
func (s *Service) UpdateSettings(settings config.AppSettings) error {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	next := s.cfg
	next.Settings = settings
	if err := next.Validate(); err != nil {
		return err
	}
	if s.cfgPath != "" {
		if err := config.Save(s.cfgPath, &next); err != nil {
			return err
		}
	}
	s.cfg = next
	s.logger.Info("Settings updated")
	return nil
}

// Monitoring reports whether the periodic device scan is running.
func (s *Service) Monitoring() bool {
	return s.catalog.Monitoring()
}

// SetMonitoring pauses or resumes the periodic device scan.
func (s *Service) SetMonitoring(on bool) {
	if on {
		s.catalog.Start(s.ctx)
		return
	}
	s.catalog.Stop()
}
