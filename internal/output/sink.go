// Package output feeds transformed controller state into virtual controllers.
package output

import (
	"fmt"
	"sync"

	"github.com/soar/GameControllerRemap/internal/gamepad"
	"go.uber.org/zap"
)

// Target is one virtual controller exposed to the operating system.
type Target interface {
	// Submit writes a complete report for s in one operation.
	Submit(s gamepad.ButtonState) error
	SetVibration(left, right uint8) error
	Close() error
}

// Backend creates virtual targets.
type Backend interface {
	Name() string
	Open(deviceID string, kind gamepad.ControllerType) (Target, error)
}

// Sink keeps at most one virtual target per physical device id.
type Sink struct {
	backend Backend
	logger  *zap.Logger

	mu      sync.Mutex
	targets map[string]Target
}

// NewSink wraps backend. A nil backend yields a sink that is permanently
// unavailable.
func NewSink(backend Backend, logger *zap.Logger) *Sink {
	s := &Sink{
		backend: backend,
		logger:  logger,
		targets: make(map[string]Target),
	}
	if backend == nil {
		logger.Warn("Virtual controller backend unavailable, remapping disabled")
	} else {
		logger.Info("Virtual controller backend ready", zap.String("backend", backend.Name()))
	}
	return s
}

// Available reports whether the emulation backend initialized.
func (s *Sink) Available() bool {
	return s.backend != nil
}

// Create opens a target for deviceID. It succeeds immediately when one
// already exists.
func (s *Sink) Create(deviceID string, kind gamepad.ControllerType) error {
	if s.backend == nil {
		return ErrBackendUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.targets[deviceID]; ok {
		return nil
	}

	t, err := s.backend.Open(deviceID, kind)
	if err != nil {
		return fmt.Errorf("create virtual %s for %s: %w", kind, deviceID, err)
	}
	s.targets[deviceID] = t

	s.logger.Info("Virtual controller created",
		zap.String("device", deviceID),
		zap.Stringer("target", kind))
	return nil
}

// Destroy closes the target for deviceID, if any.
func (s *Sink) Destroy(deviceID string) {
	s.mu.Lock()
	t, ok := s.targets[deviceID]
	delete(s.targets, deviceID)
	s.mu.Unlock()

	if !ok {
		return
	}
	if err := t.Close(); err != nil {
		s.logger.Warn("Closing virtual controller failed", zap.String("device", deviceID), zap.Error(err))
		return
	}
	s.logger.Info("Virtual controller destroyed", zap.String("device", deviceID))
}

// Update submits the full state for deviceID. Unknown ids are ignored.
func (s *Sink) Update(deviceID string, state gamepad.ButtonState) {
	t, ok := s.target(deviceID)
	if !ok {
		return
	}
	if err := t.Submit(state); err != nil {
		s.logger.Debug("Submitting report failed", zap.String("device", deviceID), zap.Error(err))
	}
}

// SetVibration forwards rumble to the target. Backends without force
// feedback return ErrUnsupported.
func (s *Sink) SetVibration(deviceID string, left, right uint8) error {
	t, ok := s.target(deviceID)
	if !ok {
		return ErrNoTarget
	}
	return t.SetVibration(left, right)
}

// Has reports whether a target exists for deviceID.
func (s *Sink) Has(deviceID string) bool {
	_, ok := s.target(deviceID)
	return ok
}

// Close destroys every target.
func (s *Sink) Close() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.targets))
	for id := range s.targets {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		s.Destroy(id)
	}
}

func (s *Sink) target(deviceID string) (Target, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.targets[deviceID]
	return t, ok
}
