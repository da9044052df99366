//go:build !linux

package output

import "github.com/soar/GameControllerRemap/internal/gamepad"

// UInputBackend is only available on Linux.
type UInputBackend struct{}

func NewUInputBackend(deviceName string) (*UInputBackend, error) {
	return nil, ErrBackendUnavailable
}

func (b *UInputBackend) Name() string { return "uinput" }

func (b *UInputBackend) Open(deviceID string, kind gamepad.ControllerType) (Target, error) {
	return nil, ErrBackendUnavailable
}
