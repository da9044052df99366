// Package input discovers physical controllers and reads their raw state.
package input

import (
	"context"
	"strings"

	"github.com/soar/GameControllerRemap/internal/gamepad"
)

// Provider enumerates the controllers one backend can see right now.
// Implementations absorb their own failures and return what they found.
type Provider interface {
	Name() string
	DetectDevices() []gamepad.ControllerDevice
}

// Readier is implemented by providers whose backend needs startup time.
// Ready is closed once enumeration can see the devices attached at start.
type Readier interface {
	Ready() <-chan struct{}
}

// Reader produces one raw snapshot per call.
type Reader interface {
	ReadState(ctx context.Context, dev gamepad.ControllerDevice) (gamepad.ButtonState, error)
}

// ReaderFunc adapts a function to Reader.
type ReaderFunc func(ctx context.Context, dev gamepad.ControllerDevice) (gamepad.ButtonState, error)

func (f ReaderFunc) ReadState(ctx context.Context, dev gamepad.ControllerDevice) (gamepad.ButtonState, error) {
	return f(ctx, dev)
}

// connectionFromName guesses the link from a product name. Wired is assumed
// when the name says nothing.
func connectionFromName(name string) gamepad.ConnectionKind {
	n := strings.ToLower(name)
	if strings.Contains(n, "bluetooth") || strings.Contains(n, "wireless") {
		return gamepad.ConnectionBluetooth
	}
	return gamepad.ConnectionUSB
}

// connectionFromPath inspects an OS device path.
func connectionFromPath(path string) gamepad.ConnectionKind {
	p := strings.ToLower(path)
	switch {
	case strings.Contains(p, "bluetooth"), strings.Contains(p, "bth"):
		return gamepad.ConnectionBluetooth
	case strings.Contains(p, "usb"):
		return gamepad.ConnectionUSB
	}
	return gamepad.ConnectionUnknown
}
