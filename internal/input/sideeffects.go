package input

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/soar/GameControllerRemap/internal/gamepad"
	"go.uber.org/zap"
)

// rumbleHold keeps joystick motors running until the next command.
const rumbleHold = time.Duration(math.MaxUint16) * time.Millisecond

// testRumble is the pulse TestVibration plays.
const testRumble = 500 * time.Millisecond

type rgb struct{ r, g, b byte }

// SideEffects drives light bars and rumble motors. Failures are logged and
// returned; callers treat them as best effort.
type SideEffects struct {
	bus       HIDBus
	hid       *HIDReader
	joysticks *JoystickReader
	logger    *zap.Logger

	mu  sync.Mutex
	led map[string]rgb
}

// NewSideEffects accepts nil for a backend that is not running.
func NewSideEffects(bus HIDBus, hid *HIDReader, joysticks *JoystickReader, logger *zap.Logger) *SideEffects {
	return &SideEffects{
		bus:       bus,
		hid:       hid,
		joysticks: joysticks,
		logger:    logger,
		led:       make(map[string]rgb),
	}
}

// SupportsLED reports whether the pad has a controllable light bar.
func SupportsLED(dev gamepad.ControllerDevice) bool {
	return dev.Type == gamepad.TypePS4 || dev.Type == gamepad.TypePS5
}

// ParseColor decodes a "#RRGGBB" string.
func ParseColor(s string) (r, g, b byte, err error) {
	if _, err = fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return r, g, b, nil
}

// SetLED sets the light bar color of a PlayStation pad.
func (e *SideEffects) SetLED(dev gamepad.ControllerDevice, r, g, b byte) error {
	if !SupportsLED(dev) {
		return fmt.Errorf("%w: %s has no light bar", ErrUnsupported, dev.Type)
	}
	path, err := e.hidPath(dev)
	if err != nil {
		return e.fail("Setting LED failed", dev, err)
	}

	e.mu.Lock()
	e.led[path] = rgb{r, g, b}
	e.mu.Unlock()

	var report []byte
	if dev.Type == gamepad.TypePS4 {
		report = ds4OutputReport(r, g, b, 0, 0)
	} else {
		report = dualSenseLEDReport(r, g, b)
	}
	if err := e.hid.Write(path, report); err != nil {
		return e.fail("Setting LED failed", dev, err)
	}
	return nil
}

// SetVibration drives the left (strong) and right (weak) motors.
func (e *SideEffects) SetVibration(dev gamepad.ControllerDevice, left, right uint8) error {
	switch dev.Backend {
	case gamepad.BackendFixedSlot, gamepad.BackendJoystick:
		if e.joysticks == nil {
			return fmt.Errorf("%w: joystick backend not running", ErrUnsupported)
		}
		if err := e.joysticks.Rumble(dev, left, right, rumbleHold); err != nil {
			return e.fail("Setting vibration failed", dev, err)
		}
		return nil
	}

	if dev.Type != gamepad.TypePS4 && dev.Type != gamepad.TypePS5 {
		return fmt.Errorf("%w: no rumble for %s over HID", ErrUnsupported, dev.Type)
	}
	path, err := e.hidPath(dev)
	if err != nil {
		return e.fail("Setting vibration failed", dev, err)
	}

	var report []byte
	if dev.Type == gamepad.TypePS4 {
		e.mu.Lock()
		c := e.led[path]
		e.mu.Unlock()
		report = ds4OutputReport(c.r, c.g, c.b, left, right)
	} else {
		report = dualSenseRumbleReport(left, right)
	}
	if err := e.hid.Write(path, report); err != nil {
		return e.fail("Setting vibration failed", dev, err)
	}
	return nil
}

// StopVibration turns both motors off.
func (e *SideEffects) StopVibration(dev gamepad.ControllerDevice) error {
	return e.SetVibration(dev, 0, 0)
}

// TestVibration plays a short pulse on both motors.
func (e *SideEffects) TestVibration(dev gamepad.ControllerDevice) error {
	if err := e.SetVibration(dev, 200, 200); err != nil {
		return err
	}
	time.AfterFunc(testRumble, func() {
		e.StopVibration(dev)
	})
	return nil
}

// hidPath finds the HID interface of dev. Devices found through another
// backend are matched by vendor and product id.
func (e *SideEffects) hidPath(dev gamepad.ControllerDevice) (string, error) {
	if e.hid == nil {
		return "", fmt.Errorf("%w: HID backend not running", ErrUnsupported)
	}
	if dev.Path != "" {
		return dev.Path, nil
	}
	infos, err := e.bus.Enumerate()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEnumeration, err)
	}
	for _, info := range infos {
		if int(info.VendorID) == dev.VendorID && int(info.ProductID) == dev.ProductID {
			return info.Path, nil
		}
	}
	return "", fmt.Errorf("%w: no HID interface for %s", ErrUnsupported, dev.InstanceID)
}

func (e *SideEffects) fail(msg string, dev gamepad.ControllerDevice, err error) error {
	e.logger.Warn(msg, zap.String("device", dev.InstanceID), zap.Error(err))
	return err
}
