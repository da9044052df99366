package input

import (
	"context"
	"fmt"
	"time"

	"github.com/soar/GameControllerRemap/internal/gamepad"
	"go.uber.org/zap"
)

// FixedSlots is the number of player slots the fixed-slot backend exposes.
const FixedSlots = 4

// NoSlot marks a joystick that is not bound to a fixed slot.
const NoSlot = -1

// JoystickInfo describes one open joystick.
type JoystickInfo struct {
	ID        uint32
	GUID      string
	Name      string
	VendorID  uint16
	ProductID uint16
	// Slot is the fixed player slot, or NoSlot.
	Slot int
	// BatteryPercent is the charge reported by the driver, -1 when unknown.
	BatteryPercent int
	ConnectedAt    time.Time
}

// JoystickSample is the raw state of one joystick.
type JoystickSample struct {
	Axes    []int16
	Buttons []bool
	Hats    []uint8
}

// JoystickSystem is the joystick API the fixed-slot and joystick backends
// share. SDLRuntime implements it.
type JoystickSystem interface {
	Joysticks() []JoystickInfo
	Sample(id uint32) (JoystickSample, error)
	Rumble(id uint32, low, high uint16, duration time.Duration) error
}

// FixedSlotProvider reports the controllers bound to the four player slots.
type FixedSlotProvider struct {
	sys    JoystickSystem
	logger *zap.Logger
}

func NewFixedSlotProvider(sys JoystickSystem, logger *zap.Logger) *FixedSlotProvider {
	return &FixedSlotProvider{sys: sys, logger: logger}
}

func (p *FixedSlotProvider) Name() string { return "fixed-slot" }

func (p *FixedSlotProvider) Ready() <-chan struct{} { return systemReady(p.sys) }

func (p *FixedSlotProvider) DetectDevices() []gamepad.ControllerDevice {
	var slots [FixedSlots]*JoystickInfo
	for _, js := range p.sys.Joysticks() {
		if js.Slot < 0 || js.Slot >= FixedSlots {
			continue
		}
		slots[js.Slot] = &js
	}

	var devices []gamepad.ControllerDevice
	for slot, js := range slots {
		if js == nil {
			continue
		}
		devices = append(devices, fixedSlotDevice(slot, *js))
	}
	return devices
}

// FixedSlotID returns the instance id of a fixed slot.
func FixedSlotID(slot int) string {
	return fmt.Sprintf("FixedSlot_%d", slot)
}

func fixedSlotDevice(slot int, js JoystickInfo) gamepad.ControllerDevice {
	s := slot
	return gamepad.ControllerDevice{
		InstanceID:   FixedSlotID(slot),
		Name:         fmt.Sprintf("Xbox Controller %d", slot+1),
		Type:         gamepad.Classify(js.VendorID, js.ProductID, js.Name, gamepad.TypeXboxOne),
		Backend:      gamepad.BackendFixedSlot,
		Connection:   gamepad.ConnectionUnknown,
		VendorID:     int(js.VendorID),
		ProductID:    int(js.ProductID),
		Connected:    true,
		ConnectedAt:  js.ConnectedAt,
		BatteryLevel: gamepad.BatteryLevel(js.BatteryPercent),
		ProfileName:  gamepad.DefaultProfileName,
		SlotIndex:    &s,
	}
}

// JoystickProvider reports every joystick that is not bound to a fixed slot.
type JoystickProvider struct {
	sys    JoystickSystem
	logger *zap.Logger
}

func NewJoystickProvider(sys JoystickSystem, logger *zap.Logger) *JoystickProvider {
	return &JoystickProvider{sys: sys, logger: logger}
}

func (p *JoystickProvider) Name() string { return "joystick" }

func (p *JoystickProvider) Ready() <-chan struct{} { return systemReady(p.sys) }

// systemReady returns sys's readiness, or a closed channel when sys has no
// startup phase.
func systemReady(sys JoystickSystem) <-chan struct{} {
	if r, ok := sys.(Readier); ok {
		return r.Ready()
	}
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (p *JoystickProvider) DetectDevices() []gamepad.ControllerDevice {
	var devices []gamepad.ControllerDevice
	for _, js := range p.sys.Joysticks() {
		if js.Slot != NoSlot {
			continue
		}
		if js.GUID == "" {
			p.logger.Debug("Skipping joystick without guid",
				zap.Error(fmt.Errorf("%w: joystick %d", ErrEnumeration, js.ID)))
			continue
		}
		devices = append(devices, gamepad.ControllerDevice{
			InstanceID:   "Joystick_" + js.GUID,
			Name:         js.Name,
			Type:         gamepad.Classify(js.VendorID, js.ProductID, js.Name, gamepad.TypeGeneric),
			Backend:      gamepad.BackendJoystick,
			Connection:   connectionFromName(js.Name),
			VendorID:     int(js.VendorID),
			ProductID:    int(js.ProductID),
			Connected:    true,
			ConnectedAt:  js.ConnectedAt,
			BatteryLevel: gamepad.BatteryUnknown,
			ProfileName:  gamepad.DefaultProfileName,
			GUID:         js.GUID,
		})
	}
	return devices
}

// JoystickReader samples fixed-slot and joystick devices and decodes them
// through the layout of their controller family.
type JoystickReader struct {
	sys JoystickSystem
}

func NewJoystickReader(sys JoystickSystem) *JoystickReader {
	return &JoystickReader{sys: sys}
}

func (r *JoystickReader) ReadState(ctx context.Context, dev gamepad.ControllerDevice) (gamepad.ButtonState, error) {
	js, ok := r.find(dev)
	if !ok {
		return gamepad.ButtonState{}, fmt.Errorf("%w: %s is not open", ErrRead, dev.InstanceID)
	}
	sample, err := r.sys.Sample(js.ID)
	if err != nil {
		return gamepad.ButtonState{}, err
	}
	layout := gamepad.GetLayout(js.VendorID, js.ProductID, dev.Type)
	return layout.Decode(sample.Axes, sample.Buttons, sample.Hats), nil
}

// Rumble drives the joystick motors. Speeds are 0..255 and scaled to the
// 16-bit range of the joystick API.
func (r *JoystickReader) Rumble(dev gamepad.ControllerDevice, left, right uint8, duration time.Duration) error {
	js, ok := r.find(dev)
	if !ok {
		return fmt.Errorf("%w: %s is not open", ErrUnsupported, dev.InstanceID)
	}
	return r.sys.Rumble(js.ID, uint16(left)*257, uint16(right)*257, duration)
}

func (r *JoystickReader) find(dev gamepad.ControllerDevice) (JoystickInfo, bool) {
	for _, js := range r.sys.Joysticks() {
		switch dev.Backend {
		case gamepad.BackendFixedSlot:
			if dev.SlotIndex != nil && js.Slot == *dev.SlotIndex {
				return js, true
			}
		case gamepad.BackendJoystick:
			if js.Slot == NoSlot && js.GUID == dev.GUID {
				return js, true
			}
		}
	}
	return JoystickInfo{}, false
}
