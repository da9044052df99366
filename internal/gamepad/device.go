package gamepad

import (
	"fmt"
	"time"
)

type ControllerType uint8

const (
	TypeUnknown ControllerType = iota
	TypeXbox360
	TypeXboxOne
	TypeXboxSeries
	TypePS3
	TypePS4
	TypePS5
	TypeSwitch
	TypeGeneric
)

var controllerTypeNames = []string{"Unknown", "Xbox360", "XboxOne", "XboxSeries", "PS3", "PS4", "PS5", "Switch", "Generic"}

func (t ControllerType) String() string {
	if int(t) < len(controllerTypeNames) {
		return controllerTypeNames[t]
	}
	return fmt.Sprintf("ControllerType(%d)", uint8(t))
}

func (t ControllerType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *ControllerType) UnmarshalText(text []byte) error {
	for i, n := range controllerTypeNames {
		if n == string(text) {
			*t = ControllerType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown controller type %q", text)
}

// InputBackend is the device family a controller was enumerated from.
type InputBackend uint8

const (
	BackendFixedSlot InputBackend = iota
	BackendJoystick
	BackendHID
)

var backendNames = []string{"FixedSlot", "Joystick", "HID"}

func (b InputBackend) String() string {
	if int(b) < len(backendNames) {
		return backendNames[b]
	}
	return fmt.Sprintf("InputBackend(%d)", uint8(b))
}

func (b InputBackend) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *InputBackend) UnmarshalText(text []byte) error {
	for i, n := range backendNames {
		if n == string(text) {
			*b = InputBackend(i)
			return nil
		}
	}
	return fmt.Errorf("unknown input backend %q", text)
}

type ConnectionKind uint8

const (
	ConnectionUnknown ConnectionKind = iota
	ConnectionUSB
	ConnectionBluetooth
	ConnectionWireless
)

var connectionNames = []string{"Unknown", "USB", "Bluetooth", "Wireless"}

func (c ConnectionKind) String() string {
	if int(c) < len(connectionNames) {
		return connectionNames[c]
	}
	return fmt.Sprintf("ConnectionKind(%d)", uint8(c))
}

func (c ConnectionKind) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ConnectionKind) UnmarshalText(text []byte) error {
	for i, n := range connectionNames {
		if n == string(text) {
			*c = ConnectionKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown connection kind %q", text)
}

const (
	// BatteryUnknown is reported when the backend has no battery information.
	BatteryUnknown = -1
	// DefaultProfileName is assigned to newly discovered devices.
	DefaultProfileName = "Default"
)

// ControllerDevice describes one physical controller.
// InstanceID is backend-prefixed and stable across scans of the same unit.
type ControllerDevice struct {
	InstanceID   string         `json:"instanceId"`
	Name         string         `json:"name"`
	Type         ControllerType `json:"controllerType"`
	Backend      InputBackend   `json:"inputBackend"`
	Connection   ConnectionKind `json:"connectionKind"`
	VendorID     int            `json:"vendorId"`
	ProductID    int            `json:"productId"`
	Connected    bool           `json:"isConnected"`
	ConnectedAt  time.Time      `json:"connectedTime"`
	BatteryLevel int            `json:"batteryLevel"`
	ProfileName  string         `json:"currentProfileName"`

	// SlotIndex is set for fixed-slot devices only.
	SlotIndex *int `json:"slotIndex,omitempty"`
	// GUID is set for joystick and HID devices only.
	GUID string `json:"deviceGuid,omitempty"`
	// Path is the HID device path used to open the device for reads.
	Path string `json:"path,omitempty"`
}

func (d ControllerDevice) DisplayName() string {
	return fmt.Sprintf("%s (%s)", d.Name, d.Backend)
}

func (d ControllerDevice) ConnectionStatus() string {
	if d.Connected {
		return "Connected"
	}
	return "Disconnected"
}

// Clone returns a copy of d that shares no memory with it.
func (d ControllerDevice) Clone() ControllerDevice {
	if d.SlotIndex != nil {
		slot := *d.SlotIndex
		d.SlotIndex = &slot
	}
	return d
}
