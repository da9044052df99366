package hub

import (
	"time"

	"github.com/soar/GameControllerRemap/internal/gamepad"
)

// Server to client message types.
const (
	TypeDevices            = "devices"
	TypeDeviceConnected    = "device_connected"
	TypeDeviceDisconnected = "device_disconnected"
	TypeFull               = "full"
	TypeDelta              = "delta"
	TypeResult             = "result"
)

// Client to server command types.
const (
	CmdWatch        = "watch"
	CmdStartRemap   = "start_remap"
	CmdStopRemap    = "stop_remap"
	CmdSetProfile   = "set_profile"
	CmdSetLED       = "set_led"
	CmdSetVibration = "set_vibration"
)

// WSMessage represents a WebSocket message sent from server to client.
type WSMessage struct {
	Type      string                     `json:"type"`
	Seq       int64                      `json:"seq"`
	Timestamp int64                      `json:"timestamp"` // Unix milliseconds
	DeviceID  string                     `json:"deviceId,omitempty"`
	Device    *gamepad.ControllerDevice  `json:"device,omitempty"`
	Devices   []gamepad.ControllerDevice `json:"devices,omitempty"`
	Active    []string                   `json:"active,omitempty"`
	Data      *gamepad.ButtonState       `json:"data,omitempty"`
	Changes   *gamepad.StateDelta        `json:"changes,omitempty"`

	// Command and Error are set on "result" replies.
	Command string `json:"command,omitempty"`
	OK      bool   `json:"ok,omitempty"`
	Error   string `json:"error,omitempty"`
}

func NewDevicesMessage(devices []gamepad.ControllerDevice, active []string) *WSMessage {
	return &WSMessage{
		Type:      TypeDevices,
		Timestamp: time.Now().UnixMilli(),
		Devices:   devices,
		Active:    active,
	}
}

// NewDeviceMessage creates a "device_connected" or "device_disconnected" message.
func NewDeviceMessage(seq int64, typ string, dev gamepad.ControllerDevice) *WSMessage {
	return &WSMessage{
		Type:      typ,
		Seq:       seq,
		Timestamp: time.Now().UnixMilli(),
		DeviceID:  dev.InstanceID,
		Device:    &dev,
	}
}

// NewFullMessage creates a "full" type message containing the complete state.
func NewFullMessage(seq int64, deviceID string, state *gamepad.ButtonState) *WSMessage {
	return &WSMessage{
		Type:      TypeFull,
		Seq:       seq,
		Timestamp: time.Now().UnixMilli(),
		DeviceID:  deviceID,
		Data:      state,
	}
}

// NewDeltaMessage creates a "delta" type message containing only changed fields.
func NewDeltaMessage(seq int64, deviceID string, changes *gamepad.StateDelta) *WSMessage {
	return &WSMessage{
		Type:      TypeDelta,
		Seq:       seq,
		Timestamp: time.Now().UnixMilli(),
		DeviceID:  deviceID,
		Changes:   changes,
	}
}

// NewResultMessage acknowledges a client command.
func NewResultMessage(cmd ClientMessage, err error) *WSMessage {
	msg := &WSMessage{
		Type:      TypeResult,
		Timestamp: time.Now().UnixMilli(),
		DeviceID:  cmd.DeviceID,
		Command:   cmd.Type,
		OK:        err == nil,
	}
	if err != nil {
		msg.Error = err.Error()
	}
	return msg
}

// ClientMessage represents a message sent from the client to the server.
type ClientMessage struct {
	Type     string `json:"type"`
	DeviceID string `json:"deviceId,omitempty"`
	Profile  string `json:"profile,omitempty"`
	Color    string `json:"color,omitempty"`
	Left     uint8  `json:"left,omitempty"`
	Right    uint8  `json:"right,omitempty"`
}
