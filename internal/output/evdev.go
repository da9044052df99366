package output

import (
	"encoding/binary"

	"github.com/soar/GameControllerRemap/internal/gamepad"
)

// Linux input event codes for an Xbox 360 style pad.
const (
	evSyn uint16 = 0x00
	evKey uint16 = 0x01
	evAbs uint16 = 0x03

	synReport uint16 = 0

	btnSouth     uint16 = 0x130
	btnEast      uint16 = 0x131
	btnNorth     uint16 = 0x133
	btnWest      uint16 = 0x134
	btnTL        uint16 = 0x136
	btnTR        uint16 = 0x137
	btnSelect    uint16 = 0x13a
	btnStart     uint16 = 0x13b
	btnMode      uint16 = 0x13c
	btnThumbL    uint16 = 0x13d
	btnThumbR    uint16 = 0x13e
	btnDpadUp    uint16 = 0x220
	btnDpadDown  uint16 = 0x221
	btnDpadLeft  uint16 = 0x222
	btnDpadRight uint16 = 0x223

	absX  uint16 = 0x00
	absY  uint16 = 0x01
	absZ  uint16 = 0x02
	absRX uint16 = 0x03
	absRY uint16 = 0x04
	absRZ uint16 = 0x05

	busUSB uint16 = 0x03

	xbox360Vendor  uint16 = 0x045E
	xbox360Product uint16 = 0x028E
)

// inputEventSize is sizeof(struct input_event) on 64-bit Linux.
const inputEventSize = 24

type keyCode struct {
	code  uint16
	value func(s gamepad.ButtonState) bool
}

var padKeys = []keyCode{
	{btnSouth, func(s gamepad.ButtonState) bool { return s.A }},
	{btnEast, func(s gamepad.ButtonState) bool { return s.B }},
	{btnNorth, func(s gamepad.ButtonState) bool { return s.X }},
	{btnWest, func(s gamepad.ButtonState) bool { return s.Y }},
	{btnTL, func(s gamepad.ButtonState) bool { return s.LeftBumper }},
	{btnTR, func(s gamepad.ButtonState) bool { return s.RightBumper }},
	{btnSelect, func(s gamepad.ButtonState) bool { return s.Back }},
	{btnStart, func(s gamepad.ButtonState) bool { return s.Start }},
	{btnMode, func(s gamepad.ButtonState) bool { return s.Guide }},
	{btnThumbL, func(s gamepad.ButtonState) bool { return s.LeftThumb }},
	{btnThumbR, func(s gamepad.ButtonState) bool { return s.RightThumb }},
	{btnDpadUp, func(s gamepad.ButtonState) bool { return s.DPadUp }},
	{btnDpadDown, func(s gamepad.ButtonState) bool { return s.DPadDown }},
	{btnDpadLeft, func(s gamepad.ButtonState) bool { return s.DPadLeft }},
	{btnDpadRight, func(s gamepad.ButtonState) bool { return s.DPadRight }},
}

type absAxis struct {
	code     uint16
	min, max int32
}

var padAxes = []absAxis{
	{absX, -32768, 32767},
	{absY, -32768, 32767},
	{absRX, -32768, 32767},
	{absRY, -32768, 32767},
	{absZ, 0, 255},
	{absRZ, 0, 255},
}

// evdevY converts an XInput Y value (up positive) to evdev (down positive).
func evdevY(v int16) int32 {
	return -int32(v) - 1
}

// encodeReport appends one input_event per key and axis followed by
// SYN_REPORT. The kernel stamps the time fields, so they stay zero.
func encodeReport(s gamepad.ButtonState) []byte {
	buf := make([]byte, 0, (len(padKeys)+len(padAxes)+1)*inputEventSize)

	for _, k := range padKeys {
		var v int32
		if k.value(s) {
			v = 1
		}
		buf = appendEvent(buf, evKey, k.code, v)
	}

	buf = appendEvent(buf, evAbs, absX, int32(s.LeftThumbX))
	buf = appendEvent(buf, evAbs, absY, evdevY(s.LeftThumbY))
	buf = appendEvent(buf, evAbs, absRX, int32(s.RightThumbX))
	buf = appendEvent(buf, evAbs, absRY, evdevY(s.RightThumbY))
	buf = appendEvent(buf, evAbs, absZ, int32(s.LeftTrigger))
	buf = appendEvent(buf, evAbs, absRZ, int32(s.RightTrigger))

	return appendEvent(buf, evSyn, synReport, 0)
}

func appendEvent(buf []byte, typ, code uint16, value int32) []byte {
	var ev [inputEventSize]byte
	binary.LittleEndian.PutUint16(ev[16:18], typ)
	binary.LittleEndian.PutUint16(ev[18:20], code)
	binary.LittleEndian.PutUint32(ev[20:24], uint32(value))
	return append(buf, ev[:]...)
}
