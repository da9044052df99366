package input

import (
	"github.com/soar/GameControllerRemap/internal/gamepad"
)

// Report layouts of Sony pads in USB mode.
const (
	ds4InputReportID       = 0x01
	ds4InputReportLen      = 10
	dualSenseInputReportID = 0x01
	dualSenseInputLen      = 11

	ds4OutputReportID = 0x05
	ds4OutputLen      = 32

	dualSenseOutputReportID = 0x02
	dualSenseOutputLen      = 48
)

// dpadHat converts the 0..7 clockwise direction nibble (8 = released).
var dpadHat = [8]uint8{
	gamepad.HatUp,
	gamepad.HatUp | gamepad.HatRight,
	gamepad.HatRight,
	gamepad.HatDown | gamepad.HatRight,
	gamepad.HatDown,
	gamepad.HatDown | gamepad.HatLeft,
	gamepad.HatLeft,
	gamepad.HatUp | gamepad.HatLeft,
}

// hidAxis converts an unsigned 8-bit stick value centred on 128.
func hidAxis(v byte, invert bool) int16 {
	a := (int32(v) - 128) * 256
	if invert {
		a = -a - 1
	}
	if a > 32767 {
		a = 32767
	}
	if a < -32768 {
		a = -32768
	}
	return int16(a)
}

// decodeSonyButtons reads the three button bytes shared by the DualShock 4
// and DualSense input reports.
func decodeSonyButtons(s *gamepad.ButtonState, b0, b1, b2 byte) {
	if dir := b0 & 0x0F; dir < 8 {
		gamepad.ApplyHat(s, dpadHat[dir])
	}
	s.X = b0&0x10 != 0 // square
	s.A = b0&0x20 != 0 // cross
	s.B = b0&0x40 != 0 // circle
	s.Y = b0&0x80 != 0 // triangle

	s.LeftBumper = b1&0x01 != 0
	s.RightBumper = b1&0x02 != 0
	s.Back = b1&0x10 != 0  // share / create
	s.Start = b1&0x20 != 0 // options
	s.LeftThumb = b1&0x40 != 0
	s.RightThumb = b1&0x80 != 0

	s.Guide = b2&0x01 != 0
}

func decodeDS4(report []byte) (gamepad.ButtonState, bool) {
	var s gamepad.ButtonState
	if len(report) < ds4InputReportLen || report[0] != ds4InputReportID {
		return s, false
	}
	s.LeftThumbX = hidAxis(report[1], false)
	s.LeftThumbY = hidAxis(report[2], true)
	s.RightThumbX = hidAxis(report[3], false)
	s.RightThumbY = hidAxis(report[4], true)
	decodeSonyButtons(&s, report[5], report[6], report[7])
	s.LeftTrigger = report[8]
	s.RightTrigger = report[9]
	return s, true
}

func decodeDualSense(report []byte) (gamepad.ButtonState, bool) {
	var s gamepad.ButtonState
	if len(report) < dualSenseInputLen || report[0] != dualSenseInputReportID {
		return s, false
	}
	s.LeftThumbX = hidAxis(report[1], false)
	s.LeftThumbY = hidAxis(report[2], true)
	s.RightThumbX = hidAxis(report[3], false)
	s.RightThumbY = hidAxis(report[4], true)
	s.LeftTrigger = report[5]
	s.RightTrigger = report[6]
	decodeSonyButtons(&s, report[8], report[9], report[10])
	return s, true
}

// ds4OutputReport sets the light bar and the rumble motors in one report.
func ds4OutputReport(r, g, b, strong, weak byte) []byte {
	report := make([]byte, ds4OutputLen)
	report[0] = ds4OutputReportID
	report[1] = 0xFF
	report[4] = weak
	report[5] = strong
	report[6] = r
	report[7] = g
	report[8] = b
	return report
}

func dualSenseLEDReport(r, g, b byte) []byte {
	report := make([]byte, dualSenseOutputLen)
	report[0] = dualSenseOutputReportID
	report[1] = 0xFF
	report[2] = 0x07
	report[45] = r
	report[46] = g
	report[47] = b
	return report
}

func dualSenseRumbleReport(strong, weak byte) []byte {
	report := make([]byte, dualSenseOutputLen)
	report[0] = dualSenseOutputReportID
	report[1] = 0x03
	report[3] = weak
	report[4] = strong
	return report
}
