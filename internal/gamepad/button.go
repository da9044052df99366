package gamepad

import "fmt"

// Button names one field of ButtonState.
type Button uint8

const (
	ButtonA Button = iota
	ButtonB
	ButtonX
	ButtonY
	ButtonDPadUp
	ButtonDPadDown
	ButtonDPadLeft
	ButtonDPadRight
	ButtonLeftBumper
	ButtonRightBumper
	ButtonLeftThumb
	ButtonRightThumb
	ButtonStart
	ButtonBack
	ButtonGuide
	ButtonLeftTrigger
	ButtonRightTrigger
	ButtonLeftThumbX
	ButtonLeftThumbY
	ButtonRightThumbX
	ButtonRightThumbY

	buttonCount
)

var buttonNames = [buttonCount]string{
	ButtonA:            "A",
	ButtonB:            "B",
	ButtonX:            "X",
	ButtonY:            "Y",
	ButtonDPadUp:       "DPadUp",
	ButtonDPadDown:     "DPadDown",
	ButtonDPadLeft:     "DPadLeft",
	ButtonDPadRight:    "DPadRight",
	ButtonLeftBumper:   "LeftBumper",
	ButtonRightBumper:  "RightBumper",
	ButtonLeftThumb:    "LeftThumb",
	ButtonRightThumb:   "RightThumb",
	ButtonStart:        "Start",
	ButtonBack:         "Back",
	ButtonGuide:        "Guide",
	ButtonLeftTrigger:  "LeftTrigger",
	ButtonRightTrigger: "RightTrigger",
	ButtonLeftThumbX:   "LeftThumbX",
	ButtonLeftThumbY:   "LeftThumbY",
	ButtonRightThumbX:  "RightThumbX",
	ButtonRightThumbY:  "RightThumbY",
}

// Buttons lists every Button in declaration order.
func Buttons() []Button {
	out := make([]Button, buttonCount)
	for i := range out {
		out[i] = Button(i)
	}
	return out
}

// ContinuousButtons are the analog fields that pass through a profile
// unless a mapping targets them.
var ContinuousButtons = [...]Button{
	ButtonLeftTrigger,
	ButtonRightTrigger,
	ButtonLeftThumbX,
	ButtonLeftThumbY,
	ButtonRightThumbX,
	ButtonRightThumbY,
}

func (b Button) String() string {
	if b < buttonCount {
		return buttonNames[b]
	}
	return fmt.Sprintf("Button(%d)", uint8(b))
}

// ParseButton resolves a profile button name.
func ParseButton(name string) (Button, bool) {
	for i, n := range buttonNames {
		if n == name {
			return Button(i), true
		}
	}
	return 0, false
}

type fieldKind uint8

const (
	kindDigital fieldKind = iota
	kindTrigger
	kindAxis
)

func (b Button) kind() fieldKind {
	switch b {
	case ButtonLeftTrigger, ButtonRightTrigger:
		return kindTrigger
	case ButtonLeftThumbX, ButtonLeftThumbY, ButtonRightThumbX, ButtonRightThumbY:
		return kindAxis
	default:
		return kindDigital
	}
}

// IsContinuous reports whether b is a trigger or stick axis.
func (b Button) IsContinuous() bool {
	return b.kind() != kindDigital
}

// Value returns the raw value of field b in s: 0/1 for digital fields,
// 0..255 for triggers and -32768..32767 for stick axes.
func (b Button) Value(s ButtonState) int32 {
	switch b {
	case ButtonA:
		return boolValue(s.A)
	case ButtonB:
		return boolValue(s.B)
	case ButtonX:
		return boolValue(s.X)
	case ButtonY:
		return boolValue(s.Y)
	case ButtonDPadUp:
		return boolValue(s.DPadUp)
	case ButtonDPadDown:
		return boolValue(s.DPadDown)
	case ButtonDPadLeft:
		return boolValue(s.DPadLeft)
	case ButtonDPadRight:
		return boolValue(s.DPadRight)
	case ButtonLeftBumper:
		return boolValue(s.LeftBumper)
	case ButtonRightBumper:
		return boolValue(s.RightBumper)
	case ButtonLeftThumb:
		return boolValue(s.LeftThumb)
	case ButtonRightThumb:
		return boolValue(s.RightThumb)
	case ButtonStart:
		return boolValue(s.Start)
	case ButtonBack:
		return boolValue(s.Back)
	case ButtonGuide:
		return boolValue(s.Guide)
	case ButtonLeftTrigger:
		return int32(s.LeftTrigger)
	case ButtonRightTrigger:
		return int32(s.RightTrigger)
	case ButtonLeftThumbX:
		return int32(s.LeftThumbX)
	case ButtonLeftThumbY:
		return int32(s.LeftThumbY)
	case ButtonRightThumbX:
		return int32(s.RightThumbX)
	case ButtonRightThumbY:
		return int32(s.RightThumbY)
	}
	return 0
}

// set stores v, already converted to b's kind, into s.
func (b Button) set(s *ButtonState, v int32) {
	switch b {
	case ButtonA:
		s.A = v != 0
	case ButtonB:
		s.B = v != 0
	case ButtonX:
		s.X = v != 0
	case ButtonY:
		s.Y = v != 0
	case ButtonDPadUp:
		s.DPadUp = v != 0
	case ButtonDPadDown:
		s.DPadDown = v != 0
	case ButtonDPadLeft:
		s.DPadLeft = v != 0
	case ButtonDPadRight:
		s.DPadRight = v != 0
	case ButtonLeftBumper:
		s.LeftBumper = v != 0
	case ButtonRightBumper:
		s.RightBumper = v != 0
	case ButtonLeftThumb:
		s.LeftThumb = v != 0
	case ButtonRightThumb:
		s.RightThumb = v != 0
	case ButtonStart:
		s.Start = v != 0
	case ButtonBack:
		s.Back = v != 0
	case ButtonGuide:
		s.Guide = v != 0
	case ButtonLeftTrigger:
		s.LeftTrigger = uint8(v)
	case ButtonRightTrigger:
		s.RightTrigger = uint8(v)
	case ButtonLeftThumbX:
		s.LeftThumbX = int16(v)
	case ButtonLeftThumbY:
		s.LeftThumbY = int16(v)
	case ButtonRightThumbX:
		s.RightThumbX = int16(v)
	case ButtonRightThumbY:
		s.RightThumbY = int16(v)
	}
}

// Thresholds used when an analog source drives a digital target. They match
// the XInput trigger threshold and left stick deadzone.
const (
	TriggerPressThreshold = 30
	AxisPressThreshold    = 7849
)

// Transfer copies the value of field source in src onto field target in dst,
// converting between digital, trigger and axis ranges when they differ.
func Transfer(dst *ButtonState, target Button, src ButtonState, source Button) {
	target.set(dst, convert(source.Value(src), source.kind(), target.kind()))
}

func convert(v int32, from, to fieldKind) int32 {
	if from == to {
		return v
	}
	switch to {
	case kindDigital:
		if from == kindTrigger {
			return boolValue(v >= TriggerPressThreshold)
		}
		return boolValue(v >= AxisPressThreshold || v <= -AxisPressThreshold)
	case kindTrigger:
		if from == kindDigital {
			return v * 255
		}
		if v <= 0 {
			return 0
		}
		return v * 255 / 32767
	default:
		if from == kindDigital {
			return v * 32767
		}
		return v * 32767 / 255
	}
}

func boolValue(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
