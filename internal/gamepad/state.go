package gamepad

import "encoding/binary"

// ButtonState is one input or output snapshot in XInput terms.
// It holds only scalar fields, so plain assignment yields an independent copy.
// New fields must keep that property.
type ButtonState struct {
	A bool `json:"a"`
	B bool `json:"b"`
	X bool `json:"x"`
	Y bool `json:"y"`

	DPadUp    bool `json:"dpadUp"`
	DPadDown  bool `json:"dpadDown"`
	DPadLeft  bool `json:"dpadLeft"`
	DPadRight bool `json:"dpadRight"`

	LeftBumper  bool `json:"leftBumper"`
	RightBumper bool `json:"rightBumper"`
	LeftThumb   bool `json:"leftThumb"`
	RightThumb  bool `json:"rightThumb"`

	Start bool `json:"start"`
	Back  bool `json:"back"`
	Guide bool `json:"guide"`

	LeftTrigger  uint8 `json:"leftTrigger"`
	RightTrigger uint8 `json:"rightTrigger"`

	LeftThumbX  int16 `json:"leftThumbX"`
	LeftThumbY  int16 `json:"leftThumbY"`
	RightThumbX int16 `json:"rightThumbX"`
	RightThumbY int16 `json:"rightThumbY"`
}

// Clone returns an independent copy of s.
func (s ButtonState) Clone() ButtonState {
	return s
}

// XInput button bits.
const (
	XInputDPadUp        uint16 = 0x0001
	XInputDPadDown      uint16 = 0x0002
	XInputDPadLeft      uint16 = 0x0004
	XInputDPadRight     uint16 = 0x0008
	XInputStart         uint16 = 0x0010
	XInputBack          uint16 = 0x0020
	XInputLeftThumb     uint16 = 0x0040
	XInputRightThumb    uint16 = 0x0080
	XInputLeftShoulder  uint16 = 0x0100
	XInputRightShoulder uint16 = 0x0200
	XInputGuide         uint16 = 0x0400
	XInputA             uint16 = 0x1000
	XInputB             uint16 = 0x2000
	XInputX             uint16 = 0x4000
	XInputY             uint16 = 0x8000
)

// XInputButtons packs the digital fields into the XInput wButtons bitfield.
func (s ButtonState) XInputButtons() uint16 {
	var b uint16
	set := func(on bool, bit uint16) {
		if on {
			b |= bit
		}
	}
	set(s.DPadUp, XInputDPadUp)
	set(s.DPadDown, XInputDPadDown)
	set(s.DPadLeft, XInputDPadLeft)
	set(s.DPadRight, XInputDPadRight)
	set(s.Start, XInputStart)
	set(s.Back, XInputBack)
	set(s.LeftThumb, XInputLeftThumb)
	set(s.RightThumb, XInputRightThumb)
	set(s.LeftBumper, XInputLeftShoulder)
	set(s.RightBumper, XInputRightShoulder)
	set(s.Guide, XInputGuide)
	set(s.A, XInputA)
	set(s.B, XInputB)
	set(s.X, XInputX)
	set(s.Y, XInputY)
	return b
}

// ReportSize is the length of a wired Xbox 360 input report.
const ReportSize = 20

// Report encodes s into the 20-byte Xbox 360 wired USB input report.
//
//	 0: 0x00       report id
//	 1: 0x14       payload size
//	 2-3: buttons  (little-endian)
//	 4: LT, 5: RT
//	 6-13: LX, LY, RX, RY (little-endian int16)
//	14-19: reserved
func (s ButtonState) Report() []byte {
	b := make([]byte, ReportSize)
	b[0] = 0x00
	b[1] = ReportSize
	binary.LittleEndian.PutUint16(b[2:4], s.XInputButtons())
	b[4] = s.LeftTrigger
	b[5] = s.RightTrigger
	binary.LittleEndian.PutUint16(b[6:8], uint16(s.LeftThumbX))
	binary.LittleEndian.PutUint16(b[8:10], uint16(s.LeftThumbY))
	binary.LittleEndian.PutUint16(b[10:12], uint16(s.RightThumbX))
	binary.LittleEndian.PutUint16(b[12:14], uint16(s.RightThumbY))
	return b
}

// StateDelta groups the fields of a ButtonState that changed since the last
// snapshot sent to a consumer. Nil groups are unchanged.
type StateDelta struct {
	Buttons  *uint16   `json:"buttons,omitempty"`
	Triggers *[2]uint8 `json:"triggers,omitempty"`
	Sticks   *[4]int16 `json:"sticks,omitempty"`
}

func (d *StateDelta) IsEmpty() bool {
	return d.Buttons == nil && d.Triggers == nil && d.Sticks == nil
}

// ComputeDelta reports which field groups differ between old and new_.
func ComputeDelta(old, new_ ButtonState) *StateDelta {
	d := &StateDelta{}

	if ob, nb := old.XInputButtons(), new_.XInputButtons(); ob != nb {
		d.Buttons = &nb
	}
	if old.LeftTrigger != new_.LeftTrigger || old.RightTrigger != new_.RightTrigger {
		d.Triggers = &[2]uint8{new_.LeftTrigger, new_.RightTrigger}
	}
	if old.LeftThumbX != new_.LeftThumbX || old.LeftThumbY != new_.LeftThumbY ||
		old.RightThumbX != new_.RightThumbX || old.RightThumbY != new_.RightThumbY {
		d.Sticks = &[4]int16{new_.LeftThumbX, new_.LeftThumbY, new_.RightThumbX, new_.RightThumbY}
	}

	return d
}
