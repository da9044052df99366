package gamepad

import (
	"math"
	"strings"
)

// AxisBinding defines how a raw joystick axis index maps to a ButtonState field.
type AxisBinding struct {
	Index  int32
	Target Button // a trigger or stick axis
	Invert bool
	// For triggers: raw range. Some devices use -32768..32767, others 0..32767.
	RawMin int16
	RawMax int16
}

// ButtonBinding defines how a raw joystick button index maps to a digital field.
type ButtonBinding struct {
	Index  int32
	Target Button
}

// Layout holds the raw index layout for one controller family.
type Layout struct {
	Name    string
	Axes    []AxisBinding
	Buttons []ButtonBinding
	HasHat  bool
}

// Hat bits as reported by the joystick API.
const (
	HatUp    uint8 = 0x01
	HatRight uint8 = 0x02
	HatDown  uint8 = 0x04
	HatLeft  uint8 = 0x08
)

// ApplyHat sets the D-pad fields of s from a hat bitmask.
func ApplyHat(s *ButtonState, hat uint8) {
	s.DPadUp = hat&HatUp != 0
	s.DPadRight = hat&HatRight != 0
	s.DPadDown = hat&HatDown != 0
	s.DPadLeft = hat&HatLeft != 0
}

// NormalizeTrigger converts a raw trigger axis value to 0..255.
func NormalizeTrigger(raw, rawMin, rawMax int16) uint8 {
	if rawMax == rawMin {
		return 0
	}
	v := float64(int32(raw)-int32(rawMin)) / float64(int32(rawMax)-int32(rawMin))
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return uint8(math.Round(v * 255))
}

// InvertAxis flips a raw axis value, saturating at the int16 range.
// The joystick API reports Y growing downwards; XInput grows upwards.
func InvertAxis(raw int16) int16 {
	if raw == math.MinInt16 {
		return math.MaxInt16
	}
	return -raw
}

// Decode builds a snapshot from one raw joystick sample. Indices the
// device does not report are left neutral.
func (l *Layout) Decode(axes []int16, buttons []bool, hats []uint8) ButtonState {
	var s ButtonState
	for _, a := range l.Axes {
		if a.Index < 0 || int(a.Index) >= len(axes) {
			continue
		}
		raw := axes[a.Index]
		if a.Target.kind() == kindTrigger {
			a.Target.set(&s, int32(NormalizeTrigger(raw, a.RawMin, a.RawMax)))
			continue
		}
		if a.Invert {
			raw = InvertAxis(raw)
		}
		a.Target.set(&s, int32(raw))
	}
	for _, b := range l.Buttons {
		if b.Index >= 0 && int(b.Index) < len(buttons) && buttons[b.Index] {
			b.Target.set(&s, 1)
		}
	}
	if l.HasHat && len(hats) > 0 {
		ApplyHat(&s, hats[0])
	}
	return s
}

// StickOffset scales a raw stick axis value to the -25..25 offset consumers
// use to draw the stick position.
func StickOffset(v int16) float64 {
	return float64(v) / 32768 * 25
}

// Built-in layouts for common controllers.

var xboxLayout = &Layout{
	Name: "xbox",
	Axes: []AxisBinding{
		{Index: 0, Target: ButtonLeftThumbX},
		{Index: 1, Target: ButtonLeftThumbY, Invert: true},
		{Index: 2, Target: ButtonRightThumbX},
		{Index: 3, Target: ButtonRightThumbY, Invert: true},
		{Index: 4, Target: ButtonLeftTrigger, RawMin: -32768, RawMax: 32767},
		{Index: 5, Target: ButtonRightTrigger, RawMin: -32768, RawMax: 32767},
	},
	Buttons: []ButtonBinding{
		{Index: 0, Target: ButtonA},
		{Index: 1, Target: ButtonB},
		{Index: 2, Target: ButtonX},
		{Index: 3, Target: ButtonY},
		{Index: 4, Target: ButtonLeftBumper},
		{Index: 5, Target: ButtonRightBumper},
		{Index: 6, Target: ButtonBack},
		{Index: 7, Target: ButtonStart},
		{Index: 8, Target: ButtonLeftThumb},
		{Index: 9, Target: ButtonRightThumb},
		{Index: 10, Target: ButtonGuide},
	},
	HasHat: true,
}

var playstationLayout = &Layout{
	Name: "playstation",
	Axes: []AxisBinding{
		{Index: 0, Target: ButtonLeftThumbX},
		{Index: 1, Target: ButtonLeftThumbY, Invert: true},
		{Index: 2, Target: ButtonRightThumbX},
		{Index: 3, Target: ButtonRightThumbY, Invert: true},
		{Index: 4, Target: ButtonLeftTrigger, RawMin: -32768, RawMax: 32767},
		{Index: 5, Target: ButtonRightTrigger, RawMin: -32768, RawMax: 32767},
	},
	Buttons: []ButtonBinding{
		{Index: 0, Target: ButtonA},     // Cross
		{Index: 1, Target: ButtonB},     // Circle
		{Index: 2, Target: ButtonX},     // Square
		{Index: 3, Target: ButtonY},     // Triangle
		{Index: 4, Target: ButtonBack},  // Share / Create
		{Index: 5, Target: ButtonGuide}, // PS button
		{Index: 6, Target: ButtonStart}, // Options
		{Index: 7, Target: ButtonLeftThumb},
		{Index: 8, Target: ButtonRightThumb},
		{Index: 9, Target: ButtonLeftBumper},   // L1
		{Index: 10, Target: ButtonRightBumper}, // R1
	},
	HasHat: true,
}

var switchProLayout = &Layout{
	Name: "switch_pro",
	Axes: []AxisBinding{
		{Index: 0, Target: ButtonLeftThumbX},
		{Index: 1, Target: ButtonLeftThumbY, Invert: true},
		{Index: 2, Target: ButtonRightThumbX},
		{Index: 3, Target: ButtonRightThumbY, Invert: true},
	},
	Buttons: []ButtonBinding{
		{Index: 0, Target: ButtonA},
		{Index: 1, Target: ButtonB},
		{Index: 2, Target: ButtonX},
		{Index: 3, Target: ButtonY},
		{Index: 4, Target: ButtonLeftBumper},
		{Index: 5, Target: ButtonRightBumper},
		{Index: 6, Target: ButtonBack},
		{Index: 7, Target: ButtonStart},
		{Index: 8, Target: ButtonLeftThumb},
		{Index: 9, Target: ButtonRightThumb},
		{Index: 10, Target: ButtonGuide},
	},
	HasHat: true,
}

// The generic layout follows the common DirectInput ordering.
var genericLayout = &Layout{
	Name:    "generic",
	Axes:    xboxLayout.Axes,
	Buttons: xboxLayout.Buttons,
	HasHat:  true,
}

// Known vendor/product IDs.
type deviceKey struct {
	VendorID  uint16
	ProductID uint16
}

type knownDevice struct {
	Type   ControllerType
	Layout *Layout
}

const (
	VendorMicrosoft uint16 = 0x045E
	VendorSony      uint16 = 0x054C
	VendorNintendo  uint16 = 0x057E
)

var knownDevices = map[deviceKey]knownDevice{
	// Microsoft Xbox controllers
	{VendorMicrosoft, 0x028E}: {TypeXbox360, xboxLayout},
	{VendorMicrosoft, 0x02D1}: {TypeXboxOne, xboxLayout},
	{VendorMicrosoft, 0x02DD}: {TypeXboxOne, xboxLayout},
	{VendorMicrosoft, 0x02EA}: {TypeXboxOne, xboxLayout},
	{VendorMicrosoft, 0x02FF}: {TypeXboxOne, xboxLayout},
	{VendorMicrosoft, 0x0B12}: {TypeXboxSeries, xboxLayout},
	{VendorMicrosoft, 0x0B13}: {TypeXboxSeries, xboxLayout},
	// Sony PlayStation controllers
	{VendorSony, 0x0268}: {TypePS3, playstationLayout},
	{VendorSony, 0x05C4}: {TypePS4, playstationLayout}, // DualShock 4 v1
	{VendorSony, 0x09CC}: {TypePS4, playstationLayout}, // DualShock 4 v2
	{VendorSony, 0x0CE6}: {TypePS5, playstationLayout}, // DualSense
	// Nintendo Switch Pro Controller
	{VendorNintendo, 0x2009}: {TypeSwitch, switchProLayout},
}

// xinputProducts are the Microsoft pads served by the fixed-slot backend.
var xinputProducts = map[uint16]bool{
	0x028E: true,
	0x02D1: true,
	0x02DD: true,
	0x02E3: true,
	0x02EA: true,
	0x0B13: true,
}

// IsXInput reports whether the pad is enumerated through fixed slots.
func IsXInput(vendorID, productID uint16) bool {
	return vendorID == VendorMicrosoft && xinputProducts[productID]
}

// KnownVendors are vendors whose HID devices are treated as game controllers.
var KnownVendors = map[uint16]string{
	VendorSony:      "Sony",
	VendorMicrosoft: "Microsoft",
	VendorNintendo:  "Nintendo",
}

// LookupType returns the controller type for a known vendor/product pair.
func LookupType(vendorID, productID uint16) (ControllerType, bool) {
	d, ok := knownDevices[deviceKey{VendorID: vendorID, ProductID: productID}]
	return d.Type, ok
}

// ClassifyName guesses a controller type from a product name.
func ClassifyName(name string) (ControllerType, bool) {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "xbox"):
		return TypeXboxOne, true
	case strings.Contains(n, "dualsense"), strings.Contains(n, "ps5"):
		return TypePS5, true
	case strings.Contains(n, "ps3"):
		return TypePS3, true
	case strings.Contains(n, "playstation"), strings.Contains(n, "dualshock"), strings.Contains(n, "ps4"):
		return TypePS4, true
	case strings.Contains(n, "switch"), strings.Contains(n, "pro controller"):
		return TypeSwitch, true
	}
	return TypeUnknown, false
}

// Classify resolves a controller type from the id table, then the name, and
// finally falls back to fallback.
func Classify(vendorID, productID uint16, name string, fallback ControllerType) ControllerType {
	if t, ok := LookupType(vendorID, productID); ok {
		return t
	}
	if t, ok := ClassifyName(name); ok {
		return t
	}
	return fallback
}

// GetLayout returns the raw layout for a device identified by vendor/product ID.
// Falls back to a layout picked from the controller type, then to generic.
func GetLayout(vendorID, productID uint16, t ControllerType) *Layout {
	if d, ok := knownDevices[deviceKey{VendorID: vendorID, ProductID: productID}]; ok {
		return d.Layout
	}
	switch t {
	case TypeXbox360, TypeXboxOne, TypeXboxSeries:
		return xboxLayout
	case TypePS3, TypePS4, TypePS5:
		return playstationLayout
	case TypeSwitch:
		return switchProLayout
	}
	return genericLayout
}

// BatteryLevel maps a backend charge percentage onto the coarse
// empty/low/medium/full scale (0/25/50/100). Negative means unknown.
func BatteryLevel(percent int) int {
	switch {
	case percent < 0:
		return BatteryUnknown
	case percent <= 5:
		return 0
	case percent <= 35:
		return 25
	case percent <= 70:
		return 50
	default:
		return 100
	}
}
