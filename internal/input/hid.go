package input

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/soar/GameControllerRemap/internal/gamepad"
	"github.com/sstallion/go-hid"
	"go.uber.org/zap"
)

// HIDInfo describes one enumerated HID interface.
type HIDInfo struct {
	Path         string
	VendorID     uint16
	ProductID    uint16
	Manufacturer string
	Product      string
	UsagePage    uint16
	Usage        uint16
}

// HIDDevice is an open HID interface.
type HIDDevice interface {
	ReadWithTimeout(p []byte, timeout time.Duration) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// HIDBus enumerates and opens HID interfaces.
type HIDBus interface {
	Enumerate() ([]HIDInfo, error)
	Open(path string) (HIDDevice, error)
}

// hidapiBus is the HIDBus backed by hidapi.
type hidapiBus struct{}

// NewHIDBus initializes hidapi.
func NewHIDBus() (HIDBus, error) {
	if err := hid.Init(); err != nil {
		return nil, fmt.Errorf("%w: hid init: %v", ErrEnumeration, err)
	}
	return hidapiBus{}, nil
}

// CloseHIDBus releases hidapi.
func CloseHIDBus() error {
	return hid.Exit()
}

func (hidapiBus) Enumerate() ([]HIDInfo, error) {
	var infos []HIDInfo
	err := hid.Enumerate(0, 0, func(info *hid.DeviceInfo) error {
		infos = append(infos, HIDInfo{
			Path:         info.Path,
			VendorID:     info.VendorID,
			ProductID:    info.ProductID,
			Manufacturer: info.MfrStr,
			Product:      info.ProductStr,
			UsagePage:    info.UsagePage,
			Usage:        info.Usage,
		})
		return nil
	})
	return infos, err
}

func (hidapiBus) Open(path string) (HIDDevice, error) {
	d, err := hid.OpenPath(path)
	if err != nil {
		return nil, err
	}
	return d, nil
}

const (
	usagePageGenericDesktop = 0x01
	usageJoystick           = 0x04
	usageGamepad            = 0x05
)

// IsGameController reports whether an HID interface belongs to a pad.
func IsGameController(info HIDInfo) bool {
	if _, ok := gamepad.KnownVendors[info.VendorID]; ok {
		return true
	}
	return info.UsagePage == usagePageGenericDesktop &&
		(info.Usage == usageJoystick || info.Usage == usageGamepad)
}

// HIDProvider reports HID game controllers that the fixed-slot backend
// does not already serve.
type HIDProvider struct {
	bus    HIDBus
	logger *zap.Logger
}

func NewHIDProvider(bus HIDBus, logger *zap.Logger) *HIDProvider {
	return &HIDProvider{bus: bus, logger: logger}
}

func (p *HIDProvider) Name() string { return "hid" }

func (p *HIDProvider) DetectDevices() []gamepad.ControllerDevice {
	infos, err := p.bus.Enumerate()
	if err != nil {
		p.logger.Warn("HID enumeration failed", zap.Error(fmt.Errorf("%w: %v", ErrEnumeration, err)))
	}

	var devices []gamepad.ControllerDevice
	seen := make(map[string]bool)
	for _, info := range infos {
		if !IsGameController(info) || gamepad.IsXInput(info.VendorID, info.ProductID) {
			continue
		}
		if seen[info.Path] {
			continue
		}
		seen[info.Path] = true
		devices = append(devices, hidDevice(info))
	}
	return devices
}

func hidDevice(info HIDInfo) gamepad.ControllerDevice {
	name := info.Product
	if name == "" {
		name = fmt.Sprintf("HID Device %04X:%04X", info.VendorID, info.ProductID)
	}
	t, ok := gamepad.LookupType(info.VendorID, info.ProductID)
	if !ok {
		t = gamepad.TypeGeneric
	}
	return gamepad.ControllerDevice{
		InstanceID:   "HID_" + info.Path,
		Name:         name,
		Type:         t,
		Backend:      gamepad.BackendHID,
		Connection:   connectionFromPath(info.Path),
		VendorID:     int(info.VendorID),
		ProductID:    int(info.ProductID),
		Connected:    true,
		ConnectedAt:  time.Now(),
		BatteryLevel: gamepad.BatteryUnknown,
		ProfileName:  gamepad.DefaultProfileName,
		GUID:         info.Path,
		Path:         info.Path,
	}
}

// HIDReader reads DualShock 4 and DualSense input reports. Devices are
// opened on first use and kept open until a read or write fails. A read
// timeout keeps the device open.
type HIDReader struct {
	bus     HIDBus
	timeout time.Duration
	logger  *zap.Logger

	mu   sync.Mutex
	open map[string]*hidHandle
}

// hidHandle serializes reads, writes and close on one open device.
type hidHandle struct {
	mu     sync.Mutex
	dev    HIDDevice
	closed bool
}

func NewHIDReader(bus HIDBus, timeout time.Duration, logger *zap.Logger) *HIDReader {
	return &HIDReader{
		bus:     bus,
		timeout: timeout,
		logger:  logger,
		open:    make(map[string]*hidHandle),
	}
}

func hidDecoder(t gamepad.ControllerType) func([]byte) (gamepad.ButtonState, bool) {
	switch t {
	case gamepad.TypePS4:
		return decodeDS4
	case gamepad.TypePS5:
		return decodeDualSense
	}
	return nil
}

func (r *HIDReader) ReadState(ctx context.Context, dev gamepad.ControllerDevice) (gamepad.ButtonState, error) {
	decode := hidDecoder(dev.Type)
	if decode == nil || dev.Path == "" {
		return gamepad.ButtonState{}, fmt.Errorf("%w: %s reports", ErrUnsupported, dev.Type)
	}

	buf := make([]byte, 64)
	var n int
	err := r.use(dev.Path, func(d HIDDevice) error {
		var err error
		n, err = d.ReadWithTimeout(buf, r.timeout)
		return err
	})
	switch {
	case errors.Is(err, hid.ErrTimeout):
		return gamepad.ButtonState{}, fmt.Errorf("%w: %s: timed out", ErrRead, dev.InstanceID)
	case err != nil:
		return gamepad.ButtonState{}, fmt.Errorf("%w: %s: %v", ErrRead, dev.InstanceID, err)
	case n == 0:
		return gamepad.ButtonState{}, fmt.Errorf("%w: %s: empty report", ErrRead, dev.InstanceID)
	}

	s, ok := decode(buf[:n])
	if !ok {
		return gamepad.ButtonState{}, fmt.Errorf("%w: %s: unexpected report 0x%02x", ErrRead, dev.InstanceID, buf[0])
	}
	return s, nil
}

// Write sends an output report to the device at path.
func (r *HIDReader) Write(path string, report []byte) error {
	return r.use(path, func(d HIDDevice) error {
		_, err := d.Write(report)
		return err
	})
}

// use runs fn on the open device at path with the handle locked. Any error
// other than a timeout closes the device.
func (r *HIDReader) use(path string, fn func(HIDDevice) error) error {
	h, err := r.handle(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return fmt.Errorf("%s: device closed", path)
	}
	err = fn(h.dev)
	if err != nil && !errors.Is(err, hid.ErrTimeout) {
		r.mu.Lock()
		if r.open[path] == h {
			delete(r.open, path)
		}
		r.mu.Unlock()
		h.close()
	}
	return err
}

func (r *HIDReader) handle(path string) (*hidHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.open[path]; ok {
		return h, nil
	}
	d, err := r.bus.Open(path)
	if err != nil {
		return nil, err
	}
	h := &hidHandle{dev: d}
	r.open[path] = h
	return h, nil
}

// close closes the device. The caller holds h.mu.
func (h *hidHandle) close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	return h.dev.Close()
}

// Close closes every open device, waiting for in-flight reads and writes.
func (r *HIDReader) Close() {
	r.mu.Lock()
	open := r.open
	r.open = make(map[string]*hidHandle)
	r.mu.Unlock()
	for path, h := range open {
		h.mu.Lock()
		err := h.close()
		h.mu.Unlock()
		if err != nil {
			r.logger.Debug("Closing HID device failed", zap.String("path", path), zap.Error(err))
		}
	}
}
