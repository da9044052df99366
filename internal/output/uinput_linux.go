//go:build linux

package output

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/soar/GameControllerRemap/internal/gamepad"
	"golang.org/x/sys/unix"
)

const uinputPath = "/dev/uinput"

// uinput ioctl requests.
const (
	uiSetEvBit   uint = 0x40045564
	uiSetKeyBit  uint = 0x40045565
	uiSetAbsBit  uint = 0x40045567
	uiDevSetup   uint = 0x405c5503
	uiAbsSetup   uint = 0x401c5504
	uiDevCreate  uint = 0x5501
	uiDevDestroy uint = 0x5502
)

type inputID struct {
	bustype, vendor, product, version uint16
}

type inputAbsinfo struct {
	value, min, max, fuzz, flat, resolution int32
}

type uinputSetup struct {
	id           inputID
	name         [80]byte
	ffEffectsMax uint32
}

type uinputAbsSetup struct {
	code uint16
	_    [2]byte
	info inputAbsinfo
}

// UInputBackend creates virtual Xbox 360 pads through /dev/uinput.
type UInputBackend struct {
	deviceName string
}

// NewUInputBackend checks that /dev/uinput is writable.
func NewUInputBackend(deviceName string) (*UInputBackend, error) {
	if err := unix.Access(uinputPath, unix.W_OK); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBackendUnavailable, uinputPath, err)
	}
	return &UInputBackend{deviceName: deviceName}, nil
}

func (b *UInputBackend) Name() string { return "uinput" }

func (b *UInputBackend) Open(deviceID string, kind gamepad.ControllerType) (Target, error) {
	fd, err := unix.Open(uinputPath, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", uinputPath, err)
	}
	if err := setupPad(fd, b.deviceName); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return &uinputTarget{fd: fd}, nil
}

func setupPad(fd int, name string) error {
	for _, ev := range []uint16{evKey, evAbs, evSyn} {
		if err := unix.IoctlSetInt(fd, uiSetEvBit, int(ev)); err != nil {
			return fmt.Errorf("UI_SET_EVBIT: %w", err)
		}
	}
	for _, k := range padKeys {
		if err := unix.IoctlSetInt(fd, uiSetKeyBit, int(k.code)); err != nil {
			return fmt.Errorf("UI_SET_KEYBIT 0x%x: %w", k.code, err)
		}
	}
	for _, a := range padAxes {
		if err := unix.IoctlSetInt(fd, uiSetAbsBit, int(a.code)); err != nil {
			return fmt.Errorf("UI_SET_ABSBIT 0x%x: %w", a.code, err)
		}
	}

	setup := uinputSetup{
		id: inputID{bustype: busUSB, vendor: xbox360Vendor, product: xbox360Product, version: 1},
	}
	copy(setup.name[:len(setup.name)-1], name)
	if err := ioctlPtr(fd, uiDevSetup, unsafe.Pointer(&setup)); err != nil {
		return fmt.Errorf("UI_DEV_SETUP: %w", err)
	}

	for _, a := range padAxes {
		abs := uinputAbsSetup{code: a.code, info: inputAbsinfo{min: a.min, max: a.max}}
		if a.min < 0 {
			abs.info.fuzz = 16
			abs.info.flat = 128
		}
		if err := ioctlPtr(fd, uiAbsSetup, unsafe.Pointer(&abs)); err != nil {
			return fmt.Errorf("UI_ABS_SETUP 0x%x: %w", a.code, err)
		}
	}

	if err := unix.IoctlSetInt(fd, uiDevCreate, 0); err != nil {
		return fmt.Errorf("UI_DEV_CREATE: %w", err)
	}
	return nil
}

func ioctlPtr(fd int, req uint, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

type uinputTarget struct {
	mu     sync.Mutex
	fd     int
	closed bool
}

// Submit writes every key and axis plus SYN_REPORT in a single write.
func (t *uinputTarget) Submit(s gamepad.ButtonState) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrNoTarget
	}
	_, err := unix.Write(t.fd, encodeReport(s))
	return err
}

func (t *uinputTarget) SetVibration(left, right uint8) error {
	return ErrUnsupported
}

func (t *uinputTarget) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	unix.IoctlSetInt(t.fd, uiDevDestroy, 0)
	return unix.Close(t.fd)
}
