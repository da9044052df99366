package output

import "errors"

var (
	// ErrBackendUnavailable is returned by every Create when the emulation
	// backend failed to initialize.
	ErrBackendUnavailable = errors.New("virtual controller backend unavailable")
	// ErrUnsupported marks a best-effort feature the backend does not implement.
	ErrUnsupported = errors.New("not supported by backend")
	// ErrNoTarget indicates no virtual target exists for the device id.
	ErrNoTarget = errors.New("no virtual target for device")
)
