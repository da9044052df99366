package input

import "errors"

var (
	// ErrEnumeration wraps a failure of one provider's discovery pass.
	ErrEnumeration = errors.New("device enumeration failed")
	// ErrRead wraps a failed poll sample.
	ErrRead = errors.New("device read failed")
	// ErrUnsupported means the backend cannot produce samples for the device.
	ErrUnsupported = errors.New("device not supported by backend")
)
