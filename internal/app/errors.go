package app

import "errors"

var (
	// ErrUnknownDevice indicates no catalogued device has the requested id.
	ErrUnknownDevice = errors.New("unknown device")
	// ErrNotRemapping indicates the device has no active binding.
	ErrNotRemapping = errors.New("device is not being remapped")
)
