package profile

import "errors"

var (
	// ErrNotFound indicates no profile matches the requested id or name.
	ErrNotFound = errors.New("profile not found")
	// ErrMissingID indicates a profile was saved without an id.
	ErrMissingID = errors.New("profile id is empty")
	// ErrInvalidProfile indicates a profile document failed validation.
	ErrInvalidProfile = errors.New("invalid profile")
)
