package session

import "errors"

// Local validation and state errors. These are detected on the terminal and
// never reach the network.
var (
	ErrEmptyCode         = errors.New("pairing code is empty")
	ErrUnknownDeviceType = errors.New("unknown device type")
	ErrStationRequired   = errors.New("a station must be selected for this device type")
	ErrInvalidPIN        = errors.New("PIN must be exactly 6 digits")
	ErrNotPaired         = errors.New("device is not paired")
	ErrDeviceRevoked     = errors.New("device pairing has been revoked")
)

// ErrStationMismatch means the server demanded a station for a device type
// that never takes one. It is a configuration problem on the backend, not a
// bad code, and the two must not be conflated.
var ErrStationMismatch = errors.New("server requires a station for a device type that does not support one")
