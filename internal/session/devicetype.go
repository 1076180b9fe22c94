package session

// DeviceType identifies what kind of kiosk front end this terminal runs.
// Pairing requirements differ per type: station-bound types must pick a
// station during pairing, the commander handheld never does.
type DeviceType string

const (
	DeviceCashRegister DeviceType = "cash_register"
	DeviceCommander    DeviceType = "commander"
	DeviceMonitor      DeviceType = "monitor"
)

// Known reports whether the type is part of the fixed enumeration.
func (d DeviceType) Known() bool {
	switch d {
	case DeviceCashRegister, DeviceCommander, DeviceMonitor:
		return true
	}
	return false
}

// RequiresStation reports whether this device type pins to exactly one
// station when pairing.
func (d DeviceType) RequiresStation() bool {
	switch d {
	case DeviceCashRegister, DeviceMonitor:
		return true
	}
	return false
}

func (d DeviceType) String() string { return string(d) }
