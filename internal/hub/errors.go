package hub

import "errors"

var (
	// ErrCapacityExceeded: the registry already holds MaxDevices devices.
	ErrCapacityExceeded = errors.New("device registry is full")

	// ErrDeviceNotFound: no configured device matches the given id or slot.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrDuplicateDevice: a device with the same id or address is already
	// configured.
	ErrDuplicateDevice = errors.New("device already configured")

	// ErrCorruptConfig: a persisted device record is unreadable or invalid.
	ErrCorruptConfig = errors.New("corrupt device record")
)
