package peq

import "errors"

// Domain errors shared by all device handlers.
var (
	// ErrNotConnected is returned when an operation requires an open device
	// connection but Connect has not been called (or Disconnect has).
	ErrNotConnected = errors.New("peq: device not connected")

	// ErrNotSupported is returned when a handler is asked to perform an
	// operation its capabilities exclude (e.g. reading a write-only device).
	ErrNotSupported = errors.New("peq: operation not supported by device")

	// ErrValidation is returned when a profile violates the target device's
	// capability envelope. Validation always runs before any wire traffic.
	ErrValidation = errors.New("peq: profile validation failed")

	// ErrCommunication is returned on a timeout or a malformed/short
	// response from the device.
	ErrCommunication = errors.New("peq: device communication failed")

	// ErrConnectionFailed is returned when opening the underlying HID path
	// fails.
	ErrConnectionFailed = errors.New("peq: connection failed")

	// ErrInvalidFilter is returned when a filter definition violates a
	// device-independent constraint (non-positive frequency or Q, unknown
	// filter type).
	ErrInvalidFilter = errors.New("peq: invalid filter definition")
)
