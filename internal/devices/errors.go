package devices

import "errors"

// Discovery and selection errors.
var (
	// ErrNoDevices is returned when discovery found no supported devices.
	ErrNoDevices = errors.New("devices: no supported devices found")

	// ErrAmbiguousSelection is returned when several devices were
	// discovered and no explicit selector was given. The message lists
	// every candidate.
	ErrAmbiguousSelection = errors.New("devices: multiple devices found, explicit selection required")

	// ErrInvalidSelection is returned when an explicit device ID is
	// outside the range of the current discovery snapshot. The message
	// cites the valid range.
	ErrInvalidSelection = errors.New("devices: invalid device selection")
)
