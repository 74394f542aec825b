package hidio

import (
	"fmt"
	"time"
)

// DeviceInfo describes one enumerated HID interface.
//
// A physical device may expose several interfaces sharing the same
// vendor/product IDs; Path identifies the exact interface and is the only
// field safe to open by.
type DeviceInfo struct {
	// Path is the platform-specific open path for this interface.
	Path string

	VendorID  uint16
	ProductID uint16

	Serial       string
	Manufacturer string
	Product      string

	// UsagePage and Usage identify the HID usage of this interface.
	// Vendor-defined control interfaces typically use page 0xFF00.
	UsagePage uint16
	Usage     uint16
}

func (d DeviceInfo) String() string {
	return fmt.Sprintf("%04X:%04X %q (%s)", d.VendorID, d.ProductID, d.Product, d.Path)
}

// Device is one open HID connection.
//
// A Device is exclusively owned by the handler instance that opened it;
// no two operations may be issued concurrently against the same Device.
type Device interface {
	// Write sends one output report. The first byte is the report ID.
	Write(p []byte) (int, error)

	// Read reads one input report into p, blocking up to timeout.
	// A timeout of zero or less performs a non-blocking read (the device
	// must be in non-blocking mode). Returns n == 0 with a nil error when
	// no report was available before the deadline.
	Read(p []byte, timeout time.Duration) (int, error)

	// SetNonblocking toggles non-blocking mode for Read.
	SetNonblocking(enabled bool) error

	// Close releases the connection. Safe to call more than once.
	Close() error
}

// Opener opens a HID interface by its enumeration path.
type Opener interface {
	Open(path string) (Device, error)
}

// Transport enumerates attached HID interfaces and opens them.
type Transport interface {
	Opener
	Enumerate() ([]DeviceInfo, error)
}
