package hidio

import (
	"fmt"

	"time"

	hid "github.com/sstallion/go-hid"
)

// HIDAPI is the hidapi-backed Transport used against real hardware.
//
// Construct with NewHIDAPI and release with Close; the underlying hidapi
// library holds process-wide state.
type HIDAPI struct{}

// Ensure HIDAPI implements Transport.
var _ Transport = (*HIDAPI)(nil)

// NewHIDAPI initialises the hidapi library and returns a Transport.
func NewHIDAPI() (*HIDAPI, error) {
	if err := hid.Init(); err != nil {
		return nil, fmt.Errorf("initialising hidapi: %w", err)
	}
	return &HIDAPI{}, nil
}

// Close releases the hidapi library.
func (t *HIDAPI) Close() error {
	if err := hid.Exit(); err != nil {
		return fmt.Errorf("releasing hidapi: %w", err)
	}
	return nil
}

// Enumerate returns every attached HID interface.
func (t *HIDAPI) Enumerate() ([]DeviceInfo, error) {
	var infos []DeviceInfo
	err := hid.Enumerate(hid.VendorIDAny, hid.ProductIDAny, func(info *hid.DeviceInfo) error {
		infos = append(infos, DeviceInfo{
			Path:         info.Path,
			VendorID:     info.VendorID,
			ProductID:    info.ProductID,
			Serial:       info.SerialNbr,
			Manufacturer: info.MfrStr,
			Product:      info.ProductStr,
			UsagePage:    info.UsagePage,
			Usage:        info.Usage,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enumerating HID devices: %w", err)
	}
	return infos, nil
}

// Open opens the interface at the given enumeration path.
func (t *HIDAPI) Open(path string) (Device, error) {
	dev, err := hid.OpenPath(path)
	if err != nil {
		return nil, fmt.Errorf("opening HID path %s: %w", path, err)
	}
	return &hidapiDevice{dev: dev}, nil
}

// hidapiDevice adapts *hid.Device to the Device interface.
type hidapiDevice struct {
	dev *hid.Device
}

func (d *hidapiDevice) Write(p []byte) (int, error) {
	return d.dev.Write(p)
}

func (d *hidapiDevice) Read(p []byte, timeout time.Duration) (int, error) {
	if timeout <= 0 {
		// Non-blocking read; returns 0, nil when no report is queued.
		return d.dev.Read(p)
	}
	return d.dev.ReadWithTimeout(p, timeout)
}

func (d *hidapiDevice) SetNonblocking(enabled bool) error {
	return d.dev.SetNonblock(enabled)
}

func (d *hidapiDevice) Close() error {
	return d.dev.Close()
}
