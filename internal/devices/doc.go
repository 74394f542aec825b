// Package devices defines the vendor-neutral device handler contract and
// the discovery registry that matches attached HID interfaces to handlers.
//
// Each vendor protocol lives in its own subpackage (tanchjim, qudelix,
// moondrop) and implements Handler. The Registry owns only prototype
// handler instances for matching and capability queries; actual I/O is
// always performed through a fresh instance built at connect time, so no
// protocol state can leak between connect/disconnect cycles.
package devices
