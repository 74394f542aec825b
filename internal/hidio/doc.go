// Package hidio abstracts USB HID transport for device handlers.
//
// Handlers depend on the narrow Device and Opener interfaces so protocol
// logic can be exercised against in-memory fakes; the hidapi-backed
// implementation (HIDAPI) is the only piece that touches real hardware.
//
// The package also provides Poll, a bounded poll-with-deadline helper with
// an injectable clock, used wherever a protocol requires cooperative
// polling for asynchronous reports.
package hidio
