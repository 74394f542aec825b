// Package peq defines the parametric EQ data model shared by every device
// handler: filter definitions, complete profiles, device capability
// envelopes, and the error taxonomy for device operations.
//
// Values in this package are plain data. Device-dependent constraints
// (filter count limits, gain/frequency/Q ranges) are expressed by
// DeviceCapabilities and enforced by ValidateProfile before any wire
// traffic is sent; the types themselves only enforce constraints that are
// device-independent (positive frequency, positive Q, known filter type).
package peq
