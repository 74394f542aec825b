// Package qudelix implements the command/preset HID protocol spoken by the
// Qudelix-5K (and T71 family) DSP.
//
// Unlike field-addressed devices, the Qudelix exposes a command surface:
// every outgoing report carries a 16-bit command and a payload, and state
// reads come back as a multi-report chunked dump of a whole preset buffer
// that the handler reassembles by declared offsets. The device has three
// independently addressable EQ groups (USR, SPK, B20) of different band
// counts, on-board preset storage with nameable custom slots, and an EQ
// mode switch selecting which groups are live.
//
// Command payloads are big-endian; the preset buffer is little-endian.
// The two never mix within one encoding path.
package qudelix
