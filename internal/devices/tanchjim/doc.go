// Package tanchjim implements the field-addressed HID protocol used by
// Tanchjim DSP devices (Fission, Bunny, One DSP and earlier firmware).
//
// The device exposes a flat field space: each of the five filter slots
// occupies two consecutive field IDs (gain/frequency, then Q/type), with
// pregain in its own field. Every exchange is a single 64-byte report
// carrying a field ID, an opcode (read, write, or commit-to-flash) and a
// little-endian payload. There are no hardware presets; the device holds
// exactly one EQ buffer.
//
// Two protocol variants exist with different field bases and pregain
// encodings. They are registered as separate handlers and never merged;
// see variants.go.
package tanchjim
