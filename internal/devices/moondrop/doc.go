// Package moondrop implements the coefficient-level HID protocol used by
// Moondrop DSP devices (FreeDSP cables, Rays, Marigold, MAY and related
// OEM hardware on the same Conexant-derived platform).
//
// The firmware consumes literal IIR biquad coefficients, not semantic
// filter parameters: the handler computes the cookbook biquad for each
// band at a fixed 96 kHz sample rate, scales it to 2^30 fixed point, and
// writes it as a 63-byte packet. Coefficients are staged until a separate
// commit-to-register packet applies them, and a final save packet
// persists everything to flash. Reads are cheap: the response embeds the
// resolved frequency, Q and gain directly, so no reverse coefficient math
// is needed.
//
// The filter type codes are inverted relative to the Tanchjim protocol
// (1 = low shelf, 2 = peaking, 3 = high shelf); the mappings must never
// be shared between the two packages.
package moondrop
