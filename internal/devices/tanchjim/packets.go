package tanchjim

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/graywave/daceq/internal/peq"
)

// Wire protocol constants. Field and opcode values come from the vendor's
// DSP control protocol.
const (
	vendorID = 0x31B2
	reportID = 0x4B

	opRead   = 0x52
	opWrite  = 0x57
	opCommit = 0x53

	fieldPregain = 0x65

	// packetLen is the report ID byte plus the 11 protocol bytes.
	packetLen = 12

	// respLen is the input report size. Responses mirror the request
	// framing: report ID, field ID, opcode at byte 5, payload from byte 7.
	respLen = 64

	respPayload = 7
)

var typeToWire = map[peq.FilterType]byte{
	peq.Peaking:   0x00,
	peq.LowShelf:  0x03,
	peq.HighShelf: 0x04,
}

var wireToType = map[byte]peq.FilterType{
	0x00: peq.Peaking,
	0x03: peq.LowShelf,
	0x04: peq.HighShelf,
}

// newPacket allocates a zeroed output report addressing the given field.
func newPacket(field, op byte) []byte {
	p := make([]byte, packetLen)
	p[0] = reportID
	p[1] = field
	p[5] = op
	return p
}

// buildRead requests the current value of a field.
func buildRead(field byte) []byte {
	return newPacket(field, opRead)
}

// buildWriteGainFreq sets a slot's even field: gain as a signed 16-bit
// value scaled by 10, frequency as an unsigned 16-bit value in Hz, both
// little-endian.
func buildWriteGainFreq(field byte, freq int, gain float64) []byte {
	p := newPacket(field, opWrite)
	g := int16(math.Round(gain * 10))
	binary.LittleEndian.PutUint16(p[respPayload:], uint16(g))
	binary.LittleEndian.PutUint16(p[respPayload+2:], uint16(freq))
	return p
}

// buildWriteQType sets a slot's odd field: Q as an unsigned 16-bit value
// scaled by 1000, followed by the filter type byte.
func buildWriteQType(field byte, q float64, typ peq.FilterType) []byte {
	p := newPacket(field, opWrite)
	binary.LittleEndian.PutUint16(p[respPayload:], uint16(math.Round(q*1000)))
	p[respPayload+2] = typeToWire[typ]
	return p
}

// buildWritePregain sets the pregain field. The value is a signed byte;
// scaled variants double it for half-dB resolution.
func buildWritePregain(db float64, scaled bool) []byte {
	p := newPacket(fieldPregain, opWrite)
	p[respPayload] = encodePregain(db, scaled)
	return p
}

// buildCommit persists the current EQ buffer to flash.
func buildCommit() []byte {
	return newPacket(0x00, opCommit)
}

func encodePregain(db float64, scaled bool) byte {
	if scaled {
		db *= 2
	}
	return byte(int8(math.Round(db)))
}

func decodePregain(raw byte, scaled bool) float64 {
	v := float64(int8(raw))
	if scaled {
		v /= 2
	}
	return v
}

// decodeGainFreq extracts gain (dB) and frequency (Hz) from a read
// response for a slot's even field.
func decodeGainFreq(resp []byte) (gain float64, freq int, err error) {
	if len(resp) < respPayload+4 {
		return 0, 0, fmt.Errorf("%w: short gain/freq response (%d bytes)", peq.ErrCommunication, len(resp))
	}
	g := int16(binary.LittleEndian.Uint16(resp[respPayload:]))
	f := int(binary.LittleEndian.Uint16(resp[respPayload+2:]))
	return float64(g) / 10, f, nil
}

// decodeQType extracts Q and filter type from a read response for a
// slot's odd field. Unknown type bytes decode as peaking, matching the
// vendor app.
func decodeQType(resp []byte) (q float64, typ peq.FilterType, err error) {
	if len(resp) < respPayload+3 {
		return 0, "", fmt.Errorf("%w: short Q/type response (%d bytes)", peq.ErrCommunication, len(resp))
	}
	q = float64(binary.LittleEndian.Uint16(resp[respPayload:])) / 1000
	typ, ok := wireToType[resp[respPayload+2]]
	if !ok {
		typ = peq.Peaking
	}
	return q, typ, nil
}
