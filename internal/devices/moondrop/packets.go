package moondrop

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/graywave/daceq/internal/peq"
)

// Wire protocol constants. The same platform ships under many OEM vendor
// IDs; product-name keywords do the real matching.
var vendorIDs = []uint16{
	0x3302, // WalkPlay (primary)
	0x0762, // Nextech
	0x35D8, // Conexant variant
	0x2FC6, // OEM variant
	0x0104, // Panasonic
	0xB445, // Zephyr
	0x0661, // TP-Link variant 1
	0x0666, // TP-Link variant 2
	0x0D8C, // GN Store Nord
}

const (
	reportID = 0x4B

	cmdRead  = 0x80
	cmdWrite = 0x01

	opUpdateEQ    = 0x09
	opCommitToReg = 0x0A
	opSaveFlash   = 0x01
	opPregain     = 0x23
	opDacOffset   = 0x03

	// packetLen is the report ID plus the 63 protocol bytes.
	packetLen = 64
	respLen   = 64

	// valueScale is the fixed-point factor for gain, Q and pregain.
	valueScale = 256

	// Offsets into a filter read response (and, +1 for the report ID,
	// into a write packet).
	respFreq = 27
	respQ    = 29
	respGain = 31
	respType = 33
)

var typeToWire = map[peq.FilterType]byte{
	peq.LowShelf:  1,
	peq.Peaking:   2,
	peq.HighShelf: 3,
}

var wireToType = map[byte]peq.FilterType{
	1: peq.LowShelf,
	2: peq.Peaking,
	3: peq.HighShelf,
}

// buildFilterWrite builds the coefficient packet for one band: header
// with the band index, five 2^30-scaled coefficients, then the semantic
// parameters the device echoes back on reads, then a marker.
func buildFilterWrite(band int, f peq.Filter) []byte {
	p := make([]byte, packetLen)
	p[0] = reportID
	p[1] = cmdWrite
	p[2] = opUpdateEQ
	p[3] = 0x18
	p[5] = byte(band)

	coeffs := scaledCoefficients(f)
	for i, c := range coeffs {
		binary.LittleEndian.PutUint32(p[8+i*4:], uint32(c))
	}

	binary.LittleEndian.PutUint16(p[1+respFreq:], uint16(f.Freq))
	binary.LittleEndian.PutUint16(p[1+respQ:], uint16(math.Round(f.Q*valueScale)))
	binary.LittleEndian.PutUint16(p[1+respGain:], uint16(int16(math.Round(f.Gain*valueScale))))
	p[1+respType] = typeToWire[f.Type]

	// peqIndex marker
	p[1+respType+1] = 0x00
	p[1+respType+2] = 0x07
	return p
}

// buildCommit stages the written coefficients into the active register
// for one band. The body is 0xFF-filled by protocol convention.
func buildCommit(band int) []byte {
	p := make([]byte, packetLen)
	for i := 1; i < packetLen; i++ {
		p[i] = 0xFF
	}
	p[0] = reportID
	p[1] = cmdWrite
	p[2] = opCommitToReg
	p[3] = byte(band)
	return p
}

// buildSave persists the active EQ to flash.
func buildSave() []byte {
	p := make([]byte, packetLen)
	p[0] = reportID
	p[1] = cmdWrite
	p[2] = opSaveFlash
	return p
}

// buildPregainWrite sets pregain, a signed 16-bit value scaled by 256,
// independent of the coefficient pipeline.
func buildPregainWrite(db float64) []byte {
	p := make([]byte, packetLen)
	p[0] = reportID
	p[1] = cmdWrite
	p[2] = opPregain
	binary.LittleEndian.PutUint16(p[4:], uint16(int16(math.Round(db*valueScale))))
	return p
}

// buildFilterRead requests one band's state.
func buildFilterRead(band int) []byte {
	p := make([]byte, packetLen)
	p[0] = reportID
	p[1] = cmdRead
	p[2] = opUpdateEQ
	p[3] = 0x18
	p[5] = byte(band)
	return p
}

// buildPregainRead requests the pregain value.
func buildPregainRead() []byte {
	p := make([]byte, packetLen)
	p[0] = reportID
	p[1] = cmdRead
	p[2] = opDacOffset
	return p
}

// decodeFilterResponse extracts the semantic parameters from a band read
// response. The response carries no report ID; offsets are absolute.
func decodeFilterResponse(resp []byte) (freq int, gain, q float64, typ peq.FilterType, err error) {
	if len(resp) < respType+1 {
		return 0, 0, 0, "", fmt.Errorf("%w: short filter response (%d bytes)", peq.ErrCommunication, len(resp))
	}
	freq = int(binary.LittleEndian.Uint16(resp[respFreq:]))
	q = float64(binary.LittleEndian.Uint16(resp[respQ:])) / valueScale
	gain = float64(int16(binary.LittleEndian.Uint16(resp[respGain:]))) / valueScale
	typ, ok := wireToType[resp[respType]]
	if !ok {
		typ = peq.Peaking
	}
	return freq, gain, q, typ, nil
}

// decodePregainResponse extracts pregain from its read response, located
// at bytes 3-4.
func decodePregainResponse(resp []byte) (float64, error) {
	if len(resp) < 5 {
		return 0, fmt.Errorf("%w: short pregain response (%d bytes)", peq.ErrCommunication, len(resp))
	}
	return float64(int16(binary.LittleEndian.Uint16(resp[3:]))) / valueScale, nil
}
