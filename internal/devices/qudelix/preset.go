package qudelix

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/graywave/daceq/internal/peq"
)

// Preset buffer layout (little-endian, unlike command payloads):
//
//	USR/SPK: header(4) pregain i16×10 (+2 pad) freqL(2×bands) freqR(2×bands) params(4×bands)
//	B20:     header(4) pregain i16×10 (+2 pad) freq(2×bands)                 params(4×bands)
//
// Each band param is a packed little-endian u32:
//
//	bits  0-3   filter type
//	bits  4-13  gain, signed, dB × 10
//	bits 14-27  Q × 1024
//	bits 28-31  reserved
const presetHeaderLen = 4

// decodeBandWord unpacks one band parameter word.
func decodeBandWord(packed uint32) (typ byte, gainRaw int, qRaw int) {
	typ = byte(packed & 0x0F)
	gainRaw = int((packed >> 4) & 0x3FF)
	if gainRaw&0x200 != 0 {
		gainRaw -= 0x400
	}
	qRaw = int((packed >> 14) & 0x3FFF)
	return typ, gainRaw, qRaw
}

// encodeBandWord packs one band parameter word. Inverse of decodeBandWord
// for in-range values; gain saturates at the 10-bit signed limits.
func encodeBandWord(typ byte, gain, q float64) uint32 {
	g := int(math.Round(gain * 10))
	if g > 0x1FF {
		g = 0x1FF
	}
	if g < -0x200 {
		g = -0x200
	}
	qr := uint32(math.Round(q*1024)) & 0x3FFF
	return uint32(typ&0x0F) | uint32(g&0x3FF)<<4 | qr<<14
}

// parsePreset decodes a reassembled preset buffer into a profile.
//
// Slots marked bypass with near-zero gain are unused and skipped. For
// stereo groups only the left frequency table is read; the right table is
// redundant under this tool's write policy (both channels always written
// identically).
func parsePreset(data []byte, g eqGroup) (peq.Profile, error) {
	if len(data) < presetHeaderLen+4 {
		return peq.Profile{}, fmt.Errorf("%w: preset buffer too short (%d bytes)", peq.ErrCommunication, len(data))
	}

	off := presetHeaderLen
	pregain := float64(int16(binary.LittleEndian.Uint16(data[off:]))) / 10
	off += 4

	if len(data) < off+g.maxBands*2 {
		return peq.Profile{}, fmt.Errorf("%w: preset buffer truncated before frequency table", peq.ErrCommunication)
	}

	freqs := make([]int, g.maxBands)
	for i := range freqs {
		freqs[i] = int(binary.LittleEndian.Uint16(data[off+i*2:]))
	}
	off += g.maxBands * 2
	if !g.compact {
		off += g.maxBands * 2
	}

	var filters []peq.Filter
	for i := 0; i < g.maxBands; i++ {
		if off+4 > len(data) {
			break
		}
		typ, gainRaw, qRaw := decodeBandWord(binary.LittleEndian.Uint32(data[off:]))
		off += 4

		// Bypass with under 1 dB of residual gain marks an unused slot.
		if typ == wireBypass && gainRaw > -10 && gainRaw < 10 {
			continue
		}

		freq := freqs[i]
		if freq == 0 {
			freq = 1000
		}
		ft, ok := wireToType[typ]
		if !ok {
			ft = peq.Peaking
		}
		// Q is stored at 1/1024 resolution; round to two decimals so a
		// written 0.71 reads back as 0.71, not 0.7099609375.
		q := math.Round(float64(qRaw)/1024*100) / 100
		f, err := peq.NewFilter(freq, float64(gainRaw)/10, q, ft)
		if err != nil {
			return peq.Profile{}, fmt.Errorf("%w: band %d: %v", peq.ErrCommunication, i, err)
		}
		filters = append(filters, f)
	}

	return peq.Profile{Pregain: pregain, Filters: filters}, nil
}
