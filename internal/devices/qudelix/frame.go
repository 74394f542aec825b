package qudelix

import "github.com/graywave/daceq/internal/peq"

// USB identity and report framing.
const (
	vendorID  = 0x0A12 // CSR/Qualcomm
	productID = 0x4125

	reportOut = 8
	reportIn  = 9

	// controlUsagePage marks the vendor-defined control interface; the
	// device also enumerates an audio-class HID interface that must not
	// be opened.
	controlUsagePage = 0xFF00

	reportSize = 64
)

// Protocol commands.
const (
	cmdReqInitData   = 0x0100
	cmdReqPreset     = 0x0123
	cmdRspPreset     = 0x0128
	cmdSetEnable     = 0x0700
	cmdSetType       = 0x0701
	cmdSetPregain    = 0x0703
	cmdSavePreset    = 0x0708
	cmdLoadPreset    = 0x0709
	cmdSetPresetName = 0x070A
	cmdReqPresetName = 0x070B
	cmdRspPresetName = 0x070C
	cmdSetMode       = 0x070E
	cmdSetBandParam  = 0x070F
)

// On-device preset slot layout. Custom slots are the only writable and
// nameable range; QxOver slots exist for the SPK group only.
const (
	presetFlat         = 0
	presetFactoryFirst = 1
	presetFactoryLast  = 21
	presetCustomFirst  = 22
	presetCustomLast   = 41
	presetQxOverFirst  = 42
	presetQxOverLast   = 52
	presetLoadMax      = 58

	presetNameMax = 20
)

// EQ engine modes.
const (
	modeUsrSpk = 0
	modeB20    = 1
)

// Wire filter type codes.
const (
	wireBypass    = 0
	wireLowPass   = 1
	wireHighPass  = 2
	wireLowShelf  = 3
	wireHighShelf = 4
	wirePeaking   = 5
)

var typeToWire = map[peq.FilterType]byte{
	peq.Peaking:   wirePeaking,
	peq.LowShelf:  wireLowShelf,
	peq.HighShelf: wireHighShelf,
	peq.LowPass:   wireLowPass,
	peq.HighPass:  wireHighPass,
}

// wireToType also maps bypass to peaking: a bypass slot with non-zero
// gain is reported as an active peaking band, matching the vendor app.
var wireToType = map[byte]peq.FilterType{
	wireBypass:    peq.Peaking,
	wireLowPass:   peq.LowPass,
	wireHighPass:  peq.HighPass,
	wireLowShelf:  peq.LowShelf,
	wireHighShelf: peq.HighShelf,
	wirePeaking:   peq.Peaking,
}

// buildCommand frames one outgoing report: report ID, then
// [len=payload+3][0x80][cmd hi][cmd lo][payload...] zero-padded to the
// report size.
func buildCommand(cmd uint16, payload []byte) []byte {
	p := make([]byte, 1+reportSize)
	p[0] = reportOut
	p[1] = byte(len(payload) + 3)
	p[2] = 0x80
	p[3] = byte(cmd >> 8)
	p[4] = byte(cmd)
	copy(p[5:], payload)
	return p
}

// stripReportID removes the input report ID when the platform delivers
// it; some HID backends do, some do not.
func stripReportID(raw []byte) []byte {
	if len(raw) > 0 && raw[0] == reportIn {
		return raw[1:]
	}
	return raw
}

// responseCommand extracts the 16-bit command from a stripped input
// report, or false when the report is too short to carry one.
func responseCommand(data []byte) (uint16, bool) {
	if len(data) < 4 || data[0] < 3 {
		return 0, false
	}
	return uint16(data[1])<<8 | uint16(data[2]), true
}

// be16 encodes a signed value as big-endian bytes, two's complement.
// Command payloads are big-endian throughout.
func be16(v int) (hi, lo byte) {
	return byte(uint16(v) >> 8), byte(uint16(v))
}
