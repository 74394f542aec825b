package tanchjim

// variant captures the differences between the two known protocol
// generations. The modern firmware (Fission, Bunny, One DSP) bases the
// filter field space at 0x26 and encodes pregain at half-dB resolution
// (signed byte, value doubled); earlier firmware bases it at 0x20 and
// stores pregain as a raw signed byte in whole dB.
//
// The two are deliberately separate handlers selected by product-name
// keywords. Register the modern variant first: its keywords are specific
// model names, while the legacy variant claims anything else carrying the
// brand name.
type variant struct {
	name          string
	filterBase    byte
	pregainScaled bool
	keywords      []string
}

var (
	modernVariant = variant{
		name:          "Tanchjim",
		filterBase:    0x26,
		pregainScaled: true,
		keywords:      []string{"FISSION", "BUNNY", "ONE"},
	}

	legacyVariant = variant{
		name:          "Tanchjim (legacy)",
		filterBase:    0x20,
		pregainScaled: false,
		keywords:      []string{"TANCHJIM"},
	}
)

// fieldsForSlot returns the even (gain/frequency) and odd (Q/type) field
// IDs for a filter slot.
func (v variant) fieldsForSlot(index int) (gainFreq, qType byte) {
	gainFreq = v.filterBase + byte(index*2)
	return gainFreq, gainFreq + 1
}
