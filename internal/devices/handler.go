package devices

import (
	"slices"

	"github.com/graywave/daceq/internal/hidio"
	"github.com/graywave/daceq/internal/peq"
)

// Feature is a bit set of optional handler capabilities beyond the core
// read/write contract. Callers must check the relevant flag before using
// the operation's interface; a handler advertising a flag is guaranteed to
// implement the matching interface.
type Feature uint8

// Optional handler capabilities.
const (
	// FeatureDirectPregain: the handler can write pregain alone, without
	// rewriting the filter chain (see PregainWriter).
	FeatureDirectPregain Feature = 1 << iota

	// FeaturePresets: the device has on-board preset storage slots
	// (see PresetManager).
	FeaturePresets

	// FeaturePresetNames: custom preset slots carry user-assigned names
	// (see PresetManager).
	FeaturePresetNames

	// FeatureEQModes: the device switches between EQ engine modes
	// (see ModeSelector).
	FeatureEQModes

	// FeatureGroups: the device exposes several independently addressable
	// EQ groups (see GroupSelector).
	FeatureGroups
)

// Has reports whether all bits in want are set.
func (f Feature) Has(want Feature) bool {
	return f&want == want
}

// Handler is the contract every vendor protocol implements.
//
// A Handler is either a prototype (used for matching and capability
// queries, never connected) or a connected instance bound to exactly one
// open transport handle. Handlers are not safe for concurrent use; the
// connection is exclusively owned by the caller holding the instance.
type Handler interface {
	// Name is the stable human-readable vendor identifier.
	Name() string

	// VendorID is the primary USB vendor ID used for default matching.
	VendorID() uint16

	// ProductIDs lists the product IDs this handler supports, or nil to
	// accept any product from the vendor.
	ProductIDs() []uint16

	// Capabilities describes the device's operating envelope. May vary
	// with handler state for protocols with multiple addressable groups.
	Capabilities() peq.DeviceCapabilities

	// Features declares the optional capabilities this handler implements.
	Features() Feature

	// Matches reports whether this handler recognises the enumerated
	// interface. The default rule is MatchByID; handlers override to also
	// require product-name keywords or a specific usage page.
	Matches(info hidio.DeviceInfo) bool

	// Connect opens the specific HID path in info. Multiple interfaces can
	// share vendor/product IDs, so the path is authoritative.
	// Returns peq.ErrConnectionFailed (wrapped) on failure.
	Connect(info hidio.DeviceInfo) error

	// Disconnect closes the connection. Idempotent and safe to call even
	// if Connect never ran, so it can sit in a defer unconditionally.
	Disconnect()

	// ReadPEQ reads the device's current PEQ state.
	// Returns peq.ErrNotSupported if the device cannot be read and
	// peq.ErrNotConnected before Connect.
	ReadPEQ() (peq.Profile, error)

	// WritePEQ validates the profile against Capabilities and writes it.
	// Validation always runs before any wire traffic. A communication
	// error mid-sequence is not retried and not rolled back: the device is
	// left in whatever partial state the already-sent packets produced,
	// and callers should re-read to verify after a failure.
	WritePEQ(p peq.Profile) error
}

// PregainWriter is implemented by handlers advertising FeatureDirectPregain.
type PregainWriter interface {
	// WritePregain sets and commits pregain without touching the filters.
	WritePregain(db float64) error
}

// PresetManager is implemented by handlers advertising FeaturePresets.
// Name operations additionally require FeaturePresetNames.
type PresetManager interface {
	// LoadPreset activates the given on-device preset slot.
	LoadPreset(slot int) error

	// SavePreset stores the current EQ state into a custom preset slot.
	SavePreset(slot int) error

	// PresetName returns the user-assigned name of a custom preset slot.
	PresetName(slot int) (string, error)

	// SetPresetName assigns a name to a custom preset slot.
	SetPresetName(slot int, name string) error
}

// GroupSelector is implemented by handlers advertising FeatureGroups.
type GroupSelector interface {
	// SelectGroup targets subsequent read/write operations at the named
	// EQ group. Capabilities reflect the selection.
	SelectGroup(name string) error

	// Group returns the currently selected group name.
	Group() string
}

// ModeSelector is implemented by handlers advertising FeatureEQModes.
type ModeSelector interface {
	// SetEQMode switches the device's active EQ engine mode.
	SetEQMode(mode string) error
}

// MatchByID is the default device-matching rule: the vendor ID must equal
// the handler's, and if the handler declares product IDs the enumerated
// product must be among them.
func MatchByID(h Handler, info hidio.DeviceInfo) bool {
	if info.VendorID != h.VendorID() {
		return false
	}
	ids := h.ProductIDs()
	if ids == nil {
		return true
	}
	return slices.Contains(ids, info.ProductID)
}
