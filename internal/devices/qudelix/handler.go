package qudelix

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/graywave/daceq/internal/devices"
	"github.com/graywave/daceq/internal/hidio"
	"github.com/graywave/daceq/internal/peq"
)

// Protocol timing.
const (
	defaultCmdDelay     = 50 * time.Millisecond
	defaultSettleDelay  = 100 * time.Millisecond
	defaultInitDelay    = 300 * time.Millisecond
	defaultPollInterval = 10 * time.Millisecond
	defaultChunkTimeout = 2 * time.Second
	defaultNameTimeout  = time.Second
)

// Handler drives the Qudelix command protocol.
//
// The connection moves through two states: connected-but-uninitialized,
// and initialized after the handshake (init command, settle, drain of the
// device's unsolicited status burst). Every operation runs the handshake
// lazily on first use. Not safe for concurrent use.
type Handler struct {
	transport hidio.Opener
	clock     hidio.Clock
	log       devices.Logger

	cmdDelay     time.Duration
	settleDelay  time.Duration
	initDelay    time.Duration
	pollInterval time.Duration
	chunkTimeout time.Duration
	nameTimeout  time.Duration

	dev         hidio.Device
	initialized bool
	group       eqGroup
}

// Option configures a Handler at construction.
type Option func(*Handler)

// WithClock substitutes the clock used for protocol delays and deadlines.
func WithClock(c hidio.Clock) Option {
	return func(h *Handler) { h.clock = c }
}

// WithLogger sets the handler's logger.
func WithLogger(l devices.Logger) Option {
	return func(h *Handler) { h.log = l }
}

// New builds a Qudelix handler targeting the USR group until SelectGroup
// changes it.
func New(transport hidio.Opener, opts ...Option) *Handler {
	h := &Handler{
		transport:    transport,
		clock:        hidio.SystemClock(),
		log:          devices.NopLogger(),
		cmdDelay:     defaultCmdDelay,
		settleDelay:  defaultSettleDelay,
		initDelay:    defaultInitDelay,
		pollInterval: defaultPollInterval,
		chunkTimeout: defaultChunkTimeout,
		nameTimeout:  defaultNameTimeout,
		group:        eqGroups[0],
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Name() string         { return "Qudelix" }
func (h *Handler) VendorID() uint16     { return vendorID }
func (h *Handler) ProductIDs() []uint16 { return []uint16{productID} }

func (h *Handler) Features() devices.Feature {
	return devices.FeaturePresets | devices.FeaturePresetNames |
		devices.FeatureEQModes | devices.FeatureGroups
}

// Capabilities reflects the currently selected group: B20 offers twice
// the bands of USR and SPK.
func (h *Handler) Capabilities() peq.DeviceCapabilities {
	return peq.DeviceCapabilities{
		MaxFilters:   h.group.maxBands,
		GainRange:    peq.Range{Min: -20, Max: 20},
		PregainRange: peq.Range{Min: -12, Max: 12},
		FreqRange:    peq.Range{Min: 20, Max: 20000},
		QRange:       peq.Range{Min: 0.1, Max: 10},
		SupportedTypes: []peq.FilterType{
			peq.Peaking, peq.LowShelf, peq.HighShelf, peq.LowPass, peq.HighPass,
		},
		SupportsRead:  true,
		SupportsWrite: true,
	}
}

// Matches requires the exact vendor/product pair, a recognisable product
// name, and the vendor-defined usage page. The device also enumerates an
// audio-class HID interface with the same IDs that must never be opened.
func (h *Handler) Matches(info hidio.DeviceInfo) bool {
	if !devices.MatchByID(h, info) {
		return false
	}
	product := strings.ToUpper(info.Product)
	if !strings.Contains(product, "QUDELIX") && !strings.Contains(product, "5K") {
		return false
	}
	return info.UsagePage == controlUsagePage
}

func (h *Handler) Connect(info hidio.DeviceInfo) error {
	dev, err := h.transport.Open(info.Path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", peq.ErrConnectionFailed, info.Path, err)
	}
	if err := dev.SetNonblocking(true); err != nil {
		dev.Close()
		return fmt.Errorf("%w: %s: %v", peq.ErrConnectionFailed, info.Path, err)
	}
	h.dev = dev
	h.initialized = false
	h.log.Debug("connected", "handler", h.Name(), "product", info.Product)
	return nil
}

func (h *Handler) Disconnect() {
	if h.dev != nil {
		h.dev.Close()
		h.dev = nil
		h.initialized = false
	}
}

// SelectGroup targets subsequent operations at the named EQ group.
// Selection is handler-local state; nothing is sent to the device.
func (h *Handler) SelectGroup(name string) error {
	g, err := groupByName(name)
	if err != nil {
		return fmt.Errorf("%w: %v", peq.ErrValidation, err)
	}
	h.group = g
	return nil
}

// Group returns the currently selected group name.
func (h *Handler) Group() string {
	return h.group.name
}

// ReadPEQ requests the selected group's preset buffer and reassembles the
// chunked response.
//
// For stereo groups only the left channel is read; the write path keeps
// both channels identical, so the right table carries no extra state.
func (h *Handler) ReadPEQ() (peq.Profile, error) {
	if h.dev == nil {
		return peq.Profile{}, peq.ErrNotConnected
	}
	if err := h.ensureInit(); err != nil {
		return peq.Profile{}, err
	}

	if err := h.sendCmd(cmdReqPreset, []byte{1 << h.group.id}, false); err != nil {
		return peq.Profile{}, fmt.Errorf("requesting preset: %w", err)
	}
	h.clock.Sleep(h.settleDelay)

	chunks, err := h.collectChunks(h.group.id)
	if err != nil {
		return peq.Profile{}, err
	}

	p, err := parsePreset(reassemble(chunks), h.group)
	if err != nil {
		return peq.Profile{}, err
	}
	h.log.Debug("read complete", "group", h.group.name, "filters", len(p.Filters))
	return p, nil
}

// WritePEQ validates the profile against the selected group's envelope,
// enables the EQ, and streams pregain plus every band. Unused bands up to
// the group maximum are written as bypass so stale state never survives.
func (h *Handler) WritePEQ(p peq.Profile) error {
	if h.dev == nil {
		return peq.ErrNotConnected
	}
	if err := h.Capabilities().ValidateProfile(p); err != nil {
		return err
	}
	if err := h.ensureInit(); err != nil {
		return err
	}

	g := h.group
	if err := h.sendCmd(cmdSetEnable, []byte{g.id, 1}, true); err != nil {
		return fmt.Errorf("enabling EQ: %w", err)
	}
	if err := h.sendCmd(cmdSetType, []byte{g.id, 1}, true); err != nil {
		return fmt.Errorf("setting EQ type: %w", err)
	}

	hi, lo := be16(int(math.Round(p.Pregain * 10)))
	if err := h.sendCmd(cmdSetPregain, []byte{g.id, g.chanMask, 0, hi, lo}, true); err != nil {
		return fmt.Errorf("writing pregain: %w", err)
	}

	for i, f := range p.Filters {
		if err := h.sendBand(i, f); err != nil {
			return fmt.Errorf("writing band %d: %w", i, err)
		}
	}
	for i := len(p.Filters); i < g.maxBands; i++ {
		payload := []byte{g.id, g.chanMask, byte(i), wireBypass, 0, 0, 0, 0, 0, 0}
		if err := h.sendCmd(cmdSetBandParam, payload, true); err != nil {
			return fmt.Errorf("bypassing band %d: %w", i, err)
		}
	}

	h.clock.Sleep(h.settleDelay)
	h.log.Info("profile written", "group", g.name, "filters", len(p.Filters), "pregain", p.Pregain)
	return nil
}

// LoadPreset activates an on-device preset slot for the selected group.
// Slots: 0 flat, 1-21 factory, 22-41 custom, 42-52 QxOver (SPK only).
func (h *Handler) LoadPreset(slot int) error {
	if h.dev == nil {
		return peq.ErrNotConnected
	}
	if slot < 0 || slot > presetLoadMax {
		return fmt.Errorf("%w: preset slot %d out of range 0-%d", peq.ErrValidation, slot, presetLoadMax)
	}
	if slot > presetCustomLast {
		if h.group.name != "SPK" || slot > presetQxOverLast {
			return fmt.Errorf("%w: preset slot %d not valid for group %s", peq.ErrValidation, slot, h.group.name)
		}
	}
	if err := h.ensureInit(); err != nil {
		return err
	}

	if err := h.sendCmd(cmdLoadPreset, []byte{h.group.id, byte(slot)}, true); err != nil {
		return fmt.Errorf("loading preset %d: %w", slot, err)
	}
	h.clock.Sleep(h.settleDelay)
	return nil
}

// SavePreset stores the selected group's current EQ into a custom slot.
// Factory and QxOver slots are read-only.
func (h *Handler) SavePreset(slot int) error {
	if h.dev == nil {
		return peq.ErrNotConnected
	}
	if err := validateCustomSlot(slot); err != nil {
		return err
	}
	if err := h.ensureInit(); err != nil {
		return err
	}

	if err := h.sendCmd(cmdSavePreset, []byte{h.group.id, byte(slot)}, true); err != nil {
		return fmt.Errorf("saving preset %d: %w", slot, err)
	}
	h.clock.Sleep(h.settleDelay)
	return nil
}

// PresetName returns the user-assigned name of a custom preset slot,
// which may be empty for unnamed slots.
func (h *Handler) PresetName(slot int) (string, error) {
	if h.dev == nil {
		return "", peq.ErrNotConnected
	}
	if err := validateCustomSlot(slot); err != nil {
		return "", err
	}
	if err := h.ensureInit(); err != nil {
		return "", err
	}

	custom := byte(slot - presetCustomFirst)
	if err := h.sendCmd(cmdReqPresetName, []byte{h.group.id, custom}, false); err != nil {
		return "", fmt.Errorf("requesting preset name: %w", err)
	}
	h.clock.Sleep(h.settleDelay)

	var name string
	err := hidio.Poll(h.clock, h.pollInterval, h.nameTimeout, func() (bool, error) {
		buf := make([]byte, reportSize+1)
		n, err := h.dev.Read(buf, 0)
		if err != nil {
			return false, fmt.Errorf("%w: read: %v", peq.ErrCommunication, err)
		}
		if n == 0 {
			return false, nil
		}
		data := stripReportID(buf[:n])
		cmd, ok := responseCommand(data)
		if !ok || cmd != cmdRspPresetName || len(data) < 6 {
			return false, nil
		}
		// Response: [len][cmd hi][cmd lo][group][custom][name len][name...]
		if data[3] != h.group.id || data[4] != custom {
			return false, nil
		}
		nameLen := int(data[5])
		if 6+nameLen > len(data) {
			nameLen = len(data) - 6
		}
		name = string(data[6 : 6+nameLen])
		return true, nil
	})
	if errors.Is(err, hidio.ErrPollTimeout) {
		return "", fmt.Errorf("%w: no name response for preset %d", peq.ErrCommunication, slot)
	}
	if err != nil {
		return "", err
	}
	return name, nil
}

// SetPresetName assigns a name to a custom preset slot. Names are UTF-8
// and truncated to the device's 20-byte limit.
func (h *Handler) SetPresetName(slot int, name string) error {
	if h.dev == nil {
		return peq.ErrNotConnected
	}
	if err := validateCustomSlot(slot); err != nil {
		return err
	}
	if err := h.ensureInit(); err != nil {
		return err
	}

	nameBytes := []byte(name)
	if len(nameBytes) > presetNameMax {
		nameBytes = nameBytes[:presetNameMax]
	}
	custom := byte(slot - presetCustomFirst)
	payload := append([]byte{h.group.id, custom, byte(len(nameBytes))}, nameBytes...)
	if err := h.sendCmd(cmdSetPresetName, payload, true); err != nil {
		return fmt.Errorf("naming preset %d: %w", slot, err)
	}
	h.clock.Sleep(h.settleDelay)
	return nil
}

// SetEQMode switches the device between its two EQ engine modes:
// "usr_spk" (USR and SPK groups live) or "b20" (the 20-band group live).
func (h *Handler) SetEQMode(mode string) error {
	if h.dev == nil {
		return peq.ErrNotConnected
	}
	var wire byte
	switch mode {
	case "usr_spk":
		wire = modeUsrSpk
	case "b20":
		wire = modeB20
	default:
		return fmt.Errorf("%w: unknown EQ mode %q (valid: usr_spk, b20)", peq.ErrValidation, mode)
	}
	if err := h.ensureInit(); err != nil {
		return err
	}

	if err := h.sendCmd(cmdSetMode, []byte{wire}, true); err != nil {
		return fmt.Errorf("setting EQ mode: %w", err)
	}
	h.clock.Sleep(h.settleDelay)
	return nil
}

func validateCustomSlot(slot int) error {
	if slot < presetCustomFirst || slot > presetCustomLast {
		return fmt.Errorf("%w: slot %d is not a custom preset (custom range %d-%d)",
			peq.ErrValidation, slot, presetCustomFirst, presetCustomLast)
	}
	return nil
}

// ensureInit runs the lazy handshake: init request, settle, then a drain
// of the status burst the device emits in response.
func (h *Handler) ensureInit() error {
	if h.initialized {
		return nil
	}
	if err := h.sendCmd(cmdReqInitData, []byte{0x00, 0x00, 0x04}, false); err != nil {
		return fmt.Errorf("init handshake: %w", err)
	}
	h.clock.Sleep(h.initDelay)
	if err := h.drain(); err != nil {
		return fmt.Errorf("init handshake: %w", err)
	}
	h.initialized = true
	return nil
}

func (h *Handler) sendBand(band int, f peq.Filter) error {
	g := h.group
	fhi, flo := be16(f.Freq)
	ghi, glo := be16(int(math.Round(f.Gain * 10)))
	qhi, qlo := be16(int(math.Round(f.Q * 1024)))
	payload := []byte{g.id, g.chanMask, byte(band), typeToWire[f.Type], fhi, flo, ghi, glo, qhi, qlo}
	return h.sendCmd(cmdSetBandParam, payload, true)
}

// sendCmd writes one framed command and waits the inter-command gap.
// Commands expecting a chunked or addressed response must pass
// drain=false so the response is not discarded.
func (h *Handler) sendCmd(cmd uint16, payload []byte, drain bool) error {
	if _, err := h.dev.Write(buildCommand(cmd, payload)); err != nil {
		return fmt.Errorf("%w: command %#04x: %v", peq.ErrCommunication, cmd, err)
	}
	h.clock.Sleep(h.cmdDelay)
	if drain {
		return h.drain()
	}
	return nil
}

// drain discards pending input reports, bounded so a chatty device cannot
// stall the command stream.
func (h *Handler) drain() error {
	buf := make([]byte, reportSize+1)
	for i := 0; i < 20; i++ {
		n, err := h.dev.Read(buf, 0)
		if err != nil {
			return fmt.Errorf("%w: drain: %v", peq.ErrCommunication, err)
		}
		if n == 0 {
			return nil
		}
		h.clock.Sleep(h.pollInterval)
	}
	return nil
}

// collectChunks polls for preset chunks until the device has delivered
// last+1 distinct indices or the deadline passes. Duplicate indices
// overwrite; a timeout with partial data reassembles what arrived, and a
// timeout with nothing is a communication failure.
func (h *Handler) collectChunks(groupID byte) (map[int]chunk, error) {
	chunks := make(map[int]chunk)
	err := hidio.Poll(h.clock, h.pollInterval, h.chunkTimeout, func() (bool, error) {
		buf := make([]byte, reportSize+1)
		n, err := h.dev.Read(buf, 0)
		if err != nil {
			return false, fmt.Errorf("%w: read: %v", peq.ErrCommunication, err)
		}
		if n == 0 {
			return false, nil
		}
		c, ok := parseChunk(stripReportID(buf[:n]), groupID)
		if !ok {
			return false, nil
		}
		chunks[c.index] = c
		return len(chunks) == c.last+1, nil
	})
	if errors.Is(err, hidio.ErrPollTimeout) {
		if len(chunks) == 0 {
			return nil, fmt.Errorf("%w: no preset data received", peq.ErrCommunication)
		}
		h.log.Warn("chunk collection timed out with partial data", "chunks", len(chunks))
		return chunks, nil
	}
	if err != nil {
		return nil, err
	}
	return chunks, nil
}
