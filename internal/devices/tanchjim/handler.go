package tanchjim

import (
	"fmt"
	"strings"
	"time"

	"github.com/graywave/daceq/internal/devices"
	"github.com/graywave/daceq/internal/hidio"
	"github.com/graywave/daceq/internal/peq"
)

// Protocol timing. Writes need a short gap for the DSP to latch each
// field; commits trigger a flash write that must settle before the next
// exchange.
const (
	defaultWriteDelay  = 20 * time.Millisecond
	defaultCommitDelay = time.Second
	defaultReadTimeout = time.Second
)

// Handler drives one Tanchjim protocol variant.
//
// A Handler is single-session: Connect binds it to one open HID path and
// Disconnect releases it. Not safe for concurrent use.
type Handler struct {
	variant   variant
	transport hidio.Opener
	clock     hidio.Clock
	log       devices.Logger

	writeDelay  time.Duration
	commitDelay time.Duration
	readTimeout time.Duration

	dev hidio.Device
}

// Option configures a Handler at construction.
type Option func(*Handler)

// WithClock substitutes the clock used for inter-packet delays.
func WithClock(c hidio.Clock) Option {
	return func(h *Handler) { h.clock = c }
}

// WithLogger sets the handler's logger.
func WithLogger(l devices.Logger) Option {
	return func(h *Handler) { h.log = l }
}

// WithWriteDelay overrides the gap between write packets.
func WithWriteDelay(d time.Duration) Option {
	return func(h *Handler) { h.writeDelay = d }
}

// NewModern builds a handler for current-generation devices
// (Fission, Bunny, One DSP).
func NewModern(transport hidio.Opener, opts ...Option) *Handler {
	return newHandler(modernVariant, transport, opts)
}

// NewLegacy builds a handler for earlier firmware with the old field base
// and raw pregain encoding.
func NewLegacy(transport hidio.Opener, opts ...Option) *Handler {
	return newHandler(legacyVariant, transport, opts)
}

func newHandler(v variant, transport hidio.Opener, opts []Option) *Handler {
	h := &Handler{
		variant:     v,
		transport:   transport,
		clock:       hidio.SystemClock(),
		log:         devices.NopLogger(),
		writeDelay:  defaultWriteDelay,
		commitDelay: defaultCommitDelay,
		readTimeout: defaultReadTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Name() string         { return h.variant.name }
func (h *Handler) VendorID() uint16     { return vendorID }
func (h *Handler) ProductIDs() []uint16 { return nil }

func (h *Handler) Features() devices.Feature {
	return devices.FeatureDirectPregain
}

func (h *Handler) Capabilities() peq.DeviceCapabilities {
	return peq.DeviceCapabilities{
		MaxFilters:     5,
		GainRange:      peq.Range{Min: -20, Max: 20},
		PregainRange:   peq.Range{Min: -12, Max: 12},
		FreqRange:      peq.Range{Min: 20, Max: 20000},
		QRange:         peq.Range{Min: 0.1, Max: 10},
		SupportedTypes: []peq.FilterType{peq.Peaking, peq.LowShelf, peq.HighShelf},
		SupportsRead:   true,
		SupportsWrite:  true,
	}
}

// Matches requires the vendor ID plus one of the variant's product-name
// keywords, so the two variants split the vendor's device population.
func (h *Handler) Matches(info hidio.DeviceInfo) bool {
	if info.VendorID != vendorID {
		return false
	}
	product := strings.ToUpper(info.Product)
	for _, kw := range h.variant.keywords {
		if strings.Contains(product, kw) {
			return true
		}
	}
	return false
}

func (h *Handler) Connect(info hidio.DeviceInfo) error {
	dev, err := h.transport.Open(info.Path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", peq.ErrConnectionFailed, info.Path, err)
	}
	h.dev = dev
	h.log.Debug("connected", "handler", h.variant.name, "product", info.Product)
	return nil
}

func (h *Handler) Disconnect() {
	if h.dev != nil {
		h.dev.Close()
		h.dev = nil
	}
}

// ReadPEQ reads all filter slots and pregain. Bypassed slots (zero
// frequency or Q) are skipped, so the returned profile holds only active
// filters in slot order.
func (h *Handler) ReadPEQ() (peq.Profile, error) {
	if h.dev == nil {
		return peq.Profile{}, peq.ErrNotConnected
	}

	var filters []peq.Filter
	for i := 0; i < h.Capabilities().MaxFilters; i++ {
		f, ok, err := h.readFilter(i)
		if err != nil {
			return peq.Profile{}, err
		}
		if ok {
			filters = append(filters, f)
		}
	}

	resp, err := h.exchange(buildRead(fieldPregain))
	if err != nil {
		return peq.Profile{}, fmt.Errorf("reading pregain: %w", err)
	}
	if len(resp) < respPayload+1 {
		return peq.Profile{}, fmt.Errorf("%w: short pregain response (%d bytes)", peq.ErrCommunication, len(resp))
	}
	pregain := decodePregain(resp[respPayload], h.variant.pregainScaled)

	h.log.Debug("read complete", "filters", len(filters), "pregain", pregain)
	return peq.Profile{Pregain: pregain, Filters: filters}, nil
}

// WritePEQ validates the profile, writes every filter slot (clearing the
// unused ones), writes pregain, and commits to flash. A failure
// mid-sequence leaves the device in the partial state the sent packets
// produced; re-read to verify after an error.
func (h *Handler) WritePEQ(p peq.Profile) error {
	if h.dev == nil {
		return peq.ErrNotConnected
	}
	if err := h.Capabilities().ValidateProfile(p); err != nil {
		return err
	}

	for i, f := range p.Filters {
		if err := h.writeFilter(i, f); err != nil {
			return fmt.Errorf("writing filter %d: %w", i, err)
		}
	}

	// Clear the remaining slots so stale filters never survive a shorter
	// profile.
	for i := len(p.Filters); i < h.Capabilities().MaxFilters; i++ {
		gainFreq, qType := h.variant.fieldsForSlot(i)
		if err := h.send(buildWriteGainFreq(gainFreq, 0, 0)); err != nil {
			return fmt.Errorf("clearing filter %d: %w", i, err)
		}
		if err := h.send(buildWriteQType(qType, 0, peq.Peaking)); err != nil {
			return fmt.Errorf("clearing filter %d: %w", i, err)
		}
	}

	if err := h.send(buildWritePregain(p.Pregain, h.variant.pregainScaled)); err != nil {
		return fmt.Errorf("writing pregain: %w", err)
	}

	if err := h.commit(); err != nil {
		return err
	}

	h.log.Info("profile written", "filters", len(p.Filters), "pregain", p.Pregain)
	return nil
}

// WritePregain sets and commits pregain without touching the filter
// slots.
func (h *Handler) WritePregain(db float64) error {
	if h.dev == nil {
		return peq.ErrNotConnected
	}
	if r := h.Capabilities().PregainRange; !r.Contains(db) {
		return fmt.Errorf("%w: pregain %g dB out of range %s dB", peq.ErrValidation, db, r)
	}
	if err := h.send(buildWritePregain(db, h.variant.pregainScaled)); err != nil {
		return fmt.Errorf("writing pregain: %w", err)
	}
	return h.commit()
}

// readFilter reads one slot. ok is false with a nil error for a bypassed
// slot; a non-nil error always means the exchange itself failed.
func (h *Handler) readFilter(index int) (peq.Filter, bool, error) {
	gainFreqField, qTypeField := h.variant.fieldsForSlot(index)

	resp, err := h.exchange(buildRead(gainFreqField))
	if err != nil {
		return peq.Filter{}, false, fmt.Errorf("reading filter %d: %w", index, err)
	}
	gain, freq, err := decodeGainFreq(resp)
	if err != nil {
		return peq.Filter{}, false, fmt.Errorf("filter %d: %w", index, err)
	}

	resp, err = h.exchange(buildRead(qTypeField))
	if err != nil {
		return peq.Filter{}, false, fmt.Errorf("reading filter %d: %w", index, err)
	}
	q, typ, err := decodeQType(resp)
	if err != nil {
		return peq.Filter{}, false, fmt.Errorf("filter %d: %w", index, err)
	}

	if freq == 0 || q == 0 {
		return peq.Filter{}, false, nil
	}

	f, err := peq.NewFilter(freq, gain, q, typ)
	if err != nil {
		return peq.Filter{}, false, fmt.Errorf("%w: filter %d: %v", peq.ErrCommunication, index, err)
	}
	return f, true, nil
}

func (h *Handler) writeFilter(index int, f peq.Filter) error {
	gainFreqField, qTypeField := h.variant.fieldsForSlot(index)
	if err := h.send(buildWriteGainFreq(gainFreqField, f.Freq, f.Gain)); err != nil {
		return err
	}
	return h.send(buildWriteQType(qTypeField, f.Q, f.Type))
}

// commit persists the EQ buffer to flash and waits out the settle time.
func (h *Handler) commit() error {
	if _, err := h.dev.Write(buildCommit()); err != nil {
		return fmt.Errorf("%w: commit: %v", peq.ErrCommunication, err)
	}
	h.clock.Sleep(h.commitDelay)
	return nil
}

// exchange sends one packet and waits for its response.
func (h *Handler) exchange(packet []byte) ([]byte, error) {
	if _, err := h.dev.Write(packet); err != nil {
		return nil, fmt.Errorf("%w: write: %v", peq.ErrCommunication, err)
	}
	resp := make([]byte, respLen)
	n, err := h.dev.Read(resp, h.readTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: read: %v", peq.ErrCommunication, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: no response within %v", peq.ErrCommunication, h.readTimeout)
	}
	return resp[:n], nil
}

// send sends a fire-and-forget packet and waits the inter-write gap.
func (h *Handler) send(packet []byte) error {
	if _, err := h.dev.Write(packet); err != nil {
		return fmt.Errorf("%w: write: %v", peq.ErrCommunication, err)
	}
	h.clock.Sleep(h.writeDelay)
	return nil
}
