package moondrop

import (
	"fmt"
	"strings"
	"time"

	"github.com/graywave/daceq/internal/devices"
	"github.com/graywave/daceq/internal/hidio"
	"github.com/graywave/daceq/internal/peq"
)

// Protocol timing. The flash save is the slow step; everything else just
// needs a short latch gap.
const (
	defaultWriteDelay  = 20 * time.Millisecond
	defaultReadDelay   = 10 * time.Millisecond
	defaultSaveDelay   = time.Second
	defaultReadTimeout = time.Second
)

// Handler drives the Moondrop coefficient protocol.
//
// Single-session, not safe for concurrent use.
type Handler struct {
	transport hidio.Opener
	clock     hidio.Clock
	log       devices.Logger

	writeDelay  time.Duration
	readDelay   time.Duration
	saveDelay   time.Duration
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

// New builds a Moondrop handler.
func New(transport hidio.Opener, opts ...Option) *Handler {
	h := &Handler{
		transport:   transport,
		clock:       hidio.SystemClock(),
		log:         devices.NopLogger(),
		writeDelay:  defaultWriteDelay,
		readDelay:   defaultReadDelay,
		saveDelay:   defaultSaveDelay,
		readTimeout: defaultReadTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Name() string { return "Moondrop" }

// VendorID returns the primary vendor ID; Matches accepts the whole OEM
// vendor list.
func (h *Handler) VendorID() uint16     { return vendorIDs[0] }
func (h *Handler) ProductIDs() []uint16 { return nil }

func (h *Handler) Features() devices.Feature { return 0 }

func (h *Handler) Capabilities() peq.DeviceCapabilities {
	return peq.DeviceCapabilities{
		MaxFilters:     8,
		GainRange:      peq.Range{Min: -20, Max: 20},
		PregainRange:   peq.Range{Min: -12, Max: 12},
		FreqRange:      peq.Range{Min: 20, Max: 20000},
		QRange:         peq.Range{Min: 0.1, Max: 10},
		SupportedTypes: []peq.FilterType{peq.Peaking, peq.LowShelf, peq.HighShelf},
		SupportsRead:   true,
		SupportsWrite:  true,
	}
}

// Product name keywords identifying DSP-capable hardware; the exclusion
// list keeps non-DSP models from the same vendors out.
var (
	matchKeywords   = []string{"MOONDROP", "RAYS", "MARIGOLD", "MAY", "FREEDSP", "DDHIFI DSP"}
	excludeKeywords = []string{"MOONRIVER", "ARIA", "BLESSING", "STARFIELD", "KATO"}
)

func (h *Handler) Matches(info hidio.DeviceInfo) bool {
	known := false
	for _, v := range vendorIDs {
		if info.VendorID == v {
			known = true
			break
		}
	}
	if !known {
		return false
	}

	product := strings.ToUpper(info.Product)
	matched := false
	for _, kw := range matchKeywords {
		if strings.Contains(product, kw) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	for _, kw := range excludeKeywords {
		if strings.Contains(product, kw) {
			return false
		}
	}
	return true
}

func (h *Handler) Connect(info hidio.DeviceInfo) error {
	dev, err := h.transport.Open(info.Path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", peq.ErrConnectionFailed, info.Path, err)
	}
	h.dev = dev
	h.log.Debug("connected", "handler", h.Name(), "product", info.Product)
	return nil
}

func (h *Handler) Disconnect() {
	if h.dev != nil {
		h.dev.Close()
		h.dev = nil
	}
}

// ReadPEQ reads every band and pregain. Bands with zero frequency or Q
// are empty slots and skipped.
func (h *Handler) ReadPEQ() (peq.Profile, error) {
	if h.dev == nil {
		return peq.Profile{}, peq.ErrNotConnected
	}

	var filters []peq.Filter
	for i := 0; i < h.Capabilities().MaxFilters; i++ {
		f, ok, err := h.readBand(i)
		if err != nil {
			return peq.Profile{}, err
		}
		if ok {
			filters = append(filters, f)
		}
		h.clock.Sleep(h.readDelay)
	}

	resp, err := h.exchange(buildPregainRead())
	if err != nil {
		return peq.Profile{}, fmt.Errorf("reading pregain: %w", err)
	}
	pregain, err := decodePregainResponse(resp)
	if err != nil {
		return peq.Profile{}, err
	}

	h.log.Debug("read complete", "filters", len(filters), "pregain", pregain)
	return peq.Profile{Pregain: pregain, Filters: filters}, nil
}

// WritePEQ validates the profile and runs the staged write sequence:
// pregain, then per band a coefficient packet followed by its
// commit-to-register packet, then one save-to-flash. Coefficients are
// inert until their commit packet, and nothing survives power-off until
// the save.
func (h *Handler) WritePEQ(p peq.Profile) error {
	if h.dev == nil {
		return peq.ErrNotConnected
	}
	if err := h.Capabilities().ValidateProfile(p); err != nil {
		return err
	}

	if err := h.send(buildPregainWrite(p.Pregain)); err != nil {
		return fmt.Errorf("writing pregain: %w", err)
	}

	for i, f := range p.Filters {
		if err := h.send(buildFilterWrite(i, f)); err != nil {
			return fmt.Errorf("writing band %d: %w", i, err)
		}
		if err := h.send(buildCommit(i)); err != nil {
			return fmt.Errorf("committing band %d: %w", i, err)
		}
	}

	if _, err := h.dev.Write(buildSave()); err != nil {
		return fmt.Errorf("%w: save: %v", peq.ErrCommunication, err)
	}
	h.clock.Sleep(h.saveDelay)

	h.log.Info("profile written", "filters", len(p.Filters), "pregain", p.Pregain)
	return nil
}

// readBand reads one band. ok is false with a nil error for an empty
// slot; a non-nil error always means the exchange failed.
func (h *Handler) readBand(band int) (peq.Filter, bool, error) {
	resp, err := h.exchange(buildFilterRead(band))
	if err != nil {
		return peq.Filter{}, false, fmt.Errorf("reading band %d: %w", band, err)
	}
	freq, gain, q, typ, err := decodeFilterResponse(resp)
	if err != nil {
		return peq.Filter{}, false, fmt.Errorf("band %d: %w", band, err)
	}
	if freq == 0 || q == 0 {
		return peq.Filter{}, false, nil
	}
	f, err := peq.NewFilter(freq, gain, q, typ)
	if err != nil {
		return peq.Filter{}, false, fmt.Errorf("%w: band %d: %v", peq.ErrCommunication, band, err)
	}
	return f, true, nil
}

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

func (h *Handler) send(packet []byte) error {
	if _, err := h.dev.Write(packet); err != nil {
		return fmt.Errorf("%w: write: %v", peq.ErrCommunication, err)
	}
	h.clock.Sleep(h.writeDelay)
	return nil
}
