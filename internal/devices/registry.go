package devices

import (
	"fmt"
	"sort"
	"strings"

	"github.com/graywave/daceq/internal/hidio"
	"github.com/graywave/daceq/internal/peq"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger returns a logger that discards everything. It is the default
// for registries and handlers until SetLogger or an option replaces it.
func NopLogger() Logger {
	return noopLogger{}
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Factory builds a fresh, unconnected handler instance.
//
// The registry calls each factory once for its matching prototype and
// again for every successful connect, so protocol state (init handshakes,
// group selection) never survives a disconnect.
type Factory func() Handler

// AutoSelect, passed as a device ID, selects the sole discovered device
// and fails if there are zero or several.
const AutoSelect = -1

// Discovered is one result of a discovery pass.
//
// IDs are ordinals into that pass's snapshot: 0-based, ordered by product
// string then path for determinism, and invalidated by the next Discover
// call. Callers must not cache IDs across discovery boundaries.
type Discovered struct {
	// ID is the ordinal used for selection within this snapshot.
	ID int

	// Info is the raw USB identity of the matched interface.
	Info hidio.DeviceInfo

	// Handler is the name of the handler that recognised the device.
	Handler string

	// Capabilities is the matching handler's envelope at discovery time.
	Capabilities peq.DeviceCapabilities

	factory Factory
}

// Registry enumerates attached HID devices, matches them to protocol
// handlers, and mediates the connect lifecycle.
//
// A Registry is caller-owned: construct one, pass it wherever repeated
// device access is needed, and let it go out of scope with the caller.
// It holds no open connections itself.
type Registry struct {
	transport  hidio.Transport
	factories  []Factory
	prototypes []Handler
	discovered []Discovered
	log        Logger
}

// NewRegistry creates a registry over the given transport with the given
// handler factories. Factory order is the match precedence: the first
// handler to recognise a device claims it.
func NewRegistry(transport hidio.Transport, factories ...Factory) *Registry {
	prototypes := make([]Handler, len(factories))
	for i, f := range factories {
		prototypes[i] = f()
	}
	return &Registry{
		transport:  transport,
		factories:  factories,
		prototypes: prototypes,
		log:        noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(log Logger) {
	r.log = log
}

// Discover performs one enumeration pass and returns the snapshot of
// supported devices. It does not watch for hot-plug events; call again to
// refresh, which invalidates previously returned IDs.
func (r *Registry) Discover() ([]Discovered, error) {
	infos, err := r.transport.Enumerate()
	if err != nil {
		return nil, fmt.Errorf("discovering devices: %w", err)
	}

	type match struct {
		info    hidio.DeviceInfo
		proto   Handler
		factory Factory
	}
	var matches []match
	for _, info := range infos {
		for i, proto := range r.prototypes {
			if proto.Matches(info) {
				matches = append(matches, match{info: info, proto: proto, factory: r.factories[i]})
				r.log.Debug("matched device", "handler", proto.Name(), "product", info.Product, "path", info.Path)
				break // first handler to match claims the device
			}
		}
	}

	// Stable ordering so ordinal IDs are deterministic for a given set of
	// attached devices.
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].info.Product != matches[j].info.Product {
			return matches[i].info.Product < matches[j].info.Product
		}
		return matches[i].info.Path < matches[j].info.Path
	})

	r.discovered = make([]Discovered, len(matches))
	for i, m := range matches {
		r.discovered[i] = Discovered{
			ID:           i,
			Info:         m.info,
			Handler:      m.proto.Name(),
			Capabilities: m.proto.Capabilities(),
			factory:      m.factory,
		}
	}

	r.log.Info("discovery complete", "found", len(r.discovered))
	return r.discovered, nil
}

// Select resolves a device ID against the current discovery snapshot.
//
// With AutoSelect, exactly one discovered device is required; zero yields
// ErrNoDevices and several yield ErrAmbiguousSelection listing every
// candidate. An explicit ID outside the snapshot yields ErrInvalidSelection
// citing the valid range.
func (r *Registry) Select(id int) (Discovered, error) {
	if len(r.discovered) == 0 {
		return Discovered{}, fmt.Errorf("%w: connect a device and re-run discovery", ErrNoDevices)
	}

	if id == AutoSelect {
		if len(r.discovered) == 1 {
			return r.discovered[0], nil
		}
		var lines []string
		for _, d := range r.discovered {
			lines = append(lines, fmt.Sprintf("%d: %s (%s)", d.ID, d.Info.Product, d.Handler))
		}
		return Discovered{}, fmt.Errorf("%w: %s", ErrAmbiguousSelection, strings.Join(lines, "; "))
	}

	if id < 0 || id >= len(r.discovered) {
		return Discovered{}, fmt.Errorf("%w: device %d, valid range 0-%d",
			ErrInvalidSelection, id, len(r.discovered)-1)
	}
	return r.discovered[id], nil
}

// Connect selects a device and returns a freshly constructed, connected
// handler bound to its transport path. The caller owns the handler and
// must call Disconnect when done (typically in a defer).
func (r *Registry) Connect(id int) (Handler, error) {
	d, err := r.Select(id)
	if err != nil {
		return nil, err
	}

	// Never connect the prototype: a fresh instance guarantees protocol
	// state does not leak between sessions.
	h := d.factory()
	if err := h.Connect(d.Info); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", d.Info.Product, err)
	}

	r.log.Info("device connected", "handler", h.Name(), "product", d.Info.Product)
	return h, nil
}
