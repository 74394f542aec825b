package peq

import (
	"encoding/json"
	"fmt"
)

// FilterType identifies the shape of a parametric filter band.
//
// The string values double as the on-disk profile format codes and match
// the vocabulary used by AutoEQ-style tooling.
type FilterType string

// Known filter types.
const (
	Peaking   FilterType = "PK"
	LowShelf  FilterType = "LSQ"
	HighShelf FilterType = "HSQ"
	LowPass   FilterType = "LPF"
	HighPass  FilterType = "HPF"
)

// FilterTypes lists every known filter type.
func FilterTypes() []FilterType {
	return []FilterType{Peaking, LowShelf, HighShelf, LowPass, HighPass}
}

// Valid reports whether t is one of the known filter types.
func (t FilterType) Valid() bool {
	switch t {
	case Peaking, LowShelf, HighShelf, LowPass, HighPass:
		return true
	default:
		return false
	}
}

// Filter is a single parametric filter band.
//
// Construct filters with NewFilter (or by decoding a profile file); a
// Filter obtained that way always satisfies Freq > 0, Q > 0, and a known
// Type. Filters are immutable values owned by the Profile holding them.
type Filter struct {
	// Freq is the centre (or corner) frequency in Hz.
	Freq int `json:"freq"`

	// Gain is the band gain in dB. May be negative.
	Gain float64 `json:"gain"`

	// Q is the dimensionless quality factor.
	Q float64 `json:"q"`

	// Type is the filter shape.
	Type FilterType `json:"type"`
}

// NewFilter builds a validated Filter.
//
// Returns ErrInvalidFilter if freq <= 0, q <= 0, or the type is unknown.
// On error no partially-constructed value is returned.
func NewFilter(freq int, gain, q float64, typ FilterType) (Filter, error) {
	if freq <= 0 {
		return Filter{}, fmt.Errorf("%w: frequency must be positive, got %d", ErrInvalidFilter, freq)
	}
	if q <= 0 {
		return Filter{}, fmt.Errorf("%w: Q must be positive, got %g", ErrInvalidFilter, q)
	}
	if !typ.Valid() {
		return Filter{}, fmt.Errorf("%w: unknown filter type %q", ErrInvalidFilter, typ)
	}
	return Filter{Freq: freq, Gain: gain, Q: q, Type: typ}, nil
}

// UnmarshalJSON decodes and validates a filter, rejecting values that
// NewFilter would reject.
func (f *Filter) UnmarshalJSON(data []byte) error {
	type raw Filter
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	validated, err := NewFilter(r.Freq, r.Gain, r.Q, r.Type)
	if err != nil {
		return err
	}
	*f = validated
	return nil
}

// String returns a compact human-readable representation.
func (f Filter) String() string {
	return fmt.Sprintf("%s %d Hz %+.1f dB Q=%.2f", f.Type, f.Freq, f.Gain, f.Q)
}
