package peq

import (
	"fmt"
	"strings"
)

// Range is an inclusive [Min, Max] interval.
type Range struct {
	Min float64
	Max float64
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

func (r Range) String() string {
	return fmt.Sprintf("%g to %g", r.Min, r.Max)
}

// DeviceCapabilities describes a device's operating envelope: how many
// filters it accepts and the value ranges it tolerates.
//
// One instance exists per handler type; handlers with multiple addressable
// groups of different sizes return an instance reflecting the currently
// selected group.
type DeviceCapabilities struct {
	// MaxFilters is the number of filter slots the device exposes.
	MaxFilters int

	// GainRange bounds per-filter gain in dB.
	GainRange Range

	// PregainRange bounds the profile pregain in dB.
	PregainRange Range

	// FreqRange bounds filter frequency in Hz.
	FreqRange Range

	// QRange bounds the filter quality factor.
	QRange Range

	// SupportedTypes lists the filter shapes the device firmware implements.
	SupportedTypes []FilterType

	// SupportsRead is false for write-only devices.
	SupportsRead bool

	// SupportsWrite is false for read-only devices.
	SupportsWrite bool
}

// SupportsType reports whether the device implements the given filter shape.
func (c DeviceCapabilities) SupportsType(t FilterType) bool {
	for _, st := range c.SupportedTypes {
		if st == t {
			return true
		}
	}
	return false
}

// ValidateProfile checks a profile against the capability envelope and
// returns the first violation found, wrapped in ErrValidation.
//
// The check order is fixed and load-bearing for callers that report
// violations: filter count, pregain, then for each filter in order its
// type, gain, frequency, and Q. This is the shared validation every
// handler runs before touching the wire; handlers must not override it.
func (c DeviceCapabilities) ValidateProfile(p Profile) error {
	if len(p.Filters) > c.MaxFilters {
		return fmt.Errorf("%w: profile has %d filters, device supports at most %d",
			ErrValidation, len(p.Filters), c.MaxFilters)
	}

	if !c.PregainRange.Contains(p.Pregain) {
		return fmt.Errorf("%w: pregain %g dB out of range %s dB",
			ErrValidation, p.Pregain, c.PregainRange)
	}

	for i, f := range p.Filters {
		if !c.SupportsType(f.Type) {
			return fmt.Errorf("%w: filter %d: type %q not supported (supported: %s)",
				ErrValidation, i, f.Type, formatTypes(c.SupportedTypes))
		}
		if !c.GainRange.Contains(f.Gain) {
			return fmt.Errorf("%w: filter %d: gain %g dB out of range %s dB",
				ErrValidation, i, f.Gain, c.GainRange)
		}
		if !c.FreqRange.Contains(float64(f.Freq)) {
			return fmt.Errorf("%w: filter %d: frequency %d Hz out of range %s Hz",
				ErrValidation, i, f.Freq, c.FreqRange)
		}
		if !c.QRange.Contains(f.Q) {
			return fmt.Errorf("%w: filter %d: Q %g out of range %s",
				ErrValidation, i, f.Q, c.QRange)
		}
	}

	return nil
}

func formatTypes(types []FilterType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
