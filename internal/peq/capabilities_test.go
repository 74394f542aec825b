package peq

import (
	"errors"
	"strings"
	"testing"
)

// testCaps returns a five-slot capability envelope used across validation tests.
func testCaps() DeviceCapabilities {
	return DeviceCapabilities{
		MaxFilters:     5,
		GainRange:      Range{Min: -20, Max: 20},
		PregainRange:   Range{Min: -12, Max: 12},
		FreqRange:      Range{Min: 20, Max: 20000},
		QRange:         Range{Min: 0.1, Max: 10},
		SupportedTypes: []FilterType{Peaking, LowShelf, HighShelf},
		SupportsRead:   true,
		SupportsWrite:  true,
	}
}

func mustFilter(t *testing.T, freq int, gain, q float64, typ FilterType) Filter {
	t.Helper()
	f, err := NewFilter(freq, gain, q, typ)
	if err != nil {
		t.Fatalf("NewFilter(%d, %g, %g, %s): %v", freq, gain, q, typ, err)
	}
	return f
}

func TestValidateProfile(t *testing.T) {
	caps := testCaps()

	tests := []struct {
		name        string
		profile     Profile
		wantErr     bool
		wantMessage string // substring the violation message must contain
	}{
		{
			name: "valid profile",
			profile: Profile{
				Pregain: -3,
				Filters: []Filter{
					mustFilter(t, 100, 4, 0.7, Peaking),
					mustFilter(t, 1000, -2, 1.4, LowShelf),
				},
			},
		},
		{
			name:    "empty profile valid",
			profile: Profile{},
		},
		{
			name: "one filter over limit reports count violation",
			profile: Profile{
				Filters: []Filter{
					mustFilter(t, 100, 0, 1, Peaking),
					mustFilter(t, 200, 0, 1, Peaking),
					mustFilter(t, 400, 0, 1, Peaking),
					mustFilter(t, 800, 0, 1, Peaking),
					mustFilter(t, 1600, 0, 1, Peaking),
					mustFilter(t, 3200, 0, 1, Peaking),
				},
			},
			wantErr:     true,
			wantMessage: "6 filters",
		},
		{
			name:        "pregain out of range",
			profile:     Profile{Pregain: -13},
			wantErr:     true,
			wantMessage: "pregain",
		},
		{
			name: "unsupported type",
			profile: Profile{
				Filters: []Filter{mustFilter(t, 100, 0, 1, LowPass)},
			},
			wantErr:     true,
			wantMessage: `type "LPF"`,
		},
		{
			name: "gain out of range",
			profile: Profile{
				Filters: []Filter{mustFilter(t, 100, 25, 1, Peaking)},
			},
			wantErr:     true,
			wantMessage: "gain 25",
		},
		{
			name: "frequency out of range",
			profile: Profile{
				Filters: []Filter{mustFilter(t, 21000, 0, 1, Peaking)},
			},
			wantErr:     true,
			wantMessage: "frequency 21000",
		},
		{
			name: "Q out of range",
			profile: Profile{
				Filters: []Filter{mustFilter(t, 100, 0, 11, Peaking)},
			},
			wantErr:     true,
			wantMessage: "Q 11",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := caps.ValidateProfile(tt.profile)

			if !tt.wantErr {
				if err != nil {
					t.Errorf("ValidateProfile() unexpected error: %v", err)
				}
				return
			}

			if err == nil {
				t.Fatal("ValidateProfile() expected error, got nil")
			}
			if !errors.Is(err, ErrValidation) {
				t.Errorf("ValidateProfile() error = %v, want ErrValidation", err)
			}
			if !strings.Contains(err.Error(), tt.wantMessage) {
				t.Errorf("ValidateProfile() error %q does not mention %q", err, tt.wantMessage)
			}
		})
	}
}

// TestValidateProfileViolationOrder pins the violation reporting order:
// first filter in sequence, then type before gain before frequency before Q
// within a filter. Callers and tests depend on this being deterministic.
func TestValidateProfileViolationOrder(t *testing.T) {
	caps := testCaps()

	// Filter 0 violates gain and Q; filter 1 violates type. The reported
	// violation must be filter 0's gain, every time.
	profile := Profile{
		Filters: []Filter{
			mustFilter(t, 100, 30, 50, Peaking),
			mustFilter(t, 200, 0, 1, HighPass),
		},
	}

	for i := 0; i < 10; i++ {
		err := caps.ValidateProfile(profile)
		if err == nil {
			t.Fatal("ValidateProfile() expected error, got nil")
		}
		if !strings.Contains(err.Error(), "filter 0") || !strings.Contains(err.Error(), "gain 30") {
			t.Fatalf("ValidateProfile() = %q, want filter 0 gain violation", err)
		}
	}

	// Type outranks gain within the same filter.
	profile = Profile{
		Filters: []Filter{mustFilter(t, 100, 30, 1, HighPass)},
	}
	err := caps.ValidateProfile(profile)
	if err == nil || !strings.Contains(err.Error(), `type "HPF"`) {
		t.Fatalf("ValidateProfile() = %v, want type violation before gain", err)
	}

	// Count violation outranks everything, even when filters also violate.
	profile = Profile{
		Filters: []Filter{
			mustFilter(t, 100, 30, 1, HighPass),
			mustFilter(t, 100, 30, 1, HighPass),
			mustFilter(t, 100, 30, 1, HighPass),
			mustFilter(t, 100, 30, 1, HighPass),
			mustFilter(t, 100, 30, 1, HighPass),
			mustFilter(t, 100, 30, 1, HighPass),
		},
	}
	err = caps.ValidateProfile(profile)
	if err == nil || !strings.Contains(err.Error(), "at most 5") {
		t.Fatalf("ValidateProfile() = %v, want count violation", err)
	}
}

func TestRangeContains(t *testing.T) {
	r := Range{Min: -12, Max: 12}

	tests := []struct {
		v    float64
		want bool
	}{
		{-12, true},
		{12, true},
		{0, true},
		{-12.01, false},
		{12.01, false},
	}

	for _, tt := range tests {
		if got := r.Contains(tt.v); got != tt.want {
			t.Errorf("Contains(%g) = %v, want %v", tt.v, got, tt.want)
		}
	}
}
