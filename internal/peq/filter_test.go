package peq

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNewFilter(t *testing.T) {
	tests := []struct {
		name    string
		freq    int
		gain    float64
		q       float64
		typ     FilterType
		wantErr bool
	}{
		{name: "valid peaking", freq: 1000, gain: -3.5, q: 1.41, typ: Peaking},
		{name: "valid low shelf", freq: 100, gain: 6, q: 0.707, typ: LowShelf},
		{name: "valid high shelf", freq: 8000, gain: -2, q: 0.5, typ: HighShelf},
		{name: "valid low pass", freq: 12000, gain: 0, q: 0.707, typ: LowPass},
		{name: "valid high pass", freq: 20, gain: 0, q: 0.707, typ: HighPass},
		{name: "zero frequency", freq: 0, gain: 0, q: 1, typ: Peaking, wantErr: true},
		{name: "negative frequency", freq: -100, gain: 0, q: 1, typ: Peaking, wantErr: true},
		{name: "zero Q", freq: 1000, gain: 0, q: 0, typ: Peaking, wantErr: true},
		{name: "negative Q", freq: 1000, gain: 0, q: -0.5, typ: Peaking, wantErr: true},
		{name: "unknown type", freq: 1000, gain: 0, q: 1, typ: FilterType("NOTCH"), wantErr: true},
		{name: "empty type", freq: 1000, gain: 0, q: 1, typ: FilterType(""), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewFilter(tt.freq, tt.gain, tt.q, tt.typ)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("NewFilter() expected error, got %+v", got)
				}
				if !errors.Is(err, ErrInvalidFilter) {
					t.Errorf("NewFilter() error = %v, want ErrInvalidFilter", err)
				}
				// No partially-constructed value should be observable.
				if got != (Filter{}) {
					t.Errorf("NewFilter() returned non-zero value on error: %+v", got)
				}
				return
			}

			if err != nil {
				t.Fatalf("NewFilter() unexpected error: %v", err)
			}
			if got.Freq != tt.freq || got.Gain != tt.gain || got.Q != tt.q || got.Type != tt.typ {
				t.Errorf("NewFilter() = %+v, want freq=%d gain=%g q=%g type=%s",
					got, tt.freq, tt.gain, tt.q, tt.typ)
			}
		})
	}
}

func TestFilterUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    Filter
		wantErr bool
	}{
		{
			name: "valid",
			data: `{"freq": 440, "gain": -2.5, "q": 1.2, "type": "PK"}`,
			want: Filter{Freq: 440, Gain: -2.5, Q: 1.2, Type: Peaking},
		},
		{
			name:    "zero frequency rejected",
			data:    `{"freq": 0, "gain": 0, "q": 1, "type": "PK"}`,
			wantErr: true,
		},
		{
			name:    "unknown type rejected",
			data:    `{"freq": 440, "gain": 0, "q": 1, "type": "BANDPASS"}`,
			wantErr: true,
		},
		{
			name:    "malformed JSON",
			data:    `{"freq": "not a number"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Filter
			err := json.Unmarshal([]byte(tt.data), &got)

			if tt.wantErr {
				if err == nil {
					t.Errorf("Unmarshal() expected error, got %+v", got)
				}
				return
			}

			if err != nil {
				t.Fatalf("Unmarshal() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Unmarshal() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
