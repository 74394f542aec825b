package peq

import (
	"path/filepath"
	"testing"
)

func TestParseProfile(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    Profile
		wantErr bool
	}{
		{
			name: "typical profile",
			data: `{"pregain": -3.5, "filters": [
				{"freq": 105, "gain": 4.5, "q": 0.7, "type": "LSQ"},
				{"freq": 1200, "gain": -2.0, "q": 1.41, "type": "PK"}
			]}`,
			want: Profile{
				Pregain: -3.5,
				Filters: []Filter{
					{Freq: 105, Gain: 4.5, Q: 0.7, Type: LowShelf},
					{Freq: 1200, Gain: -2.0, Q: 1.41, Type: Peaking},
				},
			},
		},
		{
			name: "no filters",
			data: `{"pregain": 0, "filters": []}`,
			want: Profile{Filters: []Filter{}},
		},
		{
			name:    "invalid filter rejected",
			data:    `{"pregain": 0, "filters": [{"freq": 0, "gain": 0, "q": 1, "type": "PK"}]}`,
			wantErr: true,
		},
		{
			name:    "not JSON",
			data:    `pregain: -3.5`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseProfile([]byte(tt.data))

			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseProfile() expected error, got %+v", got)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseProfile() unexpected error: %v", err)
			}
			if got.Pregain != tt.want.Pregain {
				t.Errorf("Pregain = %g, want %g", got.Pregain, tt.want.Pregain)
			}
			if len(got.Filters) != len(tt.want.Filters) {
				t.Fatalf("len(Filters) = %d, want %d", len(got.Filters), len(tt.want.Filters))
			}
			for i := range got.Filters {
				if got.Filters[i] != tt.want.Filters[i] {
					t.Errorf("Filters[%d] = %+v, want %+v", i, got.Filters[i], tt.want.Filters[i])
				}
			}
		})
	}
}

func TestProfileFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")

	original := Profile{
		Pregain: -4.5,
		Filters: []Filter{
			{Freq: 60, Gain: 5, Q: 0.5, Type: LowShelf},
			{Freq: 2500, Gain: -6.5, Q: 2.0, Type: Peaking},
			{Freq: 9000, Gain: 3, Q: 0.7, Type: HighShelf},
		},
	}

	if err := original.SaveFile(path); err != nil {
		t.Fatalf("SaveFile() error: %v", err)
	}

	loaded, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile() error: %v", err)
	}

	if loaded.Pregain != original.Pregain {
		t.Errorf("Pregain = %g, want %g", loaded.Pregain, original.Pregain)
	}
	if len(loaded.Filters) != len(original.Filters) {
		t.Fatalf("len(Filters) = %d, want %d", len(loaded.Filters), len(original.Filters))
	}
	for i := range loaded.Filters {
		if loaded.Filters[i] != original.Filters[i] {
			t.Errorf("Filters[%d] = %+v, want %+v", i, loaded.Filters[i], original.Filters[i])
		}
	}
}
