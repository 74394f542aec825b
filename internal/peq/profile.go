package peq

import (
	"encoding/json"
	"fmt"
	"os"
)

// Profile is a complete PEQ configuration: an ordered filter chain plus a
// single broadband pregain applied before it.
//
// The filter count limit is device-dependent and therefore not enforced
// here; handlers check it against their own capabilities at write time.
type Profile struct {
	// Pregain is the broadband gain in dB applied before the filter chain,
	// typically negative to provide headroom for boosted bands.
	Pregain float64 `json:"pregain"`

	// Filters is the ordered filter chain.
	Filters []Filter `json:"filters"`
}

// ParseProfile decodes a serialized profile.
//
// The format is the file contract shared with external tooling:
//
//	{"pregain": -3.5, "filters": [{"freq": 100, "gain": 2, "q": 0.7, "type": "PK"}]}
//
// Every filter is validated during decoding.
func ParseProfile(data []byte) (Profile, error) {
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("parsing profile: %w", err)
	}
	return p, nil
}

// LoadProfile reads and decodes a profile file.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("reading profile file: %w", err)
	}
	return ParseProfile(data)
}

// Encode serializes the profile in the shared file format.
func (p Profile) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding profile: %w", err)
	}
	return append(data, '\n'), nil
}

// SaveFile writes the profile to path in the shared file format.
func (p Profile) SaveFile(path string) error {
	data, err := p.Encode()
	if err != nil {
		return err
	}
	const filePermissions = 0600
	if err := os.WriteFile(path, data, filePermissions); err != nil {
		return fmt.Errorf("writing profile file: %w", err)
	}
	return nil
}
