package qudelix

import "fmt"

// eqGroup describes one addressable EQ group.
//
// USR and SPK carry a redundant second (right channel) frequency table in
// their preset buffers; B20 stores a single table. compact distinguishes
// the two layouts.
type eqGroup struct {
	name     string
	id       byte
	maxBands int
	chanMask byte
	compact  bool
}

var eqGroups = []eqGroup{
	{name: "USR", id: 0, maxBands: 10, chanMask: 0x01},
	{name: "SPK", id: 1, maxBands: 10, chanMask: 0x03},
	{name: "B20", id: 2, maxBands: 20, chanMask: 0x01, compact: true},
}

// GroupNames lists the selectable EQ group names.
func GroupNames() []string {
	names := make([]string, len(eqGroups))
	for i, g := range eqGroups {
		names[i] = g.name
	}
	return names
}

func groupByName(name string) (eqGroup, error) {
	for _, g := range eqGroups {
		if g.name == name {
			return g, nil
		}
	}
	return eqGroup{}, fmt.Errorf("unknown EQ group %q (valid: USR, SPK, B20)", name)
}
