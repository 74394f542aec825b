package qudelix

// chunk is one piece of a chunked preset response.
//
// The chunk header is big-endian like all command-plane traffic:
// [len][cmd hi][cmd lo][group][last<<4|idx][size u16][offset u16][payload].
type chunk struct {
	index   int
	last    int
	offset  int
	payload []byte
}

// parseChunk decodes one stripped input report as a preset chunk for the
// given group. ok is false for unrelated traffic (other commands, other
// groups, runts), which the collector simply skips.
func parseChunk(data []byte, groupID byte) (chunk, bool) {
	cmd, ok := responseCommand(data)
	if !ok || cmd != cmdRspPreset {
		return chunk{}, false
	}
	if len(data) < 9 || data[3] != groupID {
		return chunk{}, false
	}

	c := chunk{
		index:  int(data[4] & 0x0F),
		last:   int(data[4] >> 4 & 0x0F),
		offset: int(data[7])<<8 | int(data[8]),
	}
	size := int(data[5])<<8 | int(data[6])
	if size > len(data)-9 {
		size = len(data) - 9
	}
	c.payload = data[9 : 9+size]
	return c, true
}

// reassemble places chunks at their declared offsets. Chunks may arrive
// out of order; a duplicate index overwrites its predecessor before this
// runs, so each index contributes once.
func reassemble(chunks map[int]chunk) []byte {
	var size int
	for _, c := range chunks {
		if end := c.offset + len(c.payload); end > size {
			size = end
		}
	}
	buf := make([]byte, size)
	for _, c := range chunks {
		copy(buf[c.offset:], c.payload)
	}
	return buf
}
