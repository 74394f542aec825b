package moondrop

import (
	"encoding/binary"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/graywave/daceq/internal/hidio"
	"github.com/graywave/daceq/internal/peq"
)

type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

// fakeDevice stores written band packets and answers reads from them,
// logging the packet sequence for ordering assertions.
type fakeDevice struct {
	bands   map[int][]byte // stored coefficient packet, report ID stripped
	pregain [2]byte
	pending []byte
	seq     []string
	writes  int
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{bands: make(map[int][]byte)}
}

func (d *fakeDevice) Write(p []byte) (int, error) {
	d.writes++
	cmd, op := p[1], p[2]
	switch {
	case cmd == cmdWrite && op == opUpdateEQ:
		band := int(p[5])
		stored := make([]byte, len(p)-1)
		copy(stored, p[1:])
		d.bands[band] = stored
		d.seq = append(d.seq, fmt.Sprintf("write %d", band))
	case cmd == cmdWrite && op == opCommitToReg:
		d.seq = append(d.seq, fmt.Sprintf("commit %d", p[3]))
	case cmd == cmdWrite && op == opSaveFlash:
		d.seq = append(d.seq, "save")
	case cmd == cmdWrite && op == opPregain:
		d.pregain[0], d.pregain[1] = p[4], p[5]
		d.seq = append(d.seq, "pregain")
	case cmd == cmdRead && op == opUpdateEQ:
		resp := make([]byte, respLen)
		if stored, ok := d.bands[int(p[5])]; ok {
			copy(resp, stored)
		}
		d.pending = resp
	case cmd == cmdRead && op == opDacOffset:
		resp := make([]byte, respLen)
		resp[3], resp[4] = d.pregain[0], d.pregain[1]
		d.pending = resp
	}
	return len(p), nil
}

func (d *fakeDevice) Read(p []byte, timeout time.Duration) (int, error) {
	if d.pending == nil {
		return 0, nil
	}
	n := copy(p, d.pending)
	d.pending = nil
	return n, nil
}

func (d *fakeDevice) SetNonblocking(bool) error { return nil }
func (d *fakeDevice) Close() error              { return nil }

type fakeOpener struct {
	dev hidio.Device
	err error
}

func (o *fakeOpener) Open(path string) (hidio.Device, error) {
	return o.dev, o.err
}

func connected(t *testing.T) (*Handler, *fakeDevice) {
	t.Helper()
	dev := newFakeDevice()
	h := New(&fakeOpener{dev: dev}, WithClock(&fakeClock{}))
	if err := h.Connect(hidio.DeviceInfo{Path: "fake"}); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	return h, dev
}

func TestZeroGainPeakingIsUnity(t *testing.T) {
	// A 0 dB peaking filter must be numerically a no-op: unity forward
	// gain and pole/zero pairs that cancel exactly.
	f := peq.Filter{Freq: 1000, Gain: 0, Q: 1.41, Type: peq.Peaking}
	c := scaledCoefficients(f)

	if c[0] != biquadScale {
		t.Errorf("b0 = %d, want exactly %d (unity)", c[0], int32(biquadScale))
	}
	if c[3] != -c[1] {
		t.Errorf("-a1 = %d, want %d (cancelling b1)", c[3], -c[1])
	}
	if c[4] != -c[2] {
		t.Errorf("-a2 = %d, want %d (cancelling b2)", c[4], -c[2])
	}
}

func TestShelfCoefficientsAtZeroGain(t *testing.T) {
	// Shelves must also collapse to a no-op at 0 dB.
	for _, typ := range []peq.FilterType{peq.LowShelf, peq.HighShelf} {
		t.Run(string(typ), func(t *testing.T) {
			c := scaledCoefficients(peq.Filter{Freq: 500, Gain: 0, Q: 0.71, Type: typ})
			if c[0] != biquadScale {
				t.Errorf("b0 = %d, want %d", c[0], int32(biquadScale))
			}
			if c[3] != -c[1] || c[4] != -c[2] {
				t.Errorf("denominator does not cancel numerator: %v", c)
			}
		})
	}
}

func TestCoefficientPacketLayout(t *testing.T) {
	f := peq.Filter{Freq: 440, Gain: -3.5, Q: 0.5, Type: peq.LowShelf}
	p := buildFilterWrite(2, f)

	if p[0] != reportID || p[1] != cmdWrite || p[2] != opUpdateEQ || p[3] != 0x18 {
		t.Errorf("header = % X", p[:4])
	}
	if p[5] != 2 {
		t.Errorf("band byte = %d, want 2", p[5])
	}

	// Coefficients at 8..27, little-endian i32, matching the biquad math.
	want := scaledCoefficients(f)
	for i := range want {
		got := int32(binary.LittleEndian.Uint32(p[8+i*4:]))
		if got != want[i] {
			t.Errorf("coefficient %d = %d, want %d", i, got, want[i])
		}
	}

	if got := binary.LittleEndian.Uint16(p[1+respFreq:]); got != 440 {
		t.Errorf("freq = %d, want 440", got)
	}
	if got := binary.LittleEndian.Uint16(p[1+respQ:]); got != 128 {
		t.Errorf("q raw = %d, want 128 (0.5 x 256)", got)
	}
	if got := int16(binary.LittleEndian.Uint16(p[1+respGain:])); got != -896 {
		t.Errorf("gain raw = %d, want -896 (-3.5 x 256)", got)
	}
	if p[1+respType] != 1 {
		t.Errorf("type byte = %d, want 1 (low shelf)", p[1+respType])
	}
	if p[1+respType+1] != 0x00 || p[1+respType+2] != 0x07 {
		t.Errorf("marker = % X, want 00 07", p[1+respType+1:1+respType+3])
	}
}

func TestTypeCodesInvertedFromFieldProtocol(t *testing.T) {
	// 1=LSQ, 2=PK, 3=HSQ on this platform. Getting this wrong silently
	// programs the wrong filter shape.
	if typeToWire[peq.LowShelf] != 1 || typeToWire[peq.Peaking] != 2 || typeToWire[peq.HighShelf] != 3 {
		t.Errorf("typeToWire = %v", typeToWire)
	}
}

func TestWriteSequenceOrdering(t *testing.T) {
	h, dev := connected(t)

	p := peq.Profile{
		Pregain: -1,
		Filters: []peq.Filter{
			{Freq: 100, Gain: 2, Q: 1, Type: peq.Peaking},
			{Freq: 1000, Gain: -2, Q: 1, Type: peq.Peaking},
		},
	}
	if err := h.WritePEQ(p); err != nil {
		t.Fatalf("WritePEQ() error: %v", err)
	}

	want := []string{"pregain", "write 0", "commit 0", "write 1", "commit 1", "save"}
	if len(dev.seq) != len(want) {
		t.Fatalf("sequence = %v, want %v", dev.seq, want)
	}
	for i := range want {
		if dev.seq[i] != want[i] {
			t.Fatalf("sequence = %v, want %v", dev.seq, want)
		}
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	h, _ := connected(t)

	want := peq.Profile{
		Pregain: -2.5,
		Filters: []peq.Filter{
			{Freq: 105, Gain: -3.5, Q: 0.5, Type: peq.LowShelf},
			{Freq: 1000, Gain: 0, Q: 2, Type: peq.Peaking},
			{Freq: 8000, Gain: 4.25, Q: 1.5, Type: peq.HighShelf},
		},
	}

	if err := h.WritePEQ(want); err != nil {
		t.Fatalf("WritePEQ() error: %v", err)
	}

	got, err := h.ReadPEQ()
	if err != nil {
		t.Fatalf("ReadPEQ() error: %v", err)
	}
	if got.Pregain != want.Pregain {
		t.Errorf("pregain = %g, want %g", got.Pregain, want.Pregain)
	}
	if len(got.Filters) != len(want.Filters) {
		t.Fatalf("read %d filters, want %d", len(got.Filters), len(want.Filters))
	}
	for i := range want.Filters {
		if got.Filters[i] != want.Filters[i] {
			t.Errorf("filter %d = %+v, want %+v", i, got.Filters[i], want.Filters[i])
		}
	}
}

func TestReadSkipsEmptyBands(t *testing.T) {
	h, _ := connected(t)

	// Write two filters; the remaining six bands stay empty.
	p := peq.Profile{Filters: []peq.Filter{
		{Freq: 100, Gain: 1, Q: 1, Type: peq.Peaking},
		{Freq: 200, Gain: 2, Q: 1, Type: peq.Peaking},
	}}
	if err := h.WritePEQ(p); err != nil {
		t.Fatalf("WritePEQ() error: %v", err)
	}

	got, err := h.ReadPEQ()
	if err != nil {
		t.Fatalf("ReadPEQ() error: %v", err)
	}
	if len(got.Filters) != 2 {
		t.Errorf("read %d filters, want 2", len(got.Filters))
	}
}

func TestValidationBeforeWire(t *testing.T) {
	h, dev := connected(t)

	// Low-pass filters are outside this device's supported set.
	err := h.WritePEQ(peq.Profile{Filters: []peq.Filter{
		{Freq: 12000, Gain: 0, Q: 0.5, Type: peq.LowPass},
	}})
	if !errors.Is(err, peq.ErrValidation) {
		t.Fatalf("WritePEQ() error = %v, want ErrValidation", err)
	}
	if dev.writes != 0 {
		t.Errorf("device saw %d writes despite validation failure", dev.writes)
	}
}

func TestMatches(t *testing.T) {
	h := New(&fakeOpener{})

	tests := []struct {
		name string
		info hidio.DeviceInfo
		want bool
	}{
		{name: "freedsp", info: hidio.DeviceInfo{VendorID: 0x3302, Product: "MOONDROP FreeDSP Pro"}, want: true},
		{name: "rays", info: hidio.DeviceInfo{VendorID: 0x2FC6, Product: "Rays DSP"}, want: true},
		{name: "ddhifi", info: hidio.DeviceInfo{VendorID: 0x0D8C, Product: "ddHiFi DSP IEM - Memory"}, want: true},
		{name: "excluded model", info: hidio.DeviceInfo{VendorID: 0x3302, Product: "MOONDROP Aria 2"}, want: false},
		{name: "non-dsp keyword", info: hidio.DeviceInfo{VendorID: 0x3302, Product: "Some USB Audio"}, want: false},
		{name: "unknown vendor", info: hidio.DeviceInfo{VendorID: 0x1111, Product: "MOONDROP FreeDSP"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := h.Matches(tt.info); got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v", tt.info.Product, got, tt.want)
			}
		})
	}
}

func TestSaveSettleIsLastDelay(t *testing.T) {
	dev := newFakeDevice()
	clock := &fakeClock{}
	h := New(&fakeOpener{dev: dev}, WithClock(clock))
	if err := h.Connect(hidio.DeviceInfo{Path: "fake"}); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}

	if err := h.WritePEQ(peq.Profile{Filters: []peq.Filter{
		{Freq: 440, Gain: 1, Q: 1, Type: peq.Peaking},
	}}); err != nil {
		t.Fatalf("WritePEQ() error: %v", err)
	}

	if len(clock.sleeps) == 0 {
		t.Fatal("no delays recorded")
	}
	if last := clock.sleeps[len(clock.sleeps)-1]; last != defaultSaveDelay {
		t.Errorf("last delay = %v, want flash settle %v", last, defaultSaveDelay)
	}
}

func TestNotConnected(t *testing.T) {
	h := New(&fakeOpener{})

	if _, err := h.ReadPEQ(); !errors.Is(err, peq.ErrNotConnected) {
		t.Errorf("ReadPEQ() error = %v, want ErrNotConnected", err)
	}
	if err := h.WritePEQ(peq.Profile{}); !errors.Is(err, peq.ErrNotConnected) {
		t.Errorf("WritePEQ() error = %v, want ErrNotConnected", err)
	}
}
