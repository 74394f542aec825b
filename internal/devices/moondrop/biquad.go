package moondrop

import (
	"math"

	"github.com/graywave/daceq/internal/peq"
)

// sampleRate is the rate the firmware runs its EQ at; all coefficient
// math assumes it.
const sampleRate = 96000

// biquadScale is the fixed-point factor for wire coefficients (2^30).
const biquadScale = 1 << 30

// biquadCoefficients computes the normalized cookbook biquad for one
// filter as [b0, b1, b2, -a1, -a2]: the firmware expects the feedback
// coefficients negated.
func biquadCoefficients(f peq.Filter) [5]float64 {
	a := math.Pow(10, f.Gain/40)
	w0 := 2 * math.Pi * float64(f.Freq) / sampleRate
	sinW0, cosW0 := math.Sincos(w0)
	alpha := sinW0 / (2 * f.Q)

	var b0, b1, b2, a0, a1, a2 float64
	switch f.Type {
	case peq.LowShelf:
		twoRootAAlpha := 2 * math.Sqrt(a) * alpha
		b0 = a * ((a + 1) - (a-1)*cosW0 + twoRootAAlpha)
		b1 = 2 * a * ((a - 1) - (a+1)*cosW0)
		b2 = a * ((a + 1) - (a-1)*cosW0 - twoRootAAlpha)
		a0 = (a + 1) + (a-1)*cosW0 + twoRootAAlpha
		a1 = -2 * ((a - 1) + (a+1)*cosW0)
		a2 = (a + 1) + (a-1)*cosW0 - twoRootAAlpha
	case peq.HighShelf:
		twoRootAAlpha := 2 * math.Sqrt(a) * alpha
		b0 = a * ((a + 1) + (a-1)*cosW0 + twoRootAAlpha)
		b1 = -2 * a * ((a - 1) + (a+1)*cosW0)
		b2 = a * ((a + 1) + (a-1)*cosW0 - twoRootAAlpha)
		a0 = (a + 1) - (a-1)*cosW0 + twoRootAAlpha
		a1 = 2 * ((a - 1) - (a+1)*cosW0)
		a2 = (a + 1) - (a-1)*cosW0 - twoRootAAlpha
	default: // peaking
		b0 = 1 + alpha*a
		b1 = -2 * cosW0
		b2 = 1 - alpha*a
		a0 = 1 + alpha/a
		a1 = -2 * cosW0
		a2 = 1 - alpha/a
	}

	return [5]float64{b0 / a0, b1 / a0, b2 / a0, -a1 / a0, -a2 / a0}
}

// scaledCoefficients converts the float coefficients to 2^30 fixed
// point, clamped to the 32-bit range the wire format can carry.
func scaledCoefficients(f peq.Filter) [5]int32 {
	coeffs := biquadCoefficients(f)
	var out [5]int32
	for i, c := range coeffs {
		v := math.Round(c * biquadScale)
		if v > math.MaxInt32 {
			v = math.MaxInt32
		}
		if v < math.MinInt32 {
			v = math.MinInt32
		}
		out[i] = int32(v)
	}
	return out
}
