// ABOUTME: K-weighting pre-filter for loudness measurement
// ABOUTME: Two biquad stages with coefficients derived per sample rate
package loudness

import "math"

// biquad is a direct-form-I second order IIR section.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64

	x1, x2 float64
	y1, y2 float64
}

func (f *biquad) process(x float64) float64 {
	y := f.b0*x + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
	f.x2, f.x1 = f.x1, x
	f.y2, f.y1 = f.y1, y
	return y
}

// Stage parameters from ITU-R BS.1770. The published coefficient tables are
// for 48 kHz; deriving from these analog-prototype parameters reproduces the
// tables and generalizes to any sample rate.
const (
	shelfFreq = 1681.9744509555319
	shelfGain = 3.99984385397
	shelfQ    = 0.7071752369554193

	highpassFreq = 38.13547087602444
	highpassQ    = 0.5003270373238773
)

// newShelf builds the stage-1 high-frequency shelf modelling the acoustic
// effect of the head.
func newShelf(sampleRate int) *biquad {
	k := math.Tan(math.Pi * shelfFreq / float64(sampleRate))
	vh := math.Pow(10.0, shelfGain/20.0)
	vb := math.Pow(vh, 0.4996667741545416)

	a0 := 1.0 + k/shelfQ + k*k
	return &biquad{
		b0: (vh + vb*k/shelfQ + k*k) / a0,
		b1: 2.0 * (k*k - vh) / a0,
		b2: (vh - vb*k/shelfQ + k*k) / a0,
		a1: 2.0 * (k*k - 1.0) / a0,
		a2: (1.0 - k/shelfQ + k*k) / a0,
	}
}

// newHighpass builds the stage-2 high-pass removing inaudible low frequencies.
func newHighpass(sampleRate int) *biquad {
	k := math.Tan(math.Pi * highpassFreq / float64(sampleRate))

	a0 := 1.0 + k/highpassQ + k*k
	return &biquad{
		b0: 1.0,
		b1: -2.0,
		b2: 1.0,
		a1: 2.0 * (k*k - 1.0) / a0,
		a2: (1.0 - k/highpassQ + k*k) / a0,
	}
}

// kWeighting chains both stages for one channel.
type kWeighting struct {
	shelf    *biquad
	highpass *biquad
}

func newKWeighting(sampleRate int) *kWeighting {
	return &kWeighting{
		shelf:    newShelf(sampleRate),
		highpass: newHighpass(sampleRate),
	}
}

func (k *kWeighting) process(x float64) float64 {
	return k.highpass.process(k.shelf.process(x))
}
