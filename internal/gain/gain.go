// ABOUTME: Linear gain calculation for playback
// ABOUTME: Perceptual slider curve, global multiplier, and loudness normalization
package gain

import "math"

const (
	// SafetyAttenuation keeps a full slider at a comfortable level; without
	// it a normalized sound at slider 1.0 plays at full scale.
	SafetyAttenuation = 0.2

	// Global multiplier bounds. 1.0 is unity; values above uniformly boost
	// all output for quiet systems.
	MinMultiplier = 1.0
	MaxMultiplier = 3.0

	// Loudness-normalization gain bounds. The lower bound avoids crushing
	// loud sources to nothing, the upper avoids blowing up near-silent
	// sources into clipping.
	MinLoudnessGain = 0.1
	MaxLoudnessGain = 4.0

	// Ceiling is the hard clamp on the final linear gain.
	Ceiling = 3.0
)

// Params are the inputs to a gain computation. Loudness is only consulted
// when Normalize is true and LoudnessValid reports a usable measurement.
type Params struct {
	Slider           float64 // UI volume slider, [0,1]
	PerSoundVolume   float64 // per-sound trim multiplier
	GlobalMultiplier float64 // uniform boost, clamped to [1,3]
	Normalize        bool
	LoudnessValid    bool
	LoudnessLUFS     float64
	TargetLoudness   float64
}

// Compute combines all volume controls into a single linear gain.
//
// The slider runs through a fourth-power curve: perceived loudness is closer
// to exponential than linear, so a linear mapping feels dead at low values
// and abruptly loud near the top.
func Compute(p Params) float64 {
	slider := clamp(p.Slider, 0.0, 1.0)
	curve := slider * slider * slider * slider * SafetyAttenuation

	mult := clamp(p.GlobalMultiplier, MinMultiplier, MaxMultiplier)

	loudness := 1.0
	if p.Normalize && p.LoudnessValid {
		loudness = LoudnessGain(p.LoudnessLUFS, p.TargetLoudness)
	}

	g := curve * mult * loudness * p.PerSoundVolume
	return clamp(g, 0.0, Ceiling)
}

// LoudnessGain converts the distance from the loudness target to a linear
// gain, clamped to [0.1, 4.0]. Non-finite inputs yield unity.
func LoudnessGain(measured, target float64) float64 {
	g := math.Pow(10.0, (target-measured)/20.0)
	if math.IsNaN(g) {
		return 1.0
	}
	return clamp(g, MinLoudnessGain, MaxLoudnessGain)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
