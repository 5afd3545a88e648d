// ABOUTME: Integrated loudness measurement per the BS.1770 gating model
// ABOUTME: 400ms blocks at 75% overlap with absolute and relative gates
package loudness

import (
	"math"
	"time"

	"github.com/sonicdeck/sonicdeck-go/internal/audio"
)

const (
	// AbsoluteGate is the absolute gating threshold; blocks quieter than
	// this are effective silence and never contribute.
	AbsoluteGate = -70.0

	// relativeGateOffset places the relative gate 10 LU below the mean of
	// the blocks that survive the absolute gate.
	relativeGateOffset = -10.0

	blockDuration = 400 * time.Millisecond
	blockOverlap  = 0.75

	// reliableDuration is the minimum clip length for a measurement the
	// caller can trust without a warning.
	reliableDuration = time.Second

	loudnessOffset = -0.691
)

// Measurement is an integrated loudness result in LUFS.
//
// LowReliability marks clips shorter than one second: the gating model has
// too few blocks to average, so callers may warn but should still normalize.
type Measurement struct {
	LUFS           float64
	LowReliability bool
}

// Measure computes the integrated loudness of a buffer. The second return is
// false when no valid measurement exists (silence, too quiet, or a non-finite
// result); callers must not normalize against an invalid measurement.
func Measure(buf *audio.Buffer) (Measurement, bool) {
	if buf == nil || buf.Channels == 0 || buf.SampleRate == 0 || len(buf.Samples) == 0 {
		return Measurement{}, false
	}

	blocks := gatingBlocks(buf)
	if len(blocks) == 0 {
		return Measurement{}, false
	}

	// Absolute gate: discard blocks below the silence floor.
	var sum float64
	var n int
	for _, energy := range blocks {
		if blockLoudness(energy) >= AbsoluteGate {
			sum += energy
			n++
		}
	}
	if n == 0 {
		return Measurement{}, false
	}

	// Relative gate: discard blocks more than 10 LU below the ungated mean.
	threshold := blockLoudness(sum/float64(n)) + relativeGateOffset

	sum, n = 0, 0
	for _, energy := range blocks {
		l := blockLoudness(energy)
		if l >= AbsoluteGate && l >= threshold {
			sum += energy
			n++
		}
	}
	if n == 0 {
		return Measurement{}, false
	}

	lufs := blockLoudness(sum / float64(n))
	if math.IsNaN(lufs) || math.IsInf(lufs, 0) || lufs < AbsoluteGate {
		return Measurement{}, false
	}

	return Measurement{
		LUFS:           lufs,
		LowReliability: buf.Duration() < reliableDuration,
	}, true
}

// blockLoudness converts channel-weighted block energy to loudness.
func blockLoudness(energy float64) float64 {
	return loudnessOffset + 10.0*math.Log10(energy)
}

// gatingBlocks filters the buffer through the K-weighting chain and returns
// the channel-weighted mean-square energy of each 400ms block at 75% overlap.
// A clip shorter than one block is measured as a single truncated block.
func gatingBlocks(buf *audio.Buffer) []float64 {
	channels := buf.Channels
	frames := buf.Frames()

	// Per-channel filtered squares, summed with channel weights as we go.
	// A mono clip heard over two speakers carries twice the energy of one
	// channel of a stereo pair, so dual-mono weighting doubles the single
	// channel instead of underestimating by ~3 dB.
	weight := 1.0
	if channels == 1 {
		weight = 2.0
	}

	weighted := make([]float64, frames)
	for ch := 0; ch < channels; ch++ {
		filt := newKWeighting(buf.SampleRate)
		for i := 0; i < frames; i++ {
			y := filt.process(float64(buf.Samples[i*channels+ch]))
			weighted[i] += weight * y * y
		}
	}

	blockFrames := int(float64(buf.SampleRate) * blockDuration.Seconds())
	hop := int(float64(blockFrames) * (1.0 - blockOverlap))
	if blockFrames > frames {
		blockFrames = frames
	}
	if hop < 1 {
		hop = 1
	}

	var blocks []float64
	for start := 0; start+blockFrames <= frames; start += hop {
		var sum float64
		for i := start; i < start+blockFrames; i++ {
			sum += weighted[i]
		}
		blocks = append(blocks, sum/float64(blockFrames))
	}

	return blocks
}
