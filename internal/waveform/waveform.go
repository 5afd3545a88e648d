// ABOUTME: Peak envelope extraction for waveform display
// ABOUTME: Max absolute amplitude per equal-width time bucket, self-normalized
package waveform

import "github.com/sonicdeck/sonicdeck-go/internal/audio"

// DefaultPeaks is the resolution cached alongside decoded audio.
const DefaultPeaks = 200

// Extract returns n peaks, one per equal time bucket: the maximum absolute
// amplitude across all channels in the bucket, normalized to [0,1] by the
// buffer's own peak. Deterministic for a given buffer.
func Extract(buf *audio.Buffer, n int) []float32 {
	if n <= 0 {
		return nil
	}

	peaks := make([]float32, n)
	frames := buf.Frames()
	if frames == 0 {
		return peaks
	}

	channels := buf.Channels
	framesPerBucket := float64(frames) / float64(n)

	var max float32
	for i := 0; i < n; i++ {
		start := int(float64(i) * framesPerBucket)
		end := int(float64(i+1) * framesPerBucket)
		if end > frames {
			end = frames
		}

		var peak float32
		for f := start; f < end; f++ {
			for ch := 0; ch < channels; ch++ {
				s := buf.Samples[f*channels+ch]
				if s < 0 {
					s = -s
				}
				if s > peak {
					peak = s
				}
			}
		}
		peaks[i] = peak
		if peak > max {
			max = peak
		}
	}

	if max > 0 {
		for i := range peaks {
			peaks[i] /= max
		}
	}

	return peaks
}
