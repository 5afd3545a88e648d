// ABOUTME: Tests for peak envelope extraction
// ABOUTME: Tests bucketing, self-normalization, and determinism
package waveform

import (
	"testing"

	"github.com/sonicdeck/sonicdeck-go/internal/audio"
)

func rampBuffer(frames int) *audio.Buffer {
	samples := make([]float32, frames)
	for i := range samples {
		samples[i] = float32(i) / float32(frames-1) * 0.8
	}
	return &audio.Buffer{Samples: samples, SampleRate: 8000, Channels: 1}
}

func TestExtractRamp(t *testing.T) {
	peaks := Extract(rampBuffer(8000), 10)

	if len(peaks) != 10 {
		t.Fatalf("expected 10 peaks, got %d", len(peaks))
	}

	// A rising ramp has strictly increasing bucket peaks, with the last
	// bucket normalized to exactly 1.
	for i := 1; i < len(peaks); i++ {
		if peaks[i] <= peaks[i-1] {
			t.Errorf("peaks should increase along a ramp: peaks[%d]=%f <= peaks[%d]=%f",
				i, peaks[i], i-1, peaks[i-1])
		}
	}
	if peaks[9] != 1.0 {
		t.Errorf("last peak should normalize to 1.0, got %f", peaks[9])
	}
}

func TestExtractDeterministic(t *testing.T) {
	buf := rampBuffer(44100)

	first := Extract(buf, 100)
	for i := 0; i < 5; i++ {
		again := Extract(buf, 100)
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("extraction not deterministic at peak %d: %f vs %f", j, first[j], again[j])
			}
		}
	}
}

func TestExtractNegativePeaks(t *testing.T) {
	buf := &audio.Buffer{
		Samples:    []float32{0.1, -0.9, 0.2, 0.3},
		SampleRate: 8000,
		Channels:   1,
	}

	peaks := Extract(buf, 2)
	if peaks[0] != 1.0 {
		t.Errorf("negative excursion should dominate first bucket, got %f", peaks[0])
	}
}

func TestExtractStereoBuckets(t *testing.T) {
	// Peak lives only in the right channel; it must still register.
	buf := &audio.Buffer{
		Samples:    []float32{0, 0.2, 0, 0.8, 0, 0.1, 0, 0.1},
		SampleRate: 8000,
		Channels:   2,
	}

	peaks := Extract(buf, 2)
	if peaks[0] != 1.0 {
		t.Errorf("expected right-channel peak to normalize first bucket to 1.0, got %f", peaks[0])
	}
	if peaks[1] >= peaks[0] {
		t.Errorf("second bucket should be quieter, got %f", peaks[1])
	}
}

func TestExtractEdgeCases(t *testing.T) {
	if got := Extract(&audio.Buffer{SampleRate: 8000, Channels: 1}, 4); len(got) != 4 {
		t.Errorf("empty buffer should still yield n zero peaks, got %d", len(got))
	}
	if got := Extract(rampBuffer(100), 0); got != nil {
		t.Error("n=0 should yield nil")
	}
	// Silence: all-zero peaks, no division by the zero maximum.
	silent := Extract(&audio.Buffer{Samples: make([]float32, 800), SampleRate: 8000, Channels: 1}, 4)
	for i, p := range silent {
		if p != 0 {
			t.Errorf("silent bucket %d should be 0, got %f", i, p)
		}
	}
}
