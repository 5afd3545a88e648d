// ABOUTME: Tests for integrated loudness measurement
// ABOUTME: Tests gating, dual-mono weighting, and the invalid-measurement cases
package loudness

import (
	"math"
	"testing"

	"github.com/sonicdeck/sonicdeck-go/internal/audio"
)

// sineBuffer builds a test tone. 997 Hz is the BS.1770 reference frequency
// where the K-weighting chain is ~0 dB.
func sineBuffer(sampleRate, channels int, seconds, amplitude float64) *audio.Buffer {
	frames := int(float64(sampleRate) * seconds)
	samples := make([]float32, frames*channels)
	for i := 0; i < frames; i++ {
		s := float32(amplitude * math.Sin(2*math.Pi*997.0*float64(i)/float64(sampleRate)))
		for ch := 0; ch < channels; ch++ {
			samples[i*channels+ch] = s
		}
	}
	return &audio.Buffer{Samples: samples, SampleRate: sampleRate, Channels: channels}
}

func TestMeasureSineTone(t *testing.T) {
	// A 0.5 amplitude dual-mono sine has weighted energy 2 * 0.5^2/2 = 0.25,
	// so the expected loudness is -0.691 + 10*log10(0.25) = -6.71 LUFS.
	m, ok := Measure(sineBuffer(44100, 1, 2.0, 0.5))
	if !ok {
		t.Fatal("expected valid measurement")
	}

	want := -6.71
	if math.Abs(m.LUFS-want) > 0.5 {
		t.Errorf("expected ~%.2f LUFS, got %.2f", want, m.LUFS)
	}
	if m.LowReliability {
		t.Error("2s clip should not be flagged low reliability")
	}
}

func TestDualMonoWeighting(t *testing.T) {
	// A mono clip must measure the same as the identical signal duplicated
	// onto both stereo channels. Single-channel weighting would read the
	// mono clip ~3 dB quieter.
	mono, ok := Measure(sineBuffer(44100, 1, 2.0, 0.5))
	if !ok {
		t.Fatal("expected valid mono measurement")
	}
	stereo, ok := Measure(sineBuffer(44100, 2, 2.0, 0.5))
	if !ok {
		t.Fatal("expected valid stereo measurement")
	}

	if diff := math.Abs(mono.LUFS - stereo.LUFS); diff > 0.1 {
		t.Errorf("mono and dual-mono stereo should match, diff %.2f dB", diff)
	}

	// The naive single-channel value for this signal is -9.72 LUFS.
	naive := -0.691 + 10.0*math.Log10(0.5*0.5/2.0)
	if diff := mono.LUFS - naive; math.Abs(diff-3.01) > 0.2 {
		t.Errorf("expected ~3 dB above single-channel weighting, got %.2f dB", diff)
	}
}

func TestMeasureSilence(t *testing.T) {
	buf := &audio.Buffer{
		Samples:    make([]float32, 44100),
		SampleRate: 44100,
		Channels:   1,
	}

	if _, ok := Measure(buf); ok {
		t.Error("silence must not yield a measurement")
	}
}

func TestMeasureBelowAbsoluteGate(t *testing.T) {
	// Amplitude 1e-5 sits near -100 LUFS, far below the -70 floor.
	if _, ok := Measure(sineBuffer(44100, 1, 1.0, 1e-5)); ok {
		t.Error("near-silence must not yield a measurement")
	}
}

func TestMeasureEmptyBuffer(t *testing.T) {
	if _, ok := Measure(nil); ok {
		t.Error("nil buffer must not yield a measurement")
	}
	if _, ok := Measure(&audio.Buffer{SampleRate: 44100, Channels: 2}); ok {
		t.Error("empty buffer must not yield a measurement")
	}
}

func TestShortClipFlaggedLowReliability(t *testing.T) {
	m, ok := Measure(sineBuffer(44100, 1, 0.5, 0.5))
	if !ok {
		t.Fatal("short clip should still measure")
	}
	if !m.LowReliability {
		t.Error("sub-second clip should be flagged low reliability")
	}
}

func TestRelativeGateDiscardsQuietTail(t *testing.T) {
	// One second loud, one second 40 dB quieter. The quiet half survives
	// the absolute gate but falls under the relative gate, so the result
	// should track the loud half rather than the dragged-down average.
	loud := sineBuffer(44100, 1, 1.0, 0.5)
	quiet := sineBuffer(44100, 1, 1.0, 0.005)

	combined := &audio.Buffer{
		Samples:    append(append([]float32{}, loud.Samples...), quiet.Samples...),
		SampleRate: 44100,
		Channels:   1,
	}

	m, ok := Measure(combined)
	if !ok {
		t.Fatal("expected valid measurement")
	}

	loudOnly, _ := Measure(loud)
	if math.Abs(m.LUFS-loudOnly.LUFS) > 1.0 {
		t.Errorf("gated result %.2f should track loud half %.2f", m.LUFS, loudOnly.LUFS)
	}
}
