// ABOUTME: Core PCM audio types
// ABOUTME: Defines the decoded buffer shared by the cache, analyzers, and playback sessions
package audio

import "time"

// Buffer holds decoded PCM audio. Samples are interleaved float32 in the
// range [-1, 1]. A buffer is immutable once produced: the cache hands the
// same buffer to every concurrent playback session.
type Buffer struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// Frames returns the number of sample frames (one sample per channel).
func (b *Buffer) Frames() int {
	if b.Channels == 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the playing time of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate == 0 {
		return 0
	}
	return time.Duration(float64(b.Frames()) / float64(b.SampleRate) * float64(time.Second))
}

// DurationMs returns the playing time in whole milliseconds.
func (b *Buffer) DurationMs() int64 {
	return b.Duration().Milliseconds()
}

// SizeBytes returns the in-memory size of the sample data.
func (b *Buffer) SizeBytes() int64 {
	return int64(len(b.Samples)) * 4
}

// FrameAtMs converts a millisecond offset to a frame index, clamped to
// [0, Frames()].
func (b *Buffer) FrameAtMs(ms int64) int {
	frame := int(float64(ms) / 1000.0 * float64(b.SampleRate))
	if frame < 0 {
		return 0
	}
	if frame > b.Frames() {
		return b.Frames()
	}
	return frame
}

// SampleFromInt16 converts a 16-bit PCM sample to float32.
func SampleFromInt16(s int16) float32 {
	return float32(s) / 32768.0
}

// SampleFromInt converts an integer PCM sample of the given bit depth to
// float32.
func SampleFromInt(s int, bitDepth int) float32 {
	return float32(s) / float32(int64(1)<<(bitDepth-1))
}
