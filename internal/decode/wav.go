// ABOUTME: WAV decoding via go-audio/wav
// ABOUTME: Decodes the full PCM chunk and normalizes by the container bit depth
package decode

import (
	"fmt"
	"io"

	"github.com/go-audio/wav"

	"github.com/sonicdeck/sonicdeck-go/internal/audio"
)

func decodeWAV(r io.ReadSeeker) (*audio.Buffer, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid WAV file", ErrCorrupt)
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}

	samples := make([]float32, len(pcm.Data))
	for i, s := range pcm.Data {
		samples[i] = audio.SampleFromInt(s, bitDepth)
	}

	return &audio.Buffer{
		Samples:    samples,
		SampleRate: pcm.Format.SampleRate,
		Channels:   pcm.Format.NumChannels,
	}, nil
}
