// ABOUTME: FLAC decoding via mewkiz/flac
// ABOUTME: Parses frames sequentially and scales samples by the stream bit depth
package decode

import (
	"fmt"
	"io"

	"github.com/mewkiz/flac"

	"github.com/sonicdeck/sonicdeck-go/internal/audio"
)

func decodeFLAC(r io.Reader) (*audio.Buffer, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	info := stream.Info
	channels := int(info.NChannels)
	bitDepth := int(info.BitsPerSample)

	samples := make([]float32, 0, info.NSamples*uint64(channels))

	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}

		// Subframes are planar; interleave while converting.
		for i := 0; i < int(frame.BlockSize); i++ {
			for ch := 0; ch < channels; ch++ {
				s := frame.Subframes[ch].Samples[i]
				samples = append(samples, audio.SampleFromInt(int(s), bitDepth))
			}
		}
	}

	return &audio.Buffer{
		Samples:    samples,
		SampleRate: int(info.SampleRate),
		Channels:   channels,
	}, nil
}
