// ABOUTME: OGG/Vorbis decoding via jfreymuth/oggvorbis
// ABOUTME: The decoder emits interleaved float32 directly
package decode

import (
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"

	"github.com/sonicdeck/sonicdeck-go/internal/audio"
)

func decodeVorbis(r io.Reader) (*audio.Buffer, error) {
	samples, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	return &audio.Buffer{
		Samples:    samples,
		SampleRate: format.SampleRate,
		Channels:   format.Channels,
	}, nil
}
