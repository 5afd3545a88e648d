// ABOUTME: MP3 decoding via hajimehoshi/go-mp3
// ABOUTME: Reads the full stream into an interleaved float32 buffer
package decode

import (
	"encoding/binary"
	"fmt"
	"io"

	mp3 "github.com/hajimehoshi/go-mp3"

	"github.com/sonicdeck/sonicdeck-go/internal/audio"
)

// decodeMP3 decodes an entire MP3 stream. The go-mp3 decoder always emits
// 16-bit little-endian stereo.
func decodeMP3(r io.Reader) (*audio.Buffer, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	samples := make([]float32, 0, 1<<16)
	chunk := make([]byte, 8192)

	for {
		n, err := dec.Read(chunk)
		for i := 0; i+1 < n; i += 2 {
			s := int16(binary.LittleEndian.Uint16(chunk[i:]))
			samples = append(samples, audio.SampleFromInt16(s))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	}

	return &audio.Buffer{
		Samples:    samples,
		SampleRate: dec.SampleRate(),
		Channels:   2,
	}, nil
}
