// ABOUTME: Compressed audio file decoding to PCM buffers
// ABOUTME: Dispatches MP3, FLAC, WAV, OGG/Vorbis, and AIFF by file extension
package decode

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sonicdeck/sonicdeck-go/internal/audio"
)

// Decode failure taxonomy. Callers distinguish the three with errors.Is:
// an unsupported extension, a file the decoder could not parse, and plain
// IO failures (which pass through wrapped).
var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrCorrupt           = errors.New("corrupt audio data")
)

// File decodes an audio file into a PCM buffer. Decoding is synchronous and
// CPU-bound; it can take tens to hundreds of milliseconds, so callers on the
// trigger path go through the cache instead of calling this directly.
func File(path string) (*audio.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	defer f.Close()

	ext := strings.ToLower(filepath.Ext(path))

	var buf *audio.Buffer
	switch ext {
	case ".mp3":
		buf, err = decodeMP3(f)
	case ".flac":
		buf, err = decodeFLAC(f)
	case ".wav", ".wave":
		buf, err = decodeWAV(f)
	case ".ogg", ".oga":
		buf, err = decodeVorbis(f)
	case ".aiff", ".aif":
		buf, err = decodeAIFF(f)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}

	if len(buf.Samples) == 0 {
		return nil, &Error{Path: path, Err: fmt.Errorf("%w: no audio frames", ErrCorrupt)}
	}

	return buf, nil
}
