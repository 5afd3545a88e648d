// ABOUTME: Output backend using the oto library
// ABOUTME: Pulls render callbacks through an oto player at a fixed engine format
package device

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

const (
	// oto renders everything at one engine format; sessions resample.
	otoSampleRate = 48000
	otoChannels   = 2

	// Small device buffer keeps trigger-to-sound latency low.
	otoBufferSize = 10 * time.Millisecond
)

// otoDefaultID is the only device oto exposes: playback routes through the
// operating system's default output mixer.
const otoDefaultID ID = "default"

// OtoBackend implements Backend on top of oto. The library targets the
// system default output; hosts that need true per-device routing supply a
// different Backend implementation.
type OtoBackend struct {
	mu  sync.Mutex
	ctx *oto.Context
}

// NewOtoBackend creates the backend. The underlying audio context is
// created lazily on the first open.
func NewOtoBackend() *OtoBackend {
	return &OtoBackend{}
}

// Devices returns the single routable output.
func (b *OtoBackend) Devices() ([]Info, error) {
	return []Info{
		{ID: otoDefaultID, Name: "System Default Output", IsDefault: true},
	}, nil
}

// PreferredConfig reports the fixed engine format.
func (b *OtoBackend) PreferredConfig(id ID) (StreamConfig, error) {
	if id != otoDefaultID {
		return StreamConfig{}, &Error{Device: id, Err: ErrNotFound}
	}
	return StreamConfig{SampleRate: otoSampleRate, Channels: otoChannels}, nil
}

// Open starts a stream pulling samples through render.
func (b *OtoBackend) Open(id ID, cfg StreamConfig, render Render) (Stream, error) {
	if id != otoDefaultID {
		return nil, &Error{Device: id, Err: ErrNotFound}
	}
	if cfg.SampleRate != otoSampleRate || cfg.Channels != otoChannels {
		return nil, &Error{Device: id, Err: fmt.Errorf("%w: unsupported stream config %dHz/%dch",
			ErrOpenFailed, cfg.SampleRate, cfg.Channels)}
	}

	ctx, err := b.context()
	if err != nil {
		return nil, &Error{Device: id, Err: fmt.Errorf("%w: %v", ErrOpenFailed, err)}
	}

	player := ctx.NewPlayer(&renderReader{render: render, channels: otoChannels})
	player.Play()

	return &otoStream{player: player}, nil
}

// context creates the process-wide oto context on first use.
func (b *OtoBackend) context() (*oto.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ctx != nil {
		return b.ctx, nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   otoSampleRate,
		ChannelCount: otoChannels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   otoBufferSize,
	})
	if err != nil {
		return nil, err
	}
	<-ready

	log.Printf("Audio output initialized: %dHz, %d channels", otoSampleRate, otoChannels)

	b.ctx = ctx
	return ctx, nil
}

// renderReader adapts a Render callback to the io.Reader oto players pull
// from. It runs on oto's audio goroutine.
type renderReader struct {
	render   Render
	channels int
	buf      []float32
}

func (r *renderReader) Read(p []byte) (int, error) {
	frames := len(p) / (4 * r.channels)
	if frames == 0 {
		return 0, nil
	}

	n := frames * r.channels
	if cap(r.buf) < n {
		r.buf = make([]float32, n)
	}
	out := r.buf[:n]
	for i := range out {
		out[i] = 0
	}

	r.render(out)

	for i, s := range out {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	return n * 4, nil
}

type otoStream struct {
	player *oto.Player
	once   sync.Once
	err    error
}

func (s *otoStream) Close() error {
	s.once.Do(func() {
		s.err = s.player.Close()
	})
	return s.err
}

func (s *otoStream) Err() error {
	return s.player.Err()
}
