// ABOUTME: Per-trigger playback session state machine
// ABOUTME: Owns two device streams rendering one shared cached buffer
package engine

import (
	"fmt"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sonicdeck/sonicdeck-go/internal/audio"
	"github.com/sonicdeck/sonicdeck-go/internal/cache"
	"github.com/sonicdeck/sonicdeck-go/internal/device"
)

// Session lifecycle: Starting -> Playing -> {Completed | Stopped | Failed}.
type sessionState int32

const (
	stateStarting sessionState = iota
	statePlaying
	stateCompleted
	stateStopped
	stateFailed
)

func (s sessionState) String() string {
	switch s {
	case stateStarting:
		return "starting"
	case statePlaying:
		return "playing"
	case stateCompleted:
		return "completed"
	case stateStopped:
		return "stopped"
	case stateFailed:
		return "failed"
	}
	return "unknown"
}

type sessionConfig struct {
	id     PlaybackID
	sound  SoundID
	path   string
	handle *cache.Handle

	backend          device.Backend
	device1, device2 device.ID

	gain                 float64
	startFrame, endFrame int

	progressEvery time.Duration
	sink          Sink
	onDone        func(*session)
}

// session owns two output streams over one shared cached buffer. The render
// callbacks run on the backend's real-time path and communicate with the
// bookkeeping goroutine only through atomics; all shared-state mutation
// happens in run().
type session struct {
	cfg sessionConfig
	buf *audio.Buffer

	streams [2]device.Stream
	cursors [2]*streamCursor

	totalMs int64

	state atomic.Int32

	stop     chan struct{}
	stopOnce sync.Once

	finishOnce sync.Once
	done       chan struct{}
}

// streamCursor tracks one stream's position in source frames. Written by
// the render callback, read by the session goroutine.
type streamCursor struct {
	pos      atomic.Uint64 // float64 bits
	finished atomic.Bool
}

func (c *streamCursor) frame() float64    { return math.Float64frombits(c.pos.Load()) }
func (c *streamCursor) store(pos float64) { c.pos.Store(math.Float64bits(pos)) }

// startSession opens both device streams atomically: if the second open
// fails the first is closed and the cache handle released, leaving nothing
// behind. The session is not running until begin() is called.
func startSession(cfg sessionConfig) (*session, error) {
	buf := cfg.handle.Entry().Buffer

	s := &session{
		cfg:  cfg,
		buf:  buf,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	s.clampTrim()

	trimmed := s.cfg.endFrame - s.cfg.startFrame
	if trimmed < 0 {
		trimmed = 0
	}
	s.totalMs = int64(float64(trimmed) / float64(buf.SampleRate) * 1000.0)

	devices := [2]device.ID{cfg.device1, cfg.device2}
	for i, dev := range devices {
		devCfg, err := cfg.backend.PreferredConfig(dev)
		if err == nil {
			s.cursors[i] = newStreamCursor(s.cfg.startFrame)
			s.streams[i], err = cfg.backend.Open(dev, devCfg, s.render(s.cursors[i], devCfg))
		}
		if err != nil {
			// No orphaned single stream: tear down whatever opened.
			for j := 0; j < i; j++ {
				s.streams[j].Close()
			}
			cfg.handle.Release()
			return nil, fmt.Errorf("failed to open stream on device %s: %w", dev, err)
		}
	}

	return s, nil
}

func newStreamCursor(startFrame int) *streamCursor {
	c := &streamCursor{}
	c.store(float64(startFrame))
	return c
}

// clampTrim forces the trim window into [0, frames].
func (s *session) clampTrim() {
	frames := s.buf.Frames()
	if s.cfg.endFrame <= 0 || s.cfg.endFrame > frames {
		s.cfg.endFrame = frames
	}
	if s.cfg.startFrame < 0 {
		s.cfg.startFrame = 0
	}
	if s.cfg.startFrame > s.cfg.endFrame {
		s.cfg.startFrame = s.cfg.endFrame
	}
}

// begin transitions Starting -> Playing and starts the bookkeeping loop.
func (s *session) begin() {
	s.state.Store(int32(statePlaying))
	go s.run()
}

// render builds the real-time callback for one stream. It reads the shared
// immutable buffer, applies the precomputed gain, and resamples to the
// device rate by linear interpolation. The two streams advance independently.
func (s *session) render(cur *streamCursor, devCfg device.StreamConfig) device.Render {
	samples := s.buf.Samples
	inCh := s.buf.Channels
	ratio := float64(s.buf.SampleRate) / float64(devCfg.SampleRate)
	end := float64(s.cfg.endFrame)
	g := float32(s.cfg.gain)
	pos := cur.frame()

	return func(out []float32) {
		outCh := devCfg.Channels

		for i := 0; i+outCh <= len(out); i += outCh {
			if pos >= end-1 {
				for c := 0; c < outCh; c++ {
					out[i+c] = 0
				}
				cur.finished.Store(true)
				continue
			}

			f0 := int(pos)
			frac := float32(pos - float64(f0))

			for c := 0; c < outCh; c++ {
				// Mono sources feed every speaker; extra device channels
				// beyond a stereo source (center, LFE, surround) get
				// silence rather than duplicated audio.
				if c >= inCh {
					if inCh == 1 {
						out[i+c] = out[i]
						continue
					}
					out[i+c] = 0
					continue
				}

				i0 := f0*inCh + c
				i1 := i0 + inCh
				v := samples[i0]
				if i1 < len(samples) {
					v += (samples[i1] - v) * frac
				}
				out[i+c] = v * g
			}

			pos += ratio
		}

		cur.store(pos)
	}
}

// run is the session's bookkeeping loop. It is the only place that emits
// events and tears streams down, so terminal ordering is trivially serial.
func (s *session) run() {
	defer close(s.done)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Playback %s panicked: %v", s.cfg.id, r)
			s.teardown()
			s.finish(stateFailed, fmt.Errorf("playback panic: %v", r))
		}
	}()

	ticker := time.NewTicker(s.cfg.progressEvery)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			s.teardown()
			s.finish(stateStopped, nil)
			return

		case <-ticker.C:
			for i, st := range s.streams {
				if err := st.Err(); err != nil {
					log.Printf("Playback %s stream %d on sound %s (%s) failed: %v",
						s.cfg.id, i+1, s.cfg.sound, s.cfg.path, err)
					s.teardown()
					s.finish(stateFailed, err)
					return
				}
			}

			// Completed once the slower stream exhausts the trim window.
			if s.cursors[0].finished.Load() && s.cursors[1].finished.Load() {
				s.teardown()
				s.finish(stateCompleted, nil)
				return
			}

			s.cfg.sink.PlaybackProgress(s.cfg.id, s.elapsedMs(), s.totalMs, s.progressPct())
		}
	}
}

// elapsedMs reports the slower stream's position within the trim window.
func (s *session) elapsedMs() int64 {
	minFrame := math.Inf(1)
	for _, cur := range s.cursors {
		if f := cur.frame(); f < minFrame {
			minFrame = f
		}
	}

	elapsed := int64((minFrame - float64(s.cfg.startFrame)) / float64(s.buf.SampleRate) * 1000.0)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > s.totalMs {
		elapsed = s.totalMs
	}
	return elapsed
}

func (s *session) progressPct() int {
	if s.totalMs == 0 {
		return 100
	}
	pct := int(float64(s.elapsedMs()) / float64(s.totalMs) * 100.0)
	if pct > 100 {
		pct = 100
	}
	return pct
}

// teardown halts both streams and releases the cache handle. Safe to call
// more than once.
func (s *session) teardown() {
	for _, st := range s.streams {
		if st != nil {
			if err := st.Close(); err != nil {
				log.Printf("Playback %s: failed to close stream: %v", s.cfg.id, err)
			}
		}
	}
	s.cfg.handle.Release()
}

// finish emits exactly one terminal notification and reports back to the
// manager. Stopped sessions complete like finished ones; failures emit the
// distinct playback-error notification instead.
func (s *session) finish(final sessionState, err error) {
	s.finishOnce.Do(func() {
		s.state.Store(int32(final))

		if final == stateFailed {
			s.cfg.sink.PlaybackError(s.cfg.id, err)
		} else {
			s.cfg.sink.PlaybackComplete(s.cfg.id)
		}

		if s.cfg.onDone != nil {
			s.cfg.onDone(s)
		}
	})
}

// Stop requests teardown. Idempotent: redundant stops on a finalizing or
// finished session are silent no-ops.
func (s *session) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

// Done closes when the session has fully torn down.
func (s *session) Done() <-chan struct{} {
	return s.done
}

func (s *session) currentState() sessionState {
	return sessionState(s.state.Load())
}
