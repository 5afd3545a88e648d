// ABOUTME: Playback orchestration over the cache and device backend
// ABOUTME: Session lifecycle, replay semantics, stop/stop-all, warm-up
package engine

import (
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sonicdeck/sonicdeck-go/internal/cache"
	"github.com/sonicdeck/sonicdeck-go/internal/device"
	"github.com/sonicdeck/sonicdeck-go/internal/gain"
	"github.com/sonicdeck/sonicdeck-go/internal/waveform"
)

const (
	defaultProgressInterval = 50 * time.Millisecond

	// defaultRestartWait bounds how long a replay waits for the prior
	// session of the same sound to tear down.
	defaultRestartWait = 250 * time.Millisecond
)

// Settings is the snapshot of playback-relevant settings the manager reads
// per play. The provider returns from in-memory state; the trigger path
// must never touch disk.
type Settings struct {
	GlobalMultiplier     float64
	NormalizationEnabled bool
	TargetLoudness       float64
}

// DefaultSettings are used when no provider is configured.
func DefaultSettings() Settings {
	return Settings{
		GlobalMultiplier:     1.0,
		NormalizationEnabled: true,
		TargetLoudness:       -14.0,
	}
}

// Config wires a Manager.
type Config struct {
	Backend device.Backend
	Cache   *cache.Cache
	Sink    Sink
	// Settings returns the current settings snapshot. Optional.
	Settings func() Settings

	ProgressInterval time.Duration
	RestartWait      time.Duration
}

// Manager orchestrates playback sessions. All shared state lives behind its
// lock and every mutation routes through its methods.
//
// Play is the zero-latency trigger path: a hotkey handler calls it directly
// against in-memory state, so a warm trigger costs one cache lookup and two
// stream opens.
type Manager struct {
	cfg Config

	mu      sync.RWMutex
	active  map[PlaybackID]*session
	bySound map[SoundID]PlaybackID
}

// NewManager creates a manager.
func NewManager(cfg Config) *Manager {
	if cfg.Sink == nil {
		cfg.Sink = NopSink{}
	}
	if cfg.Settings == nil {
		cfg.Settings = DefaultSettings
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = defaultProgressInterval
	}
	if cfg.RestartWait <= 0 {
		cfg.RestartWait = defaultRestartWait
	}

	return &Manager{
		cfg:     cfg,
		active:  make(map[PlaybackID]*session),
		bySound: make(map[SoundID]PlaybackID),
	}
}

// PlayRequest describes one trigger.
type PlayRequest struct {
	Sound    SoundID
	FilePath string

	Device1, Device2 device.ID

	// Volume is the UI slider position, clamped to [0,1]. Zero is honored
	// as silence; callers wanting a default volume resolve it before
	// building the request.
	Volume float64
	// PerSoundVolume is the per-sound trim multiplier; 0 means unity.
	PerSoundVolume float64

	// Trim window in milliseconds. TrimEndMs 0 plays to the end.
	TrimStartMs, TrimEndMs int64
}

// Play starts dual-output playback and returns the new playback id.
//
// Replay rule: a sound with an active session restarts from the beginning —
// the prior session is stopped (bounded wait) before the new one starts,
// never overlapped.
func (m *Manager) Play(req PlayRequest) (PlaybackID, error) {
	m.stopPrevious(req.Sound)

	h, err := m.cfg.Cache.GetOrDecode(req.FilePath)
	if err != nil {
		log.Printf("Failed to decode sound %s (%s): %v", req.Sound, req.FilePath, err)
		m.cfg.Sink.DecodeError(req.Sound, req.FilePath, err)
		return "", err
	}

	entry := h.Entry()
	set := m.cfg.Settings()

	perSound := req.PerSoundVolume
	if perSound <= 0 {
		perSound = 1.0
	}

	g := gain.Compute(gain.Params{
		Slider:           req.Volume,
		PerSoundVolume:   perSound,
		GlobalMultiplier: set.GlobalMultiplier,
		Normalize:        set.NormalizationEnabled,
		LoudnessValid:    entry.HasLoudness,
		LoudnessLUFS:     entry.Loudness.LUFS,
		TargetLoudness:   set.TargetLoudness,
	})

	buf := entry.Buffer
	endFrame := buf.Frames()
	if req.TrimEndMs > 0 {
		endFrame = buf.FrameAtMs(req.TrimEndMs)
	}

	id := newPlaybackID()

	s, err := startSession(sessionConfig{
		id:            id,
		sound:         req.Sound,
		path:          req.FilePath,
		handle:        h,
		backend:       m.cfg.Backend,
		device1:       req.Device1,
		device2:       req.Device2,
		gain:          g,
		startFrame:    buf.FrameAtMs(req.TrimStartMs),
		endFrame:      endFrame,
		progressEvery: m.cfg.ProgressInterval,
		sink:          m.cfg.Sink,
		onDone:        m.finalize,
	})
	if err != nil {
		log.Printf("Failed to start playback of sound %s (%s) on devices %s/%s: %v",
			req.Sound, req.FilePath, req.Device1, req.Device2, err)
		m.cfg.Sink.PlaybackError(id, err)
		return "", fmt.Errorf("failed to start playback: %w", err)
	}

	// Register before the session loop starts so a fast completion can
	// always find itself in the maps.
	m.mu.Lock()
	m.active[id] = s
	m.bySound[req.Sound] = id
	m.mu.Unlock()

	s.begin()
	return id, nil
}

// stopPrevious enforces the replay rule for one sound.
func (m *Manager) stopPrevious(sound SoundID) {
	m.mu.RLock()
	var prev *session
	if id, ok := m.bySound[sound]; ok {
		prev = m.active[id]
	}
	m.mu.RUnlock()

	if prev == nil {
		return
	}

	prev.Stop()
	select {
	case <-prev.Done():
	case <-time.After(m.cfg.RestartWait):
		log.Printf("Timed out after %v waiting for prior playback of sound %s to stop",
			m.cfg.RestartWait, sound)
	}
}

// Stop halts one playback. Unknown or already-finalizing ids are silent
// no-ops.
func (m *Manager) Stop(id PlaybackID) {
	m.mu.RLock()
	s := m.active[id]
	m.mu.RUnlock()

	if s != nil {
		s.Stop()
	}
}

// StopAll halts every active playback.
func (m *Manager) StopAll() {
	m.mu.RLock()
	sessions := make([]*session, 0, len(m.active))
	for _, s := range m.active {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	for _, s := range sessions {
		s.Stop()
	}
}

// ListActive returns the ids of all active playbacks.
func (m *Manager) ListActive() []PlaybackID {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]PlaybackID, 0, len(m.active))
	for id := range m.active {
		ids = append(ids, id)
	}
	return ids
}

// ActiveForSound returns the tracked playback for a sound, for replay and
// UI highlighting.
func (m *Manager) ActiveForSound(sound SoundID) (PlaybackID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.bySound[sound]
	return id, ok
}

// finalize removes a finished session from the maps. Called exactly once
// per session from its bookkeeping goroutine.
func (m *Manager) finalize(s *session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.active, s.cfg.id)
	if m.bySound[s.cfg.sound] == s.cfg.id {
		delete(m.bySound, s.cfg.sound)
	}
}

// WaveformData is a peak envelope with the clip duration.
type WaveformData struct {
	Peaks      []float32
	DurationMs int64
}

// Waveform returns numPeaks display peaks for an audio file, decoding
// through the cache.
func (m *Manager) Waveform(path string, numPeaks int) (WaveformData, error) {
	h, err := m.cfg.Cache.GetOrDecode(path)
	if err != nil {
		return WaveformData{}, err
	}
	defer h.Release()

	entry := h.Entry()
	peaks := entry.Peaks
	if numPeaks != len(peaks) {
		peaks = waveform.Extract(entry.Buffer, numPeaks)
	}

	return WaveformData{
		Peaks:      peaks,
		DurationMs: entry.Buffer.DurationMs(),
	}, nil
}

// Preload decodes paths through the cache on a bounded worker pool so the
// trigger path is warm before the first hotkey. Decode failures are logged
// and surfaced per sound; they never abort the rest of the warm-up.
func (m *Manager) Preload(paths map[SoundID]string) {
	var g errgroup.Group
	g.SetLimit(preloadWorkers())

	for sound, path := range paths {
		sound, path := sound, path
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Preload of %s panicked: %v", path, r)
				}
			}()

			h, err := m.cfg.Cache.GetOrDecode(path)
			if err != nil {
				log.Printf("Failed to preload sound %s (%s): %v", sound, path, err)
				m.cfg.Sink.DecodeError(sound, path, err)
				return nil
			}
			h.Release()
			return nil
		})
	}

	g.Wait()
}

func preloadWorkers() int {
	n := runtime.NumCPU()
	if n > 4 {
		n = 4
	}
	return n
}
