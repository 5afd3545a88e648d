// ABOUTME: Entry point for the SonicDeck playback engine CLI
// ABOUTME: Parses flags, wires the engine, and drives playback from the terminal
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sonicdeck/sonicdeck-go/internal/cache"
	"github.com/sonicdeck/sonicdeck-go/internal/decode"
	"github.com/sonicdeck/sonicdeck-go/internal/device"
	"github.com/sonicdeck/sonicdeck-go/internal/engine"
	"github.com/sonicdeck/sonicdeck-go/internal/library"
	"github.com/sonicdeck/sonicdeck-go/internal/version"
	"github.com/sonicdeck/sonicdeck-go/internal/waveform"
)

var (
	soundsPath   = flag.String("sounds", defaultConfigPath("sounds.json"), "Sound library file")
	settingsPath = flag.String("settings", defaultConfigPath("settings.json"), "Settings file")
	logFile      = flag.String("log-file", "", "Log file path (default: stderr only)")

	listDevices = flag.Bool("list-devices", false, "List output devices and exit")
	stats       = flag.Bool("stats", false, "Print cache statistics after the command")

	playSound = flag.String("play", "", "Play a library sound by id or name")
	playFile  = flag.String("file", "", "Play an audio file directly")
	volume    = flag.Float64("volume", 0, "Volume slider override in [0,1] (default: settings)")

	waveformPath = flag.String("waveform", "", "Print waveform peaks for an audio file and exit")
	peaks        = flag.Int("peaks", waveform.DefaultPeaks, "Number of waveform peaks")

	preload     = flag.Bool("preload", false, "Decode the whole library into the cache before playing")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatalf("error opening log file: %v", err)
		}
		defer func() { _ = f.Close() }()
		log.SetOutput(io.MultiWriter(os.Stderr, f))
	}

	backend := device.NewOtoBackend()

	if *listDevices {
		dir, err := device.NewDirectory(backend)
		if err != nil {
			log.Fatalf("Failed to enumerate devices: %v", err)
		}
		for _, d := range dir.List() {
			marker := " "
			if d.IsDefault {
				marker = "*"
			}
			fmt.Printf("%s %-20s %s\n", marker, d.ID, d.Name)
		}
		return
	}

	settings, err := library.LoadSettings(*settingsPath)
	if err != nil {
		log.Printf("Failed to load settings, using defaults: %v", err)
	}
	lib, err := library.Load(*soundsPath)
	if err != nil {
		log.Fatalf("Failed to load sound library: %v", err)
	}

	c := cache.New(settings.CacheBudgetMB<<20, decode.File)

	if *waveformPath != "" {
		printWaveform(c, *waveformPath, *peaks)
		printStats(c)
		return
	}

	mgr := engine.NewManager(engine.Config{
		Backend: backend,
		Cache:   c,
		Sink:    logSink{},
		Settings: func() engine.Settings {
			return engine.Settings{
				GlobalMultiplier:     settings.GlobalMultiplier,
				NormalizationEnabled: settings.NormalizationEnabled,
				TargetLoudness:       settings.TargetLoudness,
			}
		},
	})

	if *preload {
		paths := make(map[engine.SoundID]string)
		for _, s := range lib.Sounds() {
			paths[engine.SoundID(s.ID)] = s.FilePath
		}
		log.Printf("Preloading %d sounds...", len(paths))
		mgr.Preload(paths)
	}

	switch {
	case *playFile != "":
		playOne(mgr, settings, library.Sound{
			ID:       "file",
			Name:     filepath.Base(*playFile),
			FilePath: *playFile,
		})
	case *playSound != "":
		s, err := findSound(lib, *playSound)
		if err != nil {
			log.Fatalf("%v", err)
		}
		playOne(mgr, settings, s)
	default:
		if !*preload && !*stats {
			flag.Usage()
			os.Exit(2)
		}
	}

	printStats(c)
}

// playOne triggers a single sound over the default devices and blocks until
// it finishes or the process is interrupted.
func playOne(mgr *engine.Manager, settings library.Settings, s library.Sound) {
	vol := settings.DefaultVolume
	if s.Volume > 0 {
		vol = s.Volume
	}
	if *volume > 0 {
		vol = *volume
	}

	dev1 := device.ID(settings.MonitorDeviceID)
	dev2 := device.ID(settings.BroadcastDeviceID)
	if dev1 == "" {
		dev1 = "default"
	}
	if dev2 == "" {
		dev2 = "default"
	}

	id, err := mgr.Play(engine.PlayRequest{
		Sound:       engine.SoundID(s.ID),
		FilePath:    s.FilePath,
		Device1:     dev1,
		Device2:     dev2,
		Volume:      vol,
		TrimStartMs: s.TrimStartMs,
		TrimEndMs:   s.TrimEndMs,
	})
	if err != nil {
		log.Fatalf("Failed to play %s: %v", s.Name, err)
	}
	log.Printf("Playing %s (playback %s)", s.Name, id)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Printf("Interrupted, stopping playback")
		mgr.StopAll()
	}()

	waitForCompletion(mgr, id)
}

// waitForCompletion polls the manager until the playback leaves the active
// set. The log sink already reported the terminal event.
func waitForCompletion(mgr *engine.Manager, id engine.PlaybackID) {
	for {
		found := false
		for _, a := range mgr.ListActive() {
			if a == id {
				found = true
				break
			}
		}
		if !found {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func findSound(lib *library.Library, query string) (library.Sound, error) {
	if s, err := lib.Sound(query); err == nil {
		return s, nil
	}
	for _, s := range lib.Sounds() {
		if strings.EqualFold(s.Name, query) {
			return s, nil
		}
	}
	return library.Sound{}, fmt.Errorf("no sound with id or name %q", query)
}

func printWaveform(c *cache.Cache, path string, n int) {
	h, err := c.GetOrDecode(path)
	if err != nil {
		log.Fatalf("Failed to decode %s: %v", path, err)
	}
	defer h.Release()

	entry := h.Entry()
	pk := entry.Peaks
	if n != len(pk) {
		pk = waveform.Extract(entry.Buffer, n)
	}

	fmt.Printf("%s: %dms", filepath.Base(path), entry.Buffer.DurationMs())
	if entry.HasLoudness {
		fmt.Printf(", %.1f LUFS", entry.Loudness.LUFS)
	}
	fmt.Println()
	for _, v := range pk {
		fmt.Printf("%.3f ", v)
	}
	fmt.Println()
}

func printStats(c *cache.Cache) {
	if !*stats {
		return
	}
	s := c.Stats()
	fmt.Printf("cache: %d entries, %d/%d bytes, %d hits, %d misses, %d evictions, %d over-budget\n",
		s.Entries, s.ResidentBytes, s.Budget, s.Hits, s.Misses, s.Evictions, s.BudgetExceeded)
}

// logSink reports engine notifications through the standard logger. Progress
// is suppressed; it fires every 50ms and would drown the log.
type logSink struct{}

func (logSink) DecodeError(sound engine.SoundID, path string, err error) {
	log.Printf("Decode error for sound %s (%s): %v", sound, path, err)
}

func (logSink) PlaybackError(id engine.PlaybackID, err error) {
	log.Printf("Playback %s failed: %v", id, err)
}

func (logSink) PlaybackProgress(engine.PlaybackID, int64, int64, int) {}

func (logSink) PlaybackComplete(id engine.PlaybackID) {
	log.Printf("Playback %s complete", id)
}

func defaultConfigPath(name string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return name
	}
	return filepath.Join(dir, "sonicdeck", name)
}
