// ABOUTME: Application settings with JSON persistence
// ABOUTME: Missing files and missing fields fall back to sensible defaults
package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Settings are the user-tunable knobs. Zero values in the file mean "use
// the default", so an older settings file keeps working after upgrades.
type Settings struct {
	// GlobalMultiplier uniformly boosts all output, clamped to [1,3] at
	// playback time.
	GlobalMultiplier float64 `json:"global_multiplier,omitempty"`
	// DefaultVolume is the slider position for sounds without their own.
	DefaultVolume float64 `json:"default_volume,omitempty"`

	NormalizationEnabled bool `json:"normalization_enabled"`
	// TargetLoudness is the normalization target in LUFS.
	TargetLoudness float64 `json:"target_loudness,omitempty"`

	MonitorDeviceID   string `json:"monitor_device_id,omitempty"`
	BroadcastDeviceID string `json:"broadcast_device_id,omitempty"`

	CacheBudgetMB int64 `json:"cache_budget_mb,omitempty"`
}

// DefaultSettings returns the out-of-box configuration.
func DefaultSettings() Settings {
	return Settings{
		GlobalMultiplier:     1.0,
		DefaultVolume:        0.7,
		NormalizationEnabled: true,
		TargetLoudness:       -14.0,
		CacheBudgetMB:        256,
	}
}

// LoadSettings reads settings from path, returning defaults if the file
// does not exist.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("failed to read settings: %w", err)
	}

	if err := json.Unmarshal(data, &s); err != nil {
		return DefaultSettings(), fmt.Errorf("failed to parse settings: %w", err)
	}
	s.fillDefaults()
	return s, nil
}

// SaveSettings writes settings to path atomically.
func SaveSettings(path string, s Settings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	return writeAtomic(path, data)
}

func (s *Settings) fillDefaults() {
	d := DefaultSettings()
	if s.GlobalMultiplier <= 0 {
		s.GlobalMultiplier = d.GlobalMultiplier
	}
	if s.DefaultVolume <= 0 {
		s.DefaultVolume = d.DefaultVolume
	}
	if s.TargetLoudness == 0 {
		s.TargetLoudness = d.TargetLoudness
	}
	if s.CacheBudgetMB <= 0 {
		s.CacheBudgetMB = d.CacheBudgetMB
	}
}
