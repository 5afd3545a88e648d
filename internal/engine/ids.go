// ABOUTME: Identifier types for sounds and playback instances
// ABOUTME: PlaybackIDs are generated per trigger, SoundIDs come from the library
package engine

import "github.com/google/uuid"

// SoundID identifies a sound definition in the library.
type SoundID string

// PlaybackID identifies one active playback instance of a sound.
type PlaybackID string

func newPlaybackID() PlaybackID {
	return PlaybackID(uuid.New().String())
}
