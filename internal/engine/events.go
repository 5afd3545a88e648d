// ABOUTME: Event sink contract for playback notifications
// ABOUTME: The engine emits decode errors, playback errors, progress, and completion
package engine

// Sink receives engine notifications. Implementations must be safe for
// concurrent use; calls arrive from session goroutines and from Play.
//
// Ordering guarantees per PlaybackID: PlaybackComplete or PlaybackError is
// delivered at most once, strictly after both device streams have stopped,
// and no PlaybackProgress for that id follows it.
type Sink interface {
	// DecodeError reports a failed decode attempt. Decode failures are
	// fatal to that attempt only and are never cached.
	DecodeError(sound SoundID, path string, err error)

	// PlaybackError reports a session that failed to start or died on a
	// device error. It is distinct from completion.
	PlaybackError(id PlaybackID, err error)

	// PlaybackProgress reports elapsed playback time, emitted every
	// 50-100ms while a session plays.
	PlaybackProgress(id PlaybackID, elapsedMs, totalMs int64, pct int)

	// PlaybackComplete reports a session that finished or was stopped.
	PlaybackComplete(id PlaybackID)
}

// NopSink discards all notifications.
type NopSink struct{}

func (NopSink) DecodeError(SoundID, string, error)             {}
func (NopSink) PlaybackError(PlaybackID, error)                {}
func (NopSink) PlaybackProgress(PlaybackID, int64, int64, int) {}
func (NopSink) PlaybackComplete(PlaybackID)                    {}
