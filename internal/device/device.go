// ABOUTME: Output device abstraction
// ABOUTME: Backend capability interface and the device directory contract
package device

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports an unknown device id.
	ErrNotFound = errors.New("audio device not found")

	// ErrOpenFailed reports a stream that could not be opened on a known
	// device.
	ErrOpenFailed = errors.New("failed to open audio stream")
)

// ID is an opaque backend-specific device identifier.
type ID string

// Error reports a failure on one device. It wraps the underlying cause, so
// errors.Is(err, ErrNotFound) and friends see through it.
type Error struct {
	Device ID
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("device %s: %v", e.Device, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Info describes one output device.
type Info struct {
	ID        ID
	Name      string
	IsDefault bool
}

// StreamConfig is the format a stream renders at.
type StreamConfig struct {
	SampleRate int
	Channels   int
}

// Render fills out with interleaved samples at the stream's config. It runs
// on the backend's real-time path: it must not block, allocate heavily, or
// touch shared mutable state. Completion and errors are signalled elsewhere.
type Render func(out []float32)

// Stream is one open output stream. Err reports an asynchronous device
// failure after a successful open; Close is idempotent.
type Stream interface {
	Close() error
	Err() error
}

// Backend opens output streams on devices. One implementation exists per
// platform audio backend; everything above this interface is backend-agnostic.
type Backend interface {
	// Devices enumerates output devices. Called only on explicit refresh
	// or a device-change notification, never per play.
	Devices() ([]Info, error)

	// PreferredConfig reports the format the device wants to run at, so
	// callers can build their render path before opening.
	PreferredConfig(id ID) (StreamConfig, error)

	// Open starts a stream on the given device at the given config,
	// pulling samples through render.
	Open(id ID, cfg StreamConfig, render Render) (Stream, error)
}
