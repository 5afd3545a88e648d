// ABOUTME: Cached device directory over a backend
// ABOUTME: Enumeration is expensive on some platforms, so it happens only on refresh
package device

import (
	"fmt"
	"sync"
)

// Directory caches the backend's device list. Lookups never hit the
// platform API; Refresh re-enumerates on demand (typically on startup and
// on a device-change notification).
type Directory struct {
	backend Backend

	mu      sync.RWMutex
	devices []Info
}

// NewDirectory builds a directory and performs the initial enumeration.
func NewDirectory(backend Backend) (*Directory, error) {
	d := &Directory{backend: backend}
	if err := d.Refresh(); err != nil {
		return nil, err
	}
	return d, nil
}

// Refresh re-enumerates devices from the backend.
func (d *Directory) Refresh() error {
	devices, err := d.backend.Devices()
	if err != nil {
		return fmt.Errorf("failed to enumerate devices: %w", err)
	}

	d.mu.Lock()
	d.devices = devices
	d.mu.Unlock()
	return nil
}

// List returns the cached device list.
func (d *Directory) List() []Info {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Info(nil), d.devices...)
}

// Lookup finds a cached device by id.
func (d *Directory) Lookup(id ID) (Info, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, info := range d.devices {
		if info.ID == id {
			return info, nil
		}
	}
	return Info{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Default returns the default output device, or the first device when the
// backend marks none.
func (d *Directory) Default() (Info, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, info := range d.devices {
		if info.IsDefault {
			return info, nil
		}
	}
	if len(d.devices) > 0 {
		return d.devices[0], nil
	}
	return Info{}, fmt.Errorf("%w: no output devices", ErrNotFound)
}
