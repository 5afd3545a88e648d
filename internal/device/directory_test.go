// ABOUTME: Tests for the cached device directory
// ABOUTME: Uses a stub backend to control the device list
package device

import (
	"errors"
	"testing"
)

type stubBackend struct {
	devices []Info
	err     error
}

func (b *stubBackend) Devices() ([]Info, error) { return b.devices, b.err }

func (b *stubBackend) PreferredConfig(ID) (StreamConfig, error) {
	return StreamConfig{SampleRate: 48000, Channels: 2}, nil
}

func (b *stubBackend) Open(ID, StreamConfig, Render) (Stream, error) {
	return nil, ErrOpenFailed
}

func TestDirectoryLookup(t *testing.T) {
	d, err := NewDirectory(&stubBackend{devices: []Info{
		{ID: "speakers", Name: "Speakers", IsDefault: true},
		{ID: "cable", Name: "Virtual Cable"},
	}})
	if err != nil {
		t.Fatalf("NewDirectory failed: %v", err)
	}

	info, err := d.Lookup("cable")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if info.Name != "Virtual Cable" {
		t.Errorf("Lookup name = %q, want %q", info.Name, "Virtual Cable")
	}

	if _, err := d.Lookup("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Lookup unknown: err = %v, want ErrNotFound", err)
	}

	def, err := d.Default()
	if err != nil {
		t.Fatalf("Default failed: %v", err)
	}
	if def.ID != "speakers" {
		t.Errorf("Default = %s, want speakers", def.ID)
	}
}

func TestDirectoryRefreshReplacesList(t *testing.T) {
	backend := &stubBackend{devices: []Info{{ID: "a", Name: "A"}}}
	d, err := NewDirectory(backend)
	if err != nil {
		t.Fatalf("NewDirectory failed: %v", err)
	}

	backend.devices = []Info{{ID: "b", Name: "B"}}
	if _, err := d.Lookup("b"); err == nil {
		t.Error("Lookup saw new device before Refresh")
	}

	if err := d.Refresh(); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if _, err := d.Lookup("b"); err != nil {
		t.Errorf("Lookup after Refresh failed: %v", err)
	}
	if _, err := d.Lookup("a"); !errors.Is(err, ErrNotFound) {
		t.Error("Stale device survived Refresh")
	}
}

func TestDirectoryEnumerationFailure(t *testing.T) {
	if _, err := NewDirectory(&stubBackend{err: errors.New("backend down")}); err == nil {
		t.Error("Expected NewDirectory to fail when enumeration fails")
	}
}

func TestDirectoryDefaultFallsBackToFirst(t *testing.T) {
	d, err := NewDirectory(&stubBackend{devices: []Info{{ID: "x", Name: "X"}}})
	if err != nil {
		t.Fatalf("NewDirectory failed: %v", err)
	}
	def, err := d.Default()
	if err != nil {
		t.Fatalf("Default failed: %v", err)
	}
	if def.ID != "x" {
		t.Errorf("Default = %s, want x", def.ID)
	}
}
