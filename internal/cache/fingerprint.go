// ABOUTME: Cache fingerprints from file metadata
// ABOUTME: Path + modification time + size detects on-disk changes without hashing
package cache

import (
	"fmt"
	"os"
)

// fingerprint identifies one on-disk version of an audio file. A cached
// entry is valid only while the live metadata still matches; any change to
// mtime or size invalidates it without reading file content.
type fingerprint struct {
	path  string
	mtime int64 // UnixNano
	size  int64
}

func fingerprintFile(path string) (fingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return fingerprint{}, fmt.Errorf("failed to stat audio file: %w", err)
	}
	return fingerprint{
		path:  path,
		mtime: info.ModTime().UnixNano(),
		size:  info.Size(),
	}, nil
}

// key serializes the fingerprint for single-flight grouping.
func (fp fingerprint) key() string {
	return fmt.Sprintf("%s|%d|%d", fp.path, fp.mtime, fp.size)
}
