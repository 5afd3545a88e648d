// ABOUTME: Typed decode error carrying the failed file path
// ABOUTME: Wraps the sentinel taxonomy so errors.Is still works
package decode

import "fmt"

// Error reports a decode failure for one file. It wraps the underlying
// cause, so errors.Is(err, ErrCorrupt) and friends see through it.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
