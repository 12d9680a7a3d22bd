package resolver

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by a strict resolver when the directory does
	// not exist (or could not be looked up).
	ErrNotFound = errors.New("directory not found")

	// ErrCreateConflict is returned by a creating resolver when the store
	// refused to create a missing directory, or when something other than a
	// directory already occupies the path or one of its ancestors.
	ErrCreateConflict = errors.New("directory could not be created")

	// ErrParentUnresolvable is returned when a missing directory has no
	// parent that may be created: the path is "/" or lies outside the
	// resolver's boundary.
	ErrParentUnresolvable = errors.New("parent directory unresolvable")
)

// Error describes a failed resolution of Path.
//
// Err is always one of the package sentinels; Cause, when set, is the store
// error behind it. Both are reachable with errors.Is and errors.As.
type Error struct {
	Path  string
	Err   error
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("resolve %s: %v: %v", e.Path, e.Err, e.Cause)
	}
	return fmt.Sprintf("resolve %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}
