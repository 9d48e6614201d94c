package rename

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRoot is recorded when the target does not exist or is not a directory
	ErrInvalidRoot = errors.New("target is not a valid directory")

	// ErrNameCollision is recorded when the rename target already exists
	ErrNameCollision = errors.New("target name already exists")

	// ErrInvalidName is recorded when the transformed name is empty, "." or ".."
	ErrInvalidName = errors.New("transformed name is not a valid entry name")

	// ErrNoPatterns is returned by New when the pattern list is empty
	ErrNoPatterns = errors.New("at least one pattern is required")

	// ErrEmptyPattern is returned by New when a pattern is the empty string
	ErrEmptyPattern = errors.New("patterns must not be empty strings")
)

// Error describes a failed operation on one path (or pair of paths)
type Error struct {
	Op  string
	Old string
	New string
	Err error
}

func (e *Error) Error() string {
	if e.New == "" {
		return fmt.Sprintf("%s %q: %v", e.Op, e.Old, e.Err)
	}
	return fmt.Sprintf("%s %q -> %q: %v", e.Op, e.Old, e.New, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsCollision reports whether err is a name collision
func IsCollision(err error) bool {
	return errors.Is(err, ErrNameCollision)
}
