// Package volio reads label maps and writes energy maps, class maps and
// run manifests for the segenergy command line tool.
package volio

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned for file extensions volio cannot read or write.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrRank is returned when an image operation gets an array that is not 2D.
	ErrRank = errors.New("image needs a 2D array")
	// ErrBadMagic is returned when a raw volume stream has no valid header.
	ErrBadMagic = errors.New("not a segenergy raw volume")
	// ErrDType is returned when a raw volume holds a different element type
	// than requested.
	ErrDType = errors.New("raw volume element type mismatch")
)

// IOError wraps a failure of one volio operation on one path.
type IOError struct {
	Operation string
	Path      string
	Err       error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("volio %s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("volio %s %s: %v", e.Operation, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
