/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: errors.go
Description: Error types for the replay guidance. Input open and close failures are fatal to a
session and are reported as IOError values.
*/

package repro

import (
	"errors"
	"fmt"
)

// ErrNoMoreInputs is returned when an input is requested past the last file
var ErrNoMoreInputs = errors.New("no more inputs to replay")

// IOError reports a failure to open or close an input file.
// It aborts the replay session.
type IOError struct {
	Op   string // "open" or "close"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %s input %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// IsIOError reports whether err is or wraps an IOError
func IsIOError(err error) bool {
	var ioErr *IOError
	return errors.As(err, &ioErr)
}
