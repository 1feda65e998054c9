// Package ioutil holds small I/O plumbing for the CLI, which wraps the
// writer it hands to the printer and to display/newline.
package ioutil

import (
	"io"

	"github.com/pkg/errors"
)

// ErrWriter wraps an io.Writer and latches the first write error, so a
// sequence of unchecked Write calls (as the printer's recursive descent
// makes convenient) can be checked once at the end instead of at every
// call site. Once Err is set, Write becomes a no-op that keeps returning
// it.
//
// Grounded on internal/ngi.ErrWriter in this module's teacher.
type ErrWriter struct {
	w   io.Writer
	Err error
}

// NewErrWriter wraps w.
func NewErrWriter(w io.Writer) *ErrWriter {
	return &ErrWriter{w: w}
}

func (e *ErrWriter) Write(p []byte) (int, error) {
	if e.Err != nil {
		return 0, e.Err
	}
	n, err := e.w.Write(p)
	if err != nil {
		e.Err = errors.Wrap(err, "write failed")
	}
	return n, e.Err
}
