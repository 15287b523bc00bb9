/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: sequencer.go
Description: Input sequencing for the replay guidance. Opens the saved inputs one at a
time as buffered streams and keeps the cursor on the current file until its run has
been handled.
*/

package repro

import (
	"bufio"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// inputStream is a buffered reader over one open input file.
// Close may be called any number of times, by the target and by the
// guidance; every call reports the result of the first close.
type inputStream struct {
	*bufio.Reader
	file *os.File

	once sync.Once
	err  error
}

func (s *inputStream) Close() error {
	s.once.Do(func() {
		s.err = s.file.Close()
	})
	return s.err
}

// sequencer walks the input files in order. The cursor only moves
// forward and only when a run has been handled.
type sequencer struct {
	files   []string
	next    int
	current *inputStream
	log     logrus.FieldLogger
}

func newSequencer(files []string, log logrus.FieldLogger) *sequencer {
	return &sequencer{files: append([]string(nil), files...), log: log}
}

func (s *sequencer) hasInput() bool {
	return s.next < len(s.files)
}

func (s *sequencer) path() string {
	if !s.hasInput() {
		return ""
	}
	return s.files[s.next]
}

func (s *sequencer) open() (*inputStream, error) {
	if !s.hasInput() {
		return nil, &IOError{Op: "open", Err: ErrNoMoreInputs}
	}
	if s.current != nil {
		// Unhandled previous run; nothing else will close it.
		if err := s.current.Close(); err != nil {
			s.log.WithFields(logrus.Fields{
				"input": s.path(),
				"error": err,
			}).Warn("Failed to close unhandled input")
		}
		s.current = nil
	}
	path := s.files[s.next]
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	s.current = &inputStream{Reader: bufio.NewReader(f), file: f}
	return s.current, nil
}

// closeCurrent releases the stream of the current run, if any
func (s *sequencer) closeCurrent() error {
	if s.current == nil {
		return nil
	}
	stream := s.current
	s.current = nil
	if err := stream.Close(); err != nil {
		return &IOError{Op: "close", Path: s.path(), Err: err}
	}
	return nil
}

func (s *sequencer) advance() {
	if s.next < len(s.files) {
		s.next++
	}
}
