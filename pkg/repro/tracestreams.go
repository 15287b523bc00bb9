/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: tracestreams.go
Description: Per-thread trace logs for the replay guidance. Every execution thread
identity owns one {thread}.log file in the trace directory, opened on first use and
kept open until the session is closed.
*/

package repro

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// traceStream is the trace log of one thread identity. Each event is
// written with a single Write call under the stream lock, so lines from
// concurrent writers never interleave.
type traceStream struct {
	mu     sync.Mutex
	file   *os.File
	path   string
	closed bool
}

func (s *traceStream) writeLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.file.WriteString(line + "\n")
	return err
}

// traceStreams maps thread identities to their trace logs. Streams stay
// open for the whole session; a thread name seen again in a later run
// keeps appending to the stream it already has. Closed streams remain
// registered so the session can still list the logs it wrote.
type traceStreams struct {
	dir string

	mu      sync.Mutex
	streams map[string]*traceStream
}

func newTraceStreams(dir string) *traceStreams {
	return &traceStreams{dir: dir, streams: make(map[string]*traceStream)}
}

// threadFileName maps path separators in a thread name to '_' so every
// log stays inside the trace directory
var threadFileName = strings.NewReplacer("/", "_", "\\", "_")

// path returns the trace log location for a thread identity
func (t *traceStreams) path(thread string) string {
	return filepath.Join(t.dir, threadFileName.Replace(thread)+".log")
}

// get returns the stream for thread, creating its file on first use
func (t *traceStreams) get(thread string) (*traceStream, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.streams[thread]; ok {
		return s, nil
	}

	path := t.path(thread)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("could not open trace file %s: %w", path, err)
	}
	s := &traceStream{file: f, path: path}
	t.streams[thread] = s
	return s, nil
}

// paths lists every trace log opened during the session, closed or not
func (t *traceStreams) paths() []string {
	t.mu.Lock()
	out := make([]string, 0, len(t.streams))
	for _, s := range t.streams {
		out = append(out, s.path)
	}
	t.mu.Unlock()

	sort.Strings(out)
	return out
}

// closeAll closes every stream that is still open. Only called at
// session teardown; later writes to a closed stream fail.
func (t *traceStreams) closeAll() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var errs []error
	for _, s := range t.streams {
		s.mu.Lock()
		if !s.closed {
			s.closed = true
			if err := s.file.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close trace file %s: %w", s.path, err))
			}
		}
		s.mu.Unlock()
	}
	return errors.Join(errs...)
}
