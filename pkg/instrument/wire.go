/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: wire.go
Description: Wire format for instrumentation events. Instrumented targets write one JSON
record per line, tagged with the name of the thread that produced it. This package turns
those records into TraceEvent values and back.
*/

package instrument

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/kleascm/akaylee-repro/pkg/interfaces"
)

// DefaultThread is used for records that carry no thread name
const DefaultThread = "main"

// Event kinds on the wire
const (
	KindBranch = "branch"
	KindCall   = "call"
	KindReturn = "return"
	KindAlloc  = "alloc"
)

// maxLineSize bounds a single wire record
const maxLineSize = 1 << 20

// ErrUnknownKind is returned for records whose kind is not recognised
var ErrUnknownKind = errors.New("unknown event kind")

// Record is the JSON representation of one event
type Record struct {
	Thread string `json:"thread,omitempty"`
	Kind   string `json:"kind"`
	interfaces.Site
	Arm     int    `json:"arm,omitempty"`
	Invoked string `json:"invoked,omitempty"`
	Size    int    `json:"size,omitempty"`
}

// Event converts the record into a TraceEvent
func (r *Record) Event() (interfaces.TraceEvent, error) {
	switch r.Kind {
	case KindBranch:
		return interfaces.BranchEvent{Site: r.Site, Arm: r.Arm}, nil
	case KindCall:
		return interfaces.CallEvent{Site: r.Site, InvokedMethod: r.Invoked}, nil
	case KindReturn:
		return interfaces.ReturnEvent{Site: r.Site}, nil
	case KindAlloc:
		return interfaces.AllocEvent{Site: r.Site, Size: r.Size}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, r.Kind)
	}
}

// Decode parses a single wire line
func Decode(line []byte) (string, interfaces.TraceEvent, error) {
	var rec Record
	if err := json.Unmarshal(line, &rec); err != nil {
		return "", nil, fmt.Errorf("failed to decode event record: %w", err)
	}
	ev, err := rec.Event()
	if err != nil {
		return "", nil, err
	}
	thread := rec.Thread
	if thread == "" {
		thread = DefaultThread
	}
	return thread, ev, nil
}

// Encode renders an event produced by thread as a wire line (without newline)
func Encode(thread string, ev interfaces.TraceEvent) ([]byte, error) {
	rec := Record{Thread: thread, Site: ev.Location()}
	switch e := ev.(type) {
	case interfaces.BranchEvent:
		rec.Kind = KindBranch
		rec.Arm = e.Arm
	case interfaces.CallEvent:
		rec.Kind = KindCall
		rec.Invoked = e.InvokedMethod
	case interfaces.ReturnEvent:
		rec.Kind = KindReturn
	case interfaces.AllocEvent:
		rec.Kind = KindAlloc
		rec.Size = e.Size
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownKind, ev)
	}
	return json.Marshal(&rec)
}

// Decoder reads wire records from a stream.
// Blank lines and lines starting with '#' are skipped.
type Decoder struct {
	scanner *bufio.Scanner
	line    int
}

// NewDecoder creates a decoder reading from r
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Decoder{scanner: scanner}
}

// Next returns the next event and the thread that produced it.
// Returns io.EOF once the stream is exhausted.
func (d *Decoder) Next() (string, interfaces.TraceEvent, error) {
	for d.scanner.Scan() {
		d.line++
		line := bytes.TrimSpace(d.scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		thread, ev, err := Decode(line)
		if err != nil {
			return "", nil, fmt.Errorf("line %d: %w", d.line, err)
		}
		return thread, ev, nil
	}
	if err := d.scanner.Err(); err != nil {
		return "", nil, fmt.Errorf("failed to read event stream: %w", err)
	}
	return "", nil, io.EOF
}
