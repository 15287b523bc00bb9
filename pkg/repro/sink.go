/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: sink.go
Description: Event sinks for the replay guidance. A sink receives every execution event of one
thread during one run and forwards it to the coverage summary, the unique site set or
the thread's trace log depending on the session mode.
*/

package repro

import (
	"fmt"
	"sync"

	"github.com/kleascm/akaylee-repro/pkg/coverage"
	"github.com/kleascm/akaylee-repro/pkg/interfaces"
	"github.com/sirupsen/logrus"
)

// EventSink consumes the events of one execution thread during one run.
// Every sink forwards to the coverage summary first.
type EventSink interface {
	HandleEvent(ev interfaces.TraceEvent)
}

// PlainSink only updates the coverage summary
type PlainSink struct {
	coverage *coverage.Summary
}

func (s *PlainSink) HandleEvent(ev interfaces.TraceEvent) {
	s.coverage.HandleEvent(ev)
}

// DedupSink records a description of every branch arm and call site
// into the set of the current run
type DedupSink struct {
	coverage *coverage.Summary
	cache    *SiteCache
	run      *siteSet
}

func (s *DedupSink) HandleEvent(ev interfaces.TraceEvent) {
	s.coverage.HandleEvent(ev)

	switch e := ev.(type) {
	case interfaces.BranchEvent:
		s.run.add(s.cache.Lookup(interfaces.BranchKey(e.IID, e.Arm), func() string {
			return DescribeBranch(e)
		}))
	case interfaces.CallEvent:
		s.run.add(s.cache.Lookup(interfaces.CallKey(e.IID), func() string {
			return DescribeCall(e)
		}))
	}
}

// TraceSink appends the textual form of every event to a thread's trace log
type TraceSink struct {
	coverage *coverage.Summary
	stream   *traceStream
	log      logrus.FieldLogger
	warnOnce sync.Once
}

func (s *TraceSink) HandleEvent(ev interfaces.TraceEvent) {
	s.coverage.HandleEvent(ev)

	if err := s.stream.writeLine(ev.String()); err != nil {
		s.warnOnce.Do(func() {
			s.log.WithFields(logrus.Fields{
				"trace_file": s.stream.path,
				"error":      err,
			}).Warn("Failed to write trace event")
		})
	}
}

// DescribeBranch renders the canonical description of a branch arm
func DescribeBranch(e interfaces.BranchEvent) string {
	return fmt.Sprintf("(%09d) %s#%s():%d [%d]",
		e.IID, e.ContainingClass, e.ContainingMethod, e.Line, e.Arm)
}

// DescribeCall renders the canonical description of a call site
func DescribeCall(e interfaces.CallEvent) string {
	return fmt.Sprintf("(%09d) %s#%s():%d --> %s",
		e.IID, e.ContainingClass, e.ContainingMethod, e.Line, e.InvokedMethod)
}
