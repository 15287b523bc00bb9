/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: guidance.go
Description: Replay guidance for the Akaylee harness. Hands a fixed, ordered set of
saved inputs to the outer execution loop one file at a time and routes the execution
events of every run into one of three sinks: unique site descriptions, per-thread trace
logs, or the coverage summary alone. Findings of a run are folded into the session
state when its result is handled.
*/

package repro

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/kleascm/akaylee-repro/pkg/coverage"
	"github.com/kleascm/akaylee-repro/pkg/interfaces"
	"github.com/sirupsen/logrus"
)

// Guidance replays saved inputs and collects what they exercise.
//
// The outer loop calls HasInput, GetInput, runs the target (which asks
// for one callback per execution thread through GenerateCallback) and
// then HandleResult, once per input file in order. Runs must not overlap;
// callbacks of a single run may be invoked concurrently.
type Guidance struct {
	config Config
	mode   Mode
	log    logrus.FieldLogger

	inputs   *sequencer
	coverage *coverage.Summary

	// Dedup mode only
	cache         *SiteCache
	currentRun    *siteSet
	allCovered    *siteSet
	mergedRuns    int
	discardedRuns int

	// Trace mode only
	traces *traceStreams
}

// Option customises a Guidance
type Option func(*Guidance)

// WithLogger sets the logger used as the error channel
func WithLogger(log logrus.FieldLogger) Option {
	return func(g *Guidance) {
		if log != nil {
			g.log = log
		}
	}
}

// WithSiteCache shares a description cache between guidances
func WithSiteCache(cache *SiteCache) Option {
	return func(g *Guidance) {
		if cache != nil {
			g.cache = cache
		}
	}
}

// WithCoverage accumulates into an existing coverage summary
func WithCoverage(summary *coverage.Summary) Option {
	return func(g *Guidance) {
		if summary != nil {
			g.coverage = summary
		}
	}
}

// New creates a guidance replaying files in order
func New(files []string, config Config, opts ...Option) *Guidance {
	g := &Guidance{
		config:   config,
		mode:     config.Mode(),
		log:      logrus.StandardLogger(),
		coverage: coverage.NewSummary(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.inputs = newSequencer(files, g.log)

	switch g.mode {
	case ModeDedup:
		if g.cache == nil {
			g.cache = NewSiteCache()
		}
		g.currentRun = newSiteSet()
		g.allCovered = newSiteSet()
	case ModeTrace:
		g.traces = newTraceStreams(config.TraceDir)
	}

	return g
}

// NewForFile creates a guidance replaying a single input file
func NewForFile(path string, config Config, opts ...Option) *Guidance {
	return New([]string{path}, config, opts...)
}

// Mode returns the routing strategy fixed at construction
func (g *Guidance) Mode() Mode { return g.mode }

// Config returns the options the guidance was built with
func (g *Guidance) Config() Config { return g.config }

// HasInput reports whether there are more input files to replay
func (g *Guidance) HasInput() bool {
	return g.inputs.hasInput()
}

// CurrentInput returns the path of the input being replayed
func (g *Guidance) CurrentInput() string {
	return g.inputs.path()
}

// GetInput opens the current input file as a buffered stream.
// The cursor does not move until HandleResult.
func (g *Guidance) GetInput() (io.ReadCloser, error) {
	stream, err := g.inputs.open()
	if err != nil {
		return nil, err
	}
	if g.currentRun != nil {
		g.currentRun.clear()
	}
	return stream, nil
}

// GenerateCallback returns a fresh callback for one execution thread
func (g *Guidance) GenerateCallback(thread string) interfaces.Callback {
	return g.Sink(thread).HandleEvent
}

// Sink builds the event sink for one execution thread.
// A trace log that cannot be created degrades to a plain sink.
func (g *Guidance) Sink(thread string) EventSink {
	switch g.mode {
	case ModeDedup:
		return &DedupSink{coverage: g.coverage, cache: g.cache, run: g.currentRun}

	case ModeTrace:
		stream, err := g.traces.get(thread)
		if err == nil {
			return &TraceSink{coverage: g.coverage, stream: stream, log: g.log}
		}
		path := g.traces.path(thread)
		if abs, absErr := filepath.Abs(path); absErr == nil {
			path = abs
		}
		g.log.WithFields(logrus.Fields{
			"trace_file": path,
			"thread":     thread,
			"error":      err,
		}).Error("Could not open trace file")
	}

	return &PlainSink{coverage: g.coverage}
}

// HandleResult finishes the current run: closes its input, reports
// invalid runs, merges unique sites when the result qualifies and moves
// on to the next file. Only a failure to close the input is returned.
func (g *Guidance) HandleResult(result interfaces.Result, cause error) error {
	if err := g.inputs.closeCurrent(); err != nil {
		return err
	}

	if result == interfaces.ResultInvalid && cause != nil {
		g.log.WithFields(logrus.Fields{
			"input": filepath.Base(g.inputs.path()),
			"error": fmt.Sprintf("%+v", cause),
		}).Error("Test run was invalid")
	}

	if g.allCovered != nil {
		if !g.config.IgnoreInvalidCoverage || result == interfaces.ResultSuccess {
			g.allCovered.mergeFrom(g.currentRun)
			g.mergedRuns++
		} else {
			g.discardedRuns++
		}
	}

	g.inputs.advance()
	return nil
}

// Coverage returns the live coverage summary of the session
func (g *Guidance) Coverage() *coverage.Summary {
	return g.coverage
}

// BranchesCovered returns the unique site descriptions merged so far,
// sorted. ok is false when unique branch logging is disabled.
func (g *Guidance) BranchesCovered() (branches []string, ok bool) {
	if g.allCovered == nil {
		return nil, false
	}
	return g.allCovered.sorted(), true
}

// CurrentRunSites returns the number of sites recorded by the current run
func (g *Guidance) CurrentRunSites() int {
	if g.currentRun == nil {
		return 0
	}
	return g.currentRun.len()
}

// MergeStats returns how many runs contributed to or were excluded
// from the unique site set
func (g *Guidance) MergeStats() (merged, discarded int) {
	return g.mergedRuns, g.discardedRuns
}

// TraceFiles lists the trace logs opened so far. The list survives
// Close, so it can be reported after the session has ended.
func (g *Guidance) TraceFiles() []string {
	if g.traces == nil {
		return nil
	}
	return g.traces.paths()
}

// Close ends the session and closes every trace log.
// Runs after Close are not supported.
func (g *Guidance) Close() error {
	var err error
	if cerr := g.inputs.closeCurrent(); cerr != nil {
		err = cerr
	}
	if g.traces != nil {
		if terr := g.traces.closeAll(); terr != nil && err == nil {
			err = terr
		}
	}
	return err
}
