/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: executor.go
Description: Process target for the Akaylee replay harness. Starts the instrumented
program once per input, feeds the input on stdin and reads the event records the
instrumentation writes to stdout. Events are demultiplexed per execution thread and
delivered to that thread's callback on its own goroutine, mirroring how the threads
ran inside the target. The exit status decides the outcome of the run.
*/

package execution

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/kleascm/akaylee-repro/pkg/instrument"
	"github.com/kleascm/akaylee-repro/pkg/interfaces"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultInvalidExitCode is the exit status instrumented targets use to
// signal that an input violated their assumptions
const DefaultInvalidExitCode = 2

// threadBuffer is the number of events queued per thread before the
// reader blocks
const threadBuffer = 256

// maxStderrTail bounds the stderr excerpt attached to failures
const maxStderrTail = 2048

// ProcessConfig describes how to run the instrumented program
type ProcessConfig struct {
	Target          string        `json:"target" yaml:"target"`                       // Path to the instrumented binary
	Args            []string      `json:"args" yaml:"args"`                           // Command-line arguments
	Env             []string      `json:"env" yaml:"env"`                             // Extra environment variables
	Timeout         time.Duration `json:"timeout" yaml:"timeout"`                     // Per-run limit (0 = none)
	InvalidExitCode int           `json:"invalid_exit_code" yaml:"invalid_exit_code"` // Exit status meaning INVALID
}

// ProcessTarget runs an instrumented program per replayed input
type ProcessTarget struct {
	config ProcessConfig
	log    logrus.FieldLogger
}

// NewProcessTarget creates a process target
func NewProcessTarget(config ProcessConfig, log logrus.FieldLogger) *ProcessTarget {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if config.InvalidExitCode == 0 {
		config.InvalidExitCode = DefaultInvalidExitCode
	}
	return &ProcessTarget{config: config, log: log}
}

// Execute runs the target on input and routes its events to callbacks.
// The returned error is the cause of a non-successful run.
func (p *ProcessTarget) Execute(ctx context.Context, input io.Reader, callbacks interfaces.CallbackFactory) (interfaces.Result, error) {
	if p.config.Target == "" {
		return interfaces.ResultFailure, errors.New("no target configured")
	}

	runCtx := ctx
	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, p.config.Target, p.config.Args...)
	cmd.Env = append(os.Environ(), p.config.Env...)
	cmd.Env = append(cmd.Env, "AKAYLEE_REPRO=1")
	cmd.Stdin = input

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return interfaces.ResultFailure, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	startTime := time.Now()
	if err := cmd.Start(); err != nil {
		return interfaces.ResultFailure, fmt.Errorf("failed to start target: %w", err)
	}

	decodeErr := dispatch(stdout, callbacks)
	waitErr := cmd.Wait()
	duration := time.Since(startTime)

	p.log.WithFields(logrus.Fields{
		"target":   p.config.Target,
		"duration": duration,
		"pid":      cmd.Process.Pid,
	}).Debug("Target finished")

	if runCtx.Err() == context.DeadlineExceeded {
		return interfaces.ResultFailure, fmt.Errorf("target timed out after %v", p.config.Timeout)
	}
	if err := ctx.Err(); err != nil {
		return interfaces.ResultFailure, fmt.Errorf("target interrupted: %w", err)
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return interfaces.ResultFailure, fmt.Errorf("process error: %w", waitErr)
		}
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return interfaces.ResultFailure, fmt.Errorf("target killed by %s%s", ws.Signal(), tail(&stderr))
		}
		if exitErr.ExitCode() == p.config.InvalidExitCode {
			return interfaces.ResultInvalid, fmt.Errorf("target rejected input (exit %d)%s", exitErr.ExitCode(), tail(&stderr))
		}
		return interfaces.ResultFailure, fmt.Errorf("target exited with status %d%s", exitErr.ExitCode(), tail(&stderr))
	}

	if decodeErr != nil {
		return interfaces.ResultFailure, fmt.Errorf("malformed event stream: %w", decodeErr)
	}
	return interfaces.ResultSuccess, nil
}

// dispatch decodes the event stream and hands each event to the
// goroutine of the thread that produced it. Per-thread order is kept.
// The stream is drained even after a decode error so the target never
// blocks on a full pipe.
func dispatch(stream io.Reader, callbacks interfaces.CallbackFactory) error {
	var group errgroup.Group
	queues := make(map[string]chan interfaces.TraceEvent)

	dec := instrument.NewDecoder(stream)
	var decodeErr error
	for {
		thread, ev, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			decodeErr = err
			_, _ = io.Copy(io.Discard, stream)
			break
		}

		queue, ok := queues[thread]
		if !ok {
			queue = make(chan interfaces.TraceEvent, threadBuffer)
			queues[thread] = queue
			cb := callbacks.GenerateCallback(thread)
			group.Go(func() error {
				for ev := range queue {
					cb(ev)
				}
				return nil
			})
		}
		queue <- ev
	}

	for _, queue := range queues {
		close(queue)
	}
	_ = group.Wait()
	return decodeErr
}

func tail(buf *bytes.Buffer) string {
	s := strings.TrimSpace(buf.String())
	if s == "" {
		return ""
	}
	if len(s) > maxStderrTail {
		s = s[len(s)-maxStderrTail:]
	}
	return ": " + s
}
