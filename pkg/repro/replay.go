/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: replay.go
Description: Replay driver for the guidance. Runs every saved input through a target
in order, collecting one outcome per input and noting which runs reached sites no
earlier run had covered.
*/

package repro

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/kleascm/akaylee-repro/pkg/coverage"
	"github.com/kleascm/akaylee-repro/pkg/interfaces"
	"github.com/sirupsen/logrus"
)

// Target executes the program under test on one input. It asks the
// factory for a callback per execution thread and returns the outcome of
// the run together with its cause, if any.
type Target interface {
	Execute(ctx context.Context, input io.Reader, callbacks interfaces.CallbackFactory) (interfaces.Result, error)
}

// TargetFunc adapts a function to the Target interface
type TargetFunc func(ctx context.Context, input io.Reader, callbacks interfaces.CallbackFactory) (interfaces.Result, error)

func (f TargetFunc) Execute(ctx context.Context, input io.Reader, callbacks interfaces.CallbackFactory) (interfaces.Result, error) {
	return f(ctx, input, callbacks)
}

// Outcome records how one input fared
type Outcome struct {
	Input    string            `json:"input" yaml:"input"`
	Result   interfaces.Result `json:"result" yaml:"result"`
	Err      error             `json:"-" yaml:"-"`
	Duration time.Duration     `json:"duration" yaml:"duration"`

	// NewCoverage is set when the run reached a site no earlier run of
	// the session had covered
	NewCoverage bool `json:"new_coverage" yaml:"new_coverage"`
}

// Replay runs every remaining input of g through target, in order.
// It stops early when ctx is cancelled between runs or when an input
// cannot be opened or closed; the outcomes collected so far are returned
// in both cases.
func Replay(ctx context.Context, g *Guidance, target Target) ([]Outcome, error) {
	var outcomes []Outcome
	seen := coverage.NewSummary()
	seen.UpdateBits(g.Coverage())

	for g.HasInput() {
		if err := ctx.Err(); err != nil {
			return outcomes, fmt.Errorf("replay interrupted: %w", err)
		}

		path := g.CurrentInput()
		input, err := g.GetInput()
		if err != nil {
			return outcomes, err
		}

		start := time.Now()
		result, cause := target.Execute(ctx, input, g)
		duration := time.Since(start)

		if err := g.HandleResult(result, cause); err != nil {
			return outcomes, err
		}

		fresh := seen.UpdateBits(g.Coverage())
		outcomes = append(outcomes, Outcome{
			Input:       path,
			Result:      result,
			Err:         cause,
			Duration:    duration,
			NewCoverage: fresh,
		})

		fields := logrus.Fields{
			"input":        path,
			"result":       result.String(),
			"duration":     duration,
			"new_coverage": fresh,
		}
		if cause != nil {
			fields["cause"] = cause.Error()
		}
		g.log.WithFields(fields).Debug("Input replayed")
	}

	return outcomes, nil
}
