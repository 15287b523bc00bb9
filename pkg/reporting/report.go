/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: report.go
Description: Replay session reports for the Akaylee harness. Collects the outcome of
every replayed input, the coverage snapshot and the unique sites into one Report that
can be written as YAML for tooling or rendered as a table for the terminal.
*/

package reporting

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/kleascm/akaylee-repro/pkg/coverage"
	"github.com/kleascm/akaylee-repro/pkg/interfaces"
	"github.com/kleascm/akaylee-repro/pkg/repro"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// Report summarises one replay session
type Report struct {
	Title       string             `json:"title" yaml:"title"`
	SessionID   string             `json:"session_id" yaml:"session_id"`
	GeneratedAt time.Time          `json:"generated_at" yaml:"generated_at"`
	Mode        string             `json:"mode" yaml:"mode"`
	Config      repro.Config       `json:"config" yaml:"config"`
	Totals      Totals             `json:"totals" yaml:"totals"`
	Inputs      []InputReport      `json:"inputs" yaml:"inputs"`
	Coverage    *coverage.Coverage `json:"coverage" yaml:"coverage"`
	Branches    []string           `json:"branches,omitempty" yaml:"branches,omitempty"`
	TraceFiles  []string           `json:"trace_files,omitempty" yaml:"trace_files,omitempty"`
}

// InputReport is the outcome of one replayed input
type InputReport struct {
	Input    string `json:"input" yaml:"input"`
	Result   string `json:"result" yaml:"result"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
	Duration string `json:"duration" yaml:"duration"`

	NewCoverage bool `json:"new_coverage" yaml:"new_coverage"`
}

// Totals aggregates the session
type Totals struct {
	Inputs         int    `json:"inputs" yaml:"inputs"`
	Success        int    `json:"success" yaml:"success"`
	Invalid        int    `json:"invalid" yaml:"invalid"`
	Failure        int    `json:"failure" yaml:"failure"`
	Events         uint64 `json:"events" yaml:"events"`
	CoveredSites   int    `json:"covered_sites" yaml:"covered_sites"`
	UniqueBranches int    `json:"unique_branches" yaml:"unique_branches"`
	MergedRuns     int    `json:"merged_runs" yaml:"merged_runs"`
	DiscardedRuns  int    `json:"discarded_runs" yaml:"discarded_runs"`
	NewCoverage    int    `json:"new_coverage" yaml:"new_coverage"`
}

// NewReport builds the report of a finished (or aborted) session
func NewReport(g *repro.Guidance, outcomes []repro.Outcome) *Report {
	r := &Report{
		Title:       "Akaylee Replay Report",
		SessionID:   uuid.New().String(),
		GeneratedAt: time.Now(),
		Mode:        g.Mode().String(),
		Config:      g.Config(),
		Coverage:    g.Coverage().Snapshot(),
		TraceFiles:  g.TraceFiles(),
	}

	for _, o := range outcomes {
		in := InputReport{
			Input:       o.Input,
			Result:      o.Result.String(),
			Duration:    o.Duration.Round(time.Microsecond).String(),
			NewCoverage: o.NewCoverage,
		}
		if o.Err != nil {
			in.Error = o.Err.Error()
		}
		r.Inputs = append(r.Inputs, in)
		if o.NewCoverage {
			r.Totals.NewCoverage++
		}

		switch o.Result {
		case interfaces.ResultSuccess:
			r.Totals.Success++
		case interfaces.ResultInvalid:
			r.Totals.Invalid++
		default:
			r.Totals.Failure++
		}
	}

	r.Totals.Inputs = len(outcomes)
	r.Totals.Events = g.Coverage().Events()
	r.Totals.CoveredSites = g.Coverage().NonZeroCount()
	if branches, ok := g.BranchesCovered(); ok {
		r.Branches = branches
		r.Totals.UniqueBranches = len(branches)
		r.Totals.MergedRuns, r.Totals.DiscardedRuns = g.MergeStats()
	}

	return r
}

// WriteYAML saves the report to path, creating parent directories
func (r *Report) WriteYAML(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// ReadYAML loads a report written by WriteYAML
func ReadYAML(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &r, nil
}

// RenderTable renders the per-input outcomes as a text table
func (r *Report) RenderTable() string {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Input", "Result", "New", "Duration", "Error"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT})

	for _, in := range r.Inputs {
		fresh := ""
		if in.NewCoverage {
			fresh = "+"
		}
		table.Append([]string{filepath.Base(in.Input), in.Result, fresh, in.Duration, in.Error})
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total %d", r.Totals.Inputs),
		fmt.Sprintf("%d ok / %d invalid / %d failed", r.Totals.Success, r.Totals.Invalid, r.Totals.Failure),
		fmt.Sprintf("%d new", r.Totals.NewCoverage),
		fmt.Sprintf("%d sites", r.Totals.CoveredSites),
		"",
	})

	table.Render()
	return buf.String()
}

// WriteBranches writes one site description per line
func WriteBranches(w io.Writer, branches []string) error {
	bw := bufio.NewWriter(w)
	for _, b := range branches {
		if _, err := bw.WriteString(b + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
