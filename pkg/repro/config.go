/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: config.go
Description: Configuration for the replay guidance. The three recognised options are
read once when a Guidance is constructed and never change afterwards. Values come from
viper so they can be set from flags, a config file or AKAYLEE_REPRO_* environment vars.
*/

package repro

import (
	"github.com/spf13/viper"
)

// Viper keys for the replay options
const (
	KeyLogUniqueBranches     = "repro.log_unique_branches"
	KeyIgnoreInvalidCoverage = "repro.ignore_invalid_coverage"
	KeyTraceDir              = "repro.trace_dir"
)

// Mode is the event routing strategy of a replay session
type Mode int

const (
	ModePlain Mode = iota // Coverage summary only
	ModeDedup             // Unique branch and call site descriptions
	ModeTrace             // Per-thread trace logs
)

func (m Mode) String() string {
	switch m {
	case ModeDedup:
		return "dedup"
	case ModeTrace:
		return "trace"
	default:
		return "plain"
	}
}

// Config holds the replay options
type Config struct {
	// LogUniqueBranches collects the distinct branch and call sites of every run
	LogUniqueBranches bool `json:"log_unique_branches" yaml:"log_unique_branches"`

	// IgnoreInvalidCoverage only merges sites from successful runs.
	// Has no effect unless LogUniqueBranches is set.
	IgnoreInvalidCoverage bool `json:"ignore_invalid_coverage" yaml:"ignore_invalid_coverage"`

	// TraceDir receives one {thread}.log file per execution thread.
	// Ignored when LogUniqueBranches is set.
	TraceDir string `json:"trace_dir" yaml:"trace_dir"`
}

// Mode returns the routing strategy selected by the config.
// Dedup takes precedence over tracing.
func (c Config) Mode() Mode {
	switch {
	case c.LogUniqueBranches:
		return ModeDedup
	case c.TraceDir != "":
		return ModeTrace
	default:
		return ModePlain
	}
}

// ConfigFromViper reads the replay options from v
func ConfigFromViper(v *viper.Viper) Config {
	if v == nil {
		v = viper.GetViper()
	}
	return Config{
		LogUniqueBranches:     v.GetBool(KeyLogUniqueBranches),
		IgnoreInvalidCoverage: v.GetBool(KeyIgnoreInvalidCoverage),
		TraceDir:              v.GetString(KeyTraceDir),
	}
}
