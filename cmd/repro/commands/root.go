/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: root.go
Description: Command tree for the Akaylee replay harness. Declares the cobra commands,
their flags and the viper keys each flag is bound to.
*/

package commands

import (
	"time"

	"github.com/kleascm/akaylee-repro/pkg/execution"
	"github.com/kleascm/akaylee-repro/pkg/repro"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// bindFlags binds viper keys to the named flags of a flag set
func bindFlags(flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		viper.BindPFlag(key, flags.Lookup(name))
	}
}

// NewRootCommand builds the akaylee-repro command tree
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "akaylee-repro",
		Short: "Akaylee Repro - replay saved inputs against an instrumented target",
		Long: `Akaylee Repro re-executes an instrumented target once per saved input and
collects the instrumentation events of every run. Runs can be reduced to the set of
unique branch and call sites they reached, written out as per-thread traces, or
folded into an aggregate coverage summary.`,
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add persistent flags
	persistent := rootCmd.PersistentFlags()
	persistent.String("config", "", "Configuration file path")
	persistent.String("log-level", "info", "Logging level (debug, info, warn, error)")
	persistent.String("log-format", "custom", "Log format (text, json, custom)")
	persistent.String("log-file", "", "Rotated log file (console only when empty)")
	persistent.Int("log-max-size", 100, "Maximum log file size in megabytes")
	persistent.Int("log-max-backups", 10, "Maximum number of rotated log files to keep")
	persistent.Bool("log-compress", false, "Compress rotated log files")
	persistent.Bool("log-colors", true, "Colorize console output")

	bindFlags(persistent, map[string]string{
		"config":          "config",
		"log_level":       "log-level",
		"log_format":      "log-format",
		"log_file":        "log-file",
		"log_max_size":    "log-max-size",
		"log_max_backups": "log-max-backups",
		"log_compress":    "log-compress",
		"log_colors":      "log-colors",
	})

	// Add replay command
	replayCmd := &cobra.Command{
		Use:   "replay [flags] INPUT...",
		Short: "Replay saved inputs against the target",
		Long: `Replay every input file (directories contribute their files in name order)
against the target. With --log-unique-branches the distinct branch and call sites are
printed at the end; with --trace-dir every execution thread gets its own event log.`,
		Args: cobra.MinimumNArgs(1),
		RunE: RunReplay,
	}

	flags := replayCmd.Flags()
	flags.String("target", "", "Path to instrumented target binary (required)")
	flags.StringSlice("args", []string{}, "Command-line arguments for target")
	flags.StringSlice("env", []string{}, "Extra environment variables for target")
	flags.Duration("timeout", 30*time.Second, "Maximum execution time per input")
	flags.Int("invalid-exit-code", execution.DefaultInvalidExitCode, "Exit status reported by the target for invalid inputs")
	flags.Bool("log-unique-branches", false, "Collect unique branch and call sites")
	flags.Bool("ignore-invalid-coverage", false, "Only merge sites from successful runs")
	flags.String("trace-dir", "", "Directory for per-thread trace logs")
	flags.String("report", "", "Write a YAML session report to this file")
	flags.String("branches-out", "", "Write unique branches to this file instead of stdout")
	flags.String("metrics-dir", "", "Write a JSON session result under this directory")

	replayCmd.MarkFlagRequired("target")

	replayKeys := map[string]string{
		"target":                       "target",
		"target_args":                  "args",
		"target_env":                   "env",
		"timeout":                      "timeout",
		"invalid_exit_code":            "invalid-exit-code",
		repro.KeyLogUniqueBranches:     "log-unique-branches",
		repro.KeyIgnoreInvalidCoverage: "ignore-invalid-coverage",
		repro.KeyTraceDir:              "trace-dir",
		"report":                       "report",
		"branches_out":                 "branches-out",
		"metrics_dir":                  "metrics-dir",
	}

	// Add check command for built-in self-checks
	checkCmd := &cobra.Command{
		Use:   "check [flags] INPUT...",
		Short: "Perform built-in self-checks before a replay",
		Long: `Verify that every input is readable, the target is executable and the trace
directory is writable. Useful as a CI gate before a long replay session.`,
		RunE: PerformSelfCheck,
	}
	checkCmd.Flags().String("target", "", "Path to instrumented target binary")
	checkCmd.Flags().String("trace-dir", "", "Directory for per-thread trace logs")

	// replay and check share keys, so each binds its own flags when it runs
	replayCmd.PreRun = func(cmd *cobra.Command, args []string) {
		bindFlags(cmd.Flags(), replayKeys)
	}
	checkCmd.PreRun = func(cmd *cobra.Command, args []string) {
		bindFlags(cmd.Flags(), map[string]string{
			"target":          "target",
			repro.KeyTraceDir: "trace-dir",
		})
	}

	rootCmd.AddCommand(replayCmd, checkCmd)
	return rootCmd
}
