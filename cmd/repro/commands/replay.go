/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: replay.go
Description: Replay command implementation for the Akaylee harness. Re-executes the
instrumented target once per saved input and reports the outcomes together with the
unique branches, per-thread traces or aggregate coverage the session produced.
*/

package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kleascm/akaylee-repro/pkg/coverage"
	"github.com/kleascm/akaylee-repro/pkg/execution"
	"github.com/kleascm/akaylee-repro/pkg/reporting"
	"github.com/kleascm/akaylee-repro/pkg/repro"
	"github.com/kleascm/akaylee-repro/pkg/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RunReplay replays the inputs named on the command line
func RunReplay(cmd *cobra.Command, args []string) error {
	if err := LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := SetupLogging()
	if err != nil {
		return err
	}
	defer logger.Close()
	log := logger.GetLogger()

	files, err := ExpandInputs(args)
	if err != nil {
		return err
	}

	config := repro.ConfigFromViper(viper.GetViper())
	if config.Mode() == repro.ModeTrace {
		if err := os.MkdirAll(config.TraceDir, 0755); err != nil {
			// Trace files will fail individually and replay continues
			log.WithError(err).Warn("Failed to create trace directory")
		}
	}

	session := coverage.NewSummary()
	guidance := repro.New(files, config, repro.WithLogger(log), repro.WithCoverage(session))
	defer func() {
		if err := guidance.Close(); err != nil {
			log.WithError(err).Warn("Failed to close trace files")
		}
	}()

	target := execution.NewProcessTarget(execution.ProcessConfig{
		Target:          viper.GetString("target"),
		Args:            viper.GetStringSlice("target_args"),
		Env:             viper.GetStringSlice("target_env"),
		Timeout:         viper.GetDuration("timeout"),
		InvalidExitCode: viper.GetInt("invalid_exit_code"),
	}, log)

	log.WithFields(logrus.Fields{
		"inputs": len(files),
		"mode":   config.Mode().String(),
		"target": viper.GetString("target"),
	}).Info("Replay started")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outcomes, replayErr := repro.Replay(ctx, guidance, target)
	for _, o := range outcomes {
		logger.LogRun(o.Input, o.Result.String(), o.Duration, o.Err)
	}

	report := reporting.NewReport(guidance, outcomes)
	out := cmd.OutOrStdout()
	fmt.Fprint(out, report.RenderTable())

	if branches, ok := guidance.BranchesCovered(); ok {
		if err := emitBranches(cmd, branches); err != nil {
			return err
		}
	}

	if path := viper.GetString("report"); path != "" {
		if err := report.WriteYAML(path); err != nil {
			return err
		}
		log.WithField("report", path).Info("Report written")
	}

	if dir := viper.GetString("metrics_dir"); dir != "" {
		path, err := utils.WriteMetricsResult(dir, "replay", report.SessionID, report)
		if err != nil {
			return err
		}
		log.WithField("metrics_file", path).Info("Metrics written")
	}

	logger.LogSummary(report.Totals.Inputs, report.Totals.CoveredSites, report.Totals.UniqueBranches, map[string]interface{}{
		"session_id":   report.SessionID,
		"mode":         report.Mode,
		"events":       session.Events(),
		"new_coverage": report.Totals.NewCoverage,
	})

	if replayErr != nil {
		if ctx.Err() == context.Canceled {
			return fmt.Errorf("replay interrupted after %d inputs", len(outcomes))
		}
		return fmt.Errorf("replay aborted: %w", replayErr)
	}
	return nil
}

// emitBranches writes the unique sites to branches_out, or stdout
func emitBranches(cmd *cobra.Command, branches []string) error {
	path := viper.GetString("branches_out")
	if path == "" {
		return reporting.WriteBranches(cmd.OutOrStdout(), branches)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create branches file: %w", err)
	}
	if err := reporting.WriteBranches(f, branches); err != nil {
		f.Close()
		return fmt.Errorf("failed to write branches file: %w", err)
	}
	return f.Close()
}
