/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: check.go
Description: Self-check command for the Akaylee replay harness. Verifies that every
input can be opened, the target is executable and the trace directory is writable
before a long replay session is started.
*/

package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kleascm/akaylee-repro/pkg/interfaces"
	"github.com/kleascm/akaylee-repro/pkg/repro"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// PerformSelfCheck validates the prerequisites of a replay session
func PerformSelfCheck(cmd *cobra.Command, args []string) error {
	if err := LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	out := cmd.OutOrStdout()

	failures := 0
	report := func(name string, err error) {
		if err != nil {
			failures++
			fmt.Fprintf(out, "❌ %s: %v\n", name, err)
			return
		}
		fmt.Fprintf(out, "✅ %s\n", name)
	}

	files, err := ExpandInputs(args)
	report("inputs found", err)

	// Walk the inputs the same way a replay would
	guidance := repro.New(files, repro.Config{})
	for guidance.HasInput() {
		path := guidance.CurrentInput()
		in, err := guidance.GetInput()
		if err == nil {
			_, err = io.Copy(io.Discard, in)
		}
		report("input "+path, err)
		if err := guidance.HandleResult(interfaces.ResultSuccess, nil); err != nil {
			report("input "+path, err)
			break
		}
	}

	if target := viper.GetString("target"); target != "" {
		report("target "+target, checkExecutable(target))
	}

	config := repro.ConfigFromViper(viper.GetViper())
	if config.Mode() == repro.ModeTrace {
		report("trace directory "+config.TraceDir, checkWritable(config.TraceDir))
	}

	if failures > 0 {
		return fmt.Errorf("%d check(s) failed", failures)
	}
	fmt.Fprintln(out, "✨ All checks passed")
	return nil
}

func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return errors.New("is a directory")
	}
	if info.Mode().Perm()&0111 == 0 {
		return errors.New("not executable")
	}
	return nil
}

func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".akaylee-check-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
