/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: commands_test.go
Description: End-to-end tests for the replay command tree using /bin/sh as the target.
*/

package commands_test

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/kleascm/akaylee-repro/cmd/repro/commands"
	"github.com/kleascm/akaylee-repro/pkg/reporting"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	firstInput = `{"thread":"main","kind":"call","iid":1,"class":"app/Main","method":"run","line":3,"invoked":"parse"}
{"thread":"main","kind":"branch","iid":2,"class":"app/Parser","method":"parse","line":9,"arm":1}
`
	secondInput = `{"thread":"main","kind":"branch","iid":2,"class":"app/Parser","method":"parse","line":9,"arm":1}
{"thread":"main","kind":"branch","iid":2,"class":"app/Parser","method":"parse","line":9,"arm":0}
`
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("requires /bin/sh")
	}
}

func writeInputs(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "corpus")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "id_000002"), []byte(secondInput), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "id_000001"), []byte(firstInput), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".state"), []byte("skip"), 0644))
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	cmd := commands.NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestExpandInputs(t *testing.T) {
	dir := writeInputs(t)
	extra := filepath.Join(t.TempDir(), "single")
	require.NoError(t, os.WriteFile(extra, nil, 0644))

	files, err := commands.ExpandInputs([]string{extra, dir})
	require.NoError(t, err)
	assert.Equal(t, []string{
		extra,
		filepath.Join(dir, "id_000001"),
		filepath.Join(dir, "id_000002"),
	}, files)

	_, err = commands.ExpandInputs([]string{filepath.Join(dir, "missing")})
	assert.Error(t, err)

	_, err = commands.ExpandInputs([]string{t.TempDir()})
	assert.Error(t, err)
}

func TestReplayUniqueBranches(t *testing.T) {
	requireShell(t)
	dir := writeInputs(t)
	out := t.TempDir()
	branchesOut := filepath.Join(out, "branches.txt")
	reportOut := filepath.Join(out, "report", "session.yaml")

	stdout, err := execute(t, "replay",
		"--log-format", "text",
		"--target", "/bin/sh",
		"--args=-c,cat",
		"--log-unique-branches",
		"--branches-out", branchesOut,
		"--report", reportOut,
		dir,
	)
	require.NoError(t, err)
	assert.Contains(t, stdout, "id_000001")
	assert.Contains(t, stdout, "SUCCESS")

	data, err := os.ReadFile(branchesOut)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"(000000001) app/Main#run():3 --> parse",
		"(000000002) app/Parser#parse():9 [0]",
		"(000000002) app/Parser#parse():9 [1]",
	}, strings.Split(strings.TrimSpace(string(data)), "\n"))

	report, err := reporting.ReadYAML(reportOut)
	require.NoError(t, err)
	assert.Equal(t, "dedup", report.Mode)
	assert.Equal(t, 2, report.Totals.Inputs)
	assert.Equal(t, 3, report.Totals.UniqueBranches)
	assert.NotEmpty(t, report.SessionID)
}

func TestReplayTraceDir(t *testing.T) {
	requireShell(t)
	dir := writeInputs(t)
	traces := filepath.Join(t.TempDir(), "traces")

	metrics := t.TempDir()

	_, err := execute(t, "replay",
		"--log-format", "text",
		"--target", "/bin/sh",
		"--args=-c,cat",
		"--trace-dir", traces,
		"--metrics-dir", metrics,
		dir,
	)
	require.NoError(t, err)

	written, err := filepath.Glob(filepath.Join(metrics, "replay", "*_replay_*.json"))
	require.NoError(t, err)
	assert.Len(t, written, 1)

	data, err := os.ReadFile(filepath.Join(traces, "main.log"))
	require.NoError(t, err)
	assert.Equal(t, "CALL(1, parse)\nBRANCH(2, 1)\nBRANCH(2, 1)\nBRANCH(2, 0)\n", string(data))
}

func TestReplayRequiresTarget(t *testing.T) {
	dir := writeInputs(t)
	_, err := execute(t, "replay", dir)
	assert.Error(t, err)
}

func TestCheck(t *testing.T) {
	requireShell(t)
	dir := writeInputs(t)

	stdout, err := execute(t, "check", "--target", "/bin/sh", "--trace-dir", filepath.Join(t.TempDir(), "traces"), dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "All checks passed")

	stdout, err = execute(t, "check", "--target", filepath.Join(dir, "id_000001"), dir)
	assert.Error(t, err)
	assert.Contains(t, stdout, "not executable")
}
