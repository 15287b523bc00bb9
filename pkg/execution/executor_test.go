/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: executor_test.go
Description: Tests for the process target. Uses /bin/sh as a stand-in instrumented
program that echoes recorded event streams back on stdout.
*/

package execution_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kleascm/akaylee-repro/pkg/execution"
	"github.com/kleascm/akaylee-repro/pkg/interfaces"
	"github.com/kleascm/akaylee-repro/pkg/repro"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects events per thread
type recorder struct {
	mu     sync.Mutex
	events map[string][]string
}

func newRecorder() *recorder {
	return &recorder{events: make(map[string][]string)}
}

func (r *recorder) GenerateCallback(thread string) interfaces.Callback {
	return func(ev interfaces.TraceEvent) {
		r.mu.Lock()
		r.events[thread] = append(r.events[thread], ev.String())
		r.mu.Unlock()
	}
}

func shTarget(t *testing.T, script string, timeout time.Duration) *execution.ProcessTarget {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("requires /bin/sh")
	}
	log, _ := test.NewNullLogger()
	return execution.NewProcessTarget(execution.ProcessConfig{
		Target:  "/bin/sh",
		Args:    []string{"-c", script},
		Timeout: timeout,
	}, log)
}

const recorded = `{"thread":"main","kind":"call","iid":1,"class":"app/Main","method":"run","line":3,"invoked":"parse"}
{"thread":"main","kind":"branch","iid":2,"class":"app/Parser","method":"parse","line":9,"arm":1}
{"thread":"pool-1","kind":"branch","iid":5,"class":"app/Worker","method":"work","line":20,"arm":0}
{"thread":"main","kind":"return","iid":3}
`

func TestProcessTargetSuccess(t *testing.T) {
	target := shTarget(t, "cat", 0)
	rec := newRecorder()

	result, err := target.Execute(context.Background(), strings.NewReader(recorded), rec)
	require.NoError(t, err)
	assert.Equal(t, interfaces.ResultSuccess, result)

	assert.Equal(t, []string{"CALL(1, parse)", "BRANCH(2, 1)", "RETURN(3)"}, rec.events["main"])
	assert.Equal(t, []string{"BRANCH(5, 0)"}, rec.events["pool-1"])
}

func TestProcessTargetInvalidExit(t *testing.T) {
	target := shTarget(t, "cat; echo 'assumption failed' >&2; exit 2", 0)
	rec := newRecorder()

	result, err := target.Execute(context.Background(), strings.NewReader(recorded), rec)
	assert.Equal(t, interfaces.ResultInvalid, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assumption failed")
	assert.Len(t, rec.events["main"], 3)
}

func TestProcessTargetFailureExit(t *testing.T) {
	target := shTarget(t, "exit 3", 0)

	result, err := target.Execute(context.Background(), strings.NewReader(""), newRecorder())
	assert.Equal(t, interfaces.ResultFailure, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 3")
}

func TestProcessTargetMalformedStream(t *testing.T) {
	target := shTarget(t, "cat", 0)
	rec := newRecorder()

	result, err := target.Execute(context.Background(), strings.NewReader("{\"kind\":\"branch\",\"iid\":1}\ngarbage\n"), rec)
	assert.Equal(t, interfaces.ResultFailure, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed event stream")
	assert.Equal(t, []string{"BRANCH(1, 0)"}, rec.events["main"])
}

func TestProcessTargetTimeout(t *testing.T) {
	target := shTarget(t, "exec sleep 5", 100*time.Millisecond)

	start := time.Now()
	result, err := target.Execute(context.Background(), strings.NewReader(""), newRecorder())
	assert.Equal(t, interfaces.ResultFailure, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestProcessTargetMissingBinary(t *testing.T) {
	target := execution.NewProcessTarget(execution.ProcessConfig{
		Target: filepath.Join(t.TempDir(), "no-such-binary"),
	}, nil)

	result, err := target.Execute(context.Background(), strings.NewReader(""), newRecorder())
	assert.Equal(t, interfaces.ResultFailure, result)
	assert.Error(t, err)
}

func TestProcessTargetWithGuidance(t *testing.T) {
	target := shTarget(t, "cat", 0)

	dir := t.TempDir()
	input := filepath.Join(dir, "id_000000")
	require.NoError(t, os.WriteFile(input, []byte(recorded), 0644))
	traceDir := filepath.Join(dir, "traces")
	require.NoError(t, os.MkdirAll(traceDir, 0755))

	g := repro.NewForFile(input, repro.Config{TraceDir: traceDir})
	outcomes, err := repro.Replay(context.Background(), g, target)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, interfaces.ResultSuccess, outcomes[0].Result)
	require.NoError(t, g.Close())

	mainLog, err := os.ReadFile(filepath.Join(traceDir, "main.log"))
	require.NoError(t, err)
	assert.Equal(t, "CALL(1, parse)\nBRANCH(2, 1)\nRETURN(3)\n", string(mainLog))

	poolLog, err := os.ReadFile(filepath.Join(traceDir, "pool-1.log"))
	require.NoError(t, err)
	assert.Equal(t, "BRANCH(5, 0)\n", string(poolLog))

	assert.Equal(t, uint64(4), g.Coverage().Events())
}
