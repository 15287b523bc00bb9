/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: coverage_test.go
Description: Tests for the coverage summary. Covers event classification, concurrent
accumulation, merging and snapshot fingerprints.
*/

package coverage_test

import (
	"sync"
	"testing"

	"github.com/kleascm/akaylee-repro/pkg/coverage"
	"github.com/kleascm/akaylee-repro/pkg/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func branch(iid, arm int) interfaces.BranchEvent {
	return interfaces.BranchEvent{
		Site: interfaces.Site{IID: iid, ContainingClass: "pkg/Parser", ContainingMethod: "parse", Line: 10},
		Arm:  arm,
	}
}

func call(iid int, invoked string) interfaces.CallEvent {
	return interfaces.CallEvent{
		Site:          interfaces.Site{IID: iid, ContainingClass: "pkg/Parser", ContainingMethod: "next", Line: 22},
		InvokedMethod: invoked,
	}
}

// TestSummaryHandleEvent tests that branches and calls are counted per site
func TestSummaryHandleEvent(t *testing.T) {
	s := coverage.NewSummary()

	s.HandleEvent(branch(7, 0))
	s.HandleEvent(branch(7, 0))
	s.HandleEvent(branch(7, 1))
	s.HandleEvent(call(7, "lex"))
	s.HandleEvent(interfaces.ReturnEvent{Site: interfaces.Site{IID: 9, ContainingClass: "pkg/Lexer", ContainingMethod: "lex"}})

	assert.Equal(t, uint64(5), s.Events())
	assert.Equal(t, 3, s.NonZeroCount())
	assert.Equal(t, uint64(2), s.Count(interfaces.BranchKey(7, 0)))
	assert.Equal(t, uint64(1), s.Count(interfaces.BranchKey(7, 1)))
	assert.Equal(t, uint64(1), s.Count(interfaces.CallKey(7)))

	assert.Equal(t, []interfaces.SiteKey{
		interfaces.BranchKey(7, 0),
		interfaces.BranchKey(7, 1),
		interfaces.CallKey(7),
	}, s.Covered())
}

// TestSummaryKeysDoNotCollide tests that hash-equal pairs stay distinct
func TestSummaryKeysDoNotCollide(t *testing.T) {
	s := coverage.NewSummary()

	// 1*31+31 == 2*31+0
	s.HandleEvent(branch(1, 31))
	s.HandleEvent(branch(2, 0))

	assert.Equal(t, 2, s.NonZeroCount())
	assert.Equal(t, uint64(1), s.Count(interfaces.BranchKey(1, 31)))
	assert.Equal(t, uint64(1), s.Count(interfaces.BranchKey(2, 0)))
}

// TestSummaryConcurrentUpdates tests accumulation from many threads
func TestSummaryConcurrentUpdates(t *testing.T) {
	s := coverage.NewSummary()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				s.HandleEvent(branch(i%10, i%2))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(8000), s.Events())
	assert.Equal(t, 10, s.NonZeroCount())
}

// TestSummaryUpdateBits tests merging of two summaries
func TestSummaryUpdateBits(t *testing.T) {
	total := coverage.NewSummary()
	run := coverage.NewSummary()

	run.HandleEvent(branch(1, 0))
	assert.True(t, total.UpdateBits(run))
	assert.False(t, total.UpdateBits(run))
	assert.Equal(t, uint64(1), total.Count(interfaces.BranchKey(1, 0)))

	// Counts only grow to the larger side; no new site means no change
	run.HandleEvent(branch(1, 0))
	assert.False(t, total.UpdateBits(run))
	assert.Equal(t, uint64(2), total.Count(interfaces.BranchKey(1, 0)))

	run.HandleEvent(call(7, "helper"))
	assert.True(t, total.UpdateBits(run))
	assert.Equal(t, 2, total.NonZeroCount())

	assert.False(t, total.UpdateBits(nil))
	assert.False(t, total.UpdateBits(total))
}

// TestSummarySnapshot tests snapshot counts and fingerprint stability
func TestSummarySnapshot(t *testing.T) {
	s := coverage.NewSummary()
	s.HandleEvent(branch(3, 0))
	s.HandleEvent(branch(3, 1))
	s.HandleEvent(call(4, "helper"))

	first := s.Snapshot()
	require.Len(t, first.Bitmap, coverage.BitmapSize)
	assert.Equal(t, 2, first.EdgeCount)
	assert.Equal(t, 1, first.BlockCount)
	assert.Equal(t, 2, first.FunctionCount)

	second := s.Snapshot()
	assert.Equal(t, first.Hash, second.Hash)

	s.HandleEvent(branch(3, 0))
	assert.NotEqual(t, first.Hash, s.Snapshot().Hash)
}
