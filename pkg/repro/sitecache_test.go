/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: sitecache_test.go
Description: Tests for the site description cache. Covers single formatting per key and
sharing a cache between sessions.
*/

package repro_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/kleascm/akaylee-repro/pkg/interfaces"
	"github.com/kleascm/akaylee-repro/pkg/repro"
	"github.com/stretchr/testify/assert"
)

func TestSiteCacheFormatsOncePerKey(t *testing.T) {
	cache := repro.NewSiteCache()
	var calls int32

	format := func(ev interfaces.BranchEvent) func() string {
		return func() string {
			atomic.AddInt32(&calls, 1)
			return repro.DescribeBranch(ev)
		}
	}

	ev := branchAt(7, 0)
	first := cache.Lookup(interfaces.BranchKey(7, 0), format(ev))
	second := cache.Lookup(interfaces.BranchKey(7, 0), format(ev))

	assert.Equal(t, "(000000007) org/example/Parser#parse():42 [0]", first)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, cache.Len())
}

func TestSiteCacheCompoundKeys(t *testing.T) {
	cache := repro.NewSiteCache()

	a := cache.Lookup(interfaces.BranchKey(1, 31), func() string { return "a" })
	b := cache.Lookup(interfaces.BranchKey(2, 0), func() string { return "b" })
	c := cache.Lookup(interfaces.CallKey(62), func() string { return "c" })

	assert.Equal(t, "a", a)
	assert.Equal(t, "b", b)
	assert.Equal(t, "c", c)
	assert.Equal(t, 3, cache.Len())
	assert.NotEqual(t, interfaces.BranchKey(1, 31), interfaces.BranchKey(2, 0))
}

func TestSiteCacheConcurrentLookups(t *testing.T) {
	cache := repro.NewSiteCache()
	var calls int32

	var wg sync.WaitGroup
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				cache.Lookup(interfaces.BranchKey(i, i%3), func() string {
					atomic.AddInt32(&calls, 1)
					return "desc"
				})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(200), atomic.LoadInt32(&calls))
	assert.Equal(t, 200, cache.Len())
}

func TestSiteCacheSharedAcrossGuidances(t *testing.T) {
	cache := repro.NewSiteCache()
	paths := writeInputs(t, "one")

	first := repro.New(paths, repro.Config{LogUniqueBranches: true}, repro.WithSiteCache(cache))
	runOnce(t, first, interfaces.ResultSuccess, nil, branchAt(5, 0))

	second := repro.New(paths, repro.Config{LogUniqueBranches: true}, repro.WithSiteCache(cache))
	runOnce(t, second, interfaces.ResultSuccess, nil, branchAt(5, 0), branchAt(5, 1))

	assert.Equal(t, 2, cache.Len())
}
