/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: sitecache.go
Description: Sharded cache of formatted site descriptions. Each branch arm or call site is
formatted once per process and reused across runs.
*/

package repro

import (
	"sync"

	"github.com/kleascm/akaylee-repro/pkg/interfaces"
)

const cacheShards = 64

// SiteCache memoizes site descriptions for the lifetime of the process.
// Keys are compared by value; the multiplicative key hash only picks a
// shard. Each formatter runs at most once per key.
type SiteCache struct {
	shards [cacheShards]cacheShard
}

type cacheShard struct {
	mu      sync.Mutex
	entries map[interfaces.SiteKey]string
}

// NewSiteCache creates an empty cache
func NewSiteCache() *SiteCache {
	c := &SiteCache{}
	for i := range c.shards {
		c.shards[i].entries = make(map[interfaces.SiteKey]string)
	}
	return c
}

// Lookup returns the description for key, calling format on first use
func (c *SiteCache) Lookup(key interfaces.SiteKey, format func() string) string {
	shard := &c.shards[key.Hash()%cacheShards]

	shard.mu.Lock()
	defer shard.mu.Unlock()

	if desc, ok := shard.entries[key]; ok {
		return desc
	}
	desc := format()
	shard.entries[key] = desc
	return desc
}

// Len returns the number of cached descriptions
func (c *SiteCache) Len() int {
	n := 0
	for i := range c.shards {
		c.shards[i].mu.Lock()
		n += len(c.shards[i].entries)
		c.shards[i].mu.Unlock()
	}
	return n
}
