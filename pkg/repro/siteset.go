/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: siteset.go
Description: Concurrent set of site descriptions used for the per-run and session-wide unique
site collections.
*/

package repro

import (
	"sort"
	"sync"
)

// siteSet is a string set safe for concurrent insertion
type siteSet struct {
	mu    sync.Mutex
	items map[string]struct{}
}

func newSiteSet() *siteSet {
	return &siteSet{items: make(map[string]struct{})}
}

func (s *siteSet) add(desc string) {
	s.mu.Lock()
	s.items[desc] = struct{}{}
	s.mu.Unlock()
}

func (s *siteSet) clear() {
	s.mu.Lock()
	s.items = make(map[string]struct{})
	s.mu.Unlock()
}

func (s *siteSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// mergeFrom adds every element of other to s
func (s *siteSet) mergeFrom(other *siteSet) {
	other.mu.Lock()
	items := make([]string, 0, len(other.items))
	for desc := range other.items {
		items = append(items, desc)
	}
	other.mu.Unlock()

	s.mu.Lock()
	for _, desc := range items {
		s.items[desc] = struct{}{}
	}
	s.mu.Unlock()
}

// sorted returns the elements in lexical order
func (s *siteSet) sorted() []string {
	s.mu.Lock()
	out := make([]string, 0, len(s.items))
	for desc := range s.items {
		out = append(out, desc)
	}
	s.mu.Unlock()

	sort.Strings(out)
	return out
}
