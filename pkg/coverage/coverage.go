/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: coverage.go
Description: Coverage accumulation for the Akaylee replay harness. Summary folds every
execution event of every replayed run into one process-wide hit map that tolerates
concurrent updates from all execution threads of a run. Snapshots render the map into
the bitmap form used by reports, fingerprinted with xxhash for quick comparison.
*/

package coverage

import (
	"encoding/binary"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/kleascm/akaylee-repro/pkg/interfaces"
)

// BitmapSize is the number of buckets in a coverage snapshot bitmap
const BitmapSize = 1 << 16

// Coverage is a point-in-time view of a Summary
type Coverage struct {
	Bitmap        []byte    `json:"bitmap" yaml:"-"`                      // Saturating hit counts per bucket
	EdgeCount     int       `json:"edge_count" yaml:"edge_count"`         // Distinct branch arms taken
	BlockCount    int       `json:"block_count" yaml:"block_count"`       // Distinct call sites reached
	FunctionCount int       `json:"function_count" yaml:"function_count"` // Distinct methods entered
	Timestamp     time.Time `json:"timestamp" yaml:"timestamp"`           // When the snapshot was taken
	Hash          uint64    `json:"hash" yaml:"hash"`                     // Fingerprint of the covered keys and counts
}

// Summary accumulates coverage across all runs of a replay session.
// Safe for concurrent use.
type Summary struct {
	mu        sync.Mutex
	counts    map[interfaces.SiteKey]uint64
	functions map[string]struct{}
	events    uint64
}

// NewSummary creates an empty coverage summary
func NewSummary() *Summary {
	return &Summary{
		counts:    make(map[interfaces.SiteKey]uint64),
		functions: make(map[string]struct{}),
	}
}

// HandleEvent records a single execution event.
// Branch and call events count toward site coverage; every event
// contributes to the set of entered methods.
func (s *Summary) HandleEvent(ev interfaces.TraceEvent) {
	site := ev.Location()
	fn := site.ContainingClass + "#" + site.ContainingMethod

	s.mu.Lock()
	defer s.mu.Unlock()

	s.events++
	s.functions[fn] = struct{}{}

	switch e := ev.(type) {
	case interfaces.BranchEvent:
		s.counts[interfaces.BranchKey(e.IID, e.Arm)]++
	case interfaces.CallEvent:
		s.counts[interfaces.CallKey(e.IID)]++
	}
}

// Events returns the total number of events handled
func (s *Summary) Events() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events
}

// NonZeroCount returns the number of distinct sites hit at least once
func (s *Summary) NonZeroCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.counts)
}

// Count returns the hit count of a single site
func (s *Summary) Count(key interfaces.SiteKey) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[key]
}

// Counts returns a copy of the hit map
func (s *Summary) Counts() map[interfaces.SiteKey]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[interfaces.SiteKey]uint64, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}

// Covered returns every covered site in a stable order
func (s *Summary) Covered() []interfaces.SiteKey {
	s.mu.Lock()
	keys := make([]interfaces.SiteKey, 0, len(s.counts))
	for k := range s.counts {
		keys = append(keys, k)
	}
	s.mu.Unlock()

	sortKeys(keys)
	return keys
}

// UpdateBits folds the hit counts of other into s, keeping the larger
// count per site. Returns true if other covered a site s had not seen yet.
func (s *Summary) UpdateBits(other *Summary) bool {
	if other == nil || other == s {
		return false
	}
	theirs := other.Counts()

	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for k, v := range theirs {
		mine, seen := s.counts[k]
		if !seen {
			changed = true
		}
		if v > mine {
			s.counts[k] = v
		}
	}
	return changed
}

// Snapshot renders the current state into a Coverage value
func (s *Summary) Snapshot() *Coverage {
	s.mu.Lock()
	keys := make([]interfaces.SiteKey, 0, len(s.counts))
	counts := make(map[interfaces.SiteKey]uint64, len(s.counts))
	for k, v := range s.counts {
		keys = append(keys, k)
		counts[k] = v
	}
	functions := len(s.functions)
	s.mu.Unlock()

	sortKeys(keys)

	cov := &Coverage{
		Bitmap:        make([]byte, BitmapSize),
		FunctionCount: functions,
		Timestamp:     time.Now(),
	}

	digest := xxhash.New()
	var buf [8 * 4]byte
	for _, k := range keys {
		switch k.Kind {
		case interfaces.SiteBranch:
			cov.EdgeCount++
		case interfaces.SiteCall:
			cov.BlockCount++
		}

		bucket := k.Hash() % BitmapSize
		hits := uint64(cov.Bitmap[bucket]) + counts[k]
		if hits > 0xff {
			hits = 0xff
		}
		cov.Bitmap[bucket] = byte(hits)

		binary.LittleEndian.PutUint64(buf[0:], uint64(k.Kind))
		binary.LittleEndian.PutUint64(buf[8:], uint64(k.IID))
		binary.LittleEndian.PutUint64(buf[16:], uint64(k.Arm))
		binary.LittleEndian.PutUint64(buf[24:], counts[k])
		digest.Write(buf[:])
	}
	cov.Hash = digest.Sum64()

	return cov
}

func sortKeys(keys []interfaces.SiteKey) {
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.IID != b.IID {
			return a.IID < b.IID
		}
		return a.Arm < b.Arm
	})
}
