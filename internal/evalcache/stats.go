package evalcache

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Statistics holds the cache's monotonic counters. All updates are
// lock-free atomics so probe and store never serialize on accounting.
type Statistics struct {
	probes       atomic.Uint64
	hits         atomic.Uint64
	misses       atomic.Uint64
	collisions   atomic.Uint64
	stores       atomic.Uint64
	replacements atomic.Uint64
}

// Reset zeroes all counters.
func (s *Statistics) Reset() {
	s.probes.Store(0)
	s.hits.Store(0)
	s.misses.Store(0)
	s.collisions.Store(0)
	s.stores.Store(0)
	s.replacements.Store(0)
}

// Snapshot returns a point-in-time copy of the counters. Derived rates
// are computed on the snapshot, never stored.
func (s *Statistics) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Probes:       s.probes.Load(),
		Hits:         s.hits.Load(),
		Misses:       s.misses.Load(),
		Collisions:   s.collisions.Load(),
		Stores:       s.stores.Load(),
		Replacements: s.replacements.Load(),
	}
}

// StatsSnapshot is an immutable view of cache statistics.
type StatsSnapshot struct {
	Probes       uint64 `json:"probes"`
	Hits         uint64 `json:"hits"`
	Misses       uint64 `json:"misses"`
	Collisions   uint64 `json:"collisions"`
	Stores       uint64 `json:"stores"`
	Replacements uint64 `json:"replacements"`
}

// HitRate returns the percentage of probes that hit.
func (s StatsSnapshot) HitRate() float64 {
	if s.Probes == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Probes) * 100
}

// CollisionRate returns the percentage of probes that detected a
// fingerprint collision.
func (s StatsSnapshot) CollisionRate() float64 {
	if s.Probes == 0 {
		return 0
	}
	return float64(s.Collisions) / float64(s.Probes) * 100
}

// ReplacementRate returns the percentage of stores that overwrote a
// previously valid entry.
func (s StatsSnapshot) ReplacementRate() float64 {
	if s.Stores == 0 {
		return 0
	}
	return float64(s.Replacements) / float64(s.Stores) * 100
}

// Merge returns the counter-wise sum of two snapshots.
func (s StatsSnapshot) Merge(other StatsSnapshot) StatsSnapshot {
	return StatsSnapshot{
		Probes:       s.Probes + other.Probes,
		Hits:         s.Hits + other.Hits,
		Misses:       s.Misses + other.Misses,
		Collisions:   s.Collisions + other.Collisions,
		Stores:       s.Stores + other.Stores,
		Replacements: s.Replacements + other.Replacements,
	}
}

// Report formats the snapshot as a human-readable summary for logs and
// the bench tool.
func (s StatsSnapshot) Report() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "probes=%d hits=%d misses=%d (hit rate %.2f%%)\n",
		s.Probes, s.Hits, s.Misses, s.HitRate())
	fmt.Fprintf(&sb, "collisions=%d (%.2f%%) stores=%d replacements=%d (%.2f%%)",
		s.Collisions, s.CollisionRate(), s.Stores, s.Replacements, s.ReplacementRate())
	return sb.String()
}
