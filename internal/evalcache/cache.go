package evalcache

import (
	"sync"
	"sync/atomic"

	"github.com/yukawa/shogiplay/internal/shogi"
)

// Hasher produces the 64-bit fingerprint of a position. It must be a
// pure function: equal positions yield equal fingerprints.
type Hasher interface {
	HashPosition(*shogi.Position) uint64
}

// HasherFunc adapts a plain function to the Hasher interface.
type HasherFunc func(*shogi.Position) uint64

// HashPosition calls f.
func (f HasherFunc) HashPosition(p *shogi.Position) uint64 { return f(p) }

// Aging sweeps run on every agingSweepInterval-th IncrementAge call,
// batching the full-table cost instead of paying it per store.
const agingSweepInterval = 256

// EvaluationCache maps position fingerprints to previously computed
// scores. Capacity is fixed at construction (power of two); entries are
// overwritten in place per the replacement policy and never freed.
//
// Each slot is guarded by its own RWMutex, so probes and stores only
// contend when they target the same slot. Statistics are lock-free
// atomic counters. Probe, Store and Clear are total: they never fail
// and never block on unrelated slots.
type EvaluationCache struct {
	entries []Entry
	locks   []sync.RWMutex
	mask    uint64
	size    int

	hasher Hasher

	// Runtime-adjustable configuration. Size is deliberately absent:
	// resizing means constructing a new cache and swapping the reference.
	policy        atomic.Uint32
	statsEnabled  atomic.Bool
	verifyEnabled atomic.Bool

	ageCalls atomic.Uint64

	stats Statistics
}

// New constructs a cache from cfg using the Zobrist position hasher.
// Construction fails fast on an invalid configuration.
func New(cfg Config) (*EvaluationCache, error) {
	return NewWithHasher(cfg, HasherFunc(shogi.HashPosition))
}

// NewWithHasher constructs a cache with a caller-supplied fingerprint
// source.
func NewWithHasher(cfg Config, hasher Hasher) (*EvaluationCache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &EvaluationCache{
		entries: make([]Entry, cfg.Size),
		locks:   make([]sync.RWMutex, cfg.Size),
		mask:    uint64(cfg.Size - 1),
		size:    cfg.Size,
		hasher:  hasher,
	}
	c.policy.Store(uint32(cfg.ReplacementPolicy))
	c.statsEnabled.Store(cfg.EnableStatistics)
	c.verifyEnabled.Store(cfg.EnableVerification)
	return c, nil
}

// Size returns the fixed slot count.
func (c *EvaluationCache) Size() int {
	return c.size
}

// Config returns a snapshot of the current configuration.
func (c *EvaluationCache) Config() Config {
	return Config{
		Size:               c.size,
		ReplacementPolicy:  ReplacementPolicy(c.policy.Load()),
		EnableStatistics:   c.statsEnabled.Load(),
		EnableVerification: c.verifyEnabled.Load(),
	}
}

// SetReplacementPolicy switches the replacement policy at runtime.
func (c *EvaluationCache) SetReplacementPolicy(p ReplacementPolicy) error {
	if _, ok := policyNames[p]; !ok {
		return ErrUnknownPolicy
	}
	c.policy.Store(uint32(p))
	return nil
}

// SetStatisticsEnabled toggles statistics collection.
func (c *EvaluationCache) SetStatisticsEnabled(enabled bool) {
	c.statsEnabled.Store(enabled)
}

// SetVerificationEnabled toggles collision verification on probe.
func (c *EvaluationCache) SetVerificationEnabled(enabled bool) {
	c.verifyEnabled.Store(enabled)
}

func (c *EvaluationCache) index(key uint64) uint64 {
	return key & c.mask
}

// Probe looks up the score cached for a position. The second return is
// false on a miss; a detected fingerprint collision counts as a miss.
func (c *EvaluationCache) Probe(pos *shogi.Position) (int32, bool) {
	return c.ProbeKey(c.hasher.HashPosition(pos))
}

// ProbeKey is the fingerprint-level probe used by the multi-level tiers
// and the prefetcher, which hash once and probe several stores.
func (c *EvaluationCache) ProbeKey(key uint64) (int32, bool) {
	statsOn := c.statsEnabled.Load()
	if statsOn {
		c.stats.probes.Add(1)
	}

	idx := c.index(key)
	c.locks[idx].RLock()
	entry := c.entries[idx]
	c.locks[idx].RUnlock()

	if !entry.Valid() {
		if statsOn {
			c.stats.misses.Add(1)
		}
		return 0, false
	}

	if c.verifyEnabled.Load() {
		keyMatch := entry.Key == key
		tagMatch := entry.Verification == verificationTag(key)
		if keyMatch && tagMatch {
			if statsOn {
				c.stats.hits.Add(1)
			}
			return entry.Score, true
		}
		// One of the two checks matching without the other is a detected
		// collision, never a silent hit.
		if statsOn {
			if keyMatch != tagMatch {
				c.stats.collisions.Add(1)
			}
			c.stats.misses.Add(1)
		}
		return 0, false
	}

	if entry.Key == key {
		if statsOn {
			c.stats.hits.Add(1)
		}
		return entry.Score, true
	}
	if statsOn {
		c.stats.misses.Add(1)
	}
	return 0, false
}

// Store caches the score computed for a position at the given search
// depth. Whether an existing entry is overwritten depends on the
// replacement policy; empty slots are always filled.
func (c *EvaluationCache) Store(pos *shogi.Position, score int32, depth uint8) {
	c.StoreKey(c.hasher.HashPosition(pos), score, depth)
}

// StoreKey is the fingerprint-level store.
func (c *EvaluationCache) StoreKey(key uint64, score int32, depth uint8) {
	if key == 0 {
		// Zero is the empty-slot marker; a real fingerprint of zero is a
		// 2^-64 event not worth a slot.
		return
	}

	policy := ReplacementPolicy(c.policy.Load())
	idx := c.index(key)

	c.locks[idx].Lock()
	entry := &c.entries[idx]
	replacing := entry.Valid()
	if !policy.shouldReplace(entry, depth) {
		c.locks[idx].Unlock()
		return
	}
	*entry = Entry{
		Key:          key,
		Score:        score,
		Depth:        depth,
		Age:          0,
		Verification: verificationTag(key),
	}
	c.locks[idx].Unlock()

	if c.statsEnabled.Load() {
		c.stats.stores.Add(1)
		if replacing {
			c.stats.replacements.Add(1)
		}
	}
}

// Clear resets every slot to the empty default and zeroes all
// statistics. Clearing twice is the same as clearing once.
func (c *EvaluationCache) Clear() {
	for i := range c.entries {
		c.locks[i].Lock()
		c.entries[i] = Entry{}
		c.locks[i].Unlock()
	}
	c.ageCalls.Store(0)
	c.stats.Reset()
}

// IncrementAge bumps the global age counter; every agingSweepInterval-th
// call sweeps the table, aging each valid entry. The sweep takes slot
// locks one at a time, so it is not atomic across the table; partial
// application is fine since aging is a heuristic.
func (c *EvaluationCache) IncrementAge() {
	if c.ageCalls.Add(1)%agingSweepInterval != 0 {
		return
	}
	for i := range c.entries {
		c.locks[i].Lock()
		if c.entries[i].Valid() && c.entries[i].Age < 255 {
			c.entries[i].Age++
		}
		c.locks[i].Unlock()
	}
}

// Statistics returns a snapshot of the counters.
func (c *EvaluationCache) Statistics() StatsSnapshot {
	return c.stats.Snapshot()
}

// HashFull estimates table occupancy in permille by sampling the first
// thousand slots.
func (c *EvaluationCache) HashFull() int {
	sample := 1000
	if sample > c.size {
		sample = c.size
	}
	used := 0
	for i := 0; i < sample; i++ {
		c.locks[i].RLock()
		if c.entries[i].Valid() {
			used++
		}
		c.locks[i].RUnlock()
	}
	return used * 1000 / sample
}
