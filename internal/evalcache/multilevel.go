package evalcache

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/yukawa/shogiplay/internal/shogi"
)

// MultiLevelCache layers a small low-latency L1 in front of a larger
// L2. Stores go to L2 only; L1 is populated exclusively by promotion,
// so it holds positions proven hot by repeated access rather than by
// search recency.
//
// The access-count map has its own lock, independent of the tier
// tables. A promotion therefore spans two separate critical sections;
// the narrow window between them is acceptable because promotion is a
// heuristic, not a correctness-bearing operation.
type MultiLevelCache struct {
	l1, l2 *EvaluationCache
	hasher Hasher

	promotionThreshold int

	mu           sync.Mutex
	accessCounts map[uint64]int

	l1Hits atomic.Uint64
	l2Hits atomic.Uint64
	probes atomic.Uint64
}

// NewMultiLevel constructs a two-tier cache from cfg using the Zobrist
// position hasher.
func NewMultiLevel(cfg MultiLevelConfig) (*MultiLevelCache, error) {
	return NewMultiLevelWithHasher(cfg, HasherFunc(shogi.HashPosition))
}

// NewMultiLevelWithHasher constructs a two-tier cache with a
// caller-supplied fingerprint source shared by both tiers.
func NewMultiLevelWithHasher(cfg MultiLevelConfig, hasher Hasher) (*MultiLevelCache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	l1, err := NewWithHasher(Config{
		Size:               cfg.L1Size,
		ReplacementPolicy:  cfg.L1Policy,
		EnableStatistics:   cfg.EnableStatistics,
		EnableVerification: cfg.EnableVerification,
	}, hasher)
	if err != nil {
		return nil, fmt.Errorf("l1: %w", err)
	}
	l2, err := NewWithHasher(Config{
		Size:               cfg.L2Size,
		ReplacementPolicy:  cfg.L2Policy,
		EnableStatistics:   cfg.EnableStatistics,
		EnableVerification: cfg.EnableVerification,
	}, hasher)
	if err != nil {
		return nil, fmt.Errorf("l2: %w", err)
	}
	return &MultiLevelCache{
		l1:                 l1,
		l2:                 l2,
		hasher:             hasher,
		promotionThreshold: cfg.PromotionThreshold,
		accessCounts:       make(map[uint64]int),
	}, nil
}

// L1 exposes the fast tier, mainly for tests and reporting.
func (m *MultiLevelCache) L1() *EvaluationCache { return m.l1 }

// L2 exposes the large tier.
func (m *MultiLevelCache) L2() *EvaluationCache { return m.l2 }

// Probe tries L1 first, then L2. An L2 hit feeds the promotion
// accounting as a side effect.
func (m *MultiLevelCache) Probe(pos *shogi.Position) (int32, bool) {
	return m.ProbeKey(m.hasher.HashPosition(pos))
}

// ProbeKey is the fingerprint-level tiered probe.
func (m *MultiLevelCache) ProbeKey(key uint64) (int32, bool) {
	m.probes.Add(1)

	if score, ok := m.l1.ProbeKey(key); ok {
		m.l1Hits.Add(1)
		return score, true
	}
	if score, ok := m.l2.ProbeKey(key); ok {
		m.l2Hits.Add(1)
		m.considerPromotion(key, score)
		return score, true
	}
	return 0, false
}

// considerPromotion counts an L2 hit and copies the entry into L1 once
// it crosses the threshold. Promoted entries get depth 0: the original
// depth is not preserved, L1 is purely a hot-position cache.
func (m *MultiLevelCache) considerPromotion(key uint64, score int32) {
	m.mu.Lock()
	m.accessCounts[key]++
	promote := m.accessCounts[key] >= m.promotionThreshold
	if promote {
		delete(m.accessCounts, key)
	}
	m.mu.Unlock()

	if promote {
		m.l1.StoreKey(key, score, 0)
	}
}

// Store writes to L2 only; L1 population happens exclusively through
// promotion.
func (m *MultiLevelCache) Store(pos *shogi.Position, score int32, depth uint8) {
	m.l2.StoreKey(m.hasher.HashPosition(pos), score, depth)
}

// StoreKey is the fingerprint-level store, writing to L2 only.
func (m *MultiLevelCache) StoreKey(key uint64, score int32, depth uint8) {
	m.l2.StoreKey(key, score, depth)
}

// Clear empties both tiers, the access-count map, and all tier
// counters. Callers swap or clear caches between searches under their
// own synchronization, so readers never see one tier cleared without
// the other.
func (m *MultiLevelCache) Clear() {
	m.l1.Clear()
	m.l2.Clear()

	m.mu.Lock()
	m.accessCounts = make(map[uint64]int)
	m.mu.Unlock()

	m.l1Hits.Store(0)
	m.l2Hits.Store(0)
	m.probes.Store(0)
}

// IncrementAge forwards the aging tick to both tiers.
func (m *MultiLevelCache) IncrementAge() {
	m.l1.IncrementAge()
	m.l2.IncrementAge()
}

// MultiLevelSnapshot breaks cache statistics down per tier.
type MultiLevelSnapshot struct {
	L1     StatsSnapshot `json:"l1"`
	L2     StatsSnapshot `json:"l2"`
	L1Hits uint64        `json:"l1_hits"`
	L2Hits uint64        `json:"l2_hits"`
	Probes uint64        `json:"probes"`
}

// HitRate returns the percentage of tiered probes answered by either
// tier.
func (s MultiLevelSnapshot) HitRate() float64 {
	if s.Probes == 0 {
		return 0
	}
	return float64(s.L1Hits+s.L2Hits) / float64(s.Probes) * 100
}

// L1HitRate returns the percentage of tiered probes answered by L1.
func (s MultiLevelSnapshot) L1HitRate() float64 {
	if s.Probes == 0 {
		return 0
	}
	return float64(s.L1Hits) / float64(s.Probes) * 100
}

// Report formats the per-tier breakdown for logs and the bench tool.
func (s MultiLevelSnapshot) Report() string {
	return fmt.Sprintf(
		"probes=%d l1_hits=%d l2_hits=%d (hit rate %.2f%%, l1 %.2f%%)\nL1: %s\nL2: %s",
		s.Probes, s.L1Hits, s.L2Hits, s.HitRate(), s.L1HitRate(),
		s.L1.Report(), s.L2.Report())
}

// Statistics returns the per-tier counters.
func (m *MultiLevelCache) Statistics() MultiLevelSnapshot {
	return MultiLevelSnapshot{
		L1:     m.l1.Statistics(),
		L2:     m.l2.Statistics(),
		L1Hits: m.l1Hits.Load(),
		L2Hits: m.l2Hits.Load(),
		Probes: m.probes.Load(),
	}
}
