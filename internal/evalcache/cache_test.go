package evalcache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yukawa/shogiplay/internal/shogi"
)

func testConfig(size int) Config {
	return Config{
		Size:               size,
		ReplacementPolicy:  AlwaysReplace,
		EnableStatistics:   true,
		EnableVerification: true,
	}
}

func TestBasicMissHit(t *testing.T) {
	c, err := New(testConfig(1024))
	require.NoError(t, err)

	pos := shogi.NewPosition()

	_, ok := c.Probe(pos)
	assert.False(t, ok, "empty cache must miss")

	c.Store(pos, 15, 3)

	score, ok := c.Probe(pos)
	require.True(t, ok, "probe after store must hit")
	assert.Equal(t, int32(15), score)
}

func TestRoundTripDistinctPositions(t *testing.T) {
	c, err := New(testConfig(1 << 12))
	require.NoError(t, err)

	pos := shogi.NewPosition()
	c.Store(pos, -250, 7)

	other := shogi.NewPosition()
	other.SideToMove = shogi.Gote
	c.Store(other, 42, 2)

	score, ok := c.Probe(pos)
	require.True(t, ok)
	assert.Equal(t, int32(-250), score)

	score, ok = c.Probe(other)
	require.True(t, ok)
	assert.Equal(t, int32(42), score)
}

func TestConstructionValidation(t *testing.T) {
	cases := []struct {
		name string
		size int
		want error
	}{
		{"not power of two", 1536, ErrSizeNotPowerOfTwo},
		{"below minimum", 512, ErrSizeOutOfRange},
		{"above maximum", MaxCacheSize * 2, ErrSizeOutOfRange},
		{"zero", 0, ErrSizeOutOfRange},
		{"negative", -1024, ErrSizeOutOfRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(testConfig(tc.size))
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	// Boundary sizes construct fine.
	for _, size := range []int{MinCacheSize, MaxCacheSize / 64} {
		_, err := New(testConfig(size))
		assert.NoError(t, err, "size %d", size)
	}
}

func TestCollisionSafety(t *testing.T) {
	c, err := New(testConfig(1024))
	require.NoError(t, err)

	// Same slot (low bits), same verification tag (high 16 bits), but a
	// different full key: probing the second fingerprint must miss and
	// count a detected collision, never return the first score.
	const slot = uint64(5)
	keyA := uint64(7)<<48 | 1<<20 | slot
	keyB := uint64(7)<<48 | 2<<20 | slot

	c.StoreKey(keyA, 900, 4)

	_, ok := c.ProbeKey(keyB)
	assert.False(t, ok, "colliding fingerprint must not hit")

	stats := c.Statistics()
	assert.Equal(t, uint64(1), stats.Collisions)
	assert.Equal(t, uint64(1), stats.Misses)

	// Full-key mismatch with differing tag is a plain miss.
	keyC := uint64(9)<<48 | slot
	_, ok = c.ProbeKey(keyC)
	assert.False(t, ok)
	assert.Equal(t, uint64(1), c.Statistics().Collisions)
}

func TestVerificationDisabledAcceptsKeyMatch(t *testing.T) {
	cfg := testConfig(1024)
	cfg.EnableVerification = false
	c, err := New(cfg)
	require.NoError(t, err)

	pos := shogi.NewPosition()
	c.Store(pos, 77, 1)

	score, ok := c.Probe(pos)
	require.True(t, ok)
	assert.Equal(t, int32(77), score)

	// Flipping a bit above the index range targets the same slot with a
	// different key: still a miss on key inequality alone.
	key := shogi.HashPosition(pos)
	_, ok = c.ProbeKey(key ^ 1<<40)
	assert.False(t, ok)
}

func TestAlwaysReplacePolicy(t *testing.T) {
	c, err := New(testConfig(1024))
	require.NoError(t, err)

	pos := shogi.NewPosition()
	c.Store(pos, 10, 1)
	c.Store(pos, 50, 5)
	c.Store(pos, 20, 2)

	score, ok := c.Probe(pos)
	require.True(t, ok)
	assert.Equal(t, int32(20), score, "last write wins under AlwaysReplace")
}

func TestDepthPreferredPolicy(t *testing.T) {
	cfg := testConfig(1024)
	cfg.ReplacementPolicy = DepthPreferred
	c, err := New(cfg)
	require.NoError(t, err)

	pos := shogi.NewPosition()
	c.Store(pos, 100, 5)
	c.Store(pos, 200, 2) // shallower, rejected

	score, ok := c.Probe(pos)
	require.True(t, ok)
	assert.Equal(t, int32(100), score, "shallower store must be rejected")

	c.Store(pos, 300, 5) // equal depth wins
	score, _ = c.Probe(pos)
	assert.Equal(t, int32(300), score)

	c.Store(pos, 400, 9) // deeper wins
	score, _ = c.Probe(pos)
	assert.Equal(t, int32(400), score)
}

func TestAgingBasedPolicy(t *testing.T) {
	cfg := testConfig(1024)
	cfg.ReplacementPolicy = AgingBased
	c, err := New(cfg)
	require.NoError(t, err)

	pos := shogi.NewPosition()
	c.Store(pos, 100, 5)

	// Fresh entry resists a marginally deeper store.
	c.Store(pos, 200, 6)
	score, _ := c.Probe(pos)
	assert.Equal(t, int32(100), score)

	// A store more than agingDepthMargin deeper evicts it.
	c.Store(pos, 300, 8)
	score, _ = c.Probe(pos)
	assert.Equal(t, int32(300), score)

	// Age the entry past the staleness threshold; then any depth
	// replaces it.
	for sweep := 0; sweep <= agingStaleThreshold; sweep++ {
		for i := 0; i < agingSweepInterval; i++ {
			c.IncrementAge()
		}
	}
	c.Store(pos, 400, 1)
	score, _ = c.Probe(pos)
	assert.Equal(t, int32(400), score, "stale entry must be replaced by any depth")
}

func TestEmptySlotAlwaysWritten(t *testing.T) {
	cfg := testConfig(1024)
	cfg.ReplacementPolicy = DepthPreferred
	c, err := New(cfg)
	require.NoError(t, err)

	// Depth 0 into an empty slot succeeds regardless of policy.
	c.StoreKey(0xABCD, 5, 0)
	score, ok := c.ProbeKey(0xABCD)
	require.True(t, ok)
	assert.Equal(t, int32(5), score)
}

func TestZeroFingerprintNeverStored(t *testing.T) {
	c, err := New(testConfig(1024))
	require.NoError(t, err)

	// Zero is the empty-slot marker: storing it must leave slot 0 empty
	// rather than fabricate a valid entry, and probing it must miss.
	c.StoreKey(0, 99, 5)

	assert.False(t, c.entries[0].Valid(), "slot 0 must stay empty")
	_, ok := c.ProbeKey(0)
	assert.False(t, ok)

	stats := c.Statistics()
	assert.Equal(t, uint64(0), stats.Stores)
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestAgingSweepAmortized(t *testing.T) {
	c, err := New(testConfig(1024))
	require.NoError(t, err)

	key := uint64(3)<<48 | 17
	c.StoreKey(key, 1, 1)

	// No sweep before the interval elapses.
	for i := 0; i < agingSweepInterval-1; i++ {
		c.IncrementAge()
	}
	idx := c.index(key)
	assert.Equal(t, uint8(0), c.entries[idx].Age)

	c.IncrementAge()
	assert.Equal(t, uint8(1), c.entries[idx].Age)
}

func TestStoreResetsAge(t *testing.T) {
	c, err := New(testConfig(1024))
	require.NoError(t, err)

	key := uint64(3)<<48 | 17
	c.StoreKey(key, 1, 1)
	for i := 0; i < agingSweepInterval; i++ {
		c.IncrementAge()
	}
	require.Equal(t, uint8(1), c.entries[c.index(key)].Age)

	c.StoreKey(key, 2, 1)
	assert.Equal(t, uint8(0), c.entries[c.index(key)].Age)
}

func TestClearIdempotent(t *testing.T) {
	c, err := New(testConfig(1024))
	require.NoError(t, err)

	pos := shogi.NewPosition()
	c.Store(pos, 15, 3)
	c.Probe(pos)

	c.Clear()
	c.Clear()

	_, ok := c.Probe(pos)
	assert.False(t, ok)

	// One probe happened after the clears; everything else is zero.
	stats := c.Statistics()
	assert.Equal(t, uint64(1), stats.Probes)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(0), stats.Hits)
	assert.Equal(t, uint64(0), stats.Stores)
	assert.Equal(t, uint64(0), stats.Replacements)
	assert.Equal(t, uint64(0), stats.Collisions)
}

func TestStatisticsConsistency(t *testing.T) {
	c, err := New(testConfig(1024))
	require.NoError(t, err)

	pos := shogi.NewPosition()
	for i := 0; i < 100; i++ {
		if i%3 == 0 {
			c.Store(pos, int32(i), uint8(i%16))
		}
		c.Probe(pos)
		pos.Repetition = uint8(i % 4)
	}

	stats := c.Statistics()
	assert.Equal(t, stats.Probes, stats.Hits+stats.Misses,
		"hits+misses must equal probes")
	assert.LessOrEqual(t, stats.Replacements, stats.Stores)
}

func TestStatisticsDisabled(t *testing.T) {
	cfg := testConfig(1024)
	cfg.EnableStatistics = false
	c, err := New(cfg)
	require.NoError(t, err)

	pos := shogi.NewPosition()
	c.Store(pos, 1, 1)
	c.Probe(pos)

	assert.Equal(t, StatsSnapshot{}, c.Statistics())
}

func TestRuntimeConfigWhitelist(t *testing.T) {
	c, err := New(testConfig(1024))
	require.NoError(t, err)

	require.NoError(t, c.SetReplacementPolicy(DepthPreferred))
	assert.Equal(t, DepthPreferred, c.Config().ReplacementPolicy)
	assert.ErrorIs(t, c.SetReplacementPolicy(ReplacementPolicy(99)), ErrUnknownPolicy)

	c.SetStatisticsEnabled(false)
	c.SetVerificationEnabled(false)
	cfg := c.Config()
	assert.False(t, cfg.EnableStatistics)
	assert.False(t, cfg.EnableVerification)
	assert.Equal(t, 1024, cfg.Size, "size never changes after construction")
}

func TestHashFull(t *testing.T) {
	c, err := New(testConfig(1024))
	require.NoError(t, err)

	assert.Equal(t, 0, c.HashFull())

	// Fill every sampled slot with a nonzero key.
	for i := uint64(1); i <= 1000; i++ {
		c.StoreKey(i<<10|(i-1)&c.mask, 0, 1)
	}
	assert.Greater(t, c.HashFull(), 900)
}

func TestVerificationInvariant(t *testing.T) {
	c, err := New(testConfig(1024))
	require.NoError(t, err)

	for i := uint64(1); i < 500; i++ {
		key := i * 0x9E3779B97F4A7C15
		c.StoreKey(key, int32(i), uint8(i%32))
	}

	// Every valid entry's stored tag must match its own key's upper
	// bits; anything else is a store-path defect.
	for i := range c.entries {
		e := &c.entries[i]
		if e.Valid() && e.Verification != verificationTag(e.Key) {
			t.Fatalf("slot %d: verification tag %04x does not match key %016x",
				i, e.Verification, e.Key)
		}
	}
}

func TestConcurrentProbeStore(t *testing.T) {
	c, err := New(testConfig(1 << 12))
	require.NoError(t, err)

	const workers = 8
	const iters = 2000

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(seed uint64) {
			defer wg.Done()
			key := seed*0x9E3779B97F4A7C15 + 1
			for i := 0; i < iters; i++ {
				key = key*0x2545F4914F6CDD1D + 1
				if key == 0 {
					key = 1
				}
				c.StoreKey(key, int32(key), uint8(i%20))
				if score, ok := c.ProbeKey(key); ok {
					// A hit must return a score some store actually
					// wrote for this fingerprint, never a torn value.
					if score != int32(key) {
						t.Errorf("torn read: key %016x got %d", key, score)
						return
					}
				}
				if i%64 == 0 {
					c.IncrementAge()
				}
			}
		}(uint64(w))
	}
	wg.Wait()

	stats := c.Statistics()
	assert.Equal(t, stats.Probes, stats.Hits+stats.Misses)
	assert.LessOrEqual(t, stats.Replacements, stats.Stores)
}

func BenchmarkProbeHit(b *testing.B) {
	c, _ := New(testConfig(1 << 16))
	pos := shogi.NewPosition()
	c.Store(pos, 15, 3)
	key := shogi.HashPosition(pos)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.ProbeKey(key)
	}
}

func BenchmarkStore(b *testing.B) {
	c, _ := New(testConfig(1 << 16))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.StoreKey(uint64(i)|1, int32(i), uint8(i%16))
	}
}

func BenchmarkProbeStoreParallel(b *testing.B) {
	c, _ := New(testConfig(1 << 16))

	b.RunParallel(func(pb *testing.PB) {
		key := uint64(1)
		for pb.Next() {
			key = key*0x9E3779B97F4A7C15 + 1
			c.StoreKey(key, int32(key), 4)
			c.ProbeKey(key)
		}
	})
}
