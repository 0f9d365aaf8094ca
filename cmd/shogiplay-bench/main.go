// Command shogiplay-bench drives the evaluation cache with a synthetic
// search-like workload: concurrent probe/store over generated positions,
// optional multi-level tiering and background prefetch, then a
// statistics report.
package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"os"
	"runtime/pprof"
	"sync"
	"time"

	"github.com/yukawa/shogiplay/internal/eval"
	"github.com/yukawa/shogiplay/internal/evalcache"
	"github.com/yukawa/shogiplay/internal/shogi"
	"github.com/yukawa/shogiplay/internal/storage"
)

var (
	configPath = flag.String("config", "", "JSON cache config file (overrides -size/-policy)")
	size       = flag.Int("size", 1<<20, "cache capacity in entries (power of two)")
	policyName = flag.String("policy", "DepthPreferred", "replacement policy: AlwaysReplace|DepthPreferred|AgingBased")

	multiLevel = flag.Bool("multilevel", false, "use a two-tier L1/L2 cache")
	l1Size     = flag.Int("l1-size", 1<<16, "L1 capacity in entries")
	promotion  = flag.Int("promotion", 3, "L2 hits required for promotion into L1")

	positions = flag.Int("positions", 50000, "distinct positions in the workload")
	threads   = flag.Int("threads", 4, "concurrent search workers")
	iters     = flag.Int("iters", 200000, "probe/store iterations per worker")
	prefetch  = flag.Bool("prefetch", false, "run the background prefetcher")
	seed      = flag.Int64("seed", 1, "workload RNG seed")

	record     = flag.Bool("record", false, "persist session statistics to the engine database")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
)

func main() {
	flag.Parse()

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}

	policy, err := evalcache.ParseReplacementPolicy(*policyName)
	if err != nil {
		log.Fatalf("invalid -policy: %v", err)
	}

	cache, stats := buildCache(policy)

	log.Printf("generating %d positions (seed %d)", *positions, *seed)
	work := generatePositions(*positions, *seed)
	evaluator := eval.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var pf *evalcache.Prefetcher
	prefetchDone := make(chan error, 1)
	if *prefetch {
		pf = evalcache.NewPrefetcher(4096)
		go func() {
			prefetchDone <- pf.Run(ctx, cache, evaluator, 2, time.Millisecond)
		}()
	}

	log.Printf("running %d workers x %d iterations", *threads, *iters)
	start := time.Now()
	runWorkload(cache, evaluator, pf, work)
	elapsed := time.Since(start)

	cancel()
	if *prefetch {
		if err := <-prefetchDone; err != nil {
			log.Printf("prefetcher: %v", err)
		}
		log.Printf("prefetcher: prefetched=%d hits=%d dropped=%d queued=%d",
			pf.Prefetched(), pf.Hits(), pf.Dropped(), pf.QueueLen())
	}

	total := uint64(*threads) * uint64(*iters)
	log.Printf("done in %v (%.0f ops/sec)", elapsed, float64(total)/elapsed.Seconds())
	log.Printf("cache statistics:\n%s", reportFor(cache))

	if *record {
		if err := recordSession(stats()); err != nil {
			log.Printf("could not record session: %v", err)
		}
	}
}

// buildCache constructs the cache named by the flags and returns it
// with a final-statistics accessor for session recording.
func buildCache(policy evalcache.ReplacementPolicy) (evalcache.Cache, func() evalcache.StatsSnapshot) {
	if *multiLevel {
		cfg := evalcache.DefaultMultiLevelConfig()
		cfg.L1Size = *l1Size
		cfg.L2Size = *size
		cfg.L2Policy = policy
		cfg.PromotionThreshold = *promotion
		m, err := evalcache.NewMultiLevel(cfg)
		if err != nil {
			log.Fatalf("could not build multi-level cache: %v", err)
		}
		return m, func() evalcache.StatsSnapshot {
			s := m.Statistics()
			return s.L1.Merge(s.L2)
		}
	}

	cfg := evalcache.Config{
		Size:               *size,
		ReplacementPolicy:  policy,
		EnableStatistics:   true,
		EnableVerification: true,
	}
	if *configPath != "" {
		var err error
		cfg, err = evalcache.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("could not load config: %v", err)
		}
	}
	c, err := evalcache.New(cfg)
	if err != nil {
		log.Fatalf("could not build cache: %v", err)
	}
	return c, c.Statistics
}

// generatePositions scatters extra pieces over the starting position to
// produce a reproducible pool of distinct positions.
func generatePositions(n int, seed int64) []*shogi.Position {
	rng := rand.New(rand.NewSource(seed))
	scatter := []shogi.PieceType{
		shogi.Silver, shogi.Gold, shogi.PromotedPawn, shogi.Horse, shogi.Dragon,
	}

	out := make([]*shogi.Position, n)
	for i := range out {
		p := shogi.NewPosition()
		for k := 0; k < 3; k++ {
			sq := shogi.Square(rng.Intn(shogi.NumSquares))
			if p.PieceAt(sq).IsEmpty() {
				c := shogi.Color(rng.Intn(2))
				p.PlacePiece(sq, shogi.MakePiece(c, scatter[rng.Intn(len(scatter))]))
			}
		}
		p.Hands[shogi.Sente][shogi.Pawn] = uint8(rng.Intn(4))
		p.Hands[shogi.Gote][shogi.Pawn] = uint8(rng.Intn(4))
		if rng.Intn(2) == 1 {
			p.SideToMove = shogi.Gote
		}
		out[i] = p
	}
	return out
}

// ager is the optional aging hook; both cache kinds provide it.
type ager interface {
	IncrementAge()
}

func runWorkload(cache evalcache.Cache, evaluator *eval.Evaluator, pf *evalcache.Prefetcher, work []*shogi.Position) {
	var wg sync.WaitGroup
	for w := 0; w < *threads; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(*seed + int64(id)))
			for i := 0; i < *iters; i++ {
				pos := work[rng.Intn(len(work))]
				key := shogi.HashPosition(pos)

				if _, ok := cache.ProbeKey(key); !ok {
					score := evaluator.Evaluate(pos)
					cache.StoreKey(key, score, uint8(rng.Intn(12)+1))
				}
				if pf != nil && i%16 == 0 {
					pf.QueuePrefetch(work[rng.Intn(len(work))], rng.Intn(100))
				}
				if i%1024 == 0 {
					if a, ok := cache.(ager); ok {
						a.IncrementAge()
					}
				}
			}
		}(w)
	}
	wg.Wait()
}

func reportFor(cache evalcache.Cache) string {
	switch c := cache.(type) {
	case *evalcache.MultiLevelCache:
		return c.Statistics().Report()
	case *evalcache.EvaluationCache:
		return c.Statistics().Report()
	}
	return ""
}

func recordSession(snapshot evalcache.StatsSnapshot) error {
	store, err := storage.NewStorage()
	if err != nil {
		return err
	}
	defer store.Close()
	return store.RecordSession(snapshot)
}
