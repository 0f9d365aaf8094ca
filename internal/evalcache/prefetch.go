package evalcache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yukawa/shogiplay/internal/shogi"
)

// Evaluator computes the static score of a position. The prefetch path
// assumes it is deterministic and total.
type Evaluator interface {
	Evaluate(*shogi.Position) int32
}

// Cache is the probe/store surface the prefetcher populates; both
// EvaluationCache and MultiLevelCache satisfy it.
type Cache interface {
	ProbeKey(key uint64) (int32, bool)
	StoreKey(key uint64, score int32, depth uint8)
}

// DefaultPrefetchBatch is how many queued requests one ProcessQueue
// call drains.
const DefaultPrefetchBatch = 10

type prefetchRequest struct {
	pos      *shogi.Position
	key      uint64
	priority int
}

// Prefetcher decouples cache population from the critical search path:
// speculative positions (children of the current node, book lines) are
// queued with a priority and evaluated in small batches between or
// alongside search iterations.
//
// Prefetching is strictly best-effort. A full queue silently drops new
// requests rather than blocking the caller or evicting a resident
// entry.
type Prefetcher struct {
	hasher   Hasher
	capacity int

	mu    sync.Mutex
	queue []prefetchRequest

	hits       atomic.Uint64 // already cached when drained
	prefetched atomic.Uint64 // evaluated and stored
	dropped    atomic.Uint64 // rejected on a full queue
}

// NewPrefetcher creates a prefetcher with a fixed queue capacity, using
// the Zobrist position hasher.
func NewPrefetcher(capacity int) *Prefetcher {
	return NewPrefetcherWithHasher(capacity, HasherFunc(shogi.HashPosition))
}

// NewPrefetcherWithHasher creates a prefetcher with a caller-supplied
// fingerprint source.
func NewPrefetcherWithHasher(capacity int, hasher Hasher) *Prefetcher {
	if capacity < 1 {
		capacity = 1
	}
	return &Prefetcher{
		hasher:   hasher,
		capacity: capacity,
		queue:    make([]prefetchRequest, 0, capacity),
	}
}

// QueuePrefetch enqueues a position for background evaluation. Higher
// priority drains first; the queue keeps its own copy of the position.
func (p *Prefetcher) QueuePrefetch(pos *shogi.Position, priority int) {
	req := prefetchRequest{
		pos:      pos.Clone(),
		key:      p.hasher.HashPosition(pos),
		priority: priority,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.queue) >= p.capacity {
		p.dropped.Add(1)
		return
	}

	// Insert before the first lower-priority request.
	at := len(p.queue)
	for i, q := range p.queue {
		if q.priority < priority {
			at = i
			break
		}
	}
	p.queue = append(p.queue, prefetchRequest{})
	copy(p.queue[at+1:], p.queue[at:])
	p.queue[at] = req
}

// ProcessQueue drains up to batchSize requests in priority order. Each
// position already in the cache counts as a prefetch hit; the rest are
// evaluated and stored at depth 0. Returns how many requests were
// drained.
func (p *Prefetcher) ProcessQueue(cache Cache, ev Evaluator, batchSize int) int {
	if batchSize <= 0 {
		batchSize = DefaultPrefetchBatch
	}

	p.mu.Lock()
	n := batchSize
	if n > len(p.queue) {
		n = len(p.queue)
	}
	batch := make([]prefetchRequest, n)
	copy(batch, p.queue[:n])
	p.queue = p.queue[:copy(p.queue, p.queue[n:])]
	p.mu.Unlock()

	for _, req := range batch {
		if _, ok := cache.ProbeKey(req.key); ok {
			p.hits.Add(1)
			continue
		}
		cache.StoreKey(req.key, ev.Evaluate(req.pos), 0)
		p.prefetched.Add(1)
	}
	return n
}

// Run drains the queue continuously with the given number of workers
// until ctx is cancelled. interval is the pause between empty drains.
func (p *Prefetcher) Run(ctx context.Context, cache Cache, ev Evaluator, workers int, interval time.Duration) error {
	if workers < 1 {
		workers = 1
	}
	if interval <= 0 {
		interval = time.Millisecond
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					for p.ProcessQueue(cache, ev, DefaultPrefetchBatch) > 0 {
						if ctx.Err() != nil {
							return nil
						}
					}
				}
			}
		})
	}
	return g.Wait()
}

// QueueLen returns the number of pending requests.
func (p *Prefetcher) QueueLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Hits returns how many drained requests were already cached.
func (p *Prefetcher) Hits() uint64 { return p.hits.Load() }

// Prefetched returns how many requests were evaluated and stored.
func (p *Prefetcher) Prefetched() uint64 { return p.prefetched.Load() }

// Dropped returns how many requests were rejected on a full queue.
func (p *Prefetcher) Dropped() uint64 { return p.dropped.Load() }
