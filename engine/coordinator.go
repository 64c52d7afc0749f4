package engine

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/geoshard/geoshard/geom"
	"github.com/geoshard/geoshard/index"
	"github.com/geoshard/geoshard/lexical"
	"github.com/geoshard/geoshard/topk"
)

// Options configures a Coordinator.
type Options struct {
	// Runner executes partition tasks. When set, the caller owns its
	// lifecycle and the Coordinator never closes it. Nil selects an owned
	// PoolRunner.
	Runner Runner

	// PoolSize sizes the owned PoolRunner. Non-positive selects
	// max(partitions, GOMAXPROCS).
	PoolSize int
}

// WithRunner plugs in an external execution seam. The caller keeps
// ownership and closes the runner itself.
func WithRunner(r Runner) func(*Options) {
	return func(o *Options) {
		o.Runner = r
	}
}

// WithPoolSize sizes the owned worker pool.
func WithPoolSize(n int) func(*Options) {
	return func(o *Options) {
		o.PoolSize = n
	}
}

// Coordinator fans queries out to every partition and merges the bounded
// per-partition results into one global top-k. Safe for concurrent use.
type Coordinator[K cmp.Ordered, V any] struct {
	parts      []Partition[K, V]
	runner     Runner
	poolSize   int
	ownsRunner bool
	closed     atomic.Bool
}

// NewCoordinator wraps the given partition indexes. Zero partitions is
// legal: every query reduces to its empty result.
func NewCoordinator[K cmp.Ordered, V any](locals []index.Local[K, V], optFns ...func(*Options)) (*Coordinator[K, V], error) {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}

	parts := make([]Partition[K, V], len(locals))
	for ord, local := range locals {
		if local == nil {
			return nil, &PartitionError{Partition: ord, Err: errors.New("nil index")}
		}
		parts[ord] = Partition[K, V]{Ord: ord, Local: local}
	}

	c := &Coordinator[K, V]{
		parts:    parts,
		runner:   opts.Runner,
		poolSize: opts.PoolSize,
	}
	if c.runner == nil {
		c.runner = NewPoolRunner(defaultPoolSize(len(parts), opts.PoolSize))
		c.ownsRunner = true
	}
	return c, nil
}

func defaultPoolSize(partitions, configured int) int {
	if configured > 0 {
		return configured
	}
	// One worker per partition keeps a full fan-out from queueing behind
	// itself; GOMAXPROCS is the floor when partitions are few.
	return max(partitions, runtime.GOMAXPROCS(0))
}

// Partitions returns the number of partitions.
func (c *Coordinator[K, V]) Partitions() int { return len(c.parts) }

// Local returns the partition index at the given ordinal.
func (c *Coordinator[K, V]) Local(ord int) index.Local[K, V] { return c.parts[ord].Local }

// search fans one query out to every partition. Each partition computes its
// own complete top-k before the merge; the monoid reduce keeps the global
// result independent of partition completion order.
func (c *Coordinator[K, V]) search(ctx context.Context, k int, q func(ctx context.Context, local index.Local[K, V], k int) ([]index.Hit[K, V], error)) ([]index.Hit[K, V], error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	if k <= 0 || len(c.parts) == 0 {
		return []index.Hit[K, V]{}, nil
	}

	monoid := topk.NewMonoid(k, index.WorseHit[K, V])
	partials := make([]*topk.Agg[index.Hit[K, V]], len(c.parts))

	err := c.runner.Run(ctx, len(c.parts), func(ctx context.Context, ord int) error {
		hits, err := q(ctx, c.parts[ord].Local, k)
		if err != nil {
			return &PartitionError{Partition: ord, Err: err}
		}
		partials[ord] = monoid.Build(hits...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return monoid.Reduce(partials...).Items(), nil
}

// KNN returns the k documents nearest to at across all partitions,
// restricted to those matching text.
func (c *Coordinator[K, V]) KNN(ctx context.Context, at geom.Point, k int, text lexical.Query) ([]index.Hit[K, V], error) {
	return c.search(ctx, k, func(ctx context.Context, local index.Local[K, V], k int) ([]index.Hit[K, V], error) {
		return local.KNN(ctx, at, k, text)
	})
}

// Circle returns documents satisfying pred against the circle of radiusKm
// around center.
func (c *Coordinator[K, V]) Circle(ctx context.Context, center geom.Point, radiusKm float64, k int, pred geom.Predicate, text lexical.Query) ([]index.Hit[K, V], error) {
	return c.search(ctx, k, func(ctx context.Context, local index.Local[K, V], k int) ([]index.Hit[K, V], error) {
		return local.Circle(ctx, center, radiusKm, k, pred, text)
	})
}

// Rect returns documents satisfying pred against box.
func (c *Coordinator[K, V]) Rect(ctx context.Context, box geom.Rect, k int, pred geom.Predicate, text lexical.Query) ([]index.Hit[K, V], error) {
	return c.search(ctx, k, func(ctx context.Context, local index.Local[K, V], k int) ([]index.Hit[K, V], error) {
		return local.Rect(ctx, box, k, pred, text)
	})
}

// Spatial returns documents satisfying pred against an arbitrary query
// shape.
func (c *Coordinator[K, V]) Spatial(ctx context.Context, shape geom.Shape, k int, pred geom.Predicate, text lexical.Query) ([]index.Hit[K, V], error) {
	return c.search(ctx, k, func(ctx context.Context, local index.Local[K, V], k int) ([]index.Hit[K, V], error) {
		return local.Spatial(ctx, shape, k, pred, text)
	})
}

// Text returns the k most relevant documents for the text query.
func (c *Coordinator[K, V]) Text(ctx context.Context, query lexical.Query, k int) ([]index.Hit[K, V], error) {
	return c.search(ctx, k, func(ctx context.Context, local index.Local[K, V], k int) ([]index.Hit[K, V], error) {
		return local.Text(ctx, query, k)
	})
}

// Count sums the partition sizes. Partitions are disjoint by construction,
// so the sum needs no deduplication.
func (c *Coordinator[K, V]) Count(ctx context.Context) (int, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}

	counts := make([]int, len(c.parts))
	err := c.runner.Run(ctx, len(c.parts), func(_ context.Context, ord int) error {
		counts[ord] = c.parts[ord].Local.Len()
		return nil
	})
	if err != nil {
		return 0, err
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	return total, nil
}

// Exists reports whether any partition holds the key.
func (c *Coordinator[K, V]) Exists(ctx context.Context, key K) (bool, error) {
	if c.closed.Load() {
		return false, ErrClosed
	}

	found := make([]bool, len(c.parts))
	err := c.runner.Run(ctx, len(c.parts), func(_ context.Context, ord int) error {
		ok, err := c.parts[ord].Local.Contains(key)
		if err != nil {
			return &PartitionError{Partition: ord, Err: err}
		}
		found[ord] = ok
		return nil
	})
	if err != nil {
		return false, err
	}

	for _, ok := range found {
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Filter derives a new Coordinator over the documents keep accepts. The
// receiver stays usable; partition count and ordinals are preserved. An
// owned runner is not shared: the derived Coordinator gets its own pool, so
// either side can be closed independently.
func (c *Coordinator[K, V]) Filter(ctx context.Context, keep func(K, V) bool) (*Coordinator[K, V], error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	locals := make([]index.Local[K, V], len(c.parts))
	err := c.runner.Run(ctx, len(c.parts), func(_ context.Context, ord int) error {
		filtered, err := c.parts[ord].Local.Filter(keep)
		if err != nil {
			return &PartitionError{Partition: ord, Err: err}
		}
		locals[ord] = filtered
		return nil
	})
	if err != nil {
		return nil, err
	}

	if c.ownsRunner {
		return NewCoordinator(locals, WithPoolSize(c.poolSize))
	}
	return NewCoordinator(locals, WithRunner(c.runner))
}

// Close closes every partition index and, when owned, the runner.
// Idempotent; partition failures are joined and attributed.
func (c *Coordinator[K, V]) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	var errs []error
	for _, p := range c.parts {
		if err := p.Local.Close(); err != nil {
			errs = append(errs, &PartitionError{Partition: p.Ord, Err: err})
		}
	}
	if c.ownsRunner {
		if err := c.runner.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close runner: %w", err))
		}
	}
	return errors.Join(errs...)
}
