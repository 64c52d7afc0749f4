package engine

import (
	"cmp"
	"context"

	"github.com/geoshard/geoshard/geom"
	"github.com/geoshard/geoshard/index"
	"github.com/geoshard/geoshard/lexical"
	"github.com/geoshard/geoshard/topk"
)

// LinkByKNN finds, for every query point, the k nearest documents across
// all partitions. The result is aligned with points: result[i] holds the
// matches for points[i], nearest first, at most k of them.
//
// The whole points slice is broadcast to every partition task, which runs
// every query against its local index. Partial accumulators are then
// grouped by query ordinal and reduced pairwise, so only bounded
// accumulators ever cross partition boundaries, never document sets. The
// broadcast is deliberate: callers with very large query sets chunk them.
//
// A point with no match in any partition gets an empty slice. k ≤ 0 yields
// empty slices for every point.
func LinkByKNN[K cmp.Ordered, V any](ctx context.Context, c *Coordinator[K, V], points []geom.Point, k int) ([][]index.Hit[K, V], error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	out := make([][]index.Hit[K, V], len(points))
	if len(points) == 0 {
		return out, nil
	}

	monoid := topk.NewMonoid(k, index.WorseHit[K, V])

	if k <= 0 || len(c.parts) == 0 {
		for qi := range out {
			out[qi] = monoid.Zero().Items()
		}
		return out, nil
	}

	// partials[ord][qi] is partition ord's local top-k for query qi.
	partials := make([][]*topk.Agg[index.Hit[K, V]], len(c.parts))

	err := c.runner.Run(ctx, len(c.parts), func(ctx context.Context, ord int) error {
		local := c.parts[ord].Local
		accs := make([]*topk.Agg[index.Hit[K, V]], len(points))
		for qi, p := range points {
			hits, err := local.KNN(ctx, p, k, lexical.Query{})
			if err != nil {
				return &PartitionError{Partition: ord, Err: err}
			}
			accs[qi] = monoid.Build(hits...)
		}
		partials[ord] = accs
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Group by query ordinal and reduce each group.
	group := make([]*topk.Agg[index.Hit[K, V]], len(c.parts))
	for qi := range points {
		for ord := range c.parts {
			if partials[ord] != nil {
				group[ord] = partials[ord][qi]
			} else {
				group[ord] = nil
			}
		}
		out[qi] = monoid.Reduce(group...).Items()
	}

	return out, nil
}
