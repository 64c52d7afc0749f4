package geoshard

import (
	"cmp"
	"context"
	"time"

	"github.com/geoshard/geoshard/engine"
	"github.com/geoshard/geoshard/geom"
)

// Linked pairs one input entity with its nearest documents.
type Linked[T any, K cmp.Ordered, V any] struct {
	Entity T
	Hits   []Hit[K, V]
}

// Link finds, for every entity, the k nearest documents in the collection.
// at extracts the query position from an entity. The output is parallel to
// entities; each Hits slice is ordered nearest first and is empty, never
// nil, when k is not positive or the collection holds no documents.
//
// The whole batch runs as one fan-out over the partitions, so linking a
// million entities does not pay a per-entity coordination cost.
func Link[T any, K cmp.Ordered, V any](ctx context.Context, c *Collection[K, V], entities []T, at func(T) geom.Point, k int) ([]Linked[T, K, V], error) {
	start := time.Now()

	if at == nil {
		c.metrics.RecordLink(len(entities), k, time.Since(start), ErrNilPositionFunc)
		c.logger.LogLink(ctx, len(entities), k, ErrNilPositionFunc)
		return nil, ErrNilPositionFunc
	}

	points := make([]geom.Point, len(entities))
	for i, e := range entities {
		points[i] = at(e)
	}

	perEntity, err := engine.LinkByKNN(ctx, c.coord, points, k)
	if err != nil {
		err = translateError(err)
		c.metrics.RecordLink(len(entities), k, time.Since(start), err)
		c.logger.LogLink(ctx, len(entities), k, err)
		return nil, err
	}

	out := make([]Linked[T, K, V], len(entities))
	for i, e := range entities {
		out[i] = Linked[T, K, V]{Entity: e, Hits: perEntity[i]}
	}

	c.metrics.RecordLink(len(entities), k, time.Since(start), nil)
	c.logger.LogLink(ctx, len(entities), k, nil)
	return out, nil
}
