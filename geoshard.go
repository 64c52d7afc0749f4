package geoshard

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"iter"
	"math"
	"time"

	"github.com/geoshard/geoshard/codec"
	"github.com/geoshard/geoshard/distance"
	"github.com/geoshard/geoshard/engine"
	"github.com/geoshard/geoshard/geom"
	"github.com/geoshard/geoshard/index"
	"github.com/geoshard/geoshard/lexical"
	"github.com/geoshard/geoshard/metadata"
)

// Hit is one scored search result: the document key, its payload, the score
// that ranked it and, for position queries, the distance in kilometres.
type Hit[K cmp.Ordered, V any] = index.Hit[K, V]

// Collection is an immutable set of documents partitioned over local
// indexes. All methods are safe for concurrent use.
type Collection[K cmp.Ordered, V any] struct {
	coord   *engine.Coordinator[K, V]
	codec   codec.Codec
	metrics MetricsCollector
	logger  *Logger
	metric  distance.Metric
	count   int
}

// Len returns the number of documents in the collection.
func (c *Collection[K, V]) Len() int { return c.count }

// Partitions returns the number of partitions.
func (c *Collection[K, V]) Partitions() int { return c.coord.Partitions() }

// Codec returns the codec snapshots of this collection are written with.
func (c *Collection[K, V]) Codec() codec.Codec { return c.codec }

// Metric returns the distance metric the collection ranks with.
func (c *Collection[K, V]) Metric() distance.Metric { return c.metric }

// Logger returns the collection's structured logger.
func (c *Collection[K, V]) Logger() *Logger { return c.logger }

// Metrics returns the collection's metrics collector.
func (c *Collection[K, V]) Metrics() MetricsCollector { return c.metrics }

// Docs iterates all documents, partition by partition. The order is the
// indexing order, not a ranking.
func (c *Collection[K, V]) Docs() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for ord := range c.coord.Partitions() {
			for k, v := range c.coord.Local(ord).Docs() {
				if !yield(k, v) {
					return
				}
			}
		}
	}
}

// PartitionDocs iterates one partition's documents in indexing order.
// Snapshots use it to persist the partition layout exactly.
func (c *Collection[K, V]) PartitionDocs(ord int) iter.Seq2[K, V] {
	return c.coord.Local(ord).Docs()
}

// KNNSearch returns the k documents nearest to at, nearest first. Hits are
// scored 1/(1+distanceKm). A text option restricts the candidates before
// ranking; the predicate option is ignored.
func (c *Collection[K, V]) KNNSearch(ctx context.Context, at geom.Point, k int, optFns ...func(*SearchOptions)) ([]Hit[K, V], error) {
	start := time.Now()
	opts := applySearchOptions(optFns)

	text, err := c.prepare(at.Validate(), opts.Text)
	if err != nil {
		c.finishSearch(ctx, "knn", k, 0, start, err)
		return nil, err
	}

	hits, err := c.coord.KNN(ctx, at, k, text)
	if err != nil {
		err = translateError(err)
		c.finishSearch(ctx, "knn", k, 0, start, err)
		return nil, err
	}

	hits = filterHits(hits, opts.Fields)
	c.finishSearch(ctx, "knn", k, len(hits), start, nil)
	return hits, nil
}

// CircleSearch returns up to k documents whose geometry relates to the
// circle of radiusKm around center under the configured predicate
// (default Intersects). Hits score a constant 1 and order by key;
// DistanceKm is measured from center.
func (c *Collection[K, V]) CircleSearch(ctx context.Context, center geom.Point, radiusKm float64, k int, optFns ...func(*SearchOptions)) ([]Hit[K, V], error) {
	start := time.Now()
	opts := applySearchOptions(optFns)

	err := center.Validate()
	if err == nil && (radiusKm < 0 || math.IsNaN(radiusKm)) {
		err = fmt.Errorf("invalid search radius %gkm", radiusKm)
	}
	text, err := c.prepare(err, opts.Text)
	if err != nil {
		c.finishSearch(ctx, "circle", k, 0, start, err)
		return nil, err
	}

	hits, err := c.coord.Circle(ctx, center, radiusKm, k, opts.Predicate, text)
	if err != nil {
		err = translateError(err)
		c.finishSearch(ctx, "circle", k, 0, start, err)
		return nil, err
	}

	hits = filterHits(hits, opts.Fields)
	c.finishSearch(ctx, "circle", k, len(hits), start, nil)
	return hits, nil
}

// RectSearch returns up to k documents whose geometry relates to box under
// the configured predicate. Construct box with geom.RectFromCorners or
// geom.RectFromCenter; boxes may cross the antimeridian.
func (c *Collection[K, V]) RectSearch(ctx context.Context, box geom.Rect, k int, optFns ...func(*SearchOptions)) ([]Hit[K, V], error) {
	start := time.Now()
	opts := applySearchOptions(optFns)

	text, err := c.prepare(nil, opts.Text)
	if err != nil {
		c.finishSearch(ctx, "rect", k, 0, start, err)
		return nil, err
	}

	hits, err := c.coord.Rect(ctx, box, k, opts.Predicate, text)
	if err != nil {
		err = translateError(err)
		c.finishSearch(ctx, "rect", k, 0, start, err)
		return nil, err
	}

	hits = filterHits(hits, opts.Fields)
	c.finishSearch(ctx, "rect", k, len(hits), start, nil)
	return hits, nil
}

// SpatialSearch parses a WKT geometry and returns up to k documents whose
// geometry relates to it under the configured predicate. Malformed WKT
// fails with *geom.ParseError before any partition is queried.
func (c *Collection[K, V]) SpatialSearch(ctx context.Context, wkt string, k int, optFns ...func(*SearchOptions)) ([]Hit[K, V], error) {
	shape, err := geom.ParseWKT(wkt)
	if err != nil {
		c.metrics.RecordSearch("spatial", k, 0, err)
		c.logger.LogSearch(ctx, "spatial", k, 0, err)
		return nil, err
	}

	return c.SpatialSearchShape(ctx, shape, k, optFns...)
}

// SpatialSearchShape is SpatialSearch for an already-constructed shape.
func (c *Collection[K, V]) SpatialSearchShape(ctx context.Context, shape geom.Shape, k int, optFns ...func(*SearchOptions)) ([]Hit[K, V], error) {
	start := time.Now()
	opts := applySearchOptions(optFns)

	var err error
	if shape == nil {
		err = errors.New("nil query shape")
	}
	text, err := c.prepare(err, opts.Text)
	if err != nil {
		c.finishSearch(ctx, "spatial", k, 0, start, err)
		return nil, err
	}

	hits, err := c.coord.Spatial(ctx, shape, k, opts.Predicate, text)
	if err != nil {
		err = translateError(err)
		c.finishSearch(ctx, "spatial", k, 0, start, err)
		return nil, err
	}

	hits = filterHits(hits, opts.Fields)
	c.finishSearch(ctx, "spatial", k, len(hits), start, nil)
	return hits, nil
}

// TextSearch returns the k documents most relevant to the text query,
// scored by BM25 and ordered best first. The empty query and "*:*" match
// every document with a constant score, ordered by key.
func (c *Collection[K, V]) TextSearch(ctx context.Context, query string, k int) ([]Hit[K, V], error) {
	start := time.Now()

	text, err := lexical.Parse(query)
	if err != nil {
		c.finishSearch(ctx, "text", k, 0, start, err)
		return nil, err
	}

	hits, err := c.coord.Text(ctx, text, k)
	if err != nil {
		err = translateError(err)
		c.finishSearch(ctx, "text", k, 0, start, err)
		return nil, err
	}

	c.finishSearch(ctx, "text", k, len(hits), start, nil)
	return hits, nil
}

// Count returns the number of documents by summing the partition sizes.
func (c *Collection[K, V]) Count(ctx context.Context) (int, error) {
	n, err := c.coord.Count(ctx)
	return n, translateError(err)
}

// Exists reports whether any partition holds the key.
func (c *Collection[K, V]) Exists(ctx context.Context, key K) (bool, error) {
	ok, err := c.coord.Exists(ctx, key)
	return ok, translateError(err)
}

// Filter derives a new Collection over the documents keep accepts. The
// receiver stays usable and unchanged; the derived collection shares the
// logger, metrics and codec but owns its partitions.
func (c *Collection[K, V]) Filter(ctx context.Context, keep func(K, V) bool) (*Collection[K, V], error) {
	start := time.Now()

	coord, err := c.coord.Filter(ctx, keep)
	if err != nil {
		err = translateError(err)
		c.metrics.RecordFilter(time.Since(start), err)
		c.logger.LogFilter(ctx, 0, err)
		return nil, err
	}

	n, err := coord.Count(ctx)
	if err != nil {
		err = translateError(err)
		c.metrics.RecordFilter(time.Since(start), err)
		c.logger.LogFilter(ctx, 0, err)
		return nil, err
	}

	c.metrics.RecordFilter(time.Since(start), nil)
	c.logger.LogFilter(ctx, n, nil)

	return &Collection[K, V]{
		coord:   coord,
		codec:   c.codec,
		metrics: c.metrics,
		logger:  c.logger,
		metric:  c.metric,
		count:   n,
	}, nil
}

// prepare folds an input validation error with the text-option parse,
// returning the parsed restriction query.
func (c *Collection[K, V]) prepare(err error, text string) (lexical.Query, error) {
	if err != nil {
		return lexical.Query{}, err
	}
	return lexical.Parse(text)
}

func (c *Collection[K, V]) finishSearch(ctx context.Context, op string, k, results int, start time.Time, err error) {
	c.metrics.RecordSearch(op, k, time.Since(start), err)
	c.logger.LogSearch(ctx, op, k, results, err)
}

// filterHits applies the metadata post-filter. The result can hold fewer
// than k hits; relative order is preserved.
func filterHits[K cmp.Ordered, V any](hits []index.Hit[K, V], fs metadata.FilterSet) []index.Hit[K, V] {
	if len(fs) == 0 {
		return hits
	}
	out := make([]index.Hit[K, V], 0, len(hits))
	for _, h := range hits {
		if fs.Matches(h.Fields) {
			out = append(out, h)
		}
	}
	return out
}
